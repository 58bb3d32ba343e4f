package cache

import (
	"context"
	"testing"
	"time"

	"invoicegen/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_GetSetExpire(t *testing.T) {
	srv, rdb := testutil.NewRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", `{"a":1}`, 300*time.Second))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)
	assert.Equal(t, 300*time.Second, srv.TTL("k"))

	srv.FastForward(301 * time.Second)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestGeneration(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()
	key := InvoiceGenerationKey(uuid.New())

	g, err := Generation(ctx, store, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), g)

	_, err = store.Incr(ctx, key)
	require.NoError(t, err)
	g, err = Generation(ctx, store, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), g)
}

func TestRedisStore_Unavailable(t *testing.T) {
	srv, rdb := testutil.NewRedis(t)
	store := NewRedisStore(rdb)
	srv.Close()

	_, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestInvoiceListKey_Deterministic(t *testing.T) {
	user := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	biz := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	k1 := InvoiceListKey(user, 3, InvoiceListParams{BusinessID: &biz, Status: "sent", Skip: 0, Limit: 10})
	k2 := InvoiceListKey(user, 3, InvoiceListParams{BusinessID: &biz, Status: "sent", Skip: 0, Limit: 10})
	assert.Equal(t, k1, k2)
	assert.Equal(t,
		"user:11111111-1111-1111-1111-111111111111:invoices:v3:business_id=22222222-2222-2222-2222-222222222222:client_id=all:status=sent:skip=0:limit=10",
		k1)

	assert.NotEqual(t, k1, InvoiceListKey(user, 4, InvoiceListParams{BusinessID: &biz, Status: "sent", Limit: 10}))
	assert.NotEqual(t, k1, InvoiceListKey(user, 3, InvoiceListParams{BusinessID: &biz, Status: "sent", Skip: 10, Limit: 10}))
}
