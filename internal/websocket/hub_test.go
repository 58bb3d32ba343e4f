package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoicegen/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("ws-secret")

func token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) (*gws.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	return gws.DefaultDialer.Dial(url, nil)
}

func TestServeWs_RejectsMissingOrBadToken(t *testing.T) {
	_, srv := newServer(t)

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(t, srv, "?token=garbage")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_DeliversOnlyToOwner(t *testing.T) {
	hub, srv := newServer(t)
	owner, stranger := uuid.New(), uuid.New()

	ownerConn, _, err := dial(t, srv, "?token="+token(t, owner))
	require.NoError(t, err)
	defer ownerConn.Close()
	strangerConn, _, err := dial(t, srv, "?token="+token(t, stranger))
	require.NoError(t, err)
	defer strangerConn.Close()

	// registration is asynchronous, so keep publishing until the owner's socket sees an event
	invoiceID := uuid.New()
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish(service.Event{Type: service.EventInvoicePaid, UserID: owner, InvoiceID: invoiceID, InvoiceNumber: "INV-00007"})
			}
		}
	}()

	require.NoError(t, ownerConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ownerConn.ReadMessage()
	close(stop)
	require.NoError(t, err)
	var e service.Event
	require.NoError(t, json.Unmarshal(raw, &e))
	assert.Equal(t, invoiceID, e.InvoiceID)
	assert.Equal(t, "INV-00007", e.InvoiceNumber)

	_ = strangerConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = strangerConn.ReadMessage()
	assert.Error(t, err, "other users must not receive the event")
}
