package service

import (
	"context"
	"errors"
	"time"

	"invoicegen/internal/cache"
	"invoicegen/internal/model"
	"invoicegen/internal/repository"
	"invoicegen/pkg/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// InvoiceFilter narrows a listing. Nil or empty fields are not filtered.
type InvoiceFilter struct {
	BusinessID *uuid.UUID
	ClientID   *uuid.UUID
	Status     string
	Skip       int
	Limit      int
}

// ListInvoices serves the owner's invoices newest first, each with its client embedded.
// Results are cached per user for CacheTTL; any cache failure falls back to the database.
func (s *invoiceService) ListInvoices(ctx context.Context, userID uuid.UUID, filter InvoiceFilter) ([]InvoiceView, error) {
	page := pagination.Normalize(filter.Skip, filter.Limit)
	today := startOfDay(s.opts.Now())
	var status *model.InvoiceStatus
	var dueBefore *time.Time
	if filter.Status != "" {
		st := model.InvoiceStatus(filter.Status)
		switch {
		case !st.Valid():
			return nil, invalid("status", "unknown value %q", filter.Status)
		case st == model.InvoiceStatusOverdue:
			dueBefore = &today
		default:
			status = &st
		}
	}

	key, cacheable := s.listKey(ctx, userID, filter, page, today)
	if cacheable {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			views, decodeErr := decodeInvoiceViews(raw)
			if decodeErr == nil {
				return withEffectiveStatus(views, s.opts.Now()), nil
			}
			s.log.Warn().Err(decodeErr).Str("key", key).Msg("discarding unreadable cache entry")
		case !errors.Is(err, cache.ErrMiss):
			s.log.Warn().Err(err).Str("key", key).Msg("invoice cache read failed")
		}
	}

	views, err := s.loadInvoiceViews(ctx, repository.InvoiceListFilter{
		UserID:     userID,
		BusinessID: filter.BusinessID,
		ClientID:   filter.ClientID,
		Status:     status,
		DueBefore:  dueBefore,
		Skip:       page.Skip,
		Limit:      page.Limit,
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		if raw, err := encodeInvoiceViews(views); err != nil {
			s.log.Warn().Err(err).Msg("invoice views not cached")
		} else if err := s.cache.Set(ctx, key, raw, s.opts.CacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("invoice cache write failed")
		}
	}
	return withEffectiveStatus(views, s.opts.Now()), nil
}

func (s *invoiceService) listKey(ctx context.Context, userID uuid.UUID, filter InvoiceFilter, page pagination.Params, today time.Time) (string, bool) {
	gen, err := cache.Generation(ctx, s.cache, cache.InvoiceGenerationKey(userID))
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("invoice cache generation unavailable")
		return "", false
	}
	status := filter.Status
	if model.InvoiceStatus(status) == model.InvoiceStatusOverdue {
		// overdue rows change at midnight
		status += "@" + today.Format("2006-01-02")
	}
	return cache.InvoiceListKey(userID, gen, cache.InvoiceListParams{
		BusinessID: filter.BusinessID,
		ClientID:   filter.ClientID,
		Status:     status,
		Skip:       page.Skip,
		Limit:      page.Limit,
	}), true
}

// loadInvoiceViews resolves all clients of a page with a single query.
func (s *invoiceService) loadInvoiceViews(ctx context.Context, f repository.InvoiceListFilter) ([]InvoiceView, error) {
	invoices, err := s.invoiceRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	clientIDs := lo.Uniq(lo.Map(invoices, func(inv model.Invoice, _ int) uuid.UUID { return inv.ClientID }))
	clients, err := s.clientRepo.FindByIDs(ctx, clientIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(clients, func(c model.Client) uuid.UUID { return c.ID })

	views := make([]InvoiceView, 0, len(invoices))
	for i := range invoices {
		var client *model.Client
		if c, ok := byID[invoices[i].ClientID]; ok {
			client = &c
		}
		views = append(views, toInvoiceView(&invoices[i], client))
	}
	return views, nil
}

// invalidateInvoiceLists bumps the user's generation so every cached listing becomes unreachable.
func invalidateInvoiceLists(ctx context.Context, store cache.Store, log zerolog.Logger, userID uuid.UUID) {
	if _, err := store.Incr(ctx, cache.InvoiceGenerationKey(userID)); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("invoice cache invalidation failed")
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
