package service

import (
	"encoding/json"
	"fmt"
	"time"

	"invoicegen/internal/model"
	"invoicegen/pkg/isodate"

	"github.com/google/uuid"
)

type ClientView struct {
	ID          uuid.UUID          `json:"id"`
	ClientType  model.ClientType   `json:"client_type"`
	DisplayName string             `json:"display_name"`
	CompanyName string             `json:"company_name"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Currency    string             `json:"currency"`
	Status      model.ClientStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// InvoiceView is what listings return and what the cache stores. Money is fixed to two places,
// dates are YYYY-MM-DD and datetimes RFC 3339 in UTC.
type InvoiceView struct {
	ID                  uuid.UUID           `json:"id"`
	BusinessID          uuid.UUID           `json:"business_id"`
	ClientID            uuid.UUID           `json:"client_id"`
	InvoiceNumber       string              `json:"invoice_number"`
	Status              model.InvoiceStatus `json:"status"`
	EffectiveStatus     model.InvoiceStatus `json:"effective_status,omitempty"`
	InvoiceDate         isodate.Date        `json:"invoice_date"`
	DueDate             isodate.Date        `json:"due_date"`
	PaymentTerms        model.PaymentTerms  `json:"payment_terms"`
	Subtotal            string              `json:"subtotal"`
	DiscountType        model.DiscountType  `json:"discount_type,omitempty"`
	DiscountValue       string              `json:"discount_value"`
	DiscountAmount      string              `json:"discount_amount"`
	TaxAmount           string              `json:"tax_amount"`
	ShippingAmount      string              `json:"shipping_amount"`
	TotalAmount         string              `json:"total_amount"`
	AmountPaid          string              `json:"amount_paid"`
	AmountDue           string              `json:"amount_due"`
	Currency            string              `json:"currency"`
	Notes               string              `json:"notes"`
	PaymentInstructions string              `json:"payment_instructions"`
	SentAt              *time.Time          `json:"sent_at"`
	ViewedAt            *time.Time          `json:"viewed_at"`
	PaidAt              *time.Time          `json:"paid_at"`
	CancelledAt         *time.Time          `json:"cancelled_at"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	Client              *ClientView         `json:"client,omitempty"`
}

type InvoiceItemResponse struct {
	ID             uuid.UUID          `json:"id"`
	ProductID      *uuid.UUID         `json:"product_id"`
	Description    string             `json:"description"`
	Quantity       string             `json:"quantity"`
	UnitPrice      string             `json:"unit_price"`
	UnitOfMeasure  string             `json:"unit_of_measure"`
	TaxRate        string             `json:"tax_rate"`
	TaxAmount      string             `json:"tax_amount"`
	DiscountType   model.DiscountType `json:"discount_type,omitempty"`
	DiscountValue  string             `json:"discount_value"`
	DiscountAmount string             `json:"discount_amount"`
	LineTotal      string             `json:"line_total"`
	SortOrder      int                `json:"sort_order"`
}

// InvoiceResponse is the single-invoice shape: the listing view plus its lines.
type InvoiceResponse struct {
	InvoiceView
	Items []InvoiceItemResponse `json:"items"`
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func toClientView(c *model.Client) *ClientView {
	if c == nil {
		return nil
	}
	return &ClientView{
		ID:          c.ID,
		ClientType:  c.ClientType,
		DisplayName: c.DisplayName(),
		CompanyName: c.CompanyName,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		Currency:    c.Currency,
		Status:      c.Status,
		CreatedAt:   utc(c.CreatedAt),
		UpdatedAt:   utc(c.UpdatedAt),
	}
}

func toInvoiceView(inv *model.Invoice, client *model.Client) InvoiceView {
	return InvoiceView{
		ID:                  inv.ID,
		BusinessID:          inv.BusinessID,
		ClientID:            inv.ClientID,
		InvoiceNumber:       inv.InvoiceNumber,
		Status:              inv.Status,
		InvoiceDate:         isodate.New(time.Time(inv.InvoiceDate)),
		DueDate:             isodate.New(time.Time(inv.DueDate)),
		PaymentTerms:        inv.PaymentTerms,
		Subtotal:            inv.Subtotal.StringFixed(2),
		DiscountType:        inv.DiscountType,
		DiscountValue:       inv.DiscountValue.StringFixed(2),
		DiscountAmount:      inv.DiscountAmount.StringFixed(2),
		TaxAmount:           inv.TaxAmount.StringFixed(2),
		ShippingAmount:      inv.ShippingAmount.StringFixed(2),
		TotalAmount:         inv.TotalAmount.StringFixed(2),
		AmountPaid:          inv.AmountPaid.StringFixed(2),
		AmountDue:           inv.AmountDue.StringFixed(2),
		Currency:            inv.Currency,
		Notes:               inv.Notes,
		PaymentInstructions: inv.PaymentInstructions,
		SentAt:              utcPtr(inv.SentAt),
		ViewedAt:            utcPtr(inv.ViewedAt),
		PaidAt:              utcPtr(inv.PaidAt),
		CancelledAt:         utcPtr(inv.CancelledAt),
		CreatedAt:           utc(inv.CreatedAt),
		UpdatedAt:           utc(inv.UpdatedAt),
		Client:              toClientView(client),
	}
}

func toItemResponse(it model.InvoiceItem) InvoiceItemResponse {
	return InvoiceItemResponse{
		ID:             it.ID,
		ProductID:      it.ProductID,
		Description:    it.Description,
		Quantity:       it.Quantity.String(),
		UnitPrice:      it.UnitPrice.StringFixed(2),
		UnitOfMeasure:  it.UnitOfMeasure,
		TaxRate:        it.TaxRate.String(),
		TaxAmount:      it.TaxAmount.StringFixed(2),
		DiscountType:   it.DiscountType,
		DiscountValue:  it.DiscountValue.StringFixed(2),
		DiscountAmount: it.DiscountAmount.StringFixed(2),
		LineTotal:      it.LineTotal.StringFixed(2),
		SortOrder:      it.SortOrder,
	}
}

func toInvoiceResponse(inv *model.Invoice, today time.Time) InvoiceResponse {
	view := toInvoiceView(inv, inv.Client)
	view.EffectiveStatus = inv.EffectiveStatus(today)
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, toItemResponse(it))
	}
	return InvoiceResponse{InvoiceView: view, Items: items}
}

// withEffectiveStatus derives OVERDUE at read time so cached and fresh listings agree.
func withEffectiveStatus(views []InvoiceView, today time.Time) []InvoiceView {
	start := isodate.New(today.UTC())
	for i := range views {
		v := &views[i]
		v.EffectiveStatus = v.Status
		if (v.Status == model.InvoiceStatusSent || v.Status == model.InvoiceStatusViewed) && v.DueDate.Before(start.Time) {
			v.EffectiveStatus = model.InvoiceStatusOverdue
		}
	}
	return views
}

// encodeInvoiceViews and decodeInvoiceViews are the only serialization path for cached listings.
func encodeInvoiceViews(views []InvoiceView) (string, error) {
	b, err := json.Marshal(views)
	if err != nil {
		return "", fmt.Errorf("encode invoice views: %w", err)
	}
	return string(b), nil
}

func decodeInvoiceViews(raw string) ([]InvoiceView, error) {
	views := make([]InvoiceView, 0)
	if err := json.Unmarshal([]byte(raw), &views); err != nil {
		return nil, fmt.Errorf("decode invoice views: %w", err)
	}
	return views, nil
}
