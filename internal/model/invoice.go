package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoice is the aggregate root. Items and Payments are owned and cascade on delete.
// TotalAmount is Subtotal - DiscountAmount + TaxAmount + ShippingAmount and AmountDue is TotalAmount - AmountPaid.
type Invoice struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID          uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_business_number,priority:1" json:"business_id"`
	ClientID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client              *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	InvoiceNumber       string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_invoices_business_number,priority:2" json:"invoice_number"`
	Status              InvoiceStatus   `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	InvoiceDate         datatypes.Date  `gorm:"type:date;not null" json:"invoice_date"`
	DueDate             datatypes.Date  `gorm:"type:date;not null" json:"due_date"`
	PaymentTerms        PaymentTerms    `gorm:"type:varchar(20);not null;default:'net_30'" json:"payment_terms"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"subtotal"`
	DiscountType        DiscountType    `gorm:"type:varchar(20)" json:"discount_type"`
	DiscountValue       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_value"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	ShippingAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"shipping_amount"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"`
	AmountPaid          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount_paid"`
	AmountDue           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount_due"`
	Currency            string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Notes               string          `gorm:"type:text" json:"notes"`
	PaymentInstructions string          `gorm:"type:text" json:"payment_instructions"`
	SentAt              *time.Time      `json:"sent_at"`
	ViewedAt            *time.Time      `json:"viewed_at"`
	PaidAt              *time.Time      `json:"paid_at"`
	CancelledAt         *time.Time      `json:"cancelled_at"`
	CreatedBy           *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Items               []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payments            []Payment       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	CreatedAt           time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// EffectiveStatus derives OVERDUE for sent or viewed invoices whose due date is before today.
func (i *Invoice) EffectiveStatus(today time.Time) InvoiceStatus {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusViewed:
		y, m, d := today.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		dy, dm, dd := time.Time(i.DueDate).Date()
		due := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
		if due.Before(start) {
			return InvoiceStatusOverdue
		}
	case InvoiceStatusDraft, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled, InvoiceStatusRefunded:
	}
	return i.Status
}

// InvoiceItem is one billable line. LineTotal is (Quantity*UnitPrice - DiscountAmount) + TaxAmount.
type InvoiceItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID      *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	Description    string          `gorm:"type:text;not null" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	UnitOfMeasure  string          `gorm:"type:varchar(20)" json:"unit_of_measure"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	DiscountType   DiscountType    `gorm:"type:varchar(20)" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_value"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
	SortOrder      int             `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (it *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&it.ID)
	return nil
}
