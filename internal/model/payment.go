package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	PaymentNumber   string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"payment_number"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method          PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status          PaymentStatus   `gorm:"type:varchar(20);not null;default:'completed';index" json:"status"`
	TransactionID   string          `gorm:"type:varchar(255)" json:"transaction_id"`
	ReferenceNumber string          `gorm:"type:varchar(100)" json:"reference_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
