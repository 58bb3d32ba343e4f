package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessProfile is the tenant. NextInvoiceNumber is the per-business invoice sequence.
type BusinessProfile struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	BusinessName      string    `gorm:"type:varchar(255);not null" json:"business_name"`
	Email             string    `gorm:"type:varchar(255)" json:"email"`
	Phone             string    `gorm:"type:varchar(50)" json:"phone"`
	Address           string    `gorm:"type:text" json:"address"`
	TaxID             string    `gorm:"type:varchar(50)" json:"tax_id"`
	Currency          string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	InvoicePrefix     string    `gorm:"type:varchar(10);not null;default:'INV'" json:"invoice_prefix"`
	NextInvoiceNumber int       `gorm:"not null;default:1" json:"next_invoice_number"`
	IsActive          bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (b *BusinessProfile) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}
