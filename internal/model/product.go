package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalogue entry of one business. SKU is unique within the business when set.
// Deleting a product only deactivates it so invoice lines keep their reference.
type Product struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_products_business_sku,priority:1" json:"business_id"`
	CategoryID        *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	SKU               *string         `gorm:"type:varchar(100);uniqueIndex:idx_products_business_sku,priority:2" json:"sku"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"unit_price"`
	CostPrice         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"cost_price"`
	UnitOfMeasure     string          `gorm:"type:varchar(20);not null;default:'unit'" json:"unit_of_measure"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"tax_rate"`
	IsTaxable         bool            `gorm:"not null" json:"is_taxable"`
	TrackInventory    bool            `gorm:"not null;default:false" json:"track_inventory"`
	QuantityInStock   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"quantity_in_stock"`
	LowStockThreshold decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"low_stock_threshold"`
	ImageURL          string          `gorm:"type:varchar(500)" json:"image_url"`
	IsActive          bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// EffectiveTaxRate is zero for products that are not taxable.
func (p *Product) EffectiveTaxRate() decimal.Decimal {
	if !p.IsTaxable {
		return decimal.Zero
	}
	return p.TaxRate
}

// LowStock reports whether a tracked product is at or below its threshold.
func (p *Product) LowStock() bool {
	return p.TrackInventory && p.QuantityInStock.LessThanOrEqual(p.LowStockThreshold)
}

// Category groups products, invoices or expenses of one business. Categories nest through ParentID;
// a parent always belongs to the same business and has the same type.
type Category struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"business_id"`
	ParentID     *uuid.UUID   `gorm:"type:uuid;index" json:"parent_id"`
	CategoryType CategoryType `gorm:"type:varchar(20);not null;default:'product'" json:"category_type"`
	Name         string       `gorm:"type:varchar(255);not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description"`
	Color        string       `gorm:"type:varchar(7)" json:"color"`
	Icon         string       `gorm:"type:varchar(50)" json:"icon"`
	SortOrder    int          `gorm:"not null;default:0" json:"sort_order"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
