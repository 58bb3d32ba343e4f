package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BillingPlan limits are nullable; nil means unlimited.
type BillingPlan struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	PlanType            PlanType                    `gorm:"type:varchar(20);uniqueIndex;not null" json:"plan_type"`
	Name                string                      `gorm:"type:varchar(100);not null" json:"name"`
	PriceMonthly        decimal.Decimal             `gorm:"type:decimal(10,2);not null;default:0" json:"price_monthly"`
	PriceYearly         decimal.Decimal             `gorm:"type:decimal(10,2);not null;default:0" json:"price_yearly"`
	Currency            string                      `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	MaxInvoicesPerMonth *int                        `json:"max_invoices_per_month"`
	MaxBusinesses       *int                        `json:"max_businesses"`
	Features            datatypes.JSONSlice[string] `json:"features"`
	IsActive            bool                        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

func (p *BillingPlan) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// Subscription links a user to a plan. At most one per user.
type Subscription struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID          `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	PlanID             uuid.UUID          `gorm:"type:uuid;not null;index" json:"plan_id"`
	Plan               *BillingPlan       `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status             SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CurrentPeriodStart *time.Time         `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
