package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns business profiles and carries the fallback plan used when no subscription row exists.
type User struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string             `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password           string             `gorm:"type:varchar(255);not null" json:"-"`
	FirstName          string             `gorm:"type:varchar(100)" json:"first_name"`
	LastName           string             `gorm:"type:varchar(100)" json:"last_name"`
	SubscriptionPlan   PlanType           `gorm:"type:varchar(20);not null;default:'free'" json:"subscription_plan"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"subscription_status"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}
