package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Client struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"business_id"`
	ClientType  ClientType   `gorm:"type:varchar(20);not null;default:'individual'" json:"client_type"`
	CompanyName string       `gorm:"type:varchar(255)" json:"company_name"`
	FirstName   string       `gorm:"type:varchar(100)" json:"first_name"`
	LastName    string       `gorm:"type:varchar(100)" json:"last_name"`
	Email       string       `gorm:"type:varchar(255)" json:"email"`
	Phone       string       `gorm:"type:varchar(50)" json:"phone"`
	Currency    string       `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Status      ClientStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// DisplayName is the company name for companies and the full name otherwise.
func (c *Client) DisplayName() string {
	if c.ClientType == ClientTypeCompany && c.CompanyName != "" {
		return c.CompanyName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
