package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateInvoice   = "CREATE_INVOICE"
	ActionUpdateInvoice   = "UPDATE_INVOICE"
	ActionDeleteInvoice   = "DELETE_INVOICE"
	ActionSendInvoice     = "SEND_INVOICE"
	ActionViewInvoice     = "VIEW_INVOICE"
	ActionMarkInvoicePaid = "MARK_INVOICE_PAID"
	ActionCancelInvoice   = "CANCEL_INVOICE"
	ActionRefundInvoice   = "REFUND_INVOICE"
	ActionCreatePayment   = "CREATE_PAYMENT"
	ActionUpdatePayment   = "UPDATE_PAYMENT"
	ActionDeletePayment   = "DELETE_PAYMENT"
	ActionRefundPayment   = "REFUND_PAYMENT"
	ActionReconcile       = "RECONCILE_INVOICE"
	ActionCreateBusiness  = "CREATE_BUSINESS"
	ActionCreateClient    = "CREATE_CLIENT"
	ActionCreateProduct   = "CREATE_PRODUCT"
	ActionUpdateProduct   = "UPDATE_PRODUCT"
	ActionDeleteProduct   = "DELETE_PRODUCT"
	ActionAdjustStock     = "ADJUST_STOCK"
	ActionCreateCategory  = "CREATE_CATEGORY"
	ActionUpdateCategory  = "UPDATE_CATEGORY"
	ActionDeleteCategory  = "DELETE_CATEGORY"
)

// AuditLog tracks Who, What, and When for financial changes
type AuditLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID        `gorm:"type:uuid;index" json:"user_id"`
	Action     string            `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string            `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string            `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
