package model

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRefunded  InvoiceStatus = "refunded"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	}
	return false
}

// Closed reports whether the invoice no longer accepts payments or edits.
func (s InvoiceStatus) Closed() bool {
	switch s {
	case InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPaid, InvoiceStatusOverdue:
		return false
	}
	return false
}

// DiscountType selects how a discount value is interpreted. The empty value means no discount.
type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (d DiscountType) Valid() bool {
	switch d {
	case DiscountNone, DiscountPercentage, DiscountFixed:
		return true
	}
	return false
}

type PaymentTerms string

const (
	PaymentTermsDueOnReceipt PaymentTerms = "due_on_receipt"
	PaymentTermsNet15        PaymentTerms = "net_15"
	PaymentTermsNet30        PaymentTerms = "net_30"
	PaymentTermsNet60        PaymentTerms = "net_60"
	PaymentTermsCustom       PaymentTerms = "custom"
)

func (p PaymentTerms) Valid() bool {
	switch p {
	case PaymentTermsDueOnReceipt, PaymentTermsNet15, PaymentTermsNet30, PaymentTermsNet60, PaymentTermsCustom:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodBankTransfer, PaymentMethodCreditCard,
		PaymentMethodPaypal, PaymentMethodStripe, PaymentMethodOther:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Counts reports whether a payment in this status contributes to amount_paid.
func (s PaymentStatus) Counts() bool {
	switch s {
	case PaymentStatusCompleted:
		return true
	case PaymentStatusPending, PaymentStatusFailed, PaymentStatusRefunded:
		return false
	}
	return false
}

type ClientType string

const (
	ClientTypeIndividual ClientType = "individual"
	ClientTypeCompany    ClientType = "company"
)

func (t ClientType) Valid() bool {
	return t == ClientTypeIndividual || t == ClientTypeCompany
}

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusBlocked  ClientStatus = "blocked"
)

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientStatusActive, ClientStatusInactive, ClientStatusBlocked:
		return true
	}
	return false
}

// PlanType identifies a billing tier.
type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanStarter    PlanType = "starter"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

func (p PlanType) Valid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionCanceled:
		return true
	}
	return false
}

// Entitled reports whether the status grants plan usage.
func (s SubscriptionStatus) Entitled() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing:
		return true
	case SubscriptionPastDue, SubscriptionCanceled:
		return false
	}
	return false
}

type CategoryType string

const (
	CategoryInvoice CategoryType = "invoice"
	CategoryProduct CategoryType = "product"
	CategoryExpense CategoryType = "expense"
)

func (t CategoryType) Valid() bool {
	switch t {
	case CategoryInvoice, CategoryProduct, CategoryExpense:
		return true
	}
	return false
}

// StockAdjustment selects how a stock quantity is applied to a product.
type StockAdjustment string

const (
	StockSet      StockAdjustment = "set"
	StockAdd      StockAdjustment = "add"
	StockSubtract StockAdjustment = "subtract"
)

func (a StockAdjustment) Valid() bool {
	return a == StockSet || a == StockAdd || a == StockSubtract
}
