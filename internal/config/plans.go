package config

import "invoicegen/internal/model"

// Unlimited marks a plan limit without a ceiling.
const Unlimited = -1

// PlanLimits is the fallback entitlement used when a user has no subscription row.
type PlanLimits struct {
	MaxInvoicesPerMonth int
	MaxBusinesses       int
	Features            []string
}

// PlanTable is keyed by plan type. Inject a custom table to change fallback limits.
type PlanTable map[model.PlanType]PlanLimits

func DefaultPlanTable() PlanTable {
	return PlanTable{
		model.PlanFree: {
			MaxInvoicesPerMonth: 5,
			MaxBusinesses:       1,
			Features:            []string{"basic_pdf"},
		},
		model.PlanStarter: {
			MaxInvoicesPerMonth: 50,
			MaxBusinesses:       2,
			Features:            []string{"basic_pdf", "custom_branding", "reminders"},
		},
		model.PlanPro: {
			MaxInvoicesPerMonth: Unlimited,
			MaxBusinesses:       5,
			Features:            []string{"basic_pdf", "custom_branding", "reminders", "recurring_invoices", "advanced_reporting"},
		},
		model.PlanEnterprise: {
			MaxInvoicesPerMonth: Unlimited,
			MaxBusinesses:       Unlimited,
			Features: []string{"basic_pdf", "custom_branding", "reminders", "recurring_invoices",
				"advanced_reporting", "audit_logs", "priority_support"},
		},
	}
}

// Lookup returns the limits for plan, falling back to the free tier.
func (t PlanTable) Lookup(plan model.PlanType) PlanLimits {
	if l, ok := t[plan]; ok {
		return l
	}
	return t[model.PlanFree]
}
