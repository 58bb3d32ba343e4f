package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicegen/internal/config"
	"invoicegen/internal/logger"
	"invoicegen/internal/model"
	"invoicegen/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LimitInvoicesPerMonth = "invoices_per_month"
	LimitBusinesses       = "businesses"
	LimitSubscription     = "subscription"
)

// PlanLimits is the resolved entitlement of a user. config.Unlimited marks an open limit.
type PlanLimits struct {
	Plan                model.PlanType `json:"plan"`
	MaxInvoicesPerMonth int            `json:"max_invoices_per_month"`
	MaxBusinesses       int            `json:"max_businesses"`
	Features            []string       `json:"features"`
}

// Decision is the answer to an admission check. Callers turn a denial into an error with Err.
type Decision struct {
	Allowed bool
	Limit   string
	Max     int
	Used    int64
	Reason  string
}

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &QuotaExceededError{Limit: d.Limit, Max: d.Max, Used: d.Used, Reason: d.Reason}
}

type UsageResponse struct {
	Plan               model.PlanType           `json:"plan"`
	SubscriptionStatus model.SubscriptionStatus `json:"subscription_status"`
	Limits             PlanLimits               `json:"limits"`
	InvoicesThisMonth  *int64                   `json:"invoices_this_month,omitempty"`
	ActiveBusinesses   int64                    `json:"active_businesses"`
}

type PlanResponse struct {
	PlanType            model.PlanType `json:"plan_type"`
	Name                string         `json:"name"`
	PriceMonthly        string         `json:"price_monthly"`
	PriceYearly         string         `json:"price_yearly"`
	Currency            string         `json:"currency"`
	MaxInvoicesPerMonth *int           `json:"max_invoices_per_month"`
	MaxBusinesses       *int           `json:"max_businesses"`
	Features            []string       `json:"features"`
}

// BillingService answers admission questions. It never writes except when seeding plans.
type BillingService interface {
	GetPlanLimits(ctx context.Context, userID uuid.UUID) (PlanLimits, error)
	CanCreateInvoice(ctx context.Context, business *model.BusinessProfile) (Decision, error)
	CanCreateBusiness(ctx context.Context, userID uuid.UUID) (Decision, error)
	HasFeature(ctx context.Context, userID uuid.UUID, feature string) (bool, error)
	Usage(ctx context.Context, userID uuid.UUID, businessID *uuid.UUID) (UsageResponse, error)
	ListPlans(ctx context.Context) ([]PlanResponse, error)
	SeedPlans(ctx context.Context) (int, error)
}

type billingService struct {
	billingRepo  repository.BillingRepository
	userRepo     repository.UserRepository
	invoiceRepo  repository.InvoiceRepository
	businessRepo repository.BusinessRepository
	plans        config.PlanTable
	now          func() time.Time
	log          zerolog.Logger
}

func NewBillingService(
	billingRepo repository.BillingRepository,
	userRepo repository.UserRepository,
	invoiceRepo repository.InvoiceRepository,
	businessRepo repository.BusinessRepository,
	plans config.PlanTable,
	now func() time.Time,
) BillingService {
	if now == nil {
		now = time.Now
	}
	return &billingService{
		billingRepo:  billingRepo,
		userRepo:     userRepo,
		invoiceRepo:  invoiceRepo,
		businessRepo: businessRepo,
		plans:        plans,
		now:          now,
		log:          logger.WithComponent("billing"),
	}
}

type entitlement struct {
	limits PlanLimits
	status model.SubscriptionStatus
}

func limitFromPlan(v *int) int {
	if v == nil {
		return config.Unlimited
	}
	return *v
}

func (s *billingService) fallback(plan model.PlanType) PlanLimits {
	l := s.plans.Lookup(plan)
	if _, ok := s.plans[plan]; !ok {
		plan = model.PlanFree
	}
	return PlanLimits{
		Plan:                plan,
		MaxInvoicesPerMonth: l.MaxInvoicesPerMonth,
		MaxBusinesses:       l.MaxBusinesses,
		Features:            l.Features,
	}
}

// resolve prefers an entitled subscription, then the table row for the user's stored plan.
func (s *billingService) resolve(ctx context.Context, userID uuid.UUID) (entitlement, error) {
	sub, err := s.billingRepo.FindSubscription(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return entitlement{}, fmt.Errorf("failed to load subscription: %w", err)
	}

	if sub != nil {
		if sub.Plan != nil && sub.Status.Entitled() {
			return entitlement{
				limits: PlanLimits{
					Plan:                sub.Plan.PlanType,
					MaxInvoicesPerMonth: limitFromPlan(sub.Plan.MaxInvoicesPerMonth),
					MaxBusinesses:       limitFromPlan(sub.Plan.MaxBusinesses),
					Features:            []string(sub.Plan.Features),
				},
				status: sub.Status,
			}, nil
		}
		return entitlement{limits: s.fallback(model.PlanFree), status: sub.Status}, nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return entitlement{}, translate(err, "user")
	}
	status := user.SubscriptionStatus
	if status == "" {
		status = model.SubscriptionCanceled
	}
	plan := user.SubscriptionPlan
	if plan == "" {
		plan = model.PlanFree
	}
	return entitlement{limits: s.fallback(plan), status: status}, nil
}

func (s *billingService) GetPlanLimits(ctx context.Context, userID uuid.UUID) (PlanLimits, error) {
	e, err := s.resolve(ctx, userID)
	if err != nil {
		return PlanLimits{}, err
	}
	return e.limits, nil
}

func (s *billingService) monthStart() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *billingService) CanCreateInvoice(ctx context.Context, business *model.BusinessProfile) (Decision, error) {
	e, err := s.resolve(ctx, business.UserID)
	if err != nil {
		return Decision{}, err
	}
	if !e.status.Entitled() {
		return Decision{Limit: LimitSubscription, Reason: fmt.Sprintf("subscription is %s", e.status)}, nil
	}

	max := e.limits.MaxInvoicesPerMonth
	if max == config.Unlimited {
		return Decision{Allowed: true, Limit: LimitInvoicesPerMonth, Max: max}, nil
	}

	count, err := s.invoiceRepo.CountCreatedSince(ctx, business.ID, s.monthStart())
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count invoices: %w", err)
	}
	d := Decision{Allowed: count < int64(max), Limit: LimitInvoicesPerMonth, Max: max, Used: count}
	if !d.Allowed {
		s.log.Info().Str("business_id", business.ID.String()).Int64("used", count).Int("max", max).Msg("invoice quota reached")
	}
	return d, nil
}

func (s *billingService) CanCreateBusiness(ctx context.Context, userID uuid.UUID) (Decision, error) {
	e, err := s.resolve(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	max := e.limits.MaxBusinesses
	if max == config.Unlimited {
		return Decision{Allowed: true, Limit: LimitBusinesses, Max: max}, nil
	}

	count, err := s.businessRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count businesses: %w", err)
	}
	return Decision{Allowed: count < int64(max), Limit: LimitBusinesses, Max: max, Used: count}, nil
}

func (s *billingService) HasFeature(ctx context.Context, userID uuid.UUID, feature string) (bool, error) {
	limits, err := s.GetPlanLimits(ctx, userID)
	if err != nil {
		return false, err
	}
	return lo.Contains(limits.Features, feature), nil
}

func (s *billingService) Usage(ctx context.Context, userID uuid.UUID, businessID *uuid.UUID) (UsageResponse, error) {
	e, err := s.resolve(ctx, userID)
	if err != nil {
		return UsageResponse{}, err
	}

	active, err := s.businessRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return UsageResponse{}, fmt.Errorf("failed to count businesses: %w", err)
	}

	resp := UsageResponse{
		Plan:               e.limits.Plan,
		SubscriptionStatus: e.status,
		Limits:             e.limits,
		ActiveBusinesses:   active,
	}

	if businessID != nil {
		if _, err := s.businessRepo.FindOwned(ctx, *businessID, userID); err != nil {
			return UsageResponse{}, translate(err, "business")
		}
		count, err := s.invoiceRepo.CountCreatedSince(ctx, *businessID, s.monthStart())
		if err != nil {
			return UsageResponse{}, fmt.Errorf("failed to count invoices: %w", err)
		}
		resp.InvoicesThisMonth = &count
	}
	return resp, nil
}

func (s *billingService) ListPlans(ctx context.Context) ([]PlanResponse, error) {
	plans, err := s.billingRepo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return lo.Map(plans, func(p model.BillingPlan, _ int) PlanResponse {
		return PlanResponse{
			PlanType:            p.PlanType,
			Name:                p.Name,
			PriceMonthly:        p.PriceMonthly.StringFixed(2),
			PriceYearly:         p.PriceYearly.StringFixed(2),
			Currency:            p.Currency,
			MaxInvoicesPerMonth: p.MaxInvoicesPerMonth,
			MaxBusinesses:       p.MaxBusinesses,
			Features:            []string(p.Features),
		}
	}), nil
}

var planCatalog = map[model.PlanType]struct {
	name    string
	monthly string
	yearly  string
}{
	model.PlanFree:       {"Free", "0", "0"},
	model.PlanStarter:    {"Starter", "9.99", "99.00"},
	model.PlanPro:        {"Pro", "29.99", "299.00"},
	model.PlanEnterprise: {"Enterprise", "99.99", "999.00"},
}

func optionalLimit(v int) *int {
	if v == config.Unlimited {
		return nil
	}
	return &v
}

// SeedPlans upserts one BillingPlan row per entry of the configured plan table.
func (s *billingService) SeedPlans(ctx context.Context) (int, error) {
	n := 0
	for planType, limits := range s.plans {
		meta, ok := planCatalog[planType]
		if !ok {
			meta.name, meta.monthly, meta.yearly = string(planType), "0", "0"
		}
		plan := &model.BillingPlan{
			PlanType:            planType,
			Name:                meta.name,
			PriceMonthly:        decimal.RequireFromString(meta.monthly),
			PriceYearly:         decimal.RequireFromString(meta.yearly),
			Currency:            "USD",
			MaxInvoicesPerMonth: optionalLimit(limits.MaxInvoicesPerMonth),
			MaxBusinesses:       optionalLimit(limits.MaxBusinesses),
			Features:            datatypes.NewJSONSlice(limits.Features),
			IsActive:            true,
		}
		if err := s.billingRepo.UpsertPlan(ctx, plan); err != nil {
			return n, fmt.Errorf("failed to seed plan %s: %w", planType, err)
		}
		n++
	}
	s.log.Info().Int("plans", n).Msg("billing plans seeded")
	return n, nil
}
