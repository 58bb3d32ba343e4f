package repository

import (
	"context"

	"invoicegen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BillingRepository interface {
	// FindSubscription returns the user's subscription with its plan preloaded.
	FindSubscription(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	FindPlan(ctx context.Context, planType model.PlanType) (*model.BillingPlan, error)
	ListPlans(ctx context.Context) ([]model.BillingPlan, error)
	UpsertPlan(ctx context.Context, plan *model.BillingPlan) error
}

type billingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{db: db}
}

func (r *billingRepository) FindSubscription(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	if err := GetDB(ctx, r.db).Preload("Plan").First(&sub, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *billingRepository) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	return GetDB(ctx, r.db).Omit("Plan").Create(sub).Error
}

func (r *billingRepository) FindPlan(ctx context.Context, planType model.PlanType) (*model.BillingPlan, error) {
	var plan model.BillingPlan
	if err := GetDB(ctx, r.db).First(&plan, "plan_type = ?", planType).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *billingRepository) ListPlans(ctx context.Context) ([]model.BillingPlan, error) {
	var plans []model.BillingPlan
	err := GetDB(ctx, r.db).Where("is_active = ?", true).Order("price_monthly asc").Find(&plans).Error
	return plans, err
}

func (r *billingRepository) UpsertPlan(ctx context.Context, plan *model.BillingPlan) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "plan_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price_monthly", "price_yearly", "currency",
			"max_invoices_per_month", "max_businesses", "features", "is_active", "updated_at",
		}),
	}).Create(plan).Error
}
