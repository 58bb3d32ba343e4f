package service

import (
	"context"
	"strings"
	"time"

	"invoicegen/internal/model"
	"invoicegen/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

type CreateBusinessRequest struct {
	BusinessName  string `json:"business_name" binding:"required"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	TaxID         string `json:"tax_id"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
	InvoicePrefix string `json:"invoice_prefix" binding:"omitempty,max=10"`
}

type BusinessResponse struct {
	ID                uuid.UUID `json:"id"`
	BusinessName      string    `json:"business_name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Address           string    `json:"address"`
	TaxID             string    `json:"tax_id"`
	Currency          string    `json:"currency"`
	InvoicePrefix     string    `json:"invoice_prefix"`
	NextInvoiceNumber int       `json:"next_invoice_number"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

type BusinessService interface {
	CreateBusiness(ctx context.Context, userID uuid.UUID, req CreateBusinessRequest) (*BusinessResponse, error)
	GetBusiness(ctx context.Context, userID, id uuid.UUID) (*BusinessResponse, error)
	ListBusinesses(ctx context.Context, userID uuid.UUID) ([]BusinessResponse, error)
}

type businessService struct {
	repo      repository.BusinessRepository
	auditRepo repository.AuditRepository
	billing   BillingService
	txManager repository.TransactionManager
}

func NewBusinessService(repo repository.BusinessRepository, auditRepo repository.AuditRepository, billing BillingService, txManager repository.TransactionManager) BusinessService {
	return &businessService{repo: repo, auditRepo: auditRepo, billing: billing, txManager: txManager}
}

func mapBusiness(b *model.BusinessProfile) BusinessResponse {
	return BusinessResponse{
		ID:                b.ID,
		BusinessName:      b.BusinessName,
		Email:             b.Email,
		Phone:             b.Phone,
		Address:           b.Address,
		TaxID:             b.TaxID,
		Currency:          b.Currency,
		InvoicePrefix:     b.InvoicePrefix,
		NextInvoiceNumber: b.NextInvoiceNumber,
		IsActive:          b.IsActive,
		CreatedAt:         utc(b.CreatedAt),
	}
}

// CreateBusiness is gated by the plan's business limit. The count and insert share a transaction
// but take no lock, so two concurrent creations can exceed the limit by one.
func (s *businessService) CreateBusiness(ctx context.Context, userID uuid.UUID, req CreateBusinessRequest) (*BusinessResponse, error) {
	business := &model.BusinessProfile{
		UserID:            userID,
		BusinessName:      strings.TrimSpace(req.BusinessName),
		Email:             req.Email,
		Phone:             req.Phone,
		Address:           req.Address,
		TaxID:             req.TaxID,
		Currency:          strings.ToUpper(lo.Ternary(req.Currency == "", "USD", req.Currency)),
		InvoicePrefix:     strings.ToUpper(lo.Ternary(req.InvoicePrefix == "", "INV", req.InvoicePrefix)),
		NextInvoiceNumber: 1,
		IsActive:          true,
	}
	if business.BusinessName == "" {
		return nil, invalid("business_name", "is required")
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		decision, err := s.billing.CanCreateBusiness(txCtx, userID)
		if err != nil {
			return err
		}
		if err := decision.Err(); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, business); err != nil {
			return translate(err, "business")
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &userID,
			Action:     model.ActionCreateBusiness,
			EntityID:   business.ID.String(),
			EntityName: business.BusinessName,
			Details:    datatypes.JSONMap{"invoice_prefix": business.InvoicePrefix},
		})
	})
	if err != nil {
		return nil, err
	}
	res := mapBusiness(business)
	return &res, nil
}

func (s *businessService) GetBusiness(ctx context.Context, userID, id uuid.UUID) (*BusinessResponse, error) {
	business, err := s.repo.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, translate(err, "business")
	}
	res := mapBusiness(business)
	return &res, nil
}

func (s *businessService) ListBusinesses(ctx context.Context, userID uuid.UUID) ([]BusinessResponse, error) {
	businesses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(businesses, func(b model.BusinessProfile, _ int) BusinessResponse { return mapBusiness(&b) }), nil
}
