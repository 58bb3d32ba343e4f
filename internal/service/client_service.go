package service

import (
	"context"
	"strings"

	"invoicegen/internal/model"
	"invoicegen/internal/repository"
	"invoicegen/pkg/pagination"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

type CreateClientRequest struct {
	BusinessID  string           `json:"business_id" binding:"required,uuid"`
	ClientType  model.ClientType `json:"client_type"`
	CompanyName string           `json:"company_name"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Email       string           `json:"email" binding:"omitempty,email"`
	Phone       string           `json:"phone"`
	Currency    string           `json:"currency" binding:"omitempty,len=3"`
}

type ClientService interface {
	CreateClient(ctx context.Context, userID uuid.UUID, req CreateClientRequest) (*ClientView, error)
	ListClients(ctx context.Context, userID, businessID uuid.UUID, skip, limit int) ([]ClientView, error)
}

type clientService struct {
	repo         repository.ClientRepository
	businessRepo repository.BusinessRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewClientService(repo repository.ClientRepository, businessRepo repository.BusinessRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) ClientService {
	return &clientService{repo: repo, businessRepo: businessRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *clientService) CreateClient(ctx context.Context, userID uuid.UUID, req CreateClientRequest) (*ClientView, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return nil, invalid("business_id", "must be a UUID")
	}
	clientType := lo.Ternary(req.ClientType == "", model.ClientTypeIndividual, req.ClientType)
	if !clientType.Valid() {
		return nil, invalid("client_type", "must be individual or company")
	}
	if clientType == model.ClientTypeCompany && strings.TrimSpace(req.CompanyName) == "" {
		return nil, invalid("company_name", "is required for company clients")
	}
	if clientType == model.ClientTypeIndividual && strings.TrimSpace(req.FirstName+req.LastName) == "" {
		return nil, invalid("first_name", "a name is required for individual clients")
	}

	client := &model.Client{
		BusinessID:  businessID,
		ClientType:  clientType,
		CompanyName: req.CompanyName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Currency:    strings.ToUpper(req.Currency),
		Status:      model.ClientStatusActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		business, err := s.businessRepo.FindOwned(txCtx, businessID, userID)
		if err != nil {
			return translate(err, "business")
		}
		if client.Currency == "" {
			client.Currency = business.Currency
		}
		if err := s.repo.Create(txCtx, client); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &userID,
			Action:     model.ActionCreateClient,
			EntityID:   client.ID.String(),
			EntityName: client.DisplayName(),
			Details:    datatypes.JSONMap{"business_id": businessID.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return toClientView(client), nil
}

func (s *clientService) ListClients(ctx context.Context, userID, businessID uuid.UUID, skip, limit int) ([]ClientView, error) {
	if _, err := s.businessRepo.FindOwned(ctx, businessID, userID); err != nil {
		return nil, translate(err, "business")
	}
	page := pagination.Normalize(skip, limit)
	clients, err := s.repo.ListByBusiness(ctx, businessID, page.Skip, page.Limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(clients, func(c model.Client, _ int) ClientView { return *toClientView(&c) }), nil
}
