package service

import (
	"context"
	"fmt"
	"time"

	"invoicegen/internal/repository"
	"invoicegen/pkg/pagination"

	"github.com/google/uuid"
)

// FeatureAuditLogs gates the audit trail endpoint.
const FeatureAuditLogs = "audit_logs"

type AuditLogResponse struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	EntityID   string                 `json:"entity_id"`
	EntityName string                 `json:"entity_name"`
	Details    map[string]interface{} `json:"details"`
	CreatedAt  time.Time              `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, userID uuid.UUID, skip, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo    repository.AuditRepository
	billing BillingService
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, billing BillingService) AuditService {
	return &auditService{repo: repo, billing: billing}
}

// GetAuditLogs returns the caller's own trail, newest first. Plans without the feature get ErrQuotaExceeded.
func (s *auditService) GetAuditLogs(ctx context.Context, userID uuid.UUID, skip, limit int) ([]AuditLogResponse, int64, error) {
	ok, err := s.billing.HasFeature(ctx, userID, FeatureAuditLogs)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, &QuotaExceededError{Limit: "feature:" + FeatureAuditLogs, Reason: "audit logs are not included in your plan"}
	}

	page := pagination.Normalize(skip, limit)
	logs, total, err := s.repo.ListByUser(ctx, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  utc(l.CreatedAt),
		})
	}
	return res, total, nil
}
