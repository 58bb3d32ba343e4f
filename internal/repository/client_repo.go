package repository

import (
	"context"

	"invoicegen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	FindInBusiness(ctx context.Context, id, businessID uuid.UUID) (*model.Client, error)
	// FindByIDs loads every listed client in a single query. Missing ids are skipped.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID, skip, limit int) ([]model.Client, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) FindInBusiness(ctx context.Context, id, businessID uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ? AND business_id = ?", id, businessID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var clients []model.Client
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID, skip, limit int) ([]model.Client, error) {
	var clients []model.Client
	err := GetDB(ctx, r.db).
		Where("business_id = ?", businessID).
		Order("created_at desc").
		Offset(skip).Limit(limit).
		Find(&clients).Error
	return clients, err
}
