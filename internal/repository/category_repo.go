package repository

import (
	"context"

	"invoicegen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Category, error)
	FindInBusiness(ctx context.Context, id, businessID uuid.UUID) (*model.Category, error)
	List(ctx context.Context, businessID uuid.UUID, categoryType *model.CategoryType, includeInactive bool) ([]model.Category, error)
	// NameTaken reports whether an active sibling of the same type already uses name.
	NameTaken(ctx context.Context, c *model.Category) (bool, error)
	CountActiveChildren(ctx context.Context, id uuid.UUID) (int64, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return GetDB(ctx, r.db).Create(category).Error
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	return GetDB(ctx, r.db).Save(category).Error
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Category{}).Error
}

func (r *categoryRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Category, error) {
	var category model.Category
	db := GetDB(ctx, r.db)
	err := db.
		Where("categories.business_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&model.BusinessProfile{}).Select("id").Where("user_id = ?", userID)).
		First(&category, "categories.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindInBusiness(ctx context.Context, id, businessID uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := GetDB(ctx, r.db).First(&category, "id = ? AND business_id = ?", id, businessID).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, businessID uuid.UUID, categoryType *model.CategoryType, includeInactive bool) ([]model.Category, error) {
	var categories []model.Category
	db := GetDB(ctx, r.db).Where("business_id = ?", businessID)
	if categoryType != nil {
		db = db.Where("category_type = ?", *categoryType)
	}
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("sort_order asc").Order("name asc").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) NameTaken(ctx context.Context, c *model.Category) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Category{}).
		Where("business_id = ? AND category_type = ? AND name = ? AND is_active = ?", c.BusinessID, c.CategoryType, c.Name, true).
		Where("id <> ?", c.ID)
	if c.ParentID == nil {
		db = db.Where("parent_id IS NULL")
	} else {
		db = db.Where("parent_id = ?", *c.ParentID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *categoryRepository) CountActiveChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Category{}).
		Where("parent_id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count, err
}
