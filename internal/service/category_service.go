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

type CreateCategoryRequest struct {
	BusinessID   string             `json:"business_id" binding:"required,uuid"`
	ParentID     *string            `json:"parent_id" binding:"omitempty,uuid"`
	CategoryType model.CategoryType `json:"category_type"`
	Name         string             `json:"name" binding:"required"`
	Description  string             `json:"description"`
	Color        string             `json:"color" binding:"omitempty,hexcolor"`
	Icon         string             `json:"icon"`
	SortOrder    int                `json:"sort_order"`
}

// UpdateCategoryRequest changes only the fields that are present. An empty parent_id moves the
// category to the top level.
type UpdateCategoryRequest struct {
	ParentID    *string `json:"parent_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color" binding:"omitempty,hexcolor"`
	Icon        *string `json:"icon"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

type CategoryView struct {
	ID           uuid.UUID          `json:"id"`
	BusinessID   uuid.UUID          `json:"business_id"`
	ParentID     *uuid.UUID         `json:"parent_id"`
	CategoryType model.CategoryType `json:"category_type"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Color        string             `json:"color"`
	Icon         string             `json:"icon"`
	SortOrder    int                `json:"sort_order"`
	IsActive     bool               `json:"is_active"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type CategoryService interface {
	CreateCategory(ctx context.Context, userID uuid.UUID, req CreateCategoryRequest) (*CategoryView, error)
	ListCategories(ctx context.Context, userID, businessID uuid.UUID, categoryType *model.CategoryType, includeInactive bool) ([]CategoryView, error)
	UpdateCategory(ctx context.Context, userID, id uuid.UUID, req UpdateCategoryRequest) (*CategoryView, error)
	// DeleteCategory deactivates a category that products still use and removes it otherwise.
	// It reports whether the row was removed.
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

type categoryService struct {
	repo         repository.CategoryRepository
	productRepo  repository.ProductRepository
	businessRepo repository.BusinessRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCategoryService(
	repo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	businessRepo repository.BusinessRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CategoryService {
	return &categoryService{repo: repo, productRepo: productRepo, businessRepo: businessRepo, auditRepo: auditRepo, txManager: txManager}
}

// maxCategoryDepth bounds the ancestor walk of the cycle check.
const maxCategoryDepth = 32

func toCategoryView(c *model.Category) CategoryView {
	return CategoryView{
		ID:           c.ID,
		BusinessID:   c.BusinessID,
		ParentID:     c.ParentID,
		CategoryType: c.CategoryType,
		Name:         c.Name,
		Description:  c.Description,
		Color:        c.Color,
		Icon:         c.Icon,
		SortOrder:    c.SortOrder,
		IsActive:     c.IsActive,
		CreatedAt:    utc(c.CreatedAt),
		UpdatedAt:    utc(c.UpdatedAt),
	}
}

// resolveParent checks that the parent exists in the same business with the same type and is not
// c itself or one of its descendants.
func (s *categoryService) resolveParent(ctx context.Context, raw string, c *model.Category) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	parentID, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("parent_id", "must be a UUID")
	}
	if parentID == c.ID {
		return nil, invalid("parent_id", "a category cannot be its own parent")
	}
	parent, err := s.repo.FindInBusiness(ctx, parentID, c.BusinessID)
	if err != nil {
		return nil, translate(err, "parent category")
	}
	if parent.CategoryType != c.CategoryType {
		return nil, invalid("parent_id", "parent must be a %s category", c.CategoryType)
	}

	for depth, cur := 0, parent; cur.ParentID != nil; depth++ {
		if *cur.ParentID == c.ID {
			return nil, invalid("parent_id", "would create a circular reference")
		}
		if depth == maxCategoryDepth {
			return nil, invalid("parent_id", "categories nest at most %d levels", maxCategoryDepth)
		}
		if cur, err = s.repo.FindInBusiness(ctx, *cur.ParentID, c.BusinessID); err != nil {
			return nil, translate(err, "parent category")
		}
	}
	return &parentID, nil
}

func (s *categoryService) checkName(ctx context.Context, c *model.Category) error {
	taken, err := s.repo.NameTaken(ctx, c)
	if err != nil {
		return err
	}
	if taken {
		return invalid("name", "a %s category named %q already exists at this level", c.CategoryType, c.Name)
	}
	return nil
}

func (s *categoryService) audit(ctx context.Context, userID uuid.UUID, action string, c *model.Category, details datatypes.JSONMap) error {
	if details == nil {
		details = datatypes.JSONMap{}
	}
	details["business_id"] = c.BusinessID.String()
	details["category_type"] = string(c.CategoryType)
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   c.ID.String(),
		EntityName: c.Name,
		Details:    details,
	})
}

func (s *categoryService) CreateCategory(ctx context.Context, userID uuid.UUID, req CreateCategoryRequest) (*CategoryView, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return nil, invalid("business_id", "must be a UUID")
	}
	categoryType := lo.Ternary(req.CategoryType == "", model.CategoryProduct, req.CategoryType)
	if !categoryType.Valid() {
		return nil, invalid("category_type", "must be invoice, product or expense")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}

	category := &model.Category{
		BusinessID:   businessID,
		CategoryType: categoryType,
		Name:         name,
		Description:  req.Description,
		Color:        req.Color,
		Icon:         req.Icon,
		SortOrder:    req.SortOrder,
		IsActive:     true,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.businessRepo.FindOwned(txCtx, businessID, userID); err != nil {
			return translate(err, "business")
		}
		if category.ParentID, err = s.resolveParent(txCtx, lo.FromPtr(req.ParentID), category); err != nil {
			return err
		}
		if err := s.checkName(txCtx, category); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, category); err != nil {
			return err
		}
		return s.audit(txCtx, userID, model.ActionCreateCategory, category, nil)
	})
	if err != nil {
		return nil, err
	}
	view := toCategoryView(category)
	return &view, nil
}

func (s *categoryService) ListCategories(ctx context.Context, userID, businessID uuid.UUID, categoryType *model.CategoryType, includeInactive bool) ([]CategoryView, error) {
	if categoryType != nil && !categoryType.Valid() {
		return nil, invalid("category_type", "must be invoice, product or expense")
	}
	if _, err := s.businessRepo.FindOwned(ctx, businessID, userID); err != nil {
		return nil, translate(err, "business")
	}
	categories, err := s.repo.List(ctx, businessID, categoryType, includeInactive)
	if err != nil {
		return nil, err
	}
	return lo.Map(categories, func(c model.Category, _ int) CategoryView { return toCategoryView(&c) }), nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, userID, id uuid.UUID, req UpdateCategoryRequest) (*CategoryView, error) {
	var category *model.Category
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if category, err = s.repo.FindOwned(txCtx, id, userID); err != nil {
			return translate(err, "category")
		}
		if req.ParentID != nil {
			if category.ParentID, err = s.resolveParent(txCtx, *req.ParentID, category); err != nil {
				return err
			}
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalid("name", "must not be empty")
			}
			category.Name = name
		}
		if req.Description != nil {
			category.Description = *req.Description
		}
		if req.Color != nil {
			category.Color = *req.Color
		}
		if req.Icon != nil {
			category.Icon = *req.Icon
		}
		if req.SortOrder != nil {
			category.SortOrder = *req.SortOrder
		}
		if req.IsActive != nil {
			category.IsActive = *req.IsActive
		}
		if category.IsActive && (req.Name != nil || req.ParentID != nil || req.IsActive != nil) {
			if err := s.checkName(txCtx, category); err != nil {
				return err
			}
		}
		if err := s.repo.Update(txCtx, category); err != nil {
			return err
		}
		return s.audit(txCtx, userID, model.ActionUpdateCategory, category, nil)
	})
	if err != nil {
		return nil, err
	}
	view := toCategoryView(category)
	return &view, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	removed := false
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		category, err := s.repo.FindOwned(txCtx, id, userID)
		if err != nil {
			return translate(err, "category")
		}
		children, err := s.repo.CountActiveChildren(txCtx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return invalid("id", "category has %d active subcategories", children)
		}
		inUse, err := s.productRepo.CountInCategory(txCtx, id)
		if err != nil {
			return err
		}
		if inUse > 0 {
			category.IsActive = false
			if err := s.repo.Update(txCtx, category); err != nil {
				return err
			}
		} else {
			if err := s.repo.Delete(txCtx, id); err != nil {
				return err
			}
			removed = true
		}
		return s.audit(txCtx, userID, model.ActionDeleteCategory, category, datatypes.JSONMap{"removed": removed})
	})
	return removed, err
}
