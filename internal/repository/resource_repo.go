package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/campus-resource-hub/internal/domain"
)

type ResourceRepo struct{ db *gorm.DB }

func NewResourceRepo(db *gorm.DB) *ResourceRepo {
	return &ResourceRepo{db: db}
}

func (r *ResourceRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Resource{})
}

func (r *ResourceRepo) Create(ctx context.Context, res *domain.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.Status == "" {
		res.Status = domain.ResourceDraft
	}
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *ResourceRepo) ByID(ctx context.Context, id string) (*domain.Resource, error) {
	var res domain.Resource
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *ResourceRepo) ListPublished(ctx context.Context, category string) ([]domain.Resource, error) {
	qb := r.db.WithContext(ctx).Where("status = ?", domain.ResourcePublished)
	if category != "" {
		qb = qb.Where("category = ?", category)
	}
	var out []domain.Resource
	err := qb.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *ResourceRepo) SetStatus(ctx context.Context, id string, status domain.ResourceStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Resource{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
