package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/campus-resource-hub/internal/domain"
)

type AuditRepo struct{ db *gorm.DB }

func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.AuditLog{})
}

func (r *AuditRepo) Append(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepo) ForBooking(ctx context.Context, bookingID string) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
