package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/campus-resource-hub/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Booking{})
}

// lockCandidates applies FOR UPDATE on dialects that need it. SQLite
// serializes writers on its own and rejects the clause.
func lockCandidates(tx *gorm.DB, q *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// admissionTxOptions returns serializable isolation on postgres. Row
// locks cannot cover rows that do not exist yet, so two concurrent
// admissions over a window no booking covers would both see an empty
// candidate set under read committed and both insert. Under serializable
// the loser aborts with SQLSTATE 40001.
func (r *BookingRepo) admissionTxOptions() []*sql.TxOptions {
	if r.db.Dialector.Name() == "postgres" {
		return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// CreateWithNoConflict runs the admission conflict check and the insert in
// one serializable transaction: candidate rows holding a blocking status
// over the requested window abort the create, and two concurrent requests
// over the same free window cannot both commit. A serialization abort is
// a lost admission race, so it surfaces as ErrConflict.
func (r *BookingRepo) CreateWithNoConflict(ctx context.Context, b *domain.Booking) error {
	if !b.EndTime.After(b.StartTime) {
		return domain.ErrInvalidWindow
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.Booking{}).
			Where("resource_id = ? AND status IN ?", b.ResourceID, domain.BlockingStatuses).
			Where("start_time < ? AND end_time > ?", b.EndTime, b.StartTime)
		var existing domain.Booking
		err := lockCandidates(tx, q).Take(&existing).Error
		if err == nil {
			return domain.ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		return tx.Create(b).Error
	}, r.admissionTxOptions()...)
	if isSerializationFailure(err) {
		return domain.ErrConflict
	}
	return err
}

// FindOverlapping is the read-only conflict query: bookings on the
// resource whose [start,end) intersects the window and whose status is in
// statuses. Callers that follow up with a write must do so in the same
// transaction; this helper alone carries no lock.
func (r *BookingRepo) FindOverlapping(ctx context.Context, resourceID string, start, end time.Time, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND status IN ?", resourceID, statuses).
		Where("start_time < ? AND end_time > ?", end, start).
		Order("start_time ASC").
		Find(&out).Error
	return out, err
}

func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Transition moves a booking to a new status under a per-row lock so two
// concurrent approvals of the same pending booking cannot both succeed.
// Returns the updated booking and the status it held before.
func (r *BookingRepo) Transition(ctx context.Context, id string, to domain.BookingStatus, notes string) (*domain.Booking, domain.BookingStatus, error) {
	var b domain.Booking
	var from domain.BookingStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if err := lockCandidates(tx, q).First(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		from = b.Status
		if !domain.CanTransition(from, to) {
			return domain.ErrInvalidTransition
		}
		updates := map[string]any{"status": to}
		if notes != "" {
			updates["approval_notes"] = notes
		}
		if err := tx.Model(&b).Updates(updates).Error; err != nil {
			return err
		}
		// re-read so the caller gets the stored row, updated_at included
		return tx.First(&b, "id = ?", id).Error
	})
	if err != nil {
		return nil, "", err
	}
	return &b, from, nil
}

func (r *BookingRepo) ListForRequester(ctx context.Context, requesterID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Order("start_time DESC").
		Find(&out).Error
	return out, err
}

func (r *BookingRepo) ListForResource(ctx context.Context, resourceID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("start_time DESC").
		Find(&out).Error
	return out, err
}

// ListPending returns every pending booking, oldest request first.
func (r *BookingRepo) ListPending(ctx context.Context) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// ListPendingForOwner scopes the approval queue to resources owned by the
// given staff principal.
func (r *BookingRepo) ListPendingForOwner(ctx context.Context, ownerID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Joins("JOIN resources ON resources.id = bookings.resource_id").
		Where("bookings.status = ? AND resources.owner_id = ?", domain.StatusPending, ownerID).
		Order("bookings.created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *BookingRepo) ListAll(ctx context.Context) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).Order("start_time DESC").Find(&out).Error
	return out, err
}
