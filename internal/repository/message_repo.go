package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/campus-resource-hub/internal/domain"
)

type MessageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Thread{}, &domain.Message{})
}

func (r *MessageRepo) CreateThread(ctx context.Context, t *domain.Thread) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *MessageRepo) ThreadByID(ctx context.Context, id string) (*domain.Thread, error) {
	var t domain.Thread
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *MessageRepo) Append(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MessageRepo) Messages(ctx context.Context, threadID string) ([]domain.Message, error) {
	var out []domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("timestamp ASC, id ASC").
		Find(&out).Error
	return out, err
}

// MessagesSince returns messages strictly after the cutoff, ascending by
// (timestamp, id). Strict > keeps repeated polls with an advancing cutoff
// from re-delivering the boundary message.
func (r *MessageRepo) MessagesSince(ctx context.Context, threadID string, cutoff time.Time) ([]domain.Message, error) {
	var out []domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND timestamp > ?", threadID, cutoff).
		Order("timestamp ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *MessageRepo) LastMessage(ctx context.Context, threadID string) (*domain.Message, error) {
	var m domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("timestamp DESC, id DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Correspondents returns every sender or receiver seen on the thread.
func (r *MessageRepo) Correspondents(ctx context.Context, threadID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT sender_id FROM messages WHERE thread_id = @tid
		UNION
		SELECT receiver_id FROM messages WHERE thread_id = @tid`,
		map[string]any{"tid": threadID},
	).Scan(&ids).Error
	return ids, err
}

type threadRow struct {
	ID           string
	ContextType  string
	ContextID    *string
	CreatedBy    string
	CreatedAt    time.Time
	LastActivity *time.Time
	MessageCount int64
}

func threadSummaryQuery(where string) string {
	return `
SELECT t.id, t.context_type, t.context_id, t.created_by, t.created_at,
       MAX(m.timestamp) AS last_activity,
       COUNT(m.id) AS message_count
FROM threads t
LEFT JOIN messages m ON m.thread_id = t.id
` + where + `
GROUP BY t.id, t.context_type, t.context_id, t.created_by, t.created_at
ORDER BY (MAX(m.timestamp) IS NULL), MAX(m.timestamp) DESC, t.created_at DESC`
}

// participantFilter matches threads the user may read: creator, prior
// sender/receiver, or owner-side principal of the thread's context.
const participantFilter = `
WHERE t.created_by = @uid
   OR EXISTS (SELECT 1 FROM messages pm
              WHERE pm.thread_id = t.id AND (pm.sender_id = @uid OR pm.receiver_id = @uid))
   OR (t.context_type = 'resource' AND EXISTS (
         SELECT 1 FROM resources r WHERE r.id = t.context_id AND r.owner_id = @uid))
   OR (t.context_type = 'booking' AND EXISTS (
         SELECT 1 FROM bookings b
         JOIN resources br ON br.id = b.resource_id
         WHERE b.id = t.context_id AND (b.requester_id = @uid OR br.owner_id = @uid)))`

func (r *MessageRepo) scanSummaries(ctx context.Context, query string, args map[string]any) ([]domain.ThreadSummary, error) {
	q := r.db.WithContext(ctx).Raw(query)
	if args != nil {
		q = r.db.WithContext(ctx).Raw(query, args)
	}
	var rows []threadRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ThreadSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ThreadSummary{
			Thread: domain.Thread{
				ID:          row.ID,
				ContextType: domain.ThreadContext(row.ContextType),
				ContextID:   row.ContextID,
				CreatedBy:   row.CreatedBy,
				CreatedAt:   row.CreatedAt,
			},
			LastActivity: row.LastActivity,
			MessageCount: row.MessageCount,
		})
	}
	return out, nil
}

// ThreadSummariesForAdmin lists every thread, most recent activity first;
// message-less threads sort beneath by creation time.
func (r *MessageRepo) ThreadSummariesForAdmin(ctx context.Context) ([]domain.ThreadSummary, error) {
	return r.scanSummaries(ctx, threadSummaryQuery(""), nil)
}

// ThreadSummariesFor lists threads the user participates in, same order.
func (r *MessageRepo) ThreadSummariesFor(ctx context.Context, userID string) ([]domain.ThreadSummary, error) {
	return r.scanSummaries(ctx, threadSummaryQuery(participantFilter), map[string]any{"uid": userID})
}
