package domain

import "time"

type ThreadContext string

const (
	ContextResource ThreadContext = "resource"
	ContextBooking  ThreadContext = "booking"
	ContextGeneral  ThreadContext = "general"
)

// Thread is immutable after creation; only its messages grow.
type Thread struct {
	ID          string        `gorm:"primaryKey"`
	ContextType ThreadContext `gorm:"check:context_type IN ('resource','booking','general')"`
	ContextID   *string       `gorm:"index"` // nil for general threads
	CreatedBy   string
	CreatedAt   time.Time
	Messages    []Message `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
}

// Message rows are append-only, never edited or deleted. Ordering key is
// (timestamp, id) so collisions at the same resolution break ties
// deterministically.
type Message struct {
	ID         string `gorm:"primaryKey"`
	ThreadID   string `gorm:"index:idx_messages_thread_ts"`
	SenderID   string `gorm:"index"`
	ReceiverID string
	Content    string
	Timestamp  time.Time `gorm:"index:idx_messages_thread_ts"`
}

// ThreadSummary is the inbox projection: thread plus last-activity data.
type ThreadSummary struct {
	Thread       Thread
	LastActivity *time.Time
	MessageCount int64
}
