package domain

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// BlockingStatuses count toward conflict detection; terminal statuses
// never block a new reservation.
var BlockingStatuses = []BookingStatus{StatusPending, StatusApproved}

type Booking struct {
	ID            string    `gorm:"primaryKey"`
	ResourceID    string    `gorm:"index:idx_bookings_resource_window"`
	RequesterID   string    `gorm:"index"`
	StartTime     time.Time `gorm:"index:idx_bookings_resource_window"`
	EndTime       time.Time
	Status        BookingStatus `gorm:"index;check:status IN ('pending','approved','rejected','cancelled','completed')"`
	ApprovalNotes string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// transitions is the legal state machine: rejected, cancelled and
// completed are absorbing.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled, StatusCompleted},
}

func CanTransition(from, to BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Overlaps reports half-open interval intersection with [start, end).
// Adjacent windows (end == other start) do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}
