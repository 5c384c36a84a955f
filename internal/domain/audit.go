package domain

import "time"

// AuditLog records one booking transition: who moved it, from where, to
// where. Written on every transition for the observability layer.
type AuditLog struct {
	ID         string `gorm:"primaryKey"`
	BookingID  string `gorm:"index"`
	ActorID    string `gorm:"index"`
	FromStatus BookingStatus
	ToStatus   BookingStatus
	Notes      string
	CreatedAt  time.Time
}
