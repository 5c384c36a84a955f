package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadPayload marks a delivery whose body cannot decode into its typed
// event. Redelivery cannot fix it, so consumers dead-letter instead of
// requeueing.
var ErrBadPayload = errors.New("bad_payload")

// Routing keys published on the booking and messaging exchanges.
const (
	RKBookingCreated   = "booking.created"
	RKBookingApproved  = "booking.approved"
	RKBookingRejected  = "booking.rejected"
	RKBookingCancelled = "booking.cancelled"
	RKBookingCompleted = "booking.completed"

	RKMessagePosted = "message.posted"
)

type BookingCreated struct {
	BookingID   string `json:"booking_id"`
	ResourceID  string `json:"resource_id"`
	RequesterID string `json:"requester_id"`
	Status      string `json:"status"` // pending or approved (auto-admission)
	Start       int64  `json:"start"`  // unix seconds
	End         int64  `json:"end"`
}

// BookingTransitioned is the audit entry for a state move; the notify
// worker and any observability consumer share it.
type BookingTransitioned struct {
	BookingID  string `json:"booking_id"`
	ActorID    string `json:"actor_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Notes      string `json:"notes,omitempty"`
	At         int64  `json:"at"` // unix seconds
}

type MessagePosted struct {
	MessageID  string `json:"message_id"`
	ThreadID   string `json:"thread_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Timestamp  int64  `json:"timestamp"` // unix nanos, matches the (timestamp, id) ordering key
}

func MustUnmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return t, nil
}
