package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/events"
	"github.com/you/campus-resource-hub/internal/repository"
	"github.com/you/campus-resource-hub/pkg/clock"
	"github.com/you/campus-resource-hub/pkg/mq"
	"github.com/you/campus-resource-hub/pkg/obs"
)

// BookingSvc is the approval engine: it owns every booking mutation and
// gates each one through the admission rule, the transition table and the
// authorization predicate.
type BookingSvc struct {
	bookings  *repository.BookingRepo
	resources *repository.ResourceRepo
	audit     *repository.AuditRepo
	pub       mq.JSONPublisher
	clk       clock.Clock
	metrics   *obs.Metrics
}

func NewBookingSvc(b *repository.BookingRepo, r *repository.ResourceRepo, a *repository.AuditRepo, pub mq.JSONPublisher, clk clock.Clock, m *obs.Metrics) *BookingSvc {
	return &BookingSvc{bookings: b, resources: r, audit: a, pub: pub, clk: clk, metrics: m}
}

func parseRFC3339UTC(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Request runs the admission rule: reject on conflict with any blocking
// booking, otherwise admit as pending, or approved directly when the
// resource does not require approval.
func (s *BookingSvc) Request(ctx context.Context, actor domain.Actor, resourceID, startISO, endISO string) (*domain.Booking, error) {
	res, err := s.resources.ByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.Status == domain.ResourceArchived {
		return nil, domain.ErrNotFound
	}
	if res.Status == domain.ResourceDraft && res.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	st, err := parseRFC3339UTC(startISO)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", domain.ErrInvalidWindow, err)
	}
	et, err := parseRFC3339UTC(endISO)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", domain.ErrInvalidWindow, err)
	}
	if !et.After(st) {
		return nil, domain.ErrInvalidWindow
	}

	status := domain.StatusPending
	notes := ""
	if !res.RequiresApproval {
		status = domain.StatusApproved
		notes = "Auto-approved"
	}
	b := &domain.Booking{
		ResourceID:    resourceID,
		RequesterID:   actor.ID,
		StartTime:     st,
		EndTime:       et,
		Status:        status,
		ApprovalNotes: notes,
	}
	if err := s.bookings.CreateWithNoConflict(ctx, b); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, err
	}
	s.metrics.BookingsCreated.WithLabelValues(string(status)).Inc()

	_ = s.pub.PublishJSON(ctx, events.RKBookingCreated, events.BookingCreated{
		BookingID:   b.ID,
		ResourceID:  b.ResourceID,
		RequesterID: b.RequesterID,
		Status:      string(b.Status),
		Start:       b.StartTime.Unix(),
		End:         b.EndTime.Unix(),
	})
	return b, nil
}

func (s *BookingSvc) Approve(ctx context.Context, actor domain.Actor, id, notes string) (*domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.StatusApproved, notes, ActionApprove, events.RKBookingApproved)
}

func (s *BookingSvc) Reject(ctx context.Context, actor domain.Actor, id, notes string) (*domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.StatusRejected, notes, ActionReject, events.RKBookingRejected)
}

func (s *BookingSvc) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.StatusCancelled, "", ActionCancel, events.RKBookingCancelled)
}

// Complete is only legal once the booking window has ended; marking a
// reservation completed while it is still running is rejected.
func (s *BookingSvc) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	return s.transition(ctx, actor, id, domain.StatusCompleted, "", ActionComplete, events.RKBookingCompleted)
}

func (s *BookingSvc) transition(ctx context.Context, actor domain.Actor, id string, to domain.BookingStatus, notes string, action Action, routingKey string) (*domain.Booking, error) {
	b, err := s.bookings.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.resources.ByID(ctx, b.ResourceID)
	if err != nil {
		return nil, err
	}
	if !Allowed(actor, action, b, res) {
		return nil, domain.ErrForbidden
	}
	if to == domain.StatusCompleted && s.clk.Now().Before(b.EndTime) {
		return nil, fmt.Errorf("%w: booking window has not ended", domain.ErrInvalidTransition)
	}

	updated, from, err := s.bookings.Transition(ctx, id, to, notes)
	if err != nil {
		return nil, err
	}
	s.metrics.BookingTransitions.WithLabelValues(string(to)).Inc()

	if err := s.audit.Append(ctx, &domain.AuditLog{
		BookingID:  updated.ID,
		ActorID:    actor.ID,
		FromStatus: from,
		ToStatus:   to,
		Notes:      notes,
	}); err != nil {
		return nil, fmt.Errorf("booking %s moved to %s but audit append failed: %w", id, to, err)
	}

	_ = s.pub.PublishJSON(ctx, routingKey, events.BookingTransitioned{
		BookingID:  updated.ID,
		ActorID:    actor.ID,
		FromStatus: string(from),
		ToStatus:   string(to),
		Notes:      notes,
		At:         s.clk.Now().Unix(),
	})
	return updated, nil
}

func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.ByID(ctx, id)
}

func (s *BookingSvc) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Booking, error) {
	return s.bookings.ListForRequester(ctx, actor.ID)
}

// ListForResource shows a resource's schedule to its owner or an admin.
func (s *BookingSvc) ListForResource(ctx context.Context, actor domain.Actor, resourceID string) ([]domain.Booking, error) {
	res, err := s.resources.ByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.bookings.ListForResource(ctx, resourceID)
}

// PendingApprovals returns the moderation queue: every pending booking
// for administrators, only bookings on owned resources for staff.
func (s *BookingSvc) PendingApprovals(ctx context.Context, actor domain.Actor) ([]domain.Booking, error) {
	if actor.IsAdmin() {
		return s.bookings.ListPending(ctx)
	}
	return s.bookings.ListPendingForOwner(ctx, actor.ID)
}

func (s *BookingSvc) ListAll(ctx context.Context) ([]domain.Booking, error) {
	return s.bookings.ListAll(ctx)
}

func (s *BookingSvc) AuditTrail(ctx context.Context, bookingID string) ([]domain.AuditLog, error) {
	return s.audit.ForBooking(ctx, bookingID)
}
