package service

import (
	"context"
	"time"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/events"
	"github.com/you/campus-resource-hub/internal/repository"
	"github.com/you/campus-resource-hub/pkg/clock"
	"github.com/you/campus-resource-hub/pkg/mq"
	"github.com/you/campus-resource-hub/pkg/obs"
)

// MessagingSvc owns threads and their append-only messages, including the
// "since" retrieval contract the polling clients rely on.
type MessagingSvc struct {
	messages  *repository.MessageRepo
	bookings  *repository.BookingRepo
	resources *repository.ResourceRepo
	pub       mq.JSONPublisher
	clk       clock.Clock
	metrics   *obs.Metrics
}

func NewMessagingSvc(m *repository.MessageRepo, b *repository.BookingRepo, r *repository.ResourceRepo, pub mq.JSONPublisher, clk clock.Clock, metrics *obs.Metrics) *MessagingSvc {
	return &MessagingSvc{messages: m, bookings: b, resources: r, pub: pub, clk: clk, metrics: metrics}
}

// participants resolves everyone allowed to read or write a thread: prior
// senders/receivers, the creator, and the owner-side principals of the
// thread's context.
func (s *MessagingSvc) participants(ctx context.Context, t *domain.Thread) (map[string]struct{}, error) {
	set := map[string]struct{}{t.CreatedBy: {}}
	ids, err := s.messages.Correspondents(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}

	switch {
	case t.ContextType == domain.ContextResource && t.ContextID != nil:
		res, err := s.resources.ByID(ctx, *t.ContextID)
		if err == nil {
			set[res.OwnerID] = struct{}{}
		}
	case t.ContextType == domain.ContextBooking && t.ContextID != nil:
		b, err := s.bookings.ByID(ctx, *t.ContextID)
		if err == nil {
			set[b.RequesterID] = struct{}{}
			if res, err := s.resources.ByID(ctx, b.ResourceID); err == nil {
				set[res.OwnerID] = struct{}{}
			}
		}
	}
	return set, nil
}

// guard loads the thread and enforces the participant rule for the actor.
func (s *MessagingSvc) guard(ctx context.Context, actor domain.Actor, threadID string) (*domain.Thread, map[string]struct{}, error) {
	t, err := s.messages.ThreadByID(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	parts, err := s.participants(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := parts[actor.ID]; !ok && !actor.IsAdmin() {
		return nil, nil, domain.ErrForbidden
	}
	return t, parts, nil
}

// CreateThread validates the context rule: resource/booking threads need
// an existing context row, general threads carry none and are
// administrator-initiated.
func (s *MessagingSvc) CreateThread(ctx context.Context, actor domain.Actor, contextType domain.ThreadContext, contextID *string) (*domain.Thread, error) {
	switch contextType {
	case domain.ContextResource:
		if contextID == nil {
			return nil, domain.ErrInvalidContext
		}
		if _, err := s.resources.ByID(ctx, *contextID); err != nil {
			return nil, err
		}
	case domain.ContextBooking:
		if contextID == nil {
			return nil, domain.ErrInvalidContext
		}
		if _, err := s.bookings.ByID(ctx, *contextID); err != nil {
			return nil, err
		}
	case domain.ContextGeneral:
		if contextID != nil {
			return nil, domain.ErrInvalidContext
		}
		if !actor.IsAdmin() {
			return nil, domain.ErrForbidden
		}
	default:
		return nil, domain.ErrInvalidContext
	}

	t := &domain.Thread{
		ContextType: contextType,
		ContextID:   contextID,
		CreatedBy:   actor.ID,
		CreatedAt:   s.clk.Now().UTC(),
	}
	if err := s.messages.CreateThread(ctx, t); err != nil {
		return nil, err
	}
	s.metrics.ThreadsStarted.Inc()
	return t, nil
}

// Start opens a conversation: one thread plus its first message. The
// receiver must be a legal counterparty for the context.
func (s *MessagingSvc) Start(ctx context.Context, actor domain.Actor, contextType domain.ThreadContext, contextID *string, receiverID, content string) (*domain.Thread, *domain.Message, error) {
	if receiverID == "" || receiverID == actor.ID {
		return nil, nil, domain.ErrInvalidContext
	}

	switch contextType {
	case domain.ContextResource:
		if contextID == nil {
			return nil, nil, domain.ErrInvalidContext
		}
		res, err := s.resources.ByID(ctx, *contextID)
		if err != nil {
			return nil, nil, err
		}
		// inquirers address the owner; the owner or an admin may open a
		// thread toward anyone (answering a requester, say)
		if receiverID != res.OwnerID && actor.ID != res.OwnerID && !actor.IsAdmin() {
			return nil, nil, domain.ErrForbidden
		}
	case domain.ContextBooking:
		if contextID == nil {
			return nil, nil, domain.ErrInvalidContext
		}
		b, err := s.bookings.ByID(ctx, *contextID)
		if err != nil {
			return nil, nil, err
		}
		allowed := map[string]struct{}{b.RequesterID: {}}
		if res, err := s.resources.ByID(ctx, b.ResourceID); err == nil {
			allowed[res.OwnerID] = struct{}{}
		}
		_, recvOK := allowed[receiverID]
		_, actorOK := allowed[actor.ID]
		if !recvOK || (!actorOK && !actor.IsAdmin()) {
			return nil, nil, domain.ErrForbidden
		}
	}

	t, err := s.CreateThread(ctx, actor, contextType, contextID)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.Post(ctx, actor, t.ID, receiverID, content)
	if err != nil {
		return nil, nil, err
	}
	return t, m, nil
}

// Post appends a message; the sender must be a participant. When no
// receiver is given the counterparty of the last message is used.
func (s *MessagingSvc) Post(ctx context.Context, actor domain.Actor, threadID, receiverID, content string) (*domain.Message, error) {
	_, _, err := s.guard(ctx, actor, threadID)
	if err != nil {
		return nil, err
	}

	if receiverID == "" {
		last, err := s.messages.LastMessage(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if last == nil {
			return nil, domain.ErrInvalidContext
		}
		receiverID = last.ReceiverID
		if last.SenderID != actor.ID {
			receiverID = last.SenderID
		}
	}

	m := &domain.Message{
		ThreadID:   threadID,
		SenderID:   actor.ID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  s.clk.Now().UTC(),
	}
	if err := s.messages.Append(ctx, m); err != nil {
		return nil, err
	}
	s.metrics.MessagesPosted.Inc()

	_ = s.pub.PublishJSON(ctx, events.RKMessagePosted, events.MessagePosted{
		MessageID:  m.ID,
		ThreadID:   m.ThreadID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Timestamp:  m.Timestamp.UnixNano(),
	})
	return m, nil
}

func (s *MessagingSvc) Messages(ctx context.Context, actor domain.Actor, threadID string) ([]domain.Message, error) {
	if _, _, err := s.guard(ctx, actor, threadID); err != nil {
		return nil, err
	}
	return s.messages.Messages(ctx, threadID)
}

// MessagesSince serves the polling contract: strictly after the cutoff,
// ascending by (timestamp, id). An empty result is a valid response.
func (s *MessagingSvc) MessagesSince(ctx context.Context, actor domain.Actor, threadID string, cutoff time.Time) ([]domain.Message, error) {
	if _, _, err := s.guard(ctx, actor, threadID); err != nil {
		return nil, err
	}
	return s.messages.MessagesSince(ctx, threadID, cutoff)
}

// Inbox lists readable threads: everything for administrators, otherwise
// threads the actor participates in, most recent activity first.
func (s *MessagingSvc) Inbox(ctx context.Context, actor domain.Actor) ([]domain.ThreadSummary, error) {
	if actor.IsAdmin() {
		return s.messages.ThreadSummariesForAdmin(ctx)
	}
	return s.messages.ThreadSummariesFor(ctx, actor.ID)
}
