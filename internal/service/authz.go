package service

import (
	"github.com/you/campus-resource-hub/internal/domain"
)

type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// Allowed is the single authorization predicate consulted by every
// transition entry point. Approve/reject/complete require the resource
// owner or an administrator; cancel also admits the original requester.
func Allowed(actor domain.Actor, action Action, b *domain.Booking, r *domain.Resource) bool {
	moderator := actor.IsAdmin() || actor.ID == r.OwnerID
	switch action {
	case ActionApprove, ActionReject, ActionComplete:
		return moderator
	case ActionCancel:
		return moderator || actor.ID == b.RequesterID
	}
	return false
}
