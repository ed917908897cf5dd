package services

import (
	"fmt"

	"github.com/devnovate/blog/models"
)

// Actor is the authenticated caller of a service operation. The zero value is anonymous.
type Actor struct {
	UserID   string
	Username string
	Role     models.Role
}

func (a Actor) Authenticated() bool { return a.UserID != "" }

func (a Actor) IsAdmin() bool { return a.Authenticated() && a.Role == models.RoleAdmin }

// SystemActor acts as an administrator for maintenance tools.
func SystemActor() Actor {
	return Actor{UserID: "system", Username: "system", Role: models.RoleAdmin}
}

// Action is a moderation lifecycle operation on an existing post.
type Action string

const (
	ActionEdit    Action = "edit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionHide    Action = "hide"
	ActionDelete  Action = "delete"
)

var allowedFrom = map[Action][]models.Status{
	ActionEdit:    {models.StatusDraft, models.StatusPending, models.StatusRejected},
	ActionApprove: {models.StatusPending},
	ActionReject:  {models.StatusPending},
	ActionHide:    models.Statuses,
	ActionDelete:  models.Statuses,
}

var target = map[Action]models.Status{
	ActionEdit:    models.StatusPending,
	ActionApprove: models.StatusApproved,
	ActionReject:  models.StatusRejected,
	ActionHide:    models.StatusHidden,
}

// AllowedFrom returns the states action may start from.
func AllowedFrom(action Action) []models.Status {
	return allowedFrom[action]
}

// InitialStatus is the state of a newly created post. Only an explicit draft request skips review.
func InitialStatus(requested string) models.Status {
	if models.Status(requested) == models.StatusDraft {
		return models.StatusDraft
	}
	return models.StatusPending
}

// Transition decides whether actor may apply action to post and returns the resulting status.
// Ownership and role are checked before the current state. For ActionDelete the status is unchanged.
func Transition(actor Actor, post *models.Post, action Action) (models.Status, error) {
	if !actor.Authenticated() {
		return "", ErrUnauthorized
	}
	switch action {
	case ActionEdit:
		if post.AuthorID != actor.UserID {
			return "", fmt.Errorf("%w: only the author can edit this blog", ErrForbidden)
		}
	case ActionApprove, ActionReject, ActionHide:
		if !actor.IsAdmin() {
			return "", fmt.Errorf("%w: admin access required", ErrForbidden)
		}
	case ActionDelete:
		if post.AuthorID != actor.UserID && !actor.IsAdmin() {
			return "", fmt.Errorf("%w: only the author or an admin can delete this blog", ErrForbidden)
		}
		return post.Status, nil
	default:
		return "", fmt.Errorf("unknown moderation action %q", action)
	}

	if !statusIn(post.Status, allowedFrom[action]) {
		return "", &TransitionError{Action: action, From: post.Status}
	}
	return target[action], nil
}

func statusIn(s models.Status, set []models.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
