package service

import "github.com/google/uuid"

// Events pushed to connected clients
const (
	EventPermissionsChanged = "permissions_changed"
	EventAccountDisabled    = "account_disabled"
)

// Notifier delivers an event to the live sessions of the given users
type Notifier interface {
	NotifyUsers(userIDs []uuid.UUID, event string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) NotifyUsers([]uuid.UUID, string, any) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
