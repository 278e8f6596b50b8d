package notification

import (
	"time"

	"github.com/google/uuid"
)

// Preference represents the notification_preferences table. Read by the
// dispatcher; mutated only by the settings surface outside this core.
type Preference struct {
	UserID       uuid.UUID
	PushEnabled  bool
	EmailEnabled bool
	PushToken    string // device destination token, may be empty
	EmailAddress string
	UpdatedAt    time.Time
}

// CanPush reports whether a push attempt is even possible: the channel must
// be enabled and a destination token registered.
func (p Preference) CanPush() bool {
	return p.PushEnabled && p.PushToken != ""
}

// CanEmail reports whether an email attempt is possible.
func (p Preference) CanEmail() bool {
	return p.EmailEnabled && p.EmailAddress != ""
}
