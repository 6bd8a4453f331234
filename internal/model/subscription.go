package model

import "time"

// Status describes where a user sits in the approval lifecycle. Expiry is not
// a status of its own; it is derived from ExpiresAt whenever access is
// checked.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

// ExpiryPolicy is the result of parsing a duration token: either a permanent
// grant or a concrete TTL the caller anchors to its own activation time.
type ExpiryPolicy struct {
	Permanent bool
	TTL       time.Duration
}

// Subscription stores the access state for a Telegram user.
type Subscription struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Permanent bool      `json:"permanent"`
	ExpiresAt time.Time `json:"expires_at"` // zero while pending or permanent
}

// AccessibleAt reports whether the subscription grants access at the given
// time. An expired record stays in place and simply reports inaccessible
// until it is reactivated or blocked.
func (s *Subscription) AccessibleAt(now time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	if s.Permanent {
		return true
	}
	return !now.After(s.ExpiresAt)
}
