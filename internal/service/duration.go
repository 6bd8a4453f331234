package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tq4m/otc-signal-bot/internal/model"
)

// ErrInvalidDuration is returned for tokens that are not <N>h, <N>d, <N>w or
// the literal "perm".
var ErrInvalidDuration = errors.New("invalid duration token")

// ParseExpiry converts a short duration token into an expiry policy. The
// parser performs no clock reads; callers anchor the TTL to their own notion
// of now.
func ParseExpiry(token string) (model.ExpiryPolicy, error) {
	if token == "perm" {
		return model.ExpiryPolicy{Permanent: true}, nil
	}
	var unit time.Duration
	switch {
	case strings.HasSuffix(token, "h"):
		unit = time.Hour
	case strings.HasSuffix(token, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(token, "w"):
		unit = 7 * 24 * time.Hour
	default:
		return model.ExpiryPolicy{}, ErrInvalidDuration
	}
	n, err := strconv.Atoi(token[:len(token)-1])
	if err != nil || n < 0 {
		return model.ExpiryPolicy{}, ErrInvalidDuration
	}
	return model.ExpiryPolicy{TTL: time.Duration(n) * unit}, nil
}
