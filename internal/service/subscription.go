package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tq4m/otc-signal-bot/internal/model"
	"github.com/tq4m/otc-signal-bot/internal/repository"
)

// SubscriptionService implements the access-control operations over the
// subscription repository.
type SubscriptionService struct {
	repo repository.SubscriptionRepository
}

func NewSubscriptionService(repo repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{repo: repo}
}

// Lookup returns the record for the user or repository.ErrNotFound.
func (s *SubscriptionService) Lookup(ctx context.Context, userID int64) (*model.Subscription, error) {
	return s.repo.Get(ctx, userID)
}

// RegisterPending records a first contact as a pending record. An existing
// record, whatever its status, is left untouched.
func (s *SubscriptionService) RegisterPending(ctx context.Context, userID int64, name string) error {
	if _, err := s.repo.Get(ctx, userID); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return s.repo.Save(ctx, &model.Subscription{UserID: userID, Name: name, Status: model.StatusPending})
}

// Activate inserts or overwrites the record as active with the expiry derived
// from the policy. Re-activation replaces prior state entirely, including
// records of users that were blocked before. An empty name keeps the existing
// record's name when there is one.
func (s *SubscriptionService) Activate(ctx context.Context, userID int64, name string, policy model.ExpiryPolicy, now time.Time) (*model.Subscription, error) {
	if name == "" {
		if prev, err := s.repo.Get(ctx, userID); err == nil {
			name = prev.Name
		} else {
			name = fmt.Sprintf("User %d", userID)
		}
	}
	sub := &model.Subscription{
		UserID:    userID,
		Name:      name,
		Status:    model.StatusActive,
		Permanent: policy.Permanent,
	}
	if !policy.Permanent {
		sub.ExpiresAt = now.Add(policy.TTL)
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Block removes the user's record entirely, so a blocked user who returns is
// treated as brand new. It reports whether a record existed, for operator
// feedback only.
func (s *SubscriptionService) Block(ctx context.Context, userID int64) (bool, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// IsAccessible reports whether the user holds usable access at the given
// time. Expiry is evaluated lazily; nothing is deleted here.
func (s *SubscriptionService) IsAccessible(ctx context.Context, userID int64, now time.Time) (bool, error) {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.AccessibleAt(now), nil
}

// List returns every known record in first-contact order.
func (s *SubscriptionService) List(ctx context.Context) ([]*model.Subscription, error) {
	return s.repo.List(ctx)
}
