package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/tq4m/otc-signal-bot/internal/model"
)

// ErrNotFound is returned when no subscription record exists for a user.
var ErrNotFound = errors.New("subscription not found")

// SubscriptionRepository abstracts storage of subscription records.
type SubscriptionRepository interface {
	Get(ctx context.Context, userID int64) (*model.Subscription, error)
	Save(ctx context.Context, sub *model.Subscription) error
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*model.Subscription, error)
}

// MemorySubscriptionRepository keeps records in memory for the lifetime of
// the process. List returns records in first-insertion order.
type MemorySubscriptionRepository struct {
	mu    sync.Mutex
	data  map[int64]*model.Subscription
	order []int64
}

func NewMemorySubscriptionRepository() *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{data: map[int64]*model.Subscription{}}
}

// Get retrieves the record for the user or returns ErrNotFound.
func (r *MemorySubscriptionRepository) Get(ctx context.Context, userID int64) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[userID]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, ErrNotFound
}

// Save inserts or overwrites the record for a user.
func (r *MemorySubscriptionRepository) Save(ctx context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[sub.UserID]; !ok {
		r.order = append(r.order, sub.UserID)
	}
	copy := *sub
	r.data[sub.UserID] = &copy
	return nil
}

// Delete removes the record for a user. Deleting a missing record is a no-op.
func (r *MemorySubscriptionRepository) Delete(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[userID]; !ok {
		return nil
	}
	delete(r.data, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns all stored records in first-insertion order.
func (r *MemorySubscriptionRepository) List(ctx context.Context) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*model.Subscription, 0, len(r.data))
	for _, id := range r.order {
		copy := *r.data[id]
		res = append(res, &copy)
	}
	return res, nil
}
