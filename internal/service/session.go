package service

import (
	"errors"
	"sync"
)

var (
	// ErrNoActiveSession is returned when a selection operation arrives for a
	// user without a session in progress.
	ErrNoActiveSession = errors.New("no active selection session")
	// ErrEmptySelection is returned when a session is confirmed with no
	// channels selected.
	ErrEmptySelection = errors.New("no channels selected")
)

type sessionStep int

const (
	stepChoosingChannels sessionStep = iota + 1
)

type selectionSession struct {
	step     sessionStep
	channels []string
}

// SelectionSessions tracks the per-user channel selection dialog against a
// fixed channel catalog. It holds no clock and performs no I/O.
type SelectionSessions struct {
	mu       sync.Mutex
	catalog  map[string]bool
	sessions map[int64]*selectionSession
}

func NewSelectionSessions(catalog []string) *SelectionSessions {
	known := make(map[string]bool, len(catalog))
	for _, c := range catalog {
		known[c] = true
	}
	return &SelectionSessions{catalog: known, sessions: map[int64]*selectionSession{}}
}

// Start creates a fresh session for the user, discarding any existing one.
func (s *SelectionSessions) Start(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &selectionSession{step: stepChoosingChannels}
}

// Active reports whether the user has a session in progress.
func (s *SelectionSessions) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// Add appends a channel to the user's selection, preserving first-insertion
// order. Channels outside the catalog and duplicates leave the selection
// unchanged and report added=false.
func (s *SelectionSessions) Add(userID int64, channel string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return false, ErrNoActiveSession
	}
	if !s.catalog[channel] {
		return false, nil
	}
	for _, c := range sess.channels {
		if c == channel {
			return false, nil
		}
	}
	sess.channels = append(sess.channels, channel)
	return true, nil
}

// Confirm finalizes the selection, destroys the session and returns the
// chosen channels in first-insertion order. Confirming an empty selection
// fails and leaves the session in place.
func (s *SelectionSessions) Confirm(userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNoActiveSession
	}
	if len(sess.channels) == 0 {
		return nil, ErrEmptySelection
	}
	delete(s.sessions, userID)
	return sess.channels, nil
}
