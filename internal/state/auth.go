// Package state holds the client's process-wide state containers: who is
// signed in and how the UI is arranged. One instance of each is created per
// client and passed to its consumers.
package state

import (
	"sync"

	"github.com/wolfeidau/tradejournal/internal/models"
)

// AuthState is a snapshot of the client's authentication status.
type AuthState struct {
	User    *models.User `json:"user"`
	Loading bool         `json:"loading"`
	Error   *string      `json:"error"`
}

// Authenticated reports whether a user is signed in.
func (s AuthState) Authenticated() bool {
	return s.User != nil
}

// AuthStore holds the current AuthState and notifies subscribers of every change.
type AuthStore struct {
	mu    sync.Mutex
	state AuthState
	subs  subscribers[AuthState]
}

// NewAuthStore returns a store in its initial loading state.
func NewAuthStore() *AuthStore {
	return &AuthStore{state: AuthState{Loading: true}}
}

// State returns the current snapshot.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetUser records the signed-in user, or nil after logout, and clears loading and error.
func (s *AuthStore) SetUser(user *models.User) {
	s.update(func(st *AuthState) {
		st.User = user
		st.Loading = false
		st.Error = nil
	})
}

// SetLoading sets the loading flag.
func (s *AuthStore) SetLoading(loading bool) {
	s.update(func(st *AuthState) {
		st.Loading = loading
	})
}

// SetError records an error and clears loading. The user is kept.
func (s *AuthStore) SetError(message string) {
	s.update(func(st *AuthState) {
		st.Error = &message
		st.Loading = false
	})
}

// Reset clears user, loading and error.
func (s *AuthStore) Reset() {
	s.update(func(st *AuthState) {
		*st = AuthState{}
	})
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned function removes the subscription.
func (s *AuthStore) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	return s.subs.add(fn)
}

func (s *AuthStore) update(fn func(*AuthState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	s.mu.Unlock()

	s.subs.notify(snapshot)
}
