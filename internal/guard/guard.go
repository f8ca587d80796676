// Package guard gates protected client views on the auth state.
//
// The guard is advisory: it decides what the client shows. Requests are
// authorised server-side by session.RequireSession.
package guard

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tradejournal/internal/state"
)

// DefaultLoginPath is where unauthenticated users are sent.
const DefaultLoginPath = "/superadmin/login"

// Status is the guard's view of the auth state.
type Status int

const (
	Loading Status = iota
	Authenticated
	Unauthenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// StatusOf derives the guard status from an auth snapshot. Loading takes precedence.
func StatusOf(s state.AuthState) Status {
	switch {
	case s.Loading:
		return Loading
	case s.Authenticated():
		return Authenticated
	default:
		return Unauthenticated
	}
}

// Navigator moves the client to another view.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Redirect calls f.
func (f NavigatorFunc) Redirect(path string) { f(path) }

// Guard tracks an AuthStore and redirects to the login view each time the
// state becomes unauthenticated.
type Guard struct {
	nav       Navigator
	loginPath string

	mu          sync.Mutex
	status      Status
	unsubscribe func()
	pending     sync.WaitGroup
}

// New creates a guard subscribed to store and evaluates the current state.
// An empty loginPath uses DefaultLoginPath.
func New(store *state.AuthStore, nav Navigator, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	g := &Guard{
		nav:       nav,
		loginPath: loginPath,
		status:    Loading,
	}

	g.unsubscribe = store.Subscribe(g.evaluate)
	g.evaluate(store.State())

	return g
}

// Status returns the current status.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Render returns content while authenticated and nil otherwise.
func (g *Guard) Render(content any) any {
	if g.Status() != Authenticated {
		return nil
	}
	return content
}

// Wait blocks until dispatched redirects have returned.
func (g *Guard) Wait() {
	g.pending.Wait()
}

// Close stops tracking the store and waits for pending redirects.
func (g *Guard) Close() {
	g.unsubscribe()
	g.pending.Wait()
}

func (g *Guard) evaluate(s state.AuthState) {
	next := StatusOf(s)

	g.mu.Lock()
	prev := g.status
	g.status = next
	redirect := next == Unauthenticated && prev != Unauthenticated
	if redirect {
		g.pending.Add(1)
	}
	g.mu.Unlock()

	if prev != next {
		log.Debug().Stringer("from", prev).Stringer("to", next).Msg("Auth guard transition")
	}

	if redirect {
		go func() {
			defer g.pending.Done()
			g.nav.Redirect(g.loginPath)
		}()
	}
}
