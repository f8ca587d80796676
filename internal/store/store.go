package store

import (
	"errors"
	"io"
)

// Stores groups the backends the server depends on.
type Stores struct {
	Users    UserStore
	Sessions SessionStore
	Audit    AuditStore

	closers []io.Closer
}

// AddCloser registers a resource released by Close, in reverse order.
func (s *Stores) AddCloser(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Close releases registered resources and joins their errors.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// CloserFunc adapts a function to io.Closer.
type CloserFunc func() error

// Close calls f.
func (f CloserFunc) Close() error { return f() }
