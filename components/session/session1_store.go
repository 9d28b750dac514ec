package session

import (
	"sync"

	"chatey/components/user"
)

// Store holds the signed-in identity and the last error. Every change to the
// identity bumps a version so an optimistic writer can tell whether its
// projection is still the current one.
type Store struct {
	mu         sync.Mutex
	user       *user.DBUser
	registered bool
	version    uint64
	lastErr    error

	seq       uint64
	listeners map[uint64]func(*user.DBUser)
}

func NewStore() *Store {
	return &Store{listeners: make(map[uint64]func(*user.DBUser))}
}

// User returns a copy of the identity, nil when signed out.
func (s *Store) User() *user.DBUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

func (s *Store) Registered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Hold replaces the identity and its registration state.
func (s *Store) Hold(u *user.DBUser, registered bool) uint64 {
	s.mu.Lock()
	s.user = u.Clone()
	s.registered = registered
	v := s.bumpLocked()
	s.mu.Unlock()

	s.notify(u)
	return v
}

// SetUser replaces the identity and returns the new version.
func (s *Store) SetUser(u *user.DBUser) uint64 {
	s.mu.Lock()
	s.user = u.Clone()
	v := s.bumpLocked()
	s.mu.Unlock()

	s.notify(u)
	return v
}

// Apply takes a stored copy of the signed-in identity. Copies of anyone else
// are ignored.
func (s *Store) Apply(u *user.DBUser) bool {
	s.mu.Lock()
	if s.user == nil || u == nil || s.user.UID != u.UID {
		s.mu.Unlock()
		return false
	}
	s.user = u.Clone()
	s.registered = true
	s.bumpLocked()
	s.mu.Unlock()

	s.notify(u)
	return true
}

// RestoreIf puts prev back if nothing changed the identity since version.
func (s *Store) RestoreIf(version uint64, prev *user.DBUser) bool {
	s.mu.Lock()
	if s.version != version {
		s.mu.Unlock()
		return false
	}
	s.user = prev.Clone()
	s.bumpLocked()
	s.mu.Unlock()

	s.notify(prev)
	return true
}

func (s *Store) bumpLocked() uint64 {
	s.version++
	return s.version
}

func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Store) ClearError() {
	s.SetError(nil)
}

// Clear forgets the identity and the last error.
func (s *Store) Clear() {
	s.mu.Lock()
	s.user = nil
	s.registered = false
	s.lastErr = nil
	s.bumpLocked()
	s.mu.Unlock()

	s.notify(nil)
}

// Listen registers fn for every identity change; fn gets nil on sign-out.
func (s *Store) Listen(fn func(*user.DBUser)) func() {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(u *user.DBUser) {
	s.mu.Lock()
	fns := make([]func(*user.DBUser), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(u.Clone())
	}
}
