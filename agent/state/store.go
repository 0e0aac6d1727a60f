package state

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

const defaultStoreTTL = 24 * time.Hour

// Store is the persistence contract used by the guard.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

// WithTTL drops sessions idle for longer than ttl on the next Load. Zero disables expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps sessions for the life of the process.
type MemoryStore struct {
	sessions *xsync.MapOf[string, *SessionState]
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	store := &MemoryStore{
		sessions: xsync.NewMapOf[string, *SessionState](),
		ttl:      defaultStoreTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*SessionState, error) {
	key, err := storeKey(sessionID)
	if err != nil {
		return nil, err
	}
	st, ok := s.sessions.Load(key)
	if !ok {
		return nil, ErrStateNotFound
	}
	if s.ttl > 0 && s.now().Sub(st.UpdatedAt) > s.ttl {
		s.sessions.Delete(key)
		return nil, ErrStateNotFound
	}
	return st, nil
}

func (s *MemoryStore) Save(_ context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	key, err := storeKey(st.SessionID)
	if err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now().UTC()
	}
	s.sessions.Store(key, st)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	key, err := storeKey(sessionID)
	if err != nil {
		return err
	}
	s.sessions.Delete(key)
	return nil
}

func (s *MemoryStore) Len() int { return s.sessions.Size() }

func storeKey(sessionID string) (string, error) {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		return "", ErrInvalidSession
	}
	return key, nil
}
