package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tracklite/internal/ports"
)

// Manager creates sessions on sign-in and tears them down on sign-out.
// It replaces ambient "current user" state with an explicit lookup keyed by
// the identifier the auth collaborator hands us.
type Manager struct {
	log   *slog.Logger
	store ports.RecordStore
	loc   *time.Location

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session registry over the given store.
// Every session buckets its totals in the calendar of loc (nil means UTC).
func NewManager(log *slog.Logger, store ports.RecordStore, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{
		log:      log,
		store:    store,
		loc:      loc,
		sessions: make(map[string]*Session),
	}
}

// SignIn returns the user's session, creating and loading it on first use.
// A failed initial load still yields a usable (empty) session alongside the
// error; the caller may retry with Session.Load.
func (m *Manager) SignIn(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	s := New(m.log, m.store, userID, m.loc)
	m.sessions[userID] = s
	m.mu.Unlock()

	err := s.Load(ctx)
	if err != nil {
		m.log.Warn("initial load failed", slog.String("user", userID), slog.String("error", err.Error()))
	}
	return s, err
}

// Get returns the session for userID if one is signed in.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// SignOut discards the user's session and its in-memory collection.
// Signing out an unknown user is a no-op.
func (m *Manager) SignOut(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
