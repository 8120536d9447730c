// Package session holds the signed-in user's authoritative in-memory entry
// collection and keeps it, and the derived totals, consistent with the
// remote store after every mutation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tracklite/internal/domain"
	"tracklite/internal/ports"
	"tracklite/internal/totals"
)

// ErrNeedsRefresh means a create succeeded remotely but the authoritative
// re-fetch failed. The remote record exists; the caller should reload
// instead of re-submitting.
var ErrNeedsRefresh = errors.New("created but not confirmed, reload required")

// Session is the record orchestrator for one user. All operations serialize
// on an internal mutex, so every mutation (including the totals recompute)
// completes before the next begins.
type Session struct {
	log    *slog.Logger
	store  ports.RecordStore
	userID string
	loc    *time.Location
	now    func() time.Time

	mu      sync.Mutex
	entries []domain.TimeEntry
	totals  totals.Totals
}

// New creates an empty session for userID. Totals are bucketed in the
// calendar of loc; a nil loc means UTC. Call Load to populate the session.
func New(log *slog.Logger, store ports.RecordStore, userID string, loc *time.Location) *Session {
	if loc == nil {
		loc = time.UTC
	}
	return &Session{
		log:    log.With(slog.String("user", userID)),
		store:  store,
		userID: userID,
		loc:    loc,
		now:    time.Now,
	}
}

// UserID returns the owning user's identifier.
func (s *Session) UserID() string { return s.userID }

// Load replaces the in-memory collection with the store's full collection
// and recomputes totals. On failure the collection is left empty and the
// error is returned.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.List(ctx, s.userID)
	if err != nil {
		s.entries = nil
		s.recompute()
		return fmt.Errorf("load entries: %w", err)
	}
	s.entries = entries
	s.recompute()
	s.log.Info("entries loaded", slog.Int("count", len(entries)))
	return nil
}

// Create validates the draft, derives its duration, persists it and
// re-fetches the authoritative record before appending it locally.
// A failed re-fetch after a successful write returns ErrNeedsRefresh.
func (s *Session) Create(ctx context.Context, draft domain.TimeEntry) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft.UserID = s.userID
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.Duration = domain.DeriveDuration(draft.StartTime, draft.EndTime)
	now := s.now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	id, err := s.store.Create(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	created, err := s.store.GetByID(ctx, s.userID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNeedsRefresh, err)
	}
	if created == nil {
		return nil, fmt.Errorf("%w: entry %s missing after create", ErrNeedsRefresh, id)
	}

	s.entries = append(s.entries, *created)
	s.recompute()
	s.log.Info("entry created", slog.String("id", created.ID), slog.Int64("duration", created.Duration))
	return created, nil
}

// Update submits the full replacement entry, re-deriving its duration from
// the supplied start and end, then swaps the matching in-memory entry. The
// local collection is only touched after the store confirms, so there is
// nothing to roll back on failure.
func (s *Session) Update(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		return nil, domain.NewValidationError("id", "required")
	}
	entry.UserID = s.userID
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	entry.Duration = domain.DeriveDuration(entry.StartTime, entry.EndTime)
	entry.UpdatedAt = s.now().UTC()

	tags := entry.Tags
	// An absent description is written as empty so the replacement can
	// clear a previously set one.
	desc := ""
	if entry.Description != nil {
		desc = *entry.Description
	}
	patch := domain.EntryPatch{
		Project:     &entry.Project,
		Description: &desc,
		Tags:        &tags,
		StartTime:   &entry.StartTime,
		EndTime:     &entry.EndTime,
		Duration:    &entry.Duration,
		UpdatedAt:   &entry.UpdatedAt,
	}
	if err := s.store.Update(ctx, s.userID, entry.ID, patch); err != nil {
		return nil, fmt.Errorf("update entry %s: %w", entry.ID, err)
	}

	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			entry.CreatedAt = s.entries[i].CreatedAt
			s.entries[i] = entry
			break
		}
	}
	s.recompute()
	s.log.Info("entry updated", slog.String("id", entry.ID))
	return &entry, nil
}

// Delete removes the entry remotely then locally. Deleting an id that no
// longer exists is not an error.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}

	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.recompute()
	s.log.Info("entry deleted", slog.String("id", id))
	return nil
}

// Entries returns a copy of the in-memory collection, for display and
// export. Tags and description are copied too, so callers cannot reach the
// authoritative collection through shared backing storage.
func (s *Session) Entries() []domain.TimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TimeEntry, len(s.entries))
	for i, e := range s.entries {
		if e.Tags != nil {
			tags := make([]string, len(e.Tags))
			copy(tags, e.Tags)
			e.Tags = tags
		}
		if e.Description != nil {
			desc := *e.Description
			e.Description = &desc
		}
		out[i] = e
	}
	return out
}

// Totals returns the formatted totals for the three display windows.
func (s *Session) Totals() totals.Formatted {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals.Formatted()
}

// recompute re-runs aggregation over the post-mutation collection. The
// reference instant moves into the configured bucketing calendar first;
// entry timestamps are UTC instants and must not be compared against a
// host-local clock. Callers must hold s.mu.
func (s *Session) recompute() {
	s.totals = totals.Calculate(s.entries, s.now().In(s.loc))
}
