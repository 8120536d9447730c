package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracklite/internal/domain"
)

// ===========================================================================
// Manual mock (func fields)
// ===========================================================================

type mockStore struct {
	CreateFunc  func(ctx context.Context, entry domain.TimeEntry) (string, error)
	GetByIDFunc func(ctx context.Context, userID, id string) (*domain.TimeEntry, error)
	ListFunc    func(ctx context.Context, userID string) ([]domain.TimeEntry, error)
	UpdateFunc  func(ctx context.Context, userID, id string, patch domain.EntryPatch) error
	DeleteFunc  func(ctx context.Context, userID, id string) error

	creates []domain.TimeEntry
	updates []domain.EntryPatch
	deletes []string
}

func (m *mockStore) Create(ctx context.Context, entry domain.TimeEntry) (string, error) {
	m.creates = append(m.creates, entry)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	return "generated-id", nil
}

func (m *mockStore) GetByID(ctx context.Context, userID, id string) (*domain.TimeEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockStore) List(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockStore) Update(ctx context.Context, userID, id string, patch domain.EntryPatch) error {
	m.updates = append(m.updates, patch)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, id, patch)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, userID, id string) error {
	m.deletes = append(m.deletes, id)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, id)
	}
	return nil
}

// ===========================================================================
// Helpers
// ===========================================================================

var testNow = time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)

func newTestSession(store *mockStore) *Session {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(log, store, "u1", time.UTC)
	s.now = func() time.Time { return testNow }
	return s
}

func storedEntry(id string, duration int64) domain.TimeEntry {
	return domain.TimeEntry{
		ID:        id,
		UserID:    "u1",
		Project:   "X",
		Tags:      []string{"dev"},
		StartTime: testNow.Add(-time.Duration(duration) * time.Minute),
		EndTime:   testNow,
		Duration:  duration,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

// ===========================================================================
// Load
// ===========================================================================

func TestLoadReplacesCollection(t *testing.T) {
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			assert.Equal(t, "u1", userID)
			return []domain.TimeEntry{storedEntry("e1", 30), storedEntry("e2", 45)}, nil
		},
	}
	s := newTestSession(store)

	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, s.Entries(), 2)
	assert.Equal(t, "1h 15m", s.Totals().Today)
}

func TestLoadFailureLeavesCollectionEmpty(t *testing.T) {
	store := &mockStore{}
	s := newTestSession(store)
	store.ListFunc = func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
		return []domain.TimeEntry{storedEntry("e1", 30)}, nil
	}
	require.NoError(t, s.Load(context.Background()))
	require.Len(t, s.Entries(), 1)

	store.ListFunc = func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
		return nil, domain.ErrStoreUnavailable
	}
	err := s.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Empty(t, s.Entries())
	assert.Equal(t, "0h 0m", s.Totals().Today)
}

// ===========================================================================
// Create
// ===========================================================================

func TestCreateDerivesDurationAndAppendsAuthoritativeRecord(t *testing.T) {
	store := &mockStore{
		CreateFunc: func(ctx context.Context, entry domain.TimeEntry) (string, error) {
			assert.Equal(t, "u1", entry.UserID)
			assert.Equal(t, int64(45), entry.Duration)
			assert.Equal(t, testNow, entry.CreatedAt)
			return "new-id", nil
		},
		GetByIDFunc: func(ctx context.Context, userID, id string) (*domain.TimeEntry, error) {
			e := storedEntry(id, 45)
			return &e, nil
		},
	}
	s := newTestSession(store)

	created, err := s.Create(context.Background(), domain.TimeEntry{
		Project:   "X",
		StartTime: testNow.Add(-45 * time.Minute),
		EndTime:   testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)
	assert.Len(t, s.Entries(), 1)
	assert.Equal(t, "0h 45m", s.Totals().Today)
}

func TestCreateValidationFailureSkipsStore(t *testing.T) {
	store := &mockStore{}
	s := newTestSession(store)

	_, err := s.Create(context.Background(), domain.TimeEntry{
		StartTime: testNow,
		EndTime:   testNow.Add(time.Hour),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, store.creates)
	assert.Empty(t, s.Entries())
}

func TestCreateRefetchFailureReturnsNeedsRefresh(t *testing.T) {
	store := &mockStore{
		GetByIDFunc: func(ctx context.Context, userID, id string) (*domain.TimeEntry, error) {
			return nil, domain.ErrStoreUnavailable
		},
	}
	s := newTestSession(store)

	_, err := s.Create(context.Background(), domain.TimeEntry{
		Project:   "X",
		StartTime: testNow.Add(-time.Hour),
		EndTime:   testNow,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNeedsRefresh)
	// The remote write went through; only the local append is withheld.
	assert.Len(t, store.creates, 1)
	assert.Empty(t, s.Entries())
}

func TestCreateRefetchMissReturnsNeedsRefresh(t *testing.T) {
	store := &mockStore{} // GetByID defaults to (nil, nil)
	s := newTestSession(store)

	_, err := s.Create(context.Background(), domain.TimeEntry{
		Project:   "X",
		StartTime: testNow.Add(-time.Hour),
		EndTime:   testNow,
	})
	assert.ErrorIs(t, err, ErrNeedsRefresh)
}

// ===========================================================================
// Update
// ===========================================================================

func TestUpdateReplacesInMemoryEntry(t *testing.T) {
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			return []domain.TimeEntry{storedEntry("e1", 45)}, nil
		},
	}
	s := newTestSession(store)
	require.NoError(t, s.Load(context.Background()))

	edited := storedEntry("e1", 0)
	edited.Project = "Y"
	edited.EndTime = edited.StartTime.Add(90 * time.Minute)

	updated, err := s.Update(context.Background(), edited)
	require.NoError(t, err)
	assert.Equal(t, int64(90), updated.Duration, "duration re-derived from the edited span")
	assert.Equal(t, testNow, updated.UpdatedAt)
	assert.Equal(t, testNow, updated.CreatedAt, "creation timestamp never changes")

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Y", entries[0].Project)
	assert.Equal(t, "1h 30m", s.Totals().Today)

	require.Len(t, store.updates, 1)
	patch := store.updates[0]
	require.NotNil(t, patch.Project)
	assert.Equal(t, "Y", *patch.Project)
	require.NotNil(t, patch.Duration)
	assert.Equal(t, int64(90), *patch.Duration)
}

func TestUpdateFailureLeavesCollectionUntouched(t *testing.T) {
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			return []domain.TimeEntry{storedEntry("e1", 45)}, nil
		},
		UpdateFunc: func(ctx context.Context, userID, id string, patch domain.EntryPatch) error {
			return domain.ErrNotFound
		},
	}
	s := newTestSession(store)
	require.NoError(t, s.Load(context.Background()))

	edited := storedEntry("e1", 45)
	edited.Project = "Y"
	_, err := s.Update(context.Background(), edited)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "X", s.Entries()[0].Project)
}

func TestUpdateRequiresID(t *testing.T) {
	s := newTestSession(&mockStore{})
	e := storedEntry("", 45)
	_, err := s.Update(context.Background(), e)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ===========================================================================
// Delete
// ===========================================================================

func TestDeleteRemovesEntryAndIsIdempotent(t *testing.T) {
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			return []domain.TimeEntry{storedEntry("e1", 30), storedEntry("e2", 45)}, nil
		},
	}
	s := newTestSession(store)
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.Delete(context.Background(), "e1"))
	assert.Len(t, s.Entries(), 1)
	assert.Equal(t, "0h 45m", s.Totals().Today)

	// Second delete of the same id: no error, collection unchanged.
	require.NoError(t, s.Delete(context.Background(), "e1"))
	assert.Len(t, s.Entries(), 1)
	assert.Equal(t, []string{"e1", "e1"}, store.deletes)
}

func TestDeleteFailureLeavesCollectionUntouched(t *testing.T) {
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			return []domain.TimeEntry{storedEntry("e1", 30)}, nil
		},
		DeleteFunc: func(ctx context.Context, userID, id string) error {
			return domain.ErrStoreUnavailable
		},
	}
	s := newTestSession(store)
	require.NoError(t, s.Load(context.Background()))

	err := s.Delete(context.Background(), "e1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Len(t, s.Entries(), 1)
}

// ===========================================================================
// Accessors
// ===========================================================================

func TestTotalsIgnoreHostClockLocation(t *testing.T) {
	// 2026-03-19 11:30 +13:00 is still 2026-03-18 in UTC. Entries are
	// stamped in UTC, so with UTC bucketing a fresh entry must land in
	// today's total no matter what location the host clock reports.
	hostClock := time.Date(2026, 3, 19, 11, 30, 0, 0, time.FixedZone("NZDT", 13*60*60))
	require.Equal(t, 18, hostClock.UTC().Day())

	store := &mockStore{
		GetByIDFunc: func(ctx context.Context, userID, id string) (*domain.TimeEntry, error) {
			e := storedEntry(id, 45)
			e.CreatedAt = hostClock.UTC()
			return &e, nil
		},
	}
	s := newTestSession(store)
	s.now = func() time.Time { return hostClock }

	_, err := s.Create(context.Background(), domain.TimeEntry{
		Project:   "X",
		StartTime: hostClock.Add(-45 * time.Minute),
		EndTime:   hostClock,
	})
	require.NoError(t, err)
	assert.Equal(t, "0h 45m", s.Totals().Today)
	assert.Equal(t, "0h 45m", s.Totals().Week)
	assert.Equal(t, "0h 45m", s.Totals().Month)
}

func TestEntriesCopyIsDetached(t *testing.T) {
	desc := "original"
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			e := storedEntry("e1", 30)
			e.Description = &desc
			return []domain.TimeEntry{e}, nil
		},
	}
	s := newTestSession(store)
	require.NoError(t, s.Load(context.Background()))

	leaked := s.Entries()
	leaked[0].Tags[0] = "mutated"
	*leaked[0].Description = "mutated"

	kept := s.Entries()
	assert.Equal(t, []string{"dev"}, kept[0].Tags)
	assert.Equal(t, "original", *kept[0].Description)
}

// ===========================================================================
// Manager
// ===========================================================================

func TestManagerSignInLoadsOnceAndCaches(t *testing.T) {
	calls := 0
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			calls++
			return []domain.TimeEntry{storedEntry("e1", 30)}, nil
		},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(log, store, time.UTC)

	s1, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)
	s2, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, calls)

	got, ok := m.Get("u1")
	require.True(t, ok)
	assert.Same(t, s1, got)
}

func TestManagerSignOutDiscardsSession(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(log, &mockStore{}, time.UTC)

	_, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)
	m.SignOut("u1")

	_, ok := m.Get("u1")
	assert.False(t, ok)

	m.SignOut("u1") // unknown user is a no-op
}

func TestManagerSignInSurfacesLoadFailure(t *testing.T) {
	store := &mockStore{
		ListFunc: func(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
			return nil, domain.ErrStoreUnavailable
		},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(log, store, time.UTC)

	s, err := m.SignIn(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.NotNil(t, s, "session usable for a later retry")
	assert.Empty(t, s.Entries())
}
