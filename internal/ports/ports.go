package ports

import (
	"context"

	"tracklite/internal/domain"
)

// RecordStore is the remote per-user document collection holding time
// entries. Implementations are stateless translators between the domain
// representation and whatever the store persists; the session layer owns
// the in-memory collection.
type RecordStore interface {
	// Create persists a new entry under its owning user and returns the
	// store-assigned id. The stored record is authoritative; callers
	// re-fetch via GetByID rather than trusting their draft.
	Create(ctx context.Context, entry domain.TimeEntry) (string, error)

	// GetByID returns one entry, or (nil, nil) when no such document
	// exists. Absence on a read is a result, not an error.
	GetByID(ctx context.Context, userID, id string) (*domain.TimeEntry, error)

	// List returns every entry belonging to userID, in no particular
	// order. Rows that cannot be decoded are skipped, not returned.
	List(ctx context.Context, userID string) ([]domain.TimeEntry, error)

	// Update applies a partial merge; nil patch fields are left untouched.
	// Returns domain.ErrNotFound when the entry does not exist.
	Update(ctx context.Context, userID, id string, patch domain.EntryPatch) error

	// Delete removes the entry. Deleting an absent id is not an error.
	Delete(ctx context.Context, userID, id string) error
}
