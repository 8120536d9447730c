package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"tracklite/internal/domain"
)

// Store implements ports.RecordStore against a MySQL table. One table keyed
// (user_id, id) stands in for a per-user sub-collection; every query is
// scoped by user_id.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// NewStore opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func NewStore(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	// Conservative pool defaults; can be adjusted via env later.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &Store{db: db, log: log}, nil
}

const entryColumns = "id, user_id, project, description, tags, start_time, end_time, duration, created_at, updated_at"

// Create inserts the entry under a fresh store-assigned id and returns it.
// Field values are not echoed back; callers re-fetch for the authoritative
// record.
func (s *Store) Create(ctx context.Context, entry domain.TimeEntry) (string, error) {
	id := uuid.NewString()
	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return "", fmt.Errorf("mysql: encode tags: %w", err)
	}

	const q = `
INSERT INTO time_entries
  (id, user_id, project, description, tags, start_time, end_time, duration, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(
		ctx, q,
		id,
		entry.UserID,
		entry.Project,
		entry.Description,
		string(tagsJSON),
		entry.StartTime.UTC(),
		entry.EndTime.UTC(),
		entry.Duration,
		entry.CreatedAt.UTC(),
		entry.UpdatedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert entry: %v", domain.ErrStoreUnavailable, err)
	}
	s.log.Debug("entry created", slog.String("id", id), slog.String("user", entry.UserID))
	return id, nil
}

// GetByID fetches one entry. Absence yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, userID, id string) (*domain.TimeEntry, error) {
	row := s.db.QueryRowContext(
		ctx,
		"SELECT "+entryColumns+" FROM time_entries WHERE user_id = ? AND id = ?",
		userID, id,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List fetches the user's whole collection. Rows that fail to decode are
// logged and skipped so one malformed document cannot poison the rest.
func (s *Store) List(ctx context.Context, userID string) ([]domain.TimeEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT "+entryColumns+" FROM time_entries WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []domain.TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			if errors.Is(err, domain.ErrDecodeFailed) {
				s.log.Warn("skipping undecodable entry", slog.String("user", userID), slog.String("error", err.Error()))
				continue
			}
			return nil, err
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list entries: %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

// Update applies a partial field merge; only non-nil patch fields are set.
func (s *Store) Update(ctx context.Context, userID, id string, patch domain.EntryPatch) error {
	if patch.IsZero() {
		return nil
	}
	query, args, err := buildUpdate(userID, id, patch)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update entry: %v", domain.ErrStoreUnavailable, err)
	}
	// RowsAffected is 0 both for absent rows and no-op merges; tell them
	// apart with an existence probe only in the ambiguous case.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		existing, getErr := s.GetByID(ctx, userID, id)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
		}
	}
	return nil
}

// Delete removes the entry. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(
		ctx,
		"DELETE FROM time_entries WHERE user_id = ? AND id = ?",
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("%w: delete entry: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying DB. Not part of the port to keep it minimal.
func (s *Store) Close() error { return s.db.Close() }

// buildUpdate assembles the dynamic SET list from the patch.
func buildUpdate(userID, id string, patch domain.EntryPatch) (string, []interface{}, error) {
	b := sq.Update("time_entries")
	if patch.Project != nil {
		b = b.Set("project", *patch.Project)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	if patch.Tags != nil {
		tagsJSON, err := json.Marshal(*patch.Tags)
		if err != nil {
			return "", nil, fmt.Errorf("mysql: encode tags: %w", err)
		}
		b = b.Set("tags", string(tagsJSON))
	}
	if patch.StartTime != nil {
		b = b.Set("start_time", patch.StartTime.UTC())
	}
	if patch.EndTime != nil {
		b = b.Set("end_time", patch.EndTime.UTC())
	}
	if patch.Duration != nil {
		b = b.Set("duration", *patch.Duration)
	}
	if patch.UpdatedAt != nil {
		b = b.Set("updated_at", patch.UpdatedAt.UTC())
	}
	return b.Where(sq.Eq{"user_id": userID}).Where(sq.Eq{"id": id}).ToSql()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*domain.TimeEntry, error) {
	var (
		e        domain.TimeEntry
		desc     sql.NullString
		tagsJSON string
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Project,
		&desc,
		&tagsJSON,
		&e.StartTime,
		&e.EndTime,
		&e.Duration,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan entry: %v", domain.ErrDecodeFailed, err)
	}
	// Empty and NULL descriptions both read back as absent.
	if desc.Valid && desc.String != "" {
		e.Description = &desc.String
	}
	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return nil, fmt.Errorf("%w: tags of entry %s: %v", domain.ErrDecodeFailed, e.ID, err)
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
