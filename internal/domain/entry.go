package domain

import "time"

// TimeEntry represents one recorded span of tracked time in the domain.
type TimeEntry struct {
	ID          string // empty until the store assigns one
	UserID      string
	Project     string
	Description *string
	Tags        []string // insertion order preserved, duplicates allowed
	StartTime   time.Time
	EndTime     time.Time
	Duration    int64 // whole minutes, derived from StartTime/EndTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EntryPatch is a partial update payload. Nil fields are left untouched
// by the store; set fields replace the stored value wholesale.
type EntryPatch struct {
	Project     *string
	Description *string
	Tags        *[]string
	StartTime   *time.Time
	EndTime     *time.Time
	Duration    *int64
	UpdatedAt   *time.Time
}

// IsZero reports whether the patch carries no fields at all.
func (p EntryPatch) IsZero() bool {
	return p.Project == nil && p.Description == nil && p.Tags == nil &&
		p.StartTime == nil && p.EndTime == nil && p.Duration == nil &&
		p.UpdatedAt == nil
}

// DeriveDuration returns the span between start and end in whole minutes,
// rounded to the nearest minute. Spans that are zero or negative clamp to 0
// so a reversed pair never produces a negative duration.
func DeriveDuration(start, end time.Time) int64 {
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start).Round(time.Minute) / time.Minute)
}

// Validate checks the fields required before an entry may be persisted.
func (e *TimeEntry) Validate() error {
	if e.Project == "" {
		return NewValidationError("project", "required")
	}
	if e.StartTime.IsZero() {
		return NewValidationError("startTime", "required")
	}
	if e.EndTime.IsZero() {
		return NewValidationError("endTime", "required")
	}
	return nil
}
