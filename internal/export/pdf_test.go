package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracklite/internal/domain"
)

func TestPDFRendersDocument(t *testing.T) {
	desc := "standup notes"
	start := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	entries := []domain.TimeEntry{
		{
			ID:          "e2",
			UserID:      "u1",
			Project:     "X",
			Description: &desc,
			Tags:        []string{"dev", "feature"},
			StartTime:   start,
			EndTime:     start.Add(45 * time.Minute),
			Duration:    45,
			CreatedAt:   start.AddDate(0, 0, 1),
			UpdatedAt:   start.AddDate(0, 0, 1),
		},
		{
			ID:        "e1",
			UserID:    "u1",
			Project:   "Y",
			StartTime: start,
			EndTime:   start,
			CreatedAt: start,
			UpdatedAt: start,
		},
	}

	out, err := PDF(entries)
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestPDFEmptyCollection(t *testing.T) {
	out, err := PDF(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestCellHelpers(t *testing.T) {
	assert.Equal(t, "-", tagList(nil))
	assert.Equal(t, "dev, feature", tagList([]string{"dev", "feature"}))
	assert.Equal(t, "-", durationCell(0))
	assert.Equal(t, "1h 30m", durationCell(90))
	assert.Equal(t, "-", orDash(""))
}
