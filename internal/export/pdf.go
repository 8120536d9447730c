// Package export renders the in-memory entry collection to a PDF document.
// It consumes the collection verbatim; layout only, no domain logic.
package export

import (
	"bytes"
	"sort"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"tracklite/internal/domain"
	"tracklite/internal/totals"
)

var tableGrid = []uint{2, 2, 2, 2, 1, 1, 2}

// PDF renders entries as a table, oldest creation first, and returns the
// document bytes.
func PDF(entries []domain.TimeEntry) ([]byte, error) {
	sorted := make([]domain.TimeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(15, 10, 15)

	m.RegisterHeader(func() {
		m.Row(12, func() {
			m.Col(12, func() {
				m.Text("Time Entries", props.Text{
					Top:   3,
					Style: consts.Bold,
					Align: consts.Center,
					Size:  16,
				})
			})
		})
	})

	headers := []string{"Created", "Project", "Tags", "Description", "Start", "End", "Duration"}
	rows := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, []string{
			e.CreatedAt.Format("2006-01-02"),
			orDash(e.Project),
			tagList(e.Tags),
			orDash(deref(e.Description)),
			e.StartTime.Format("15:04"),
			e.EndTime.Format("15:04"),
			durationCell(e.Duration),
		})
	}

	m.TableList(headers, rows, props.TableList{
		HeaderProp: props.TableListContent{
			Size:      9,
			GridSizes: tableGrid,
		},
		ContentProp: props.TableListContent{
			Size:      9,
			GridSizes: tableGrid,
		},
		Align:                consts.Left,
		AlternatedBackground: &color.Color{Red: 240, Green: 240, Blue: 240},
		HeaderContentSpace:   1,
		Line:                 false,
	})

	buf, err := m.Output()
	if err != nil {
		return nil, err
	}
	return copyBuffer(buf), nil
}

func copyBuffer(b bytes.Buffer) []byte {
	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	return out
}

func durationCell(minutes int64) string {
	if minutes == 0 {
		return "-"
	}
	return totals.Format(minutes)
}

func tagList(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	out := tags[0]
	for _, t := range tags[1:] {
		out += ", " + t
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
