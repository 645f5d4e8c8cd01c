package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulePDFRender(t *testing.T) {
	exporter := NewSchedulePDFExporter()
	doc := ScheduleDocument{
		StudentName:  "Grace Hopper",
		StudentEmail: "grace@example.edu",
		GeneratedAt:  time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
		Sections: []ScheduleSection{
			{
				Code:          "MATH-101-A",
				SubjectTitle:  "Calculus I",
				SubjectCode:   "MATH-101",
				TeacherName:   "Ada Lovelace",
				ClassroomName: "Room 204",
				Location:      "Science Hall 204",
				MeetingLines:  []string{"Monday: 08:00-08:50", "Wednesday: 08:00-08:50"},
			},
		},
	}

	content, err := exporter.Render(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"), "output must be a PDF document")
}

func TestSchedulePDFRenderRejectsEmpty(t *testing.T) {
	exporter := NewSchedulePDFExporter()
	_, err := exporter.Render(ScheduleDocument{StudentName: "Grace Hopper"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one section")
}

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	content, err := exporter.Render(Dataset{
		Headers: []string{"Section", "Day", "Time"},
		Rows: []map[string]string{
			{"Section": "MATH-101-A", "Day": "Monday", "Time": "08:00-08:50"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Section,Day,Time\nMATH-101-A,Monday,08:00-08:50\n", string(content))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
