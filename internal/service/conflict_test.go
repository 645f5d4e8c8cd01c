package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
)

func enrolledSection(id, code, title string, meetings ...models.Meeting) models.SectionDetail {
	return models.SectionDetail{
		Section:  models.Section{ID: id, Code: code},
		Subject:  models.Subject{Title: title},
		Meetings: meetings,
	}
}

func TestFindScheduleConflictDetectsOverlap(t *testing.T) {
	candidate := []models.Meeting{
		{Day: models.Monday, StartMinute: 480, EndMinute: 530}, // 08:00-08:50
	}
	enrolled := []models.SectionDetail{
		enrolledSection("sec-1", "MATH-101-A", "Calculus I",
			models.Meeting{Day: models.Monday, StartMinute: 510, EndMinute: 560}), // 08:30-09:20
	}

	conflict := findScheduleConflict(candidate, enrolled)
	require.NotNil(t, conflict)
	assert.Equal(t, "sec-1", conflict.SectionID)
	assert.Equal(t, "MATH-101-A", conflict.SectionCode)
	assert.Equal(t, "Calculus I", conflict.SubjectTitle)
	assert.Equal(t, models.Monday, conflict.Day)
	assert.Equal(t, "08:00-08:50", conflict.NewRange)
	assert.Equal(t, "08:30-09:20", conflict.ExistingRange)
}

func TestFindScheduleConflictDifferentDays(t *testing.T) {
	candidate := []models.Meeting{
		{Day: models.Tuesday, StartMinute: 480, EndMinute: 530},
	}
	enrolled := []models.SectionDetail{
		enrolledSection("sec-1", "MATH-101-A", "Calculus I",
			models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530}),
	}

	assert.Nil(t, findScheduleConflict(candidate, enrolled))
}

func TestFindScheduleConflictTouchingSlots(t *testing.T) {
	candidate := []models.Meeting{
		{Day: models.Monday, StartMinute: 530, EndMinute: 580}, // starts exactly when the other ends
	}
	enrolled := []models.SectionDetail{
		enrolledSection("sec-1", "MATH-101-A", "Calculus I",
			models.Meeting{Day: models.Monday, StartMinute: 480, EndMinute: 530}),
	}

	assert.Nil(t, findScheduleConflict(candidate, enrolled))
}

func TestFindScheduleConflictEmptySchedule(t *testing.T) {
	candidate := []models.Meeting{
		{Day: models.Monday, StartMinute: 480, EndMinute: 530},
	}

	assert.Nil(t, findScheduleConflict(candidate, nil))
	assert.Nil(t, findScheduleConflict(nil, nil))
}

func TestFindScheduleConflictReportsFirstHit(t *testing.T) {
	// Both enrolled sections collide with the candidate; the one stored
	// first must be the one reported.
	candidate := []models.Meeting{
		{Day: models.Wednesday, StartMinute: 600, EndMinute: 700},
	}
	enrolled := []models.SectionDetail{
		enrolledSection("sec-1", "PHYS-201-B", "Mechanics",
			models.Meeting{Day: models.Wednesday, StartMinute: 650, EndMinute: 720}),
		enrolledSection("sec-2", "CHEM-110-A", "General Chemistry",
			models.Meeting{Day: models.Wednesday, StartMinute: 600, EndMinute: 660}),
	}

	conflict := findScheduleConflict(candidate, enrolled)
	require.NotNil(t, conflict)
	assert.Equal(t, "sec-1", conflict.SectionID)
}

func TestFindScheduleConflictScansCandidateMeetingsInOrder(t *testing.T) {
	// The first candidate meeting that overlaps wins even when a later
	// one also collides.
	candidate := []models.Meeting{
		{Day: models.Monday, StartMinute: 480, EndMinute: 530},
		{Day: models.Thursday, StartMinute: 480, EndMinute: 530},
	}
	enrolled := []models.SectionDetail{
		enrolledSection("sec-1", "BIO-150-A", "Biology",
			models.Meeting{Day: models.Thursday, StartMinute: 500, EndMinute: 560},
			models.Meeting{Day: models.Monday, StartMinute: 500, EndMinute: 560}),
	}

	conflict := findScheduleConflict(candidate, enrolled)
	require.NotNil(t, conflict)
	assert.Equal(t, models.Monday, conflict.Day)
	assert.Equal(t, "08:00-08:50", conflict.NewRange)
}
