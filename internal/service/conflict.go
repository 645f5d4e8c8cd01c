package service

import (
	"github.com/noah-isme/course-registry-api/internal/models"
)

// findScheduleConflict checks a candidate section's meetings against
// the sections a student is already enrolled in and returns the first
// overlap found, or nil when the candidate fits.
//
// The scan order is deterministic: candidate meetings in stored order,
// then enrolled sections in stored order, then each section's meetings
// in stored order. One conflict is enough to reject, so the search
// stops at the first hit. Pure function, no side effects.
func findScheduleConflict(candidate []models.Meeting, enrolled []models.SectionDetail) *models.ScheduleConflict {
	for _, meeting := range candidate {
		for i := range enrolled {
			section := &enrolled[i]
			for _, existing := range section.Meetings {
				if !meeting.Overlaps(existing) {
					continue
				}
				return &models.ScheduleConflict{
					SectionID:     section.ID,
					SectionCode:   section.Code,
					SubjectTitle:  section.Subject.Title,
					Day:           meeting.Day,
					NewRange:      meeting.TimeRange(),
					ExistingRange: existing.TimeRange(),
				}
			}
		}
	}
	return nil
}
