package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ScheduleSection is one enrolled section on a rendered schedule.
type ScheduleSection struct {
	Code          string
	SubjectTitle  string
	SubjectCode   string
	TeacherName   string
	ClassroomName string
	Location      string
	MeetingLines  []string
}

// ScheduleDocument describes a student schedule ready for rendering.
type ScheduleDocument struct {
	StudentName  string
	StudentEmail string
	GeneratedAt  time.Time
	Sections     []ScheduleSection
}

// SchedulePDFExporter renders a student schedule into a PDF document.
type SchedulePDFExporter struct{}

// NewSchedulePDFExporter constructs a schedule PDF exporter.
func NewSchedulePDFExporter() *SchedulePDFExporter {
	return &SchedulePDFExporter{}
}

// Render produces the PDF bytes for a schedule document.
func (e *SchedulePDFExporter) Render(doc ScheduleDocument) ([]byte, error) {
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("pdf requires at least one section")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Student Schedule", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", doc.GeneratedAt.UTC().Format(time.RFC3339)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Student: %s (%s)", doc.StudentName, doc.StudentEmail), "", 1, "", false, 0, "")
	pdf.Ln(4)

	for _, section := range doc.Sections {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, section.Code, "", 1, "", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Subject: %s (%s)", section.SubjectTitle, section.SubjectCode), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Instructor: %s", section.TeacherName), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Classroom: %s - %s", section.ClassroomName, section.Location), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, "Meetings:", "", 1, "", false, 0, "")
		for _, line := range section.MeetingLines {
			pdf.CellFormat(0, 6, "    - "+line, "", 1, "", false, 0, "")
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render schedule pdf: %w", err)
	}
	return buf.Bytes(), nil
}
