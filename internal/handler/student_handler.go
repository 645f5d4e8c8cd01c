package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
	"github.com/noah-isme/course-registry-api/pkg/response"
)

// StudentHandler exposes student endpoints, including the schedule
// views and enrollment mutations scoped to one student.
type StudentHandler struct {
	students    *service.StudentService
	enrollments *service.EnrollmentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, enrollments *service.EnrollmentService) *StudentHandler {
	return &StudentHandler{students: students, enrollments: enrollments}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param name query string false "Filter by name"
// @Param email query string false "Filter by email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Name = strings.TrimSpace(c.Query("name"))
	filter.Email = strings.TrimSpace(c.Query("email"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// GetSchedule godoc
// @Summary Get a student's current schedule
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/schedule [get]
func (h *StudentHandler) GetSchedule(c *gin.Context) {
	snapshot, err := h.enrollments.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

type enrollPayload struct {
	SectionID string `json:"section_id"`
}

// Enroll godoc
// @Summary Enroll the student into a section
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body enrollPayload true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/enrollments [post]
func (h *StudentHandler) Enroll(c *gin.Context) {
	var payload enrollPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	snapshot, err := h.enrollments.Enroll(c.Request.Context(), service.EnrollRequest{
		StudentID: c.Param("id"),
		SectionID: payload.SectionID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snapshot)
}

// Drop godoc
// @Summary Drop the student from a section
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments/{sectionId} [delete]
func (h *StudentHandler) Drop(c *gin.Context) {
	snapshot, err := h.enrollments.Drop(c.Request.Context(), service.DropRequest{
		StudentID: c.Param("id"),
		SectionID: c.Param("sectionId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// ExportPDF godoc
// @Summary Download a student's schedule as PDF
// @Tags Students
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/schedule/pdf [get]
func (h *StudentHandler) ExportPDF(c *gin.Context) {
	result, err := h.students.ExportSchedulePDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

// ExportCSV godoc
// @Summary Download a student's schedule as CSV
// @Tags Students
// @Produce octet-stream
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/schedule/csv [get]
func (h *StudentHandler) ExportCSV(c *gin.Context) {
	result, err := h.students.ExportScheduleCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv", result.Content)
}
