package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/store"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type snapshotReader interface {
	GetSnapshot(ctx context.Context, studentID string) (*models.ScheduleSnapshot, error)
}

// EnrollRequest carries the identifiers of one enrollment attempt.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// DropRequest carries the identifiers of one drop attempt.
type DropRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// EnrollmentService orchestrates the enrollment transaction engine.
// Every enroll attempt runs its existence checks, duplicate check,
// conflict detection and capacity guard inside one atomic transaction;
// the insert commits only when every check passes. Drop mirrors the
// flow without conflict or capacity checks, since removing a
// commitment cannot create either.
type EnrollmentService struct {
	store     store.Runner
	snapshots snapshotReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(st store.Runner, snapshots snapshotReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{store: st, snapshots: snapshots, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Enroll registers a student into a section. Failure precedence is
// fixed: missing student, missing section, duplicate enrollment,
// schedule conflict, full section — the first failing check wins and
// aborts the transaction with no partial effect. On success the
// freshly recomputed schedule snapshot is returned.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.ScheduleSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		if _, err := tx.FindStudent(ctx, req.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("cannot enroll: student %s does not exist", req.StudentID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}

		section, err := tx.FindSectionForUpdate(ctx, req.SectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrSectionNotFound, fmt.Sprintf("cannot enroll: section %s does not exist", req.SectionID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}

		if _, err := tx.FindEnrollment(ctx, req.StudentID, req.SectionID); err == nil {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("student is already enrolled in section %s (%s)", section.Code, section.Subject.Title))
		} else if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}

		enrolled, err := tx.ListEnrolledSections(ctx, req.StudentID, req.SectionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current schedule")
		}
		if conflict := findScheduleConflict(section.Meetings, enrolled); conflict != nil {
			return s.conflictError(section, conflict)
		}

		if !section.HasCapacity() {
			return appErrors.Clone(appErrors.ErrSectionFull, fmt.Sprintf("cannot enroll: section %s is at full capacity (%d/%d enrolled)", section.Code, section.EnrolledCount, *section.Capacity))
		}

		enrollment := &models.Enrollment{StudentID: req.StudentID, SectionID: req.SectionID}
		return tx.CreateEnrollment(ctx, enrollment)
	})
	if err != nil {
		s.observe("enroll", err)
		s.logger.Warn("enrollment rejected",
			zap.String("student_id", req.StudentID),
			zap.String("section_id", req.SectionID),
			zap.Error(err))
		return nil, err
	}

	s.observe("enroll", nil)
	s.logger.Info("student enrolled",
		zap.String("student_id", req.StudentID),
		zap.String("section_id", req.SectionID))
	s.invalidate(ctx, req.StudentID)
	return s.snapshot(ctx, req.StudentID)
}

// Drop removes a student's enrollment in a section and returns the
// refreshed schedule snapshot.
func (s *EnrollmentService) Drop(ctx context.Context, req DropRequest) (*models.ScheduleSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop payload")
	}

	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		if _, err := tx.FindStudent(ctx, req.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("cannot drop: student %s does not exist", req.StudentID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}

		enrollment, err := tx.FindEnrollment(ctx, req.StudentID, req.SectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("cannot drop: student is not enrolled in section %s", req.SectionID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}

		return tx.DeleteEnrollment(ctx, enrollment.ID)
	})
	if err != nil {
		s.observe("drop", err)
		return nil, err
	}

	s.observe("drop", nil)
	s.logger.Info("student dropped",
		zap.String("student_id", req.StudentID),
		zap.String("section_id", req.SectionID))
	s.invalidate(ctx, req.StudentID)
	return s.snapshot(ctx, req.StudentID)
}

// GetSchedule returns the student's current schedule snapshot, served
// from cache when available.
func (s *EnrollmentService) GetSchedule(ctx context.Context, studentID string) (*models.ScheduleSnapshot, error) {
	if s.cache.Enabled() {
		var cached models.ScheduleSnapshot
		if hit, _ := s.cache.Get(ctx, scheduleCacheKey(studentID), &cached); hit {
			return &cached, nil
		}
	}

	snapshot, err := s.snapshots.GetSnapshot(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("student %s does not exist", studentID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, scheduleCacheKey(studentID), snapshot, 0)
	}
	return snapshot, nil
}

func (s *EnrollmentService) conflictError(section *models.SectionDetail, conflict *models.ScheduleConflict) error {
	message := fmt.Sprintf(
		"cannot enroll: section %s (%s) conflicts with %s (%s) on %s, new section meets %s, existing section meets %s",
		section.Code, section.Subject.Title,
		conflict.SectionCode, conflict.SubjectTitle,
		conflict.Day.Title(), conflict.NewRange, conflict.ExistingRange,
	)
	conflictErr := &models.ScheduleConflictError{Conflict: *conflict, Message: message}
	return appErrors.Wrap(conflictErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, message)
}

// snapshot recomputes the schedule after a successful mutation. The
// read runs outside the write transaction on purpose; it is display
// data, not a correctness input.
func (s *EnrollmentService) snapshot(ctx context.Context, studentID string) (*models.ScheduleSnapshot, error) {
	snapshot, err := s.snapshots.GetSnapshot(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, scheduleCacheKey(studentID), snapshot, 0)
	}
	return snapshot, nil
}

func (s *EnrollmentService) invalidate(ctx context.Context, studentID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, scheduleCacheKey(studentID)); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *EnrollmentService) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	s.metrics.RecordEnrollmentAttempt(op, outcome)
}

func scheduleCacheKey(studentID string) string {
	return "schedule:" + studentID
}
