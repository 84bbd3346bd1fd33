package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openclass/exam-api/internal/models"
)

// ErrAttemptFinalized indicates a result write was refused because the
// attempt already holds a submission.
var ErrAttemptFinalized = errors.New("attempt already submitted")

// AttemptRepository defines persistence operations for exam attempts. The
// start-recording contract is the safety-critical piece: EnsureStarted must
// never move an existing start time, no matter how often or how concurrently
// it is called, or a reload would reset the clock.
type AttemptRepository interface {
	GetByID(ctx context.Context, id uint) (models.Attempt, error)
	GetByExamAndStudent(ctx context.Context, examID, studentID uint) (models.Attempt, error)
	EnsureStarted(ctx context.Context, examID, studentID uint, now time.Time) (models.Attempt, error)
	SaveResult(ctx context.Context, attempt *models.Attempt) error
	UpdateGrade(ctx context.Context, attempt *models.Attempt) error
	ListByExam(ctx context.Context, examID uint) ([]models.Attempt, error)
	ListPending(ctx context.Context) ([]models.Attempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates a GORM-backed repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.Attempt, error) {
	var attempt models.Attempt
	if err := r.db.WithContext(ctx).
		Preload("Student").
		First(&attempt, id).Error; err != nil {
		return models.Attempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) GetByExamAndStudent(ctx context.Context, examID, studentID uint) (models.Attempt, error) {
	var attempt models.Attempt
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Where("student_id = ?", studentID).
		First(&attempt).Error; err != nil {
		return models.Attempt{}, err
	}

	return attempt, nil
}

// EnsureStarted records the attempt start if and only if none exists, then
// returns the authoritative row. The insert is guarded by the unique
// (exam_id, student_id) index with a do-nothing conflict clause, and the
// follow-up update only fills a NULL started_at, so two racing calls both
// read back the same start time instead of overwriting each other.
func (r *attemptRepository) EnsureStarted(ctx context.Context, examID, studentID uint, now time.Time) (models.Attempt, error) {
	attempt := models.Attempt{
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: &now,
		Status:    models.AttemptStatusInProgress,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exam_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(&attempt).Error
	if err != nil {
		return models.Attempt{}, err
	}

	// The row may predate this call with the start unset (e.g. seeded by a
	// bulk reopen); fill it conditionally rather than overwrite.
	if err := r.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("exam_id = ?", examID).
		Where("student_id = ?", studentID).
		Where("started_at IS NULL").
		Update("started_at", now).Error; err != nil {
		return models.Attempt{}, err
	}

	return r.GetByExamAndStudent(ctx, examID, studentID)
}

// SaveResult finalizes a submission. The update is conditional on the row
// not yet holding a submission, which keeps terminal states sticky even if
// an auto-submit and a manual submit race.
func (r *attemptRepository) SaveResult(ctx context.Context, attempt *models.Attempt) error {
	result := r.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ?", attempt.ID).
		Where("submitted_at IS NULL").
		Updates(map[string]interface{}{
			"submitted_at":   attempt.SubmittedAt,
			"answers":        attempt.Answers,
			"snapshot":       attempt.Snapshot,
			"status":         attempt.Status,
			"score":          attempt.Score,
			"total":          attempt.Total,
			"auto_submitted": attempt.AutoSubmitted,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAttemptFinalized
	}
	return nil
}

// UpdateGrade writes the fields a grading actor owns. It never touches the
// submission payload.
func (r *attemptRepository) UpdateGrade(ctx context.Context, attempt *models.Attempt) error {
	result := r.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ?", attempt.ID).
		Where("submitted_at IS NOT NULL").
		Updates(map[string]interface{}{
			"status":    attempt.Status,
			"score":     attempt.Score,
			"graded_at": attempt.GradedAt,
			"feedback":  attempt.Feedback,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attemptRepository) ListByExam(ctx context.Context, examID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("exam_id = ?", examID).
		Order("created_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}

func (r *attemptRepository) ListPending(ctx context.Context) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Exam").
		Where("status = ?", models.AttemptStatusPending).
		Order("submitted_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}
