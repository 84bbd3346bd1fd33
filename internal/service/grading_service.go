package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openclass/exam-api/internal/dto"
	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/models"
	"github.com/openclass/exam-api/internal/observability"
	"github.com/openclass/exam-api/internal/repository"
)

// ErrAttemptNotFound indicates no attempt row exists for the id.
var ErrAttemptNotFound = errors.New("attempt not found")

// ErrAttemptNotGradable indicates the attempt is not awaiting manual grades.
var ErrAttemptNotGradable = errors.New("attempt is not awaiting grading")

// GradingService lets a grader work the queue of manually-graded
// submissions and publish scores. Publishing flips the attempt to graded,
// which is the moment scores and correctness become visible to the student.
type GradingService interface {
	ListPending(ctx context.Context) ([]dto.PendingAttemptResponse, error)
	Grade(ctx context.Context, attemptID uint, payload dto.GradeRequest) (dto.GradeResponse, error)
}

type gradingService struct {
	attempts  repository.AttemptRepository
	events    ExamEventBus
	redis     *redis.Client
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingService constructs the grading workflow service.
func NewGradingService(attemptRepo repository.AttemptRepository, events ExamEventBus, redisClient *redis.Client, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		attempts:  attemptRepo,
		events:    events,
		redis:     redisClient,
		validator: validate,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		now:       time.Now,
	}
}

func (s *gradingService) ListPending(ctx context.Context) ([]dto.PendingAttemptResponse, error) {
	attempts, err := s.attempts.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.PendingAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, dto.NewPendingAttemptResponse(attempt))
	}
	return responses, nil
}

// Grade publishes the final score for a pending attempt. The final score is
// the auto-graded portion recomputed from the submission snapshot plus the
// essay awards, each award clamped to its question's weight.
func (s *gradingService) Grade(ctx context.Context, attemptID uint, payload dto.GradeRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrAttemptNotFound
		}
		return dto.GradeResponse{}, err
	}
	if !attempt.IsSubmitted() || attempt.Status != models.AttemptStatusPending {
		return dto.GradeResponse{}, ErrAttemptNotGradable
	}

	snapshot, ok := attempt.SnapshotData()
	if !ok {
		return dto.GradeResponse{}, fmt.Errorf("attempt %d has no submission snapshot", attemptID)
	}

	scored := exam.Score(snapshot.Questions, attempt.AnswerSet())

	final := scored.Earned
	for _, question := range snapshot.Questions {
		if question.Type != exam.QuestionEssay {
			continue
		}
		award, ok := payload.EssayPoints[question.ID]
		if !ok {
			continue
		}
		if weight := question.Weight(); award > weight {
			award = weight
		}
		final += award
	}

	now := s.now().UTC()
	total := scored.Possible
	attempt.Score = &final
	attempt.Total = &total
	attempt.Status = models.AttemptStatusGraded
	attempt.GradedAt = &now
	attempt.Feedback = payload.Feedback

	if err := s.attempts.UpdateGrade(ctx, &attempt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrAttemptNotGradable
		}
		return dto.GradeResponse{}, err
	}

	s.invalidateResult(ctx, attempt.ExamID, attempt.StudentID)
	s.events.Publish(ctx, ExamEvent{Type: EventAttemptGraded, ExamID: attempt.ExamID, StudentID: attempt.StudentID})
	observability.GradesPublished().Inc()

	s.logger.Info().
		Uint("attempt_id", attempt.ID).
		Uint("exam_id", attempt.ExamID).
		Uint("student_id", attempt.StudentID).
		Float64("score", final).
		Msg("grades published")

	return dto.GradeResponse{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
		Score:     attempt.Score,
		Total:     attempt.Total,
	}, nil
}

func (s *gradingService) invalidateResult(ctx context.Context, examID, studentID uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, fmt.Sprintf(resultCacheKeyFormat, examID, studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate result cache")
	}
}
