package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/openclass/exam-api/internal/dto"
	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/models"
	"github.com/openclass/exam-api/internal/repository"
)

// ErrExamNotFound indicates the requested exam does not exist.
var ErrExamNotFound = errors.New("exam not found")

// ErrInvalidQuestion indicates a question payload fails its type-specific
// shape checks.
var ErrInvalidQuestion = errors.New("invalid question")

// ExamService manages exam definitions for course staff.
type ExamService interface {
	List(ctx context.Context, filter dto.ExamListFilter) ([]dto.ExamResponse, int64, error)
	Get(ctx context.Context, id uint) (dto.ExamResponse, error)
	Create(ctx context.Context, payload dto.ExamCreateRequest) (dto.ExamResponse, error)
	Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error)
	Delete(ctx context.Context, id uint) error
}

type examService struct {
	exams     repository.ExamRepository
	events    ExamEventBus
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewExamService constructs an ExamService instance.
func NewExamService(examRepo repository.ExamRepository, events ExamEventBus, validate *validator.Validate, logger zerolog.Logger) ExamService {
	return &examService{
		exams:     examRepo,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "exam_service").Logger(),
	}
}

func (s *examService) List(ctx context.Context, filter dto.ExamListFilter) ([]dto.ExamResponse, int64, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, 0, err
	}

	exams, total, err := s.exams.List(ctx, repository.ExamFilter{
		CourseID: filter.CourseID,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	return dto.NewExamResponseSlice(exams), total, nil
}

func (s *examService) Get(ctx context.Context, id uint) (dto.ExamResponse, error) {
	model, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(model), nil
}

func (s *examService) Create(ctx context.Context, payload dto.ExamCreateRequest) (dto.ExamResponse, error) {
	model, err := s.buildExam(payload)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	if err := s.exams.Create(ctx, &model); err != nil {
		return dto.ExamResponse{}, err
	}

	s.logger.Info().Uint("exam_id", model.ID).Str("title", model.Title).Msg("exam created")

	return dto.NewExamResponse(model), nil
}

func (s *examService) Update(ctx context.Context, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	existing, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, ErrExamNotFound
		}
		return dto.ExamResponse{}, err
	}

	model, err := s.buildExam(payload)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt

	if err := s.exams.Update(ctx, &model); err != nil {
		return dto.ExamResponse{}, err
	}

	// Waiting or in-progress sessions must observe reschedules immediately.
	s.events.Publish(ctx, ExamEvent{Type: EventExamUpdated, ExamID: model.ID})

	s.logger.Info().Uint("exam_id", model.ID).Msg("exam updated")

	return dto.NewExamResponse(model), nil
}

func (s *examService) Delete(ctx context.Context, id uint) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExamNotFound
		}
		return err
	}

	s.events.Publish(ctx, ExamEvent{Type: EventExamDeleted, ExamID: id})
	return nil
}

func (s *examService) buildExam(payload dto.ExamCreateRequest) (models.Exam, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Exam{}, err
	}

	questions := make([]exam.Question, 0, len(payload.Questions))
	for i, qp := range payload.Questions {
		question, err := s.buildQuestion(qp)
		if err != nil {
			return models.Exam{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, question)
	}

	model := models.Exam{
		Title:            strings.TrimSpace(payload.Title),
		CourseID:         payload.CourseID,
		CourseTitle:      strings.TrimSpace(payload.CourseTitle),
		TimeLimitMinutes: payload.TimeLimitMinutes,
		ScheduleEnabled:  payload.ScheduleEnabled,
		ScheduledAt:      payload.ScheduledAt,
		WindowEndAt:      payload.WindowEndAt,
		ManualGrading:    payload.ManualGrading,
		ReopenOnly:       payload.ReopenOnly,
	}
	if err := model.SetQuestions(questions); err != nil {
		return models.Exam{}, err
	}

	return model, nil
}

// buildQuestion validates the type-specific shape of one question payload
// and sanitizes all viewer-visible text.
func (s *examService) buildQuestion(payload dto.QuestionPayload) (exam.Question, error) {
	question := exam.Question{
		ID:     payload.ID,
		Type:   exam.QuestionType(payload.Type),
		Text:   strings.TrimSpace(s.sanitizer.Sanitize(payload.Text)),
		Points: payload.Points,
	}
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	if question.Text == "" {
		return exam.Question{}, fmt.Errorf("%w: empty text after sanitization", ErrInvalidQuestion)
	}
	if payload.Image != nil {
		question.Image = &exam.QuestionImage{
			URL:      payload.Image.URL,
			Position: exam.ImagePosition(payload.Image.Position),
			Width:    payload.Image.Width,
		}
		if question.Image.Position == "" {
			question.Image.Position = exam.ImageAbove
		}
	}

	switch question.Type {
	case exam.QuestionMCQ:
		if len(payload.Options) < 2 {
			return exam.Question{}, fmt.Errorf("%w: mcq needs at least two options", ErrInvalidQuestion)
		}
		hasCorrect := false
		for _, op := range payload.Options {
			option := exam.Option{
				ID:      op.ID,
				Text:    strings.TrimSpace(s.sanitizer.Sanitize(op.Text)),
				Correct: op.Correct,
			}
			if option.ID == "" {
				option.ID = uuid.NewString()
			}
			hasCorrect = hasCorrect || option.Correct
			question.Options = append(question.Options, option)
		}
		if !hasCorrect {
			return exam.Question{}, fmt.Errorf("%w: mcq needs a correct option", ErrInvalidQuestion)
		}
	case exam.QuestionFill:
		if strings.TrimSpace(payload.Answer) == "" {
			return exam.Question{}, fmt.Errorf("%w: fill needs an expected answer", ErrInvalidQuestion)
		}
		question.Answer = strings.TrimSpace(payload.Answer)
	case exam.QuestionDrag:
		if len(payload.Items) < 2 {
			return exam.Question{}, fmt.Errorf("%w: drag needs at least two items", ErrInvalidQuestion)
		}
		ids := make(map[string]struct{}, len(payload.Items))
		for _, ip := range payload.Items {
			item := exam.DragItem{ID: ip.ID, Text: strings.TrimSpace(s.sanitizer.Sanitize(ip.Text))}
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			ids[item.ID] = struct{}{}
			question.Items = append(question.Items, item)
		}
		if len(payload.CorrectOrder) > 0 {
			if len(payload.CorrectOrder) != len(question.Items) {
				return exam.Question{}, fmt.Errorf("%w: correct order must cover every item", ErrInvalidQuestion)
			}
			for _, id := range payload.CorrectOrder {
				if _, ok := ids[id]; !ok {
					return exam.Question{}, fmt.Errorf("%w: correct order references unknown item %s", ErrInvalidQuestion, id)
				}
			}
			question.CorrectOrder = payload.CorrectOrder
		}
	case exam.QuestionEssay:
		// No per-type payload.
	default:
		return exam.Question{}, fmt.Errorf("%w: unsupported type %s", ErrInvalidQuestion, payload.Type)
	}

	return question, nil
}
