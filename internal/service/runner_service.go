package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/openclass/exam-api/internal/dto"
	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/models"
	"github.com/openclass/exam-api/internal/observability"
	"github.com/openclass/exam-api/internal/repository"
)

// ErrAttemptNotActive indicates an answer operation arrived without a live
// attempt session (the viewer never entered, or already submitted).
var ErrAttemptNotActive = errors.New("no active attempt session")

// ErrResultNotFound indicates no stored result exists for the viewer.
var ErrResultNotFound = errors.New("result not found")

const (
	resultCacheKeyFormat = "exam:result:%d:%d"
	saveResultRetries    = 3
	saveResultBackoff    = 200 * time.Millisecond
)

// RunnerService drives the exam-taking state machine: entry gating, the
// countdown toward the deadline, in-memory answer collection, submission
// with its manual-vs-automatic grading branch, and result/review readback.
type RunnerService interface {
	Enter(ctx context.Context, examID, studentID uint, view exam.ViewMode) (dto.EnterResponse, error)
	SetAnswer(ctx context.Context, examID, studentID uint, payload dto.AnswerRequest) error
	MoveItem(ctx context.Context, examID, studentID uint, payload dto.MoveItemRequest) error
	Unanswered(ctx context.Context, examID, studentID uint) (dto.UnansweredResponse, error)
	Submit(ctx context.Context, examID, studentID uint) (dto.ResultResponse, error)
	Result(ctx context.Context, examID, studentID uint) (dto.ResultResponse, error)
	Review(ctx context.Context, examID, studentID uint) (dto.ReviewResponse, error)
	Watch(ctx context.Context, examID, studentID uint) (<-chan dto.CountdownTick, func(), error)
	Start(ctx context.Context)
	Close()
}

// attemptSession is the live server-side state of one in-progress attempt.
// The countdown it owns is the single auto-submit trigger for the attempt.
type attemptSession struct {
	examID    uint
	studentID uint
	collector *exam.Collector
	startedAt time.Time

	mu        sync.Mutex
	deadline  time.Time
	countdown *exam.Countdown
	cancel    context.CancelFunc
	lastErr   error
}

type runnerService struct {
	exams     repository.ExamRepository
	attempts  repository.AttemptRepository
	events    ExamEventBus
	redis     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	tick      time.Duration

	mu       sync.Mutex
	root     context.Context
	rootStop context.CancelFunc
	sessions map[string]*attemptSession
}

// NewRunnerService constructs the runner. The redis client is optional; it
// only backs the result cache.
func NewRunnerService(examRepo repository.ExamRepository, attemptRepo repository.AttemptRepository, events ExamEventBus, redisClient *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) RunnerService {
	root, stop := context.WithCancel(context.Background())
	return &runnerService{
		exams:     examRepo,
		attempts:  attemptRepo,
		events:    events,
		redis:     redisClient,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger.With().Str("component", "exam_runner").Logger(),
		tracer:    otel.Tracer("github.com/openclass/exam-api/internal/service/runner"),
		now:       time.Now,
		tick:      time.Second,
		root:      root,
		rootStop:  stop,
		sessions:  make(map[string]*attemptSession),
	}
}

// Start binds the service to the application lifecycle: cancelling the
// context tears down every live session.
func (s *runnerService) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.Close()
	}()
}

// Close stops all live countdowns and drops the session registry.
func (s *runnerService) Close() {
	s.mu.Lock()
	sessions := make([]*attemptSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*attemptSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.stop()
		observability.CountdownSessions().Dec()
	}
	s.rootStop()
}

func sessionKey(examID, studentID uint) string {
	return fmt.Sprintf("%d:%d", examID, studentID)
}

func (s *runnerService) Enter(ctx context.Context, examID, studentID uint, view exam.ViewMode) (dto.EnterResponse, error) {
	start := s.now()
	defer func() {
		observability.EnterLatency().Observe(s.now().Sub(start).Seconds())
	}()

	ctx, span := s.tracer.Start(ctx, "exam.enter", trace.WithAttributes(
		attribute.Int64("exam.id", int64(examID)),
		attribute.Int64("student.id", int64(studentID)),
		attribute.String("exam.view", string(view)),
	))
	defer span.End()

	if view == "" {
		view = exam.ViewExam
	}

	model, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnterResponse{}, ErrExamNotFound
		}
		return dto.EnterResponse{}, err
	}

	attempt, err := s.loadAttempt(ctx, examID, studentID)
	if err != nil {
		return dto.EnterResponse{}, err
	}

	decision := exam.EvaluateEntry(model.Settings(), attempt.State(), view, s.now())

	switch decision.Outcome {
	case exam.OutcomeBlocked:
		return dto.EnterResponse{Outcome: string(decision.Outcome), Reason: decision.Reason}, nil

	case exam.OutcomeWait:
		return dto.EnterResponse{
			Outcome:     string(decision.Outcome),
			WaitSeconds: int64(decision.Wait / time.Second),
		}, nil

	case exam.OutcomeResultOnly:
		result, err := s.buildResult(ctx, attempt)
		if err != nil {
			return dto.EnterResponse{}, err
		}
		return dto.EnterResponse{Outcome: string(decision.Outcome), Result: &result}, nil

	default:
		return s.enterInProgress(ctx, model, attempt)
	}
}

// enterInProgress records the attempt start idempotently and hands back the
// question form. A reload lands here again and reuses the stored start, so
// the clock never resets.
func (s *runnerService) enterInProgress(ctx context.Context, model models.Exam, attempt models.Attempt) (dto.EnterResponse, error) {
	wasStarted := attempt.IsStarted()

	attempt, err := s.attempts.EnsureStarted(ctx, model.ID, attempt.StudentID, s.now().UTC())
	if err != nil {
		return dto.EnterResponse{}, err
	}
	if attempt.StudentID == 0 {
		return dto.EnterResponse{}, fmt.Errorf("attempt start not recorded")
	}
	if !wasStarted {
		observability.AttemptsStarted().Inc()
	}

	s.activateSession(model, attempt)

	view := dto.NewExamView(model)
	response := dto.EnterResponse{
		Outcome:   string(exam.OutcomeInProgress),
		StartedAt: attempt.StartedAt,
		Exam:      &view,
	}
	if limit := model.Settings().TimeLimit(); limit > 0 {
		remaining := int64(exam.RemainingInProgress(*attempt.StartedAt, limit, s.now()) / time.Second)
		response.RemainingSeconds = &remaining
	}

	return response, nil
}

// activateSession returns the live session for the attempt, creating it (and
// its auto-submit countdown) on first entry after a process start.
func (s *runnerService) activateSession(model models.Exam, attempt models.Attempt) *attemptSession {
	key := sessionKey(model.ID, attempt.StudentID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[key]; ok {
		return session
	}

	session := &attemptSession{
		examID:    model.ID,
		studentID: attempt.StudentID,
		collector: exam.NewCollector(model.QuestionList()),
		startedAt: *attempt.StartedAt,
	}
	if saved := attempt.AnswerSet(); len(saved) > 0 {
		session.collector.Restore(saved)
	}

	sessionCtx, cancel := context.WithCancel(s.root)
	session.cancel = cancel

	session.deadline = exam.Deadline(session.startedAt, model.Settings().TimeLimit())
	if !session.deadline.IsZero() {
		session.countdown = exam.NewCountdown(session.deadline, nil, func() {
			s.autoSubmit(session.examID, session.studentID)
		}, exam.WithInterval(s.tick), exam.WithClock(s.now))
		session.countdown.Start(sessionCtx)
	}

	go s.watchExamEvents(sessionCtx, session)

	s.sessions[key] = session
	observability.CountdownSessions().Inc()

	s.logger.Info().
		Uint("exam_id", model.ID).
		Uint("student_id", attempt.StudentID).
		Time("started_at", session.startedAt).
		Msg("attempt session active")

	return session
}

// watchExamEvents re-evaluates the session countdown when an admin edits the
// exam mid-attempt (push-driven re-evaluation rather than polling).
func (s *runnerService) watchExamEvents(ctx context.Context, session *attemptSession) {
	events, cancel := s.events.Subscribe(session.examID)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Type {
			case EventExamUpdated:
				s.rescheduleSession(ctx, session)
			case EventExamDeleted:
				s.dropSession(session.examID, session.studentID)
				return
			}
		}
	}
}

func (s *runnerService) rescheduleSession(ctx context.Context, session *attemptSession) {
	model, err := s.exams.GetByID(ctx, session.examID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", session.examID).Msg("failed to reload exam after update event")
		return
	}

	deadline := exam.Deadline(session.startedAt, model.Settings().TimeLimit())

	session.mu.Lock()
	defer session.mu.Unlock()

	if deadline.Equal(session.deadline) {
		return
	}

	if session.countdown != nil {
		session.countdown.Stop()
		session.countdown = nil
	}
	session.deadline = deadline
	if !deadline.IsZero() {
		session.countdown = exam.NewCountdown(deadline, nil, func() {
			s.autoSubmit(session.examID, session.studentID)
		}, exam.WithInterval(s.tick), exam.WithClock(s.now))
		session.countdown.Start(ctx)
	}

	s.logger.Info().
		Uint("exam_id", session.examID).
		Uint("student_id", session.studentID).
		Time("deadline", deadline).
		Msg("session deadline re-evaluated")
}

func (s *runnerService) lookupSession(examID, studentID uint) (*attemptSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey(examID, studentID)]
	return session, ok
}

func (s *runnerService) dropSession(examID, studentID uint) {
	s.mu.Lock()
	session, ok := s.sessions[sessionKey(examID, studentID)]
	if ok {
		delete(s.sessions, sessionKey(examID, studentID))
	}
	s.mu.Unlock()

	if ok {
		session.stop()
		observability.CountdownSessions().Dec()
	}
}

func (session *attemptSession) stop() {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.countdown != nil {
		session.countdown.Stop()
		session.countdown = nil
	}
	if session.cancel != nil {
		session.cancel()
	}
}

func (s *runnerService) SetAnswer(ctx context.Context, examID, studentID uint, payload dto.AnswerRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	session, ok := s.lookupSession(examID, studentID)
	if !ok {
		return ErrAttemptNotActive
	}

	return session.collector.SetAnswer(payload.QuestionID, payload.Value)
}

func (s *runnerService) MoveItem(ctx context.Context, examID, studentID uint, payload dto.MoveItemRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	session, ok := s.lookupSession(examID, studentID)
	if !ok {
		return ErrAttemptNotActive
	}

	direction := exam.MoveUp
	if payload.Direction == "down" {
		direction = exam.MoveDown
	}

	return session.collector.MoveItem(payload.QuestionID, payload.ItemID, direction)
}

func (s *runnerService) Unanswered(ctx context.Context, examID, studentID uint) (dto.UnansweredResponse, error) {
	session, ok := s.lookupSession(examID, studentID)
	if !ok {
		return dto.UnansweredResponse{}, ErrAttemptNotActive
	}

	return dto.UnansweredResponse{QuestionIDs: session.collector.Unanswered()}, nil
}

func (s *runnerService) Submit(ctx context.Context, examID, studentID uint) (dto.ResultResponse, error) {
	return s.submit(ctx, examID, studentID, false)
}

// autoSubmit fires from the session countdown at the deadline. It runs at
// most once per session; a failure is surfaced on the session rather than
// retried forever, so a duplicate submission can never be minted by a
// flapping store.
func (s *runnerService) autoSubmit(examID, studentID uint) {
	ctx, cancel := context.WithTimeout(s.root, 30*time.Second)
	defer cancel()

	if _, err := s.submit(ctx, examID, studentID, true); err != nil {
		observability.AutoSubmitFailures().Inc()
		s.logger.Error().Err(err).
			Uint("exam_id", examID).
			Uint("student_id", studentID).
			Msg("auto-submission failed")

		if session, ok := s.lookupSession(examID, studentID); ok {
			session.mu.Lock()
			session.lastErr = err
			session.mu.Unlock()
		}
	}
}

func (s *runnerService) submit(ctx context.Context, examID, studentID uint, auto bool) (dto.ResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "exam.submit", trace.WithAttributes(
		attribute.Int64("exam.id", int64(examID)),
		attribute.Int64("student.id", int64(studentID)),
		attribute.Bool("exam.auto_submitted", auto),
	))
	defer span.End()

	session, ok := s.lookupSession(examID, studentID)
	if !ok {
		return dto.ResultResponse{}, ErrAttemptNotActive
	}

	model, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ResultResponse{}, ErrExamNotFound
		}
		return dto.ResultResponse{}, err
	}

	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return dto.ResultResponse{}, err
	}

	now := s.now().UTC()
	questions := model.QuestionList()
	answers := session.collector.Answers()
	scored := exam.Score(questions, answers)

	submittedAt := now
	attempt.SubmittedAt = &submittedAt
	attempt.AutoSubmitted = auto
	if err := attempt.SetAnswers(answers); err != nil {
		return dto.ResultResponse{}, err
	}
	if err := attempt.SetSnapshot(exam.NewSnapshot(model.Title, model.CourseID, model.CourseTitle, model.ManualGrading, questions, now)); err != nil {
		return dto.ResultResponse{}, err
	}

	total := scored.Possible
	attempt.Total = &total
	grading := "auto"
	if model.ManualGrading {
		// Placeholder score until a human publishes grades; the stored value
		// is withheld from display, not from storage.
		placeholder := 0.0
		attempt.Score = &placeholder
		attempt.Status = models.AttemptStatusPending
		grading = "pending"
	} else {
		earned := scored.Earned
		attempt.Score = &earned
		attempt.Status = models.AttemptStatusGraded
	}

	if err := s.saveResultWithRetry(ctx, &attempt); err != nil {
		if errors.Is(err, repository.ErrAttemptFinalized) {
			// A concurrent submit won the race; the stored result stands.
			stored, loadErr := s.attempts.GetByExamAndStudent(ctx, examID, studentID)
			if loadErr != nil {
				return dto.ResultResponse{}, loadErr
			}
			s.dropSession(examID, studentID)
			return s.buildResult(ctx, stored)
		}
		span.RecordError(err)
		return dto.ResultResponse{}, err
	}

	trigger := "manual"
	if auto {
		trigger = "auto"
	}
	observability.Submissions().WithLabelValues(trigger, grading).Inc()

	s.invalidateResultCache(ctx, examID, studentID)
	s.events.Publish(ctx, ExamEvent{Type: EventAttemptSubmitted, ExamID: examID, StudentID: studentID})
	s.dropSession(examID, studentID)

	s.logger.Info().
		Uint("exam_id", examID).
		Uint("student_id", studentID).
		Bool("auto", auto).
		Str("status", attempt.Status).
		Msg("attempt submitted")

	return s.buildResult(ctx, attempt)
}

// saveResultWithRetry retries transient store failures a bounded number of
// times. Losing a submitted result after the viewer saw a confirmation is
// the one write this service must not drop.
func (s *runnerService) saveResultWithRetry(ctx context.Context, attempt *models.Attempt) error {
	var err error
	for i := 0; i < saveResultRetries; i++ {
		err = s.attempts.SaveResult(ctx, attempt)
		if err == nil || errors.Is(err, repository.ErrAttemptFinalized) {
			return err
		}

		s.logger.Warn().Err(err).Int("try", i+1).Msg("result write failed, retrying")
		select {
		case <-ctx.Done():
			return err
		case <-time.After(saveResultBackoff * time.Duration(i+1)):
		}
	}
	return err
}

func (s *runnerService) Result(ctx context.Context, examID, studentID uint) (dto.ResultResponse, error) {
	if cached, ok := s.cachedResult(ctx, examID, studentID); ok {
		observability.ResultCacheRequests().WithLabelValues("hit").Inc()
		return cached, nil
	}
	observability.ResultCacheRequests().WithLabelValues("miss").Inc()

	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ResultResponse{}, ErrResultNotFound
		}
		return dto.ResultResponse{}, err
	}
	if !attempt.IsSubmitted() {
		return dto.ResultResponse{}, ErrResultNotFound
	}

	result, err := s.buildResult(ctx, attempt)
	if err != nil {
		return dto.ResultResponse{}, err
	}

	s.cacheResult(ctx, examID, studentID, result)
	return result, nil
}

func (s *runnerService) Review(ctx context.Context, examID, studentID uint) (dto.ReviewResponse, error) {
	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrResultNotFound
		}
		return dto.ReviewResponse{}, err
	}
	if !attempt.IsSubmitted() {
		return dto.ReviewResponse{}, ErrResultNotFound
	}

	snapshot, ok := attempt.SnapshotData()
	if !ok {
		// Old attempts may predate snapshotting; fall back to the live exam.
		model, err := s.exams.GetByID(ctx, examID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ReviewResponse{}, ErrResultNotFound
			}
			return dto.ReviewResponse{}, err
		}
		snapshot = exam.NewSnapshot(model.Title, model.CourseID, model.CourseTitle, model.ManualGrading, model.QuestionList(), s.now().UTC())
	}

	disclose := !snapshot.ManualGrading || attempt.IsGraded()

	return dto.ReviewResponse{
		ExamID:      examID,
		Title:       snapshot.Title,
		CourseTitle: snapshot.CourseTitle,
		Status:      attempt.Status,
		Disclosed:   disclose,
		Entries:     exam.BuildReview(snapshot, attempt.AnswerSet(), disclose),
	}, nil
}

// Watch streams countdown frames for the attempt: the pre-start wait, the
// in-progress countdown, and a final submitted frame. Cancelling the
// returned function (or the context) tears the stream down.
func (s *runnerService) Watch(ctx context.Context, examID, studentID uint) (<-chan dto.CountdownTick, func(), error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	events, eventsCancel := s.events.Subscribe(examID)
	out := make(chan dto.CountdownTick, 4)

	go func() {
		defer close(out)
		defer eventsCancel()

		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		for {
			tick, done := s.observe(streamCtx, examID, studentID)
			select {
			case out <- tick:
			default:
			}
			if done {
				return
			}

			select {
			case <-streamCtx.Done():
				return
			case <-ticker.C:
			case <-events:
				// Re-evaluate immediately on exam changes.
			}
		}
	}()

	return out, cancel, nil
}

// observe computes one countdown frame, driving the wait-to-started
// transition when the scheduled open passes.
func (s *runnerService) observe(ctx context.Context, examID, studentID uint) (dto.CountdownTick, bool) {
	model, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return dto.CountdownTick{Phase: "gone"}, true
	}

	attempt, err := s.loadAttempt(ctx, examID, studentID)
	if err != nil {
		return dto.CountdownTick{Phase: "error"}, true
	}

	decision := exam.EvaluateEntry(model.Settings(), attempt.State(), exam.ViewExam, s.now())
	switch decision.Outcome {
	case exam.OutcomeWait:
		return dto.CountdownTick{Phase: "wait", RemainingSeconds: int64(decision.Wait / time.Second)}, false
	case exam.OutcomeInProgress:
		response, err := s.enterInProgress(ctx, model, attempt)
		if err != nil {
			return dto.CountdownTick{Phase: "error"}, true
		}
		if response.RemainingSeconds == nil {
			return dto.CountdownTick{Phase: "in_progress", NoLimit: true}, false
		}
		return dto.CountdownTick{Phase: "in_progress", RemainingSeconds: *response.RemainingSeconds}, false
	case exam.OutcomeResultOnly:
		return dto.CountdownTick{Phase: "submitted"}, true
	default:
		return dto.CountdownTick{Phase: "blocked"}, true
	}
}

func (s *runnerService) loadAttempt(ctx context.Context, examID, studentID uint) (models.Attempt, error) {
	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Attempt{ExamID: examID, StudentID: studentID}, nil
		}
		return models.Attempt{}, err
	}
	return attempt, nil
}

// buildResult assembles the result card, preferring snapshot metadata so a
// deleted exam still renders its stored results.
func (s *runnerService) buildResult(ctx context.Context, attempt models.Attempt) (dto.ResultResponse, error) {
	if !attempt.IsSubmitted() {
		return dto.ResultResponse{}, ErrResultNotFound
	}

	title := ""
	courseTitle := ""
	if snapshot, ok := attempt.SnapshotData(); ok {
		title = snapshot.Title
		courseTitle = snapshot.CourseTitle
	} else if model, err := s.exams.GetByID(ctx, attempt.ExamID); err == nil {
		title = model.Title
		courseTitle = model.CourseTitle
	}

	return dto.NewResultResponse(attempt, title, courseTitle), nil
}

func (s *runnerService) cachedResult(ctx context.Context, examID, studentID uint) (dto.ResultResponse, bool) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return dto.ResultResponse{}, false
	}

	raw, err := s.redis.Get(ctx, fmt.Sprintf(resultCacheKeyFormat, examID, studentID)).Result()
	if err != nil {
		return dto.ResultResponse{}, false
	}

	var result dto.ResultResponse
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return dto.ResultResponse{}, false
	}
	return result, true
}

func (s *runnerService) cacheResult(ctx context.Context, examID, studentID uint, result dto.ResultResponse) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, fmt.Sprintf(resultCacheKeyFormat, examID, studentID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache result")
	}
}

func (s *runnerService) invalidateResultCache(ctx context.Context, examID, studentID uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, fmt.Sprintf(resultCacheKeyFormat, examID, studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate result cache")
	}
}
