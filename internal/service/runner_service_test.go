package service

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/openclass/exam-api/internal/dto"
	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/models"
	"github.com/openclass/exam-api/internal/repository"
)

// testClock is a mutable wall clock shared by the runner and its countdowns.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type runnerFixture struct {
	runner   *runnerService
	attempts repository.AttemptRepository
	exams    repository.ExamRepository
	bus      ExamEventBus
	clock    *testClock
	student  models.Student
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()

	db := newServiceDB(t)
	bus := NewExamEventBus(nil, "", nil, zerolog.Nop())
	validate := validator.New(validator.WithRequiredStructEnabled())
	examRepo := repository.NewExamRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	runner := NewRunnerService(examRepo, attemptRepo, bus, nil, 0, validate, zerolog.Nop()).(*runnerService)
	runner.now = clock.Now
	runner.tick = time.Millisecond
	t.Cleanup(runner.Close)

	student := models.Student{Name: "Jane Doe", Email: t.Name() + "@example.com"}
	require.NoError(t, db.Create(&student).Error)

	return &runnerFixture{
		runner:   runner,
		attempts: attemptRepo,
		exams:    examRepo,
		bus:      bus,
		clock:    clock,
		student:  student,
	}
}

func (f *runnerFixture) createExam(t *testing.T, mutate func(*models.Exam)) models.Exam {
	t.Helper()

	examModel := models.Exam{Title: "Midterm", CourseID: "course-1", CourseTitle: "Biology"}
	require.NoError(t, examModel.SetQuestions([]exam.Question{
		{
			ID:   "q1",
			Type: exam.QuestionMCQ,
			Text: "Pick one",
			Options: []exam.Option{
				{ID: "a", Text: "Wrong"},
				{ID: "b", Text: "Right", Correct: true},
			},
		},
		{ID: "q2", Type: exam.QuestionFill, Text: "Symbol for gold", Answer: "Au", Points: 2},
		{
			ID:    "q3",
			Type:  exam.QuestionDrag,
			Text:  "Order these",
			Items: []exam.DragItem{{ID: "x", Text: "First"}, {ID: "y", Text: "Second"}},
			CorrectOrder: []string{"y", "x"},
		},
	}))
	if mutate != nil {
		mutate(&examModel)
	}
	require.NoError(t, f.exams.Create(context.Background(), &examModel))
	return examModel
}

func TestRunnerEnterAndSubmitFlow(t *testing.T) {
	f := newRunnerFixture(t)
	examModel := f.createExam(t, func(e *models.Exam) { e.TimeLimitMinutes = 30 })
	ctx := context.Background()

	entered, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeInProgress), entered.Outcome)
	require.NotNil(t, entered.StartedAt)
	require.NotNil(t, entered.RemainingSeconds)
	require.Equal(t, int64(1800), *entered.RemainingSeconds)
	require.NotNil(t, entered.Exam)
	require.Len(t, entered.Exam.Questions, 3)

	// The taker-facing form carries the choices but no grading data; the
	// view types have no correctness fields, so checking the payload shape
	// is enough here.
	require.Len(t, entered.Exam.Questions[0].Options, 2)
	require.Len(t, entered.Exam.Questions[2].Items, 2)

	firstStart := *entered.StartedAt

	// A reload ten minutes in resumes against the original start.
	f.clock.Advance(10 * time.Minute)
	resumed, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeInProgress), resumed.Outcome)
	require.True(t, resumed.StartedAt.Equal(firstStart))
	require.Equal(t, int64(1200), *resumed.RemainingSeconds)

	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q1", Value: "b"}))
	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q2", Value: " au "}))
	require.NoError(t, f.runner.MoveItem(ctx, examModel.ID, f.student.ID, dto.MoveItemRequest{QuestionID: "q3", ItemID: "y", Direction: "up"}))

	unanswered, err := f.runner.Unanswered(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Empty(t, unanswered.QuestionIDs)

	result, err := f.runner.Submit(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.False(t, result.Pending)
	require.NotNil(t, result.Score)
	require.Equal(t, 4.0, *result.Score)
	require.Equal(t, 4.0, *result.Total)
	require.False(t, result.AutoSubmitted)

	// The session is gone; further answers and submits are refused.
	require.ErrorIs(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q1", Value: "a"}), ErrAttemptNotActive)
	_, err = f.runner.Submit(ctx, examModel.ID, f.student.ID)
	require.ErrorIs(t, err, ErrAttemptNotActive)

	// Re-entering lands on the result, not the question form.
	after, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeResultOnly), after.Outcome)
	require.NotNil(t, after.Result)
	require.Equal(t, 4.0, *after.Result.Score)

	stored, err := f.runner.Result(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, "Midterm", stored.Title)

	review, err := f.runner.Review(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.True(t, review.Disclosed)
	require.Len(t, review.Entries, 3)
	require.True(t, *review.Entries[0].Correct)
}

func TestRunnerUnansweredWarning(t *testing.T) {
	f := newRunnerFixture(t)
	examModel := f.createExam(t, nil)
	ctx := context.Background()

	_, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)

	unanswered, err := f.runner.Unanswered(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"q1", "q2", "q3"}, unanswered.QuestionIDs)

	// The warning is advisory: submission with open questions still goes
	// through.
	result, err := f.runner.Submit(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, *result.Score)
}

func TestRunnerAutoSubmitAtDeadline(t *testing.T) {
	f := newRunnerFixture(t)
	examModel := f.createExam(t, func(e *models.Exam) { e.TimeLimitMinutes = 30 })
	ctx := context.Background()

	_, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q2", Value: "Au"}))

	f.clock.Advance(31 * time.Minute)

	require.Eventually(t, func() bool {
		attempt, err := f.attempts.GetByExamAndStudent(ctx, examModel.ID, f.student.ID)
		return err == nil && attempt.IsSubmitted()
	}, 5*time.Second, 5*time.Millisecond, "deadline did not force a submission")

	attempt, err := f.attempts.GetByExamAndStudent(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.True(t, attempt.AutoSubmitted)
	require.Equal(t, models.AttemptStatusGraded, attempt.Status)
	require.Equal(t, 2.0, *attempt.Score)

	// The answers recorded before the deadline were preserved.
	require.Equal(t, "Au", attempt.AnswerSet()["q2"].Value)

	entered, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeResultOnly), entered.Outcome)
	require.True(t, entered.Result.AutoSubmitted)
}

func TestRunnerManualGradingWithholdsScore(t *testing.T) {
	f := newRunnerFixture(t)
	examModel := f.createExam(t, func(e *models.Exam) {
		e.ManualGrading = true
		questions := e.QuestionList()
		questions = append(questions, exam.Question{ID: "q4", Type: exam.QuestionEssay, Text: "Discuss", Points: 5})
		require.NoError(t, e.SetQuestions(questions))
	})
	ctx := context.Background()

	_, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q1", Value: "b"}))
	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q4", Value: "A thorough essay."}))

	result, err := f.runner.Submit(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.True(t, result.Pending)
	require.Nil(t, result.Score)
	require.NotNil(t, result.Total)
	require.Equal(t, 9.0, *result.Total)

	// Review stays sealed until grades are published.
	review, err := f.runner.Review(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.False(t, review.Disclosed)
	for _, entry := range review.Entries {
		require.Nil(t, entry.Correct)
		require.Nil(t, entry.CorrectAnswer)
	}
}

func TestRunnerResultSurvivesExamDeletion(t *testing.T) {
	f := newRunnerFixture(t)
	examModel := f.createExam(t, nil)
	ctx := context.Background()

	_, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q2", Value: "Au"}))

	_, err = f.runner.Submit(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)

	require.NoError(t, f.exams.Delete(ctx, examModel.ID))

	result, err := f.runner.Result(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, "Midterm", result.Title)
	require.Equal(t, 2.0, *result.Score)

	review, err := f.runner.Review(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Len(t, review.Entries, 3)
}

func TestRunnerReopenOnlyBlocksSecondAttempt(t *testing.T) {
	f := newRunnerFixture(t)
	examModel := f.createExam(t, func(e *models.Exam) { e.ReopenOnly = true })
	ctx := context.Background()

	first, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeInProgress), first.Outcome)

	// Simulate a process restart: the in-memory session is gone but the
	// stored start remains.
	f.runner.dropSession(examModel.ID, f.student.ID)

	blocked, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeBlocked), blocked.Outcome)
	require.Equal(t, exam.ReasonReopenOnly, blocked.Reason)
}

func TestRunnerScheduledExamWaitsAndOpens(t *testing.T) {
	f := newRunnerFixture(t)
	open := f.clock.Now().Add(10 * time.Minute)
	examModel := f.createExam(t, func(e *models.Exam) {
		e.ScheduleEnabled = true
		e.ScheduledAt = &open
	})
	ctx := context.Background()

	waiting, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeWait), waiting.Outcome)
	require.Equal(t, int64(600), waiting.WaitSeconds)

	// No attempt may be minted while waiting.
	_, err = f.attempts.GetByExamAndStudent(ctx, examModel.ID, f.student.ID)
	require.Error(t, err)

	f.clock.Advance(11 * time.Minute)

	entered, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.Equal(t, string(exam.OutcomeInProgress), entered.Outcome)
}

func TestRunnerWatchStreamsPhases(t *testing.T) {
	f := newRunnerFixture(t)
	open := f.clock.Now().Add(time.Minute)
	examModel := f.createExam(t, func(e *models.Exam) {
		e.ScheduleEnabled = true
		e.ScheduledAt = &open
		e.TimeLimitMinutes = 30
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticks, stop, err := f.runner.Watch(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	defer stop()

	waitTick := awaitPhase(t, ticks, "wait")
	require.Equal(t, int64(60), waitTick.RemainingSeconds)

	// The open passing flips the stream to in_progress and records the
	// attempt start.
	f.clock.Advance(2 * time.Minute)
	progressTick := awaitPhase(t, ticks, "in_progress")
	require.LessOrEqual(t, progressTick.RemainingSeconds, int64(1800))

	attempt, err := f.attempts.GetByExamAndStudent(context.Background(), examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.True(t, attempt.IsStarted())

	// Submission ends the stream with a terminal frame.
	_, err = f.runner.Submit(context.Background(), examModel.ID, f.student.ID)
	require.NoError(t, err)
	awaitPhase(t, ticks, "submitted")
}

func awaitPhase(t *testing.T, ticks <-chan dto.CountdownTick, phase string) dto.CountdownTick {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case tick, ok := <-ticks:
			if !ok {
				t.Fatalf("stream closed before reaching phase %q", phase)
			}
			if tick.Phase == phase {
				return tick
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %q", phase)
		}
	}
}

func TestRunnerResultUsesCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	f := newRunnerFixture(t)
	f.runner.redis = redis.NewClient(&redis.Options{Addr: mini.Addr()})
	f.runner.cacheTTL = time.Minute

	examModel := f.createExam(t, nil)
	ctx := context.Background()

	_, err = f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q2", Value: "Au"}))

	_, err = f.runner.Submit(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)

	first, err := f.runner.Result(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, 2.0, *first.Score)

	// A second read is served from the cache: mutating the row underneath
	// does not change the response until the cache is invalidated.
	zero := 0.0
	attempt, err := f.attempts.GetByExamAndStudent(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	attempt.Score = &zero
	require.NoError(t, f.attempts.UpdateGrade(ctx, &attempt))

	cached, err := f.runner.Result(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, 2.0, *cached.Score)

	mini.FlushAll()

	fresh, err := f.runner.Result(ctx, examModel.ID, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, *fresh.Score)
}

func TestRunnerRescheduleShortensDeadline(t *testing.T) {
	f := newRunnerFixture(t)
	examModel := f.createExam(t, func(e *models.Exam) { e.TimeLimitMinutes = 60 })
	ctx := context.Background()

	_, err := f.runner.Enter(ctx, examModel.ID, f.student.ID, exam.ViewExam)
	require.NoError(t, err)
	require.NoError(t, f.runner.SetAnswer(ctx, examModel.ID, f.student.ID, dto.AnswerRequest{QuestionID: "q1", Value: "b"}))

	// An admin cuts the limit to 10 minutes mid-attempt; 20 minutes in, the
	// session must observe the new deadline and auto-submit.
	stored, err := f.exams.GetByID(ctx, examModel.ID)
	require.NoError(t, err)
	stored.TimeLimitMinutes = 10
	require.NoError(t, f.exams.Update(ctx, &stored))
	f.bus.Publish(ctx, ExamEvent{Type: EventExamUpdated, ExamID: examModel.ID})

	f.clock.Advance(20 * time.Minute)

	require.Eventually(t, func() bool {
		attempt, err := f.attempts.GetByExamAndStudent(ctx, examModel.ID, f.student.ID)
		return err == nil && attempt.IsSubmitted() && attempt.AutoSubmitted
	}, 5*time.Second, 5*time.Millisecond, "shortened deadline did not force a submission")
}
