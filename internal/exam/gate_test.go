package exam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateEntryOpenExam(t *testing.T) {
	now := time.Now()

	decision := EvaluateEntry(Settings{}, AttemptState{}, ViewExam, now)

	require.Equal(t, OutcomeInProgress, decision.Outcome)
}

func TestEvaluateEntryResultViewWithoutSubmission(t *testing.T) {
	now := time.Now()

	decision := EvaluateEntry(Settings{}, AttemptState{Started: true, StartedAt: now}, ViewResult, now)

	require.Equal(t, OutcomeBlocked, decision.Outcome)
	require.Equal(t, ReasonNoResult, decision.Reason)
}

func TestEvaluateEntrySubmissionIsTerminal(t *testing.T) {
	now := time.Now()
	attempt := AttemptState{Started: true, StartedAt: now.Add(-time.Hour), Submitted: true}

	for _, view := range []ViewMode{ViewExam, ViewResult, ViewReview} {
		decision := EvaluateEntry(Settings{}, attempt, view, now)
		require.Equal(t, OutcomeResultOnly, decision.Outcome, "view %s", view)
	}
}

func TestEvaluateEntryReopenOnlyLocksOutAttempted(t *testing.T) {
	now := time.Now()
	settings := Settings{ReopenOnly: true}
	attempt := AttemptState{Started: true, StartedAt: now.Add(-time.Hour)}

	decision := EvaluateEntry(settings, attempt, ViewExam, now)
	require.Equal(t, OutcomeBlocked, decision.Outcome)
	require.Equal(t, ReasonReopenOnly, decision.Reason)

	// A fresh viewer is unaffected.
	decision = EvaluateEntry(settings, AttemptState{}, ViewExam, now)
	require.Equal(t, OutcomeInProgress, decision.Outcome)
}

func TestEvaluateEntryReopenOnlyStillShowsResult(t *testing.T) {
	now := time.Now()
	settings := Settings{ReopenOnly: true}
	attempt := AttemptState{Started: true, StartedAt: now.Add(-2 * time.Hour), Submitted: true}

	decision := EvaluateEntry(settings, attempt, ViewResult, now)

	require.Equal(t, OutcomeResultOnly, decision.Outcome)
}

func TestEvaluateEntryBeforeScheduledOpen(t *testing.T) {
	now := time.Now()
	open := now.Add(45 * time.Minute)
	settings := Settings{ScheduleEnabled: true, ScheduledAt: &open}

	decision := EvaluateEntry(settings, AttemptState{}, ViewExam, now)

	require.Equal(t, OutcomeWait, decision.Outcome)
	require.Equal(t, 45*time.Minute, decision.Wait)
}

func TestEvaluateEntryWindowExpiredWithoutStart(t *testing.T) {
	now := time.Now()
	open := now.Add(-3 * time.Hour)
	settings := Settings{ScheduleEnabled: true, ScheduledAt: &open, TimeLimitMinutes: 60}

	decision := EvaluateEntry(settings, AttemptState{}, ViewExam, now)

	require.Equal(t, OutcomeBlocked, decision.Outcome)
	require.Equal(t, ReasonWindowExpired, decision.Reason)
}

func TestEvaluateEntryWindowExpiryDoesNotEvictStartedAttempt(t *testing.T) {
	now := time.Now()
	open := now.Add(-3 * time.Hour)
	settings := Settings{ScheduleEnabled: true, ScheduledAt: &open, TimeLimitMinutes: 60}
	attempt := AttemptState{Started: true, StartedAt: open}

	decision := EvaluateEntry(settings, attempt, ViewExam, now)

	require.Equal(t, OutcomeInProgress, decision.Outcome)
}

func TestEvaluateEntryExplicitWindowEndWins(t *testing.T) {
	now := time.Now()
	open := now.Add(-10 * time.Minute)
	end := now.Add(10 * time.Minute)
	settings := Settings{ScheduleEnabled: true, ScheduledAt: &open, WindowEndAt: &end, TimeLimitMinutes: 1}

	// The derived open+limit end already passed, but the explicit window
	// end has not.
	decision := EvaluateEntry(settings, AttemptState{}, ViewExam, now)

	require.Equal(t, OutcomeInProgress, decision.Outcome)
}

func TestEvaluateEntryScheduledUntimedNeverForceCloses(t *testing.T) {
	now := time.Now()
	open := now.Add(-30 * 24 * time.Hour)
	settings := Settings{ScheduleEnabled: true, ScheduledAt: &open}

	decision := EvaluateEntry(settings, AttemptState{}, ViewExam, now)

	require.Equal(t, OutcomeInProgress, decision.Outcome)
}

func TestEntryWindowEnd(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := open.Add(2 * time.Hour)

	require.True(t, Settings{}.EntryWindowEnd().IsZero())
	require.Equal(t, end, Settings{ScheduledAt: &open, WindowEndAt: &end, TimeLimitMinutes: 30}.EntryWindowEnd())
	require.Equal(t, open.Add(30*time.Minute), Settings{ScheduledAt: &open, TimeLimitMinutes: 30}.EntryWindowEnd())
	require.True(t, Settings{ScheduledAt: &open}.EntryWindowEnd().IsZero())
}
