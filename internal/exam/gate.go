package exam

import "time"

// Settings carries the scheduling and grading configuration of an exam.
type Settings struct {
	TimeLimitMinutes int
	ScheduleEnabled  bool
	ScheduledAt      *time.Time
	WindowEndAt      *time.Time
	ManualGrading    bool
	ReopenOnly       bool
}

// TimeLimit returns the configured limit as a duration, zero when untimed.
func (s Settings) TimeLimit() time.Duration {
	if s.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TimeLimitMinutes) * time.Minute
}

// EntryWindowEnd resolves the instant after which entry is barred. An
// explicit window end always wins over the deadline derived from the
// scheduled open time plus the time limit. A zero return means the window
// never force-closes.
func (s Settings) EntryWindowEnd() time.Time {
	if s.WindowEndAt != nil {
		return *s.WindowEndAt
	}
	if s.ScheduledAt != nil && s.TimeLimitMinutes > 0 {
		return s.ScheduledAt.Add(s.TimeLimit())
	}
	return time.Time{}
}

// ViewMode is the navigation intent the gate is evaluated for.
type ViewMode string

const (
	ViewExam   ViewMode = "exam"
	ViewResult ViewMode = "result"
	ViewReview ViewMode = "review"
)

// Outcome classifies an entry decision.
type Outcome string

const (
	// OutcomeBlocked means the viewer may not enter; Reason says why.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeWait means the exam is scheduled but not yet open.
	OutcomeWait Outcome = "wait"
	// OutcomeInProgress means the viewer may take (or resume) the exam.
	OutcomeInProgress Outcome = "in_progress"
	// OutcomeResultOnly means only the result and review views are reachable.
	OutcomeResultOnly Outcome = "result_only"
)

// Decision is the outcome of an entry evaluation.
type Decision struct {
	Outcome Outcome
	Reason  string
	// Wait is the time until the scheduled open when Outcome is OutcomeWait.
	Wait time.Duration
}

// AttemptState is the gate's view of the viewer's prior attempt, if any.
type AttemptState struct {
	Started   bool
	StartedAt time.Time
	Submitted bool
}

const (
	ReasonNoResult      = "no result to show"
	ReasonReopenOnly    = "only available to those who have not attempted"
	ReasonWindowExpired = "entry window expired without starting"
)

// EvaluateEntry decides whether the viewer may enter the exam, must wait for
// the scheduled open, is locked out, or may only see their result. Rules are
// evaluated in a fixed order; the caller is responsible for recording the
// attempt start when the decision is OutcomeInProgress.
func EvaluateEntry(settings Settings, attempt AttemptState, view ViewMode, now time.Time) Decision {
	if view == ViewResult && !attempt.Submitted {
		return Decision{Outcome: OutcomeBlocked, Reason: ReasonNoResult}
	}

	if settings.ReopenOnly && attempt.Started {
		if view != ViewResult {
			return Decision{Outcome: OutcomeBlocked, Reason: ReasonReopenOnly}
		}
		return Decision{Outcome: OutcomeResultOnly}
	}

	// A stored submission is terminal: the question form is never shown again.
	if attempt.Submitted {
		return Decision{Outcome: OutcomeResultOnly}
	}

	if settings.ScheduleEnabled {
		if end := settings.EntryWindowEnd(); !end.IsZero() && now.After(end) && !attempt.Started {
			return Decision{Outcome: OutcomeBlocked, Reason: ReasonWindowExpired}
		}
		if settings.ScheduledAt != nil && now.Before(*settings.ScheduledAt) {
			return Decision{Outcome: OutcomeWait, Wait: settings.ScheduledAt.Sub(now)}
		}
	}

	return Decision{Outcome: OutcomeInProgress}
}
