package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// Step Status
// =============================================================================

// StepStatus is the state of one deployment step. Deployments reuse it as
// their derived coarse status.
type StepStatus string

const (
	StepNotStarted StepStatus = "not_started"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// StepStatuses returns every status in lifecycle order.
func StepStatuses() []StepStatus {
	return []StepStatus{StepNotStarted, StepInProgress, StepCompleted, StepFailed}
}

func (s StepStatus) Valid() bool {
	switch s {
	case StepNotStarted, StepInProgress, StepCompleted, StepFailed:
		return true
	}
	return false
}

// ParseStepStatus validates a status string.
func ParseStepStatus(s string) (StepStatus, error) {
	st := StepStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown step status %q", ErrInvalidArgument, s)
	}
	return st, nil
}

// =============================================================================
// Step
// =============================================================================

// Step is one independently updatable unit of a deployment.
type Step struct {
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Operator  string     `json:"operator,omitempty"`
	Remark    string     `json:"remark,omitempty"`
}

// StepUpdate is a requested change to one step. An empty Remark leaves the
// existing remark in place.
type StepUpdate struct {
	Status   StepStatus `json:"status"`
	Operator string     `json:"operator"`
	Remark   string     `json:"remark,omitempty"`
}

// Apply overwrites status and operator and maintains the timestamps.
// Entering in_progress stamps StartedAt once. Entering completed back-fills
// StartedAt and always refreshes EndedAt, so a repeated completed update
// moves EndedAt forward. Any status may replace any other; callers wanting
// the transition table use ValidateStepTransition first.
func (s *Step) Apply(u StepUpdate, now time.Time) {
	s.Status = u.Status
	s.Operator = u.Operator
	if u.Remark != "" {
		s.Remark = u.Remark
	}

	switch u.Status {
	case StepInProgress:
		if s.StartedAt == nil {
			s.StartedAt = timePtr(now)
		}
	case StepCompleted:
		if s.StartedAt == nil {
			s.StartedAt = timePtr(now)
		}
		s.EndedAt = timePtr(now)
	}
}

// =============================================================================
// Strict Transitions
// =============================================================================

var stepTransitions = map[StepStatus][]StepStatus{
	StepNotStarted: {StepInProgress, StepCompleted, StepFailed},
	StepInProgress: {StepCompleted, StepFailed},
	StepFailed:     {StepInProgress},
	StepCompleted:  {},
}

// ValidateStepTransition checks from -> to against the strict table.
// Re-applying the current status is always allowed.
func ValidateStepTransition(from, to StepStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown step status %q", ErrInvalidArgument, to)
	}
	if from == to {
		return nil
	}
	for _, allowed := range stepTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
