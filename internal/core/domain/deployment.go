package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Deployment
// =============================================================================

// Feedback is an append-only note attached to a deployment.
type Feedback struct {
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Deployment is a mission deployment tracked as an ordered list of steps.
// Status is derived from the steps by Aggregate.
type Deployment struct {
	ID        string     `json:"id"`
	MissionID string     `json:"mission_id"`
	Steps     []Step     `json:"steps"`
	Status    StepStatus `json:"status"`
	Feedbacks []Feedback `json:"feedbacks"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Deleted   bool       `json:"-"`
	Version   int64      `json:"version"`
}

// NewDeploymentID returns a fresh deployment identifier.
func NewDeploymentID() string {
	return "depl_" + uuid.New().String()[:8]
}

// NewDeployment validates the initial steps and builds a deployment at
// version 1. Steps without a status start not_started. An empty status is
// derived from the steps, so it is not_started only when no step has moved.
func NewDeployment(missionID string, steps []Step, status StepStatus, now time.Time) (*Deployment, error) {
	if strings.TrimSpace(missionID) == "" {
		return nil, fmt.Errorf("%w: mission_id is required", ErrInvalidArgument)
	}
	normalized, err := normalizeSteps(steps, nil, now)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = Aggregate(normalized, StepNotStarted)
	} else if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}

	return &Deployment{
		ID:        NewDeploymentID(),
		MissionID: missionID,
		Steps:     normalized,
		Status:    status,
		Feedbacks: []Feedback{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}, nil
}

// normalizeSteps validates steps and fills in timestamps. A missing
// timestamp is taken from the same-named step in prior, else stamped with
// now: in_progress and completed steps always carry StartedAt, and only
// completed steps carry EndedAt.
func normalizeSteps(steps []Step, prior []Step, now time.Time) ([]Step, error) {
	previous := make(map[string]Step, len(prior))
	for _, p := range prior {
		previous[p.Name] = p
	}

	out := make([]Step, 0, len(steps))
	seen := make(map[string]bool, len(steps))
	for i, s := range steps {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("%w: step %d has no name", ErrInvalidArgument, i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate step name %q", ErrInvalidArgument, s.Name)
		}
		seen[s.Name] = true
		if s.Status == "" {
			s.Status = StepNotStarted
		} else if !s.Status.Valid() {
			return nil, fmt.Errorf("%w: step %q has unknown status %q", ErrInvalidArgument, s.Name, s.Status)
		}
		stampStep(&s, previous[s.Name], now)
		out = append(out, s)
	}
	return out, nil
}

func stampStep(s *Step, prev Step, now time.Time) {
	if s.Status == StepNotStarted {
		s.EndedAt = nil
		return
	}
	if s.StartedAt == nil {
		s.StartedAt = prev.StartedAt
	}
	if s.StartedAt == nil && (s.Status == StepInProgress || s.Status == StepCompleted) {
		s.StartedAt = timePtr(now)
	}

	if s.Status != StepCompleted {
		s.EndedAt = nil
		return
	}
	if s.EndedAt == nil {
		s.EndedAt = prev.EndedAt
	}
	if s.EndedAt == nil {
		s.EndedAt = timePtr(now)
	}
}

// StepIndex returns the position of the named step, or -1.
func (d *Deployment) StepIndex(name string) int {
	return slices.IndexFunc(d.Steps, func(s Step) bool { return s.Name == name })
}

// UpdateStep applies u to the named step and re-derives the status. With
// strict set the transition table is enforced. It reports whether the
// deployment status changed.
func (d *Deployment) UpdateStep(name string, u StepUpdate, strict bool, now time.Time) (bool, error) {
	if !u.Status.Valid() {
		return false, fmt.Errorf("%w: unknown step status %q", ErrInvalidArgument, u.Status)
	}
	i := d.StepIndex(name)
	if i < 0 {
		return false, fmt.Errorf("%w: step %q", ErrNotFound, name)
	}
	if strict {
		if err := ValidateStepTransition(d.Steps[i].Status, u.Status); err != nil {
			return false, err
		}
	}

	d.Steps[i].Apply(u, now)
	return d.recompute(now), nil
}

// ReplaceSteps swaps in a new step list and re-derives the status. Steps
// that keep their name keep their timestamps unless new ones are given.
func (d *Deployment) ReplaceSteps(steps []Step, now time.Time) (bool, error) {
	normalized, err := normalizeSteps(steps, d.Steps, now)
	if err != nil {
		return false, err
	}
	d.Steps = normalized
	return d.recompute(now), nil
}

// NewFeedback builds a feedback entry. Content is required.
func NewFeedback(content, author string, now time.Time) (Feedback, error) {
	if strings.TrimSpace(content) == "" {
		return Feedback{}, fmt.Errorf("%w: feedback content is required", ErrInvalidArgument)
	}
	return Feedback{Content: content, Author: author, CreatedAt: now}, nil
}

// AddFeedback appends a feedback entry.
func (d *Deployment) AddFeedback(content, author string, now time.Time) (Feedback, error) {
	fb, err := NewFeedback(content, author, now)
	if err != nil {
		return Feedback{}, err
	}
	d.Feedbacks = append(d.Feedbacks, fb)
	d.UpdatedAt = now
	return fb, nil
}

// Progress summarises the steps.
func (d *Deployment) Progress() Progress {
	return Summarize(d.Steps)
}

func (d *Deployment) recompute(now time.Time) bool {
	prior := d.Status
	d.Status = Aggregate(d.Steps, prior)
	d.UpdatedAt = now
	return d.Status != prior
}
