package domain

import "math"

// Aggregate derives the coarse deployment status from its steps. The first
// matching rule wins: any failed step, then all completed, then any step in
// progress or completed, else not started. With no steps the prior status is
// returned unchanged.
func Aggregate(steps []Step, prior StepStatus) StepStatus {
	if len(steps) == 0 {
		return prior
	}

	p := Summarize(steps)
	switch {
	case p.Failed > 0:
		return StepFailed
	case p.Completed == p.Total:
		return StepCompleted
	case p.InProgress > 0 || p.Completed > 0:
		return StepInProgress
	default:
		return StepNotStarted
	}
}

// Progress counts steps per status.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	InProgress int     `json:"in_progress"`
	Failed     int     `json:"failed"`
	NotStarted int     `json:"not_started"`
	Percentage float64 `json:"percentage"`
}

// Summarize counts the steps. Percentage is completed/total as a percent
// rounded to two decimals, or 0 with no steps.
func Summarize(steps []Step) Progress {
	p := Progress{Total: len(steps)}
	for _, s := range steps {
		switch s.Status {
		case StepCompleted:
			p.Completed++
		case StepInProgress:
			p.InProgress++
		case StepFailed:
			p.Failed++
		default:
			p.NotStarted++
		}
	}
	if p.Total > 0 {
		pct := float64(p.Completed) / float64(p.Total) * 100
		p.Percentage = math.Round(pct*100) / 100
	}
	return p
}
