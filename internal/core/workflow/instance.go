package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrUnsupportedType = errors.New("unsupported deployment type")
	ErrPhaseFailed     = errors.New("deployment phase failed")
	ErrAlreadyExecuted = errors.New("workflow instance already executed")
)

// PhaseError records which phase failed and why.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() []error {
	return []error{ErrPhaseFailed, e.Err}
}

// =============================================================================
// Status, Phase, Log
// =============================================================================

// Status is the lifecycle state of a workflow instance.
type Status string

const (
	StatusCreated   Status = "created"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Phase names one step of the fixed execution skeleton.
type Phase string

const (
	PhasePrepare           Phase = "prepare"
	PhaseAllocateResources Phase = "allocate_resources"
	PhasePerformDeployment Phase = "perform_deployment"
	PhaseVerifyDeployment  Phase = "verify_deployment"
	PhaseFinalize          Phase = "finalize"
)

// phaseOrder is the execution order. StepsTotal is its length.
var phaseOrder = []Phase{
	PhasePrepare,
	PhaseAllocateResources,
	PhasePerformDeployment,
	PhaseVerifyDeployment,
	PhaseFinalize,
}

// StepsTotal is the number of phases every workflow runs.
const StepsTotal = 5

// Phases returns the phases in execution order.
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// LogLevel is the severity of a workflow log entry.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// LogEntry is one line of the execution log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Step      int       `json:"step"`
	Message   string    `json:"message"`
	Level     LogLevel  `json:"level"`
}

const (
	msgStarted   = "deployment workflow started"
	msgCompleted = "deployment workflow completed"
)

// =============================================================================
// Hooks
// =============================================================================

// Hooks supplies the variant-specific body of each phase. A hook mutates the
// instance attributes and may fail; the skeleton owns ordering, progress and
// failure capture.
type Hooks interface {
	Type() Type
	Prepare(in *Instance) error
	AllocateResources(in *Instance) error
	PerformDeployment(in *Instance) error
	VerifyDeployment(in *Instance) error
	Finalize(in *Instance) error
}

func invoke(h Hooks, p Phase, in *Instance) error {
	switch p {
	case PhasePrepare:
		return h.Prepare(in)
	case PhaseAllocateResources:
		return h.AllocateResources(in)
	case PhasePerformDeployment:
		return h.PerformDeployment(in)
	case PhaseVerifyDeployment:
		return h.VerifyDeployment(in)
	case PhaseFinalize:
		return h.Finalize(in)
	default:
		return fmt.Errorf("unknown phase %q", p)
	}
}

// =============================================================================
// Instance
// =============================================================================

// Instance is one run of the deployment skeleton against a variant. It is
// built fresh for every execution and never resumed.
type Instance struct {
	ID             string
	Name           string
	Commander      string
	TargetLocation string
	Units          []string
	Equipments     []string
	Description    string
	Attributes     Attributes

	Status         Status
	CurrentStep    int
	StepsTotal     int
	StepsCompleted []int
	Logs           []LogEntry
	CreatedAt      time.Time
	UpdatedAt      time.Time

	hooks Hooks
	now   func() time.Time
}

// NewInstance binds hooks to a fresh instance in the created state.
func NewInstance(p Params, hooks Hooks) *Instance {
	now := time.Now().UTC()
	return &Instance{
		ID:             "tmpl_" + uuid.New().String()[:8],
		Name:           p.Name,
		Commander:      p.Commander,
		TargetLocation: p.TargetLocation,
		Units:          append([]string(nil), p.Units...),
		Equipments:     append([]string(nil), p.Equipments...),
		Description:    p.Description,
		Attributes:     p.Attributes.Clone(),
		Status:         StatusCreated,
		StepsTotal:     StepsTotal,
		StepsCompleted: []int{},
		CreatedAt:      now,
		UpdatedAt:      now,
		hooks:          hooks,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Type returns the variant tag.
func (in *Instance) Type() Type {
	return in.hooks.Type()
}

// Log appends an info entry at the current step.
func (in *Instance) Log(message string) {
	in.log(message, LevelInfo)
}

func (in *Instance) log(message string, level LogLevel) {
	in.Logs = append(in.Logs, LogEntry{
		Timestamp: in.now(),
		Step:      in.CurrentStep,
		Message:   message,
		Level:     level,
	})
}

func (in *Instance) touch() {
	in.UpdatedAt = in.now()
}

// Result summarises one execution.
type Result struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Status         Status    `json:"status"`
	StepsCompleted int       `json:"steps_completed"`
	StepsTotal     int       `json:"steps_total"`
	UpdatedAt      time.Time `json:"updated_at"`
	Error          string    `json:"error,omitempty"`
	Err            error     `json:"-"`
}

func (in *Instance) result(err error) Result {
	r := Result{
		ID:             in.ID,
		Name:           in.Name,
		Status:         in.Status,
		StepsCompleted: len(in.StepsCompleted),
		StepsTotal:     in.StepsTotal,
		UpdatedAt:      in.UpdatedAt,
		Err:            err,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Execute runs the five phases in order. A hook error, a hook panic, or a
// done context at a phase boundary stops the run and marks the instance
// failed; phases already completed are not rolled back. Execute never
// returns the failure other than inside the Result.
func (in *Instance) Execute(ctx context.Context) Result {
	if in.Status != StatusCreated {
		return in.result(ErrAlreadyExecuted)
	}

	in.Log(msgStarted)

	for _, phase := range phaseOrder {
		if err := in.runPhase(ctx, phase); err != nil {
			in.Status = StatusFailed
			in.touch()
			in.log("deployment failed: "+err.Error(), LevelError)
			return in.result(err)
		}
		in.CurrentStep++
		in.StepsCompleted = append(in.StepsCompleted, in.CurrentStep)
		in.touch()
	}

	in.Status = StatusCompleted
	in.touch()
	in.Log(msgCompleted)
	return in.result(nil)
}

func (in *Instance) runPhase(ctx context.Context, phase Phase) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &PhaseError{Phase: phase, Err: ctxErr}
	}

	in.Log(string(phase))

	defer func() {
		if r := recover(); r != nil {
			err = &PhaseError{Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if hookErr := invoke(in.hooks, phase, in); hookErr != nil {
		return &PhaseError{Phase: phase, Err: hookErr}
	}
	return nil
}
