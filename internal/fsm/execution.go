package fsm

import (
	"context"
	"sync"

	"github.com/looplab/fsm"
)

// Executor phases for a single status change.
const (
	PhaseIdle       = "idle"
	PhaseValidating = "validating"
	PhaseRejected   = "rejected"
	PhasePreserving = "preserving_snapshot"
	PhasePersisting = "persisting"
	PhaseFailed     = "failed"
	PhaseMirroring  = "mirroring"
	PhaseDone       = "done"
)

const (
	StepBegin    = "begin"
	StepReject   = "reject"
	StepPreserve = "preserve"
	StepPersist  = "persist"
	StepFail     = "fail"
	StepMirror   = "mirror"
	StepFinish   = "finish"
)

// ExecutionFSM tracks the phase of one executor call:
// idle -> validating -> (rejected | preserving_snapshot) -> persisting ->
// (mirroring) -> done. A no-op transition finishes straight from validating.
type ExecutionFSM struct {
	fsm     *fsm.FSM
	mu      sync.Mutex
	onEnter map[string]func()
}

func NewExecutionFSM() *ExecutionFSM {
	ex := &ExecutionFSM{
		onEnter: make(map[string]func()),
	}
	ex.fsm = fsm.NewFSM(
		PhaseIdle,
		fsm.Events{
			{Name: StepBegin, Src: []string{PhaseIdle}, Dst: PhaseValidating},
			{Name: StepReject, Src: []string{PhaseValidating}, Dst: PhaseRejected},
			{Name: StepPreserve, Src: []string{PhaseValidating}, Dst: PhasePreserving},
			{Name: StepPersist, Src: []string{PhaseValidating, PhasePreserving}, Dst: PhasePersisting},
			{Name: StepFail, Src: []string{PhasePersisting}, Dst: PhaseFailed},
			{Name: StepMirror, Src: []string{PhasePersisting}, Dst: PhaseMirroring},
			{Name: StepFinish, Src: []string{PhaseValidating, PhasePersisting, PhaseMirroring}, Dst: PhaseDone},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if fn, ok := ex.onEnter[e.Dst]; ok {
					fn()
				}
			},
		},
	)
	return ex
}

func (ex *ExecutionFSM) Current() string {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.fsm.Current()
}

func (ex *ExecutionFSM) Step(ctx context.Context, step string) error {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.fsm.Event(ctx, step)
}

// OnEnter registers fn to run when the machine enters phase. Callbacks run
// with the machine's lock held and must not call back into it.
func (ex *ExecutionFSM) OnEnter(phase string, fn func()) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.onEnter[phase] = fn
}
