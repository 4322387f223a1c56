package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

func TestExecutionFSM_Flows(t *testing.T) {
	tests := []struct {
		name  string
		steps []string
		want  string
	}{
		{
			name:  "plain transition with mirror",
			steps: []string{StepBegin, StepPersist, StepMirror, StepFinish},
			want:  PhaseDone,
		},
		{
			name:  "accept preserves snapshot first",
			steps: []string{StepBegin, StepPreserve, StepPersist, StepFinish},
			want:  PhaseDone,
		},
		{
			name:  "validation rejects",
			steps: []string{StepBegin, StepReject},
			want:  PhaseRejected,
		},
		{
			name:  "no-op finishes from validating",
			steps: []string{StepBegin, StepFinish},
			want:  PhaseDone,
		},
		{
			name:  "persist failure",
			steps: []string{StepBegin, StepPersist, StepFail},
			want:  PhaseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExecutionFSM()
			ctx := context.Background()

			if ex.Current() != PhaseIdle {
				t.Fatalf("initial phase = %s, want idle", ex.Current())
			}
			for _, step := range tt.steps {
				if err := ex.Step(ctx, step); err != nil {
					t.Fatalf("step %s from %s: %v", step, ex.Current(), err)
				}
			}
			if ex.Current() != tt.want {
				t.Errorf("phase = %s, want %s", ex.Current(), tt.want)
			}
		})
	}
}

func TestExecutionFSM_InvalidSteps(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
		step  string
	}{
		{"persist before validating", nil, StepPersist},
		{"mirror from validating", []string{StepBegin}, StepMirror},
		{"persist after rejection", []string{StepBegin, StepReject}, StepPersist},
		{"mirror after failure", []string{StepBegin, StepPersist, StepFail}, StepMirror},
		{"preserve after persisting", []string{StepBegin, StepPersist}, StepPreserve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExecutionFSM()
			ctx := context.Background()
			for _, step := range tt.setup {
				if err := ex.Step(ctx, step); err != nil {
					t.Fatalf("setup step %s: %v", step, err)
				}
			}

			before := ex.Current()
			err := ex.Step(ctx, tt.step)
			var invalidErr fsm.InvalidEventError
			if !errors.As(err, &invalidErr) {
				t.Errorf("expected InvalidEventError, got %T: %v", err, err)
			}
			if ex.Current() != before {
				t.Errorf("phase moved from %s to %s on refused step", before, ex.Current())
			}
		})
	}
}

func TestExecutionFSM_OnEnter(t *testing.T) {
	ex := NewExecutionFSM()
	ctx := context.Background()

	var entered []string
	ex.OnEnter(PhasePersisting, func() { entered = append(entered, PhasePersisting) })
	ex.OnEnter(PhaseDone, func() { entered = append(entered, PhaseDone) })

	for _, step := range []string{StepBegin, StepPersist, StepFinish} {
		if err := ex.Step(ctx, step); err != nil {
			t.Fatalf("step %s: %v", step, err)
		}
	}

	if len(entered) != 2 || entered[0] != PhasePersisting || entered[1] != PhaseDone {
		t.Errorf("entered = %v, want [persisting done]", entered)
	}
}
