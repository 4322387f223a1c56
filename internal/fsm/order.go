package fsm

import (
	"sync"

	"github.com/buildtall-systems/orderlife/internal/status"
	"github.com/looplab/fsm"
)

// OrderStateMachine checks order transitions against the static graph.
// Each target code is an event whose sources are every code with an edge
// into it.
type OrderStateMachine struct {
	fsm *fsm.FSM
	mu  sync.Mutex
}

func NewOrderStateMachine() *OrderStateMachine {
	sources := make(map[status.Code][]string)
	for _, from := range status.All() {
		for _, to := range transitions[from] {
			sources[to] = append(sources[to], string(from))
		}
	}

	var events fsm.Events
	for _, to := range status.All() {
		if src, ok := sources[to]; ok {
			events = append(events, fsm.EventDesc{Name: string(to), Src: src, Dst: string(to)})
		}
	}

	return &OrderStateMachine{
		fsm: fsm.NewFSM(string(status.Requested), events, fsm.Callbacks{}),
	}
}

// CanTransition resolves both ends through status.CodeOf and reports whether
// the edge exists. Unresolved codes are never transitionable.
func (osm *OrderStateMachine) CanTransition(from, to string) bool {
	f, ok := status.CodeOf(from)
	if !ok {
		return false
	}
	t, ok := status.CodeOf(to)
	if !ok {
		return false
	}
	osm.mu.Lock()
	defer osm.mu.Unlock()
	osm.fsm.SetState(string(f))
	return osm.fsm.Can(string(t))
}

// Transition checks the edge from -> to and moves the machine to to. It
// never fires a looplab event, so no caller context can leave the shared
// machine mid-transition. Errors are looplab's InvalidEventError or
// UnknownEventError for illegal or unknown targets.
func (osm *OrderStateMachine) Transition(from, to status.Code) (status.Code, error) {
	if !to.Valid() {
		return "", fsm.UnknownEventError{Event: string(to)}
	}
	if !from.Valid() {
		return "", fsm.InvalidEventError{Event: string(to), State: string(from)}
	}
	osm.mu.Lock()
	defer osm.mu.Unlock()
	osm.fsm.SetState(string(from))
	if !osm.fsm.Can(string(to)) {
		return "", fsm.InvalidEventError{Event: string(to), State: string(from)}
	}
	osm.fsm.SetState(string(to))
	return to, nil
}

// NextStatuses returns the codes reachable from from in graph order. The
// slice is a copy; terminal and unknown states yield an empty slice.
func (osm *OrderStateMachine) NextStatuses(from string) []status.Code {
	f, ok := status.CodeOf(from)
	if !ok {
		return []status.Code{}
	}
	next := make([]status.Code, len(transitions[f]))
	copy(next, transitions[f])
	return next
}
