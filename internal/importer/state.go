package importer

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when an action does not apply to the
// current wizard step.
var ErrIllegalTransition = errors.New("illegal import transition")

// State is a step of the import wizard.
type State int

// Wizard steps.
const (
	StateUpload State = iota
	StateProcessing
	StatePreview
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateUpload:
		return "upload"
	case StateProcessing:
		return "processing"
	case StatePreview:
		return "preview"
	case StateSuccess:
		return "success"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists every legal edge. Processing falls back to upload when
// parsing fails or the user backs out.
var transitions = map[State][]State{
	StateUpload:     {StateProcessing},
	StateProcessing: {StatePreview, StateUpload},
	StatePreview:    {StateSuccess, StateUpload},
	StateSuccess:    {StateUpload},
}

// CanTransition reports whether the wizard may move from one step to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, from, to)
	}
	return nil
}
