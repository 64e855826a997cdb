package session

import (
	"errors"
	"fmt"
)

type State int

const (
	StateIdle State = iota
	StateGenerating
	StatePromptReady
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StatePromptReady:
		return "prompt_ready"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Busy reports whether a generation is in flight.
func (s State) Busy() bool {
	return s == StateGenerating || s == StatePromptReady
}

func (s State) CanGenerate() bool {
	return !s.Busy()
}

func (s State) CanSave() bool {
	return s == StateReady
}

type Event int

const (
	EventGenerate Event = iota
	EventPromptExpanded
	EventImageRequested
	EventImageGenerated
	EventFail
	EventSave
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventGenerate:
		return "generate"
	case EventPromptExpanded:
		return "prompt_expanded"
	case EventImageRequested:
		return "image_requested"
	case EventImageGenerated:
		return "image_generated"
	case EventFail:
		return "fail"
	case EventSave:
		return "save"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var ErrInvalidTransition = errors.New("invalid transition")

// Transition is the whole state machine: it returns the state reached from s
// on e, or ErrInvalidTransition.
func Transition(s State, e Event) (State, error) {
	switch {
	case e == EventGenerate && (s == StateIdle || s == StateReady):
		return StateGenerating, nil
	case e == EventPromptExpanded && s == StateGenerating:
		return StatePromptReady, nil
	case e == EventImageRequested && s == StatePromptReady:
		return StateGenerating, nil
	case e == EventImageGenerated && s == StateGenerating:
		return StateReady, nil
	case e == EventFail && s.Busy():
		return StateIdle, nil
	case e == EventSave && s == StateReady:
		return StateReady, nil
	case e == EventReset && (s == StateIdle || s == StateReady):
		return StateIdle, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}
