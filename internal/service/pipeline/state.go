package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the progress of one request through the pipeline.
type State int

const (
	StateStart State = iota
	StateAudioAcquired
	StateTranscribed
	StateContentValidated
	StateSummarized
	StateTranslated
	StateSynthesized
	StateDone
	// StateError is terminal and only reachable before content validation.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateAudioAcquired:
		return "AUDIO_ACQUIRED"
	case StateTranscribed:
		return "TRANSCRIBED"
	case StateContentValidated:
		return "CONTENT_VALIDATED"
	case StateSummarized:
		return "SUMMARIZED"
	case StateTranslated:
		return "TRANSLATED"
	case StateSynthesized:
		return "SYNTHESIZED"
	case StateDone:
		return "DONE"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for DONE and ERROR.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateError
}

// CanFail reports whether a request in state s may still end in ERROR.
// Every stage after content validation degrades instead of failing.
func (s State) CanFail() bool {
	return s == StateStart || s == StateAudioAcquired || s == StateTranscribed
}

// Errors for invalid state transitions.
var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrTerminal          = errors.New("request already finished")
	ErrCannotFail        = errors.New("request can no longer fail")
)

// Lifecycle tracks one request's state.
//
// State transitions:
//
//	START → AUDIO_ACQUIRED → TRANSCRIBED → CONTENT_VALIDATED → SUMMARIZED
//	  │           │               │            → TRANSLATED → SYNTHESIZED → DONE
//	  └───────────┴───────────────┴──→ ERROR
type Lifecycle struct {
	mu        sync.RWMutex
	requestId string
	state     State
	failure   error
}

// NewLifecycle creates a lifecycle in START state.
func NewLifecycle(requestId string) *Lifecycle {
	return &Lifecycle{
		requestId: requestId,
		state:     StateStart,
	}
}

// RequestId returns the request ID.
func (l *Lifecycle) RequestId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.requestId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Err returns the error recorded by Fail.
func (l *Lifecycle) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failure
}

// Advance moves to next, which must directly follow the current state.
func (l *Lifecycle) Advance(next State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrTerminal
	}
	if next == StateError || next != l.state+1 {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, l.state, next)
	}
	l.state = next
	return nil
}

// Fail moves to ERROR, recording err.
func (l *Lifecycle) Fail(err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrTerminal
	}
	if !l.state.CanFail() {
		return fmt.Errorf("%w: in %s", ErrCannotFail, l.state)
	}
	l.state = StateError
	l.failure = err
	return nil
}
