package flow

import (
	"github.com/felixgeelhaar/nexora/internal/projects"
)

// State is a question flow state.
type State int

const (
	// Loading fetches the next question.
	Loading State = iota
	// AwaitingAnswer shows a question and accepts an answer.
	AwaitingAnswer
	// Submitting has one answer in flight.
	Submitting
	// Complete means the project has no unanswered questions left.
	Complete
	// Failed holds a dismissible error. The question and draft survive it.
	Failed
	// Exited is the save-and-exit terminal state.
	Exited
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case AwaitingAnswer:
		return "awaiting_answer"
	case Submitting:
		return "submitting"
	case Complete:
		return "complete"
	case Failed:
		return "error"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Complete || s == Exited
}

// Snapshot is a consistent view of a controller.
type Snapshot struct {
	State    State
	Question *projects.Question
	// Draft is the answer text being edited or submitted.
	Draft string
	// Err is set in the Failed state.
	Err error
	// Message is the user-facing text for Err.
	Message string
	// Answered counts answers accepted during this flow.
	Answered int
}
