package interview

// Step names one transition of the interview state machine.
type Step string

const (
	// StepStarted fires once when an interview begins.
	StepStarted Step = "started"
	// StepAsk fires after the consultant question is appended.
	StepAsk Step = "ask"
	// StepSearch fires after the search batch for an answer completes.
	StepSearch Step = "search"
	// StepAnswer fires after the expert answer is appended.
	StepAnswer Step = "answer"
	// StepTerminated fires once when the interview ends.
	StepTerminated Step = "terminated"
)

// Event describes one step of one interview.
type Event struct {
	Step     Step
	Expert   string // normalized expert identity
	Turn     int    // expert answers so far
	Degraded bool   // a fallback was used in this step
	Detail   string
}

// Hook observes interview progress. It is called from interview goroutines and
// must be safe for concurrent use.
type Hook func(Event)
