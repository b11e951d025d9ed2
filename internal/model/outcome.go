package model

// OutcomeKind classifies how an outbound call settled.
type OutcomeKind int

const (
	// OutcomeSuccess means a response was received and its body read in full.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTimeout means the call was aborted by its timer.
	OutcomeTimeout
	// OutcomeFailure covers every other error.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

// Outcome is the result of one outbound call.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int    // upstream status, set for OutcomeSuccess
	Body       string // upstream body text, set for OutcomeSuccess
	Err        error  // cause, set for OutcomeTimeout and OutcomeFailure
}

// Succeeded builds a success outcome.
func Succeeded(status int, body string) Outcome {
	return Outcome{Kind: OutcomeSuccess, StatusCode: status, Body: body}
}

// TimedOut builds a timeout outcome.
func TimedOut(err error) Outcome {
	return Outcome{Kind: OutcomeTimeout, Err: err}
}

// Failed builds a failure outcome.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Err: err}
}
