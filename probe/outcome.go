package probe

import "fmt"

// Kind discriminates the result of a single probe. Downstream logic branches
// on the kind, never on a sentinel RTT value.
type Kind int

const (
	// Success is a reply that arrived within the classification threshold.
	Success Kind = iota
	// Slow is a completed reply whose RTT exceeded the threshold.
	Slow
	// Unparseable is a reply whose latency could not be extracted.
	Unparseable
	// Expired means the hard deadline elapsed and the probe was terminated.
	Expired
	// Failed means the probe mechanism reported a definitive error.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Slow:
		return "slow"
	case Unparseable:
		return "unparseable"
	case Expired:
		return "expired"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the classified result of one probe. RTT is in milliseconds and
// only meaningful as a latency sample for Success and Slow; Unparseable and
// Expired carry the deadline ceiling so a plot has something to draw, Failed
// carries zero.
type Outcome struct {
	Kind   Kind    `json:"kind"`
	RTT    float64 `json:"rtt_ms"`
	Reason string  `json:"reason,omitempty"`
}

// Valid reports whether the outcome contributes a latency sample.
func (o Outcome) Valid() bool {
	return o.Kind == Success || o.Kind == Slow
}

// Lost reports whether the outcome counts toward packet loss. A reply that
// merely could not be parsed did arrive, so it is not lost.
func (o Outcome) Lost() bool {
	return o.Kind == Expired || o.Kind == Failed
}

func succeeded(rtt float64) Outcome {
	return Outcome{Kind: Success, RTT: rtt}
}

func slow(rtt float64) Outcome {
	return Outcome{Kind: Slow, RTT: rtt}
}

func unparseable(deadlineMs float64) Outcome {
	return Outcome{Kind: Unparseable, RTT: deadlineMs}
}

func expired(deadlineMs float64) Outcome {
	return Outcome{Kind: Expired, RTT: deadlineMs}
}

// NewFailure builds a Failed outcome for errors raised before or instead of
// the probe mechanism running at all, e.g. dispatch capacity exhaustion.
func NewFailure(reason string) Outcome {
	return Outcome{Kind: Failed, Reason: reason}
}
