package probe

import (
	"regexp"
	"strconv"
	"strings"
)

// Result is the raw material a prober hands to the classifier: whatever the
// mechanism produced plus whether it was cut off by the hard deadline.
type Result struct {
	ExitErr  error
	Stdout   string
	Stderr   string
	TimedOut bool
}

// rttPattern matches both the exact form "time=12.3 ms" and the upper bound
// form "time<1ms" that some ping implementations emit for sub-resolution
// replies. The bound is taken as the value.
var rttPattern = regexp.MustCompile(`(?i)time[=<](\d+(?:\.\d+)?)\s*ms`)

// Classify maps a raw probe result to exactly one Outcome. It never fails;
// a reply that defeats the parser is recorded as Unparseable at the deadline
// ceiling.
func Classify(res Result, thresholdMs, deadlineMs float64) Outcome {
	if res.TimedOut {
		return expired(deadlineMs)
	}

	if res.ExitErr == nil {
		m := rttPattern.FindStringSubmatch(res.Stdout)
		if m == nil {
			return unparseable(deadlineMs)
		}
		rtt, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return unparseable(deadlineMs)
		}
		if rtt > thresholdMs {
			return slow(rtt)
		}
		return succeeded(rtt)
	}

	reason := strings.TrimSpace(res.Stderr)
	if reason == "" {
		reason = strings.TrimSpace(res.Stdout)
	}
	if reason == "" {
		reason = res.ExitErr.Error()
	}
	return Outcome{Kind: Failed, Reason: reason}
}
