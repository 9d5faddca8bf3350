package statistics

import (
	"math"
	"time"

	"github.com/thetooth/pinggraph/config"
	"github.com/thetooth/pinggraph/probe"
	"github.com/thetooth/pinggraph/session"
)

// Report is the aggregate view over one store snapshot. It is derived on
// demand and never stored. Latency figures are computed over valid samples
// only (Success and Slow replies); lost and unparseable probes contribute to
// the percentage fields but never to the RTT figures.
type Report struct {
	Target string `json:"target"`

	Count      int `json:"count"`
	ValidCount int `json:"valid_count"`

	MinRTT    float64 `json:"min_rtt_ms"`
	MaxRTT    float64 `json:"max_rtt_ms"`
	MeanRTT   float64 `json:"mean_rtt_ms"`
	StdDevRTT float64 `json:"std_dev_rtt_ms"`

	// Jitter is the mean absolute difference between consecutive valid RTTs
	// in sequence order.
	Jitter float64 `json:"jitter_ms"`

	// SlowOrWorsePct is the share of completed probes classified Slow,
	// Unparseable, Expired or Failed.
	SlowOrWorsePct float64 `json:"slow_or_worse_pct"`
	// LossPct is the share of completed probes classified Expired or Failed.
	LossPct float64 `json:"loss_pct"`
	// LongestBadRun is the longest consecutive run of non-Success outcomes
	// in sequence order.
	LongestBadRun int `json:"longest_bad_run"`

	InFlight int             `json:"in_flight"`
	Elapsed  config.Interval `json:"elapsed"`
}

// Build computes a Report over records, which must be sorted by sequence
// number as returned by the store snapshot. An empty snapshot yields a
// zeroed report.
func Build(records []session.Record, inFlight int, elapsed time.Duration, target string) (r Report) {
	r.Target = target
	r.InFlight = inFlight
	r.Elapsed = config.Interval{Duration: elapsed}
	r.Count = len(records)
	if r.Count == 0 {
		return
	}

	var (
		slowOrWorse int
		lost        int
		run         int
		lastValid   float64
		jitterSum   float64
		jitterCount int
		stddevm2    float64
	)

	for _, record := range records {
		outcome := record.Outcome

		if outcome.Kind != probe.Success {
			slowOrWorse++
			run++
			if run > r.LongestBadRun {
				r.LongestBadRun = run
			}
		} else {
			run = 0
		}
		if outcome.Lost() {
			lost++
		}

		if !outcome.Valid() {
			continue
		}

		rtt := outcome.RTT
		if r.ValidCount == 0 || rtt < r.MinRTT {
			r.MinRTT = rtt
		}
		if rtt > r.MaxRTT {
			r.MaxRTT = rtt
		}

		if r.ValidCount > 0 {
			jitterSum += math.Abs(rtt - lastValid)
			jitterCount++
		}
		lastValid = rtt

		r.ValidCount++

		// welford's online method for stddev
		// https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
		delta := rtt - r.MeanRTT
		r.MeanRTT += delta / float64(r.ValidCount)
		delta2 := rtt - r.MeanRTT
		stddevm2 += delta * delta2
	}

	if r.ValidCount > 0 {
		r.StdDevRTT = math.Sqrt(stddevm2 / float64(r.ValidCount))
	}
	if jitterCount > 0 {
		r.Jitter = jitterSum / float64(jitterCount)
	}
	r.SlowOrWorsePct = 100 * float64(slowOrWorse) / float64(r.Count)
	r.LossPct = 100 * float64(lost) / float64(r.Count)

	return
}
