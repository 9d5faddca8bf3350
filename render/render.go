package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thetooth/pinggraph/probe"
	"github.com/thetooth/pinggraph/session"
	"github.com/thetooth/pinggraph/statistics"
)

// Visualizer consumes one refresh of the output surface: the ordered record
// snapshot plus the report derived from it.
type Visualizer interface {
	Render(records []session.Record, report statistics.Report)
}

const (
	ansiReset   = "\x1b[0m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiRed     = "\x1b[31m"
	ansiMagenta = "\x1b[35m"
	ansiHome    = "\x1b[H\x1b[2J"
)

// Terminal draws a fixed-height column chart of the most recent outcomes
// with a statistics footer, repainting the screen on every refresh.
type Terminal struct {
	Out    io.Writer
	Width  int
	Height int
	// Color disables ANSI colors when false, e.g. for piped output.
	Color bool
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{Out: out, Width: 72, Height: 12, Color: true}
}

func (t *Terminal) Render(records []session.Record, report statistics.Report) {
	if len(records) > t.Width {
		records = records[len(records)-t.Width:]
	}

	// Scale the chart to the worst value on display so a latency spike is
	// always visible in full.
	scale := report.MaxRTT
	for _, record := range records {
		if record.Outcome.RTT > scale {
			scale = record.Outcome.RTT
		}
	}
	if scale <= 0 {
		scale = 1
	}

	var b strings.Builder
	b.WriteString(ansiHome)
	b.WriteString(fmt.Sprintf("ping %v  %.1fms/row\n", report.Target, scale/float64(t.Height)))

	for row := t.Height; row > 0; row-- {
		for _, record := range records {
			b.WriteString(t.cell(record.Outcome, row, scale))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf(
		"probes: %d (%d in flight)  rtt min/avg/max/stddev: %.1f/%.1f/%.1f/%.1f ms\n",
		report.Count, report.InFlight, report.MinRTT, report.MeanRTT, report.MaxRTT, report.StdDevRTT))
	b.WriteString(fmt.Sprintf(
		"jitter: %.1f ms  slow+: %.1f%%  loss: %.1f%%  worst run: %d  elapsed: %v\n",
		report.Jitter, report.SlowOrWorsePct, report.LossPct, report.LongestBadRun,
		report.Elapsed.Duration.Round(100*time.Millisecond)))

	fmt.Fprint(t.Out, b.String())
}

func (t *Terminal) cell(outcome probe.Outcome, row int, scale float64) string {
	height := int(outcome.RTT / scale * float64(t.Height))
	if outcome.Kind == probe.Failed {
		// A definitive failure carries no latency, draw it full height so a
		// dead target is unmissable.
		height = t.Height
	}
	if outcome.RTT > 0 && height == 0 {
		height = 1
	}
	if row > height {
		return " "
	}

	switch outcome.Kind {
	case probe.Success:
		return t.paint(ansiGreen, "█")
	case probe.Slow:
		return t.paint(ansiYellow, "█")
	case probe.Unparseable:
		return t.paint(ansiMagenta, "?")
	case probe.Expired:
		return t.paint(ansiRed, "░")
	default:
		return t.paint(ansiRed, "x")
	}
}

func (t *Terminal) paint(color, glyph string) string {
	if !t.Color {
		return glyph
	}
	return color + glyph + ansiReset
}
