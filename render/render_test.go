package render_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thetooth/pinggraph/config"
	"github.com/thetooth/pinggraph/probe"
	"github.com/thetooth/pinggraph/render"
	"github.com/thetooth/pinggraph/session"
	"github.com/thetooth/pinggraph/statistics"
)

func sampleRecords() []session.Record {
	return []session.Record{
		{Seq: 1, Outcome: probe.Outcome{Kind: probe.Success, RTT: 10}},
		{Seq: 2, Outcome: probe.Outcome{Kind: probe.Slow, RTT: 200}},
		{Seq: 3, Outcome: probe.Outcome{Kind: probe.Expired, RTT: 500}},
		{Seq: 4, Outcome: probe.Outcome{Kind: probe.Failed, Reason: "unreachable"}},
	}
}

func TestTerminalRender(t *testing.T) {
	records := sampleRecords()
	report := statistics.Build(records, 1, 2*time.Second, "example.net")

	var buf bytes.Buffer
	term := render.NewTerminal(&buf)
	term.Color = false
	term.Render(records, report)

	out := buf.String()
	if !strings.Contains(out, "ping example.net") {
		t.Error("missing chart header")
	}
	if !strings.Contains(out, "probes: 4 (1 in flight)") {
		t.Error("missing probe count in footer")
	}
	if !strings.Contains(out, "loss: 50.0%") {
		t.Errorf("missing loss figure in footer: %v", out)
	}
	// One glyph column per record on the bottom row, every outcome visible
	for _, glyph := range []string{"█", "░", "x"} {
		if !strings.Contains(out, glyph) {
			t.Errorf("glyph %q not drawn", glyph)
		}
	}
}

func TestTerminalTruncatesToWidth(t *testing.T) {
	records := make([]session.Record, 100)
	for i := range records {
		records[i] = session.Record{Seq: uint64(i + 1), Outcome: probe.Outcome{Kind: probe.Success, RTT: 10}}
	}
	report := statistics.Build(records, 0, time.Second, "example.net")

	var buf bytes.Buffer
	term := render.NewTerminal(&buf)
	term.Color = false
	term.Width = 10
	term.Render(records, report)

	lines := strings.Split(buf.String(), "\n")
	// line 0 is the header, line height is the bottom chart row
	bottom := lines[term.Height]
	if len([]rune(bottom)) != 10 {
		t.Errorf("bottom row has %d columns, want 10", len([]rune(bottom)))
	}
}

func TestStatSink(t *testing.T) {
	records := sampleRecords()
	report := statistics.Build(records, 0, time.Second, "example.net")

	path := filepath.Join(t.TempDir(), "stats")
	sink := render.NewStatSink(path)
	sink.Render(records, report)

	data, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var decoded statistics.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Target != "example.net" || decoded.Count != 4 {
		t.Errorf("decoded report does not match: %+v", decoded)
	}
	if decoded.Elapsed != (config.Interval{Duration: time.Second}) {
		t.Errorf("elapsed did not round trip: %v", decoded.Elapsed)
	}
}
