package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fakePing(t *testing.T, script string) *ExecProber {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fakeping")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}

	p := NewExecProber("any")
	p.command = path
	return p
}

func TestExecProberSuccess(t *testing.T) {
	p := fakePing(t, `echo "64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=12.3 ms"`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res := p.Probe(ctx, "1.1.1.1")
	if res.ExitErr != nil || res.TimedOut {
		t.Fatalf("unexpected result: %+v", res)
	}

	out := Classify(res, 150, 500)
	if out.Kind != Success || out.RTT != 12.3 {
		t.Errorf("got %+v, want success 12.3ms", out)
	}
}

func TestExecProberFailure(t *testing.T) {
	p := fakePing(t, `echo "ping: unknown host" >&2; exit 2`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res := p.Probe(ctx, "no.such.host")
	if res.ExitErr == nil {
		t.Fatal("expected an exit error")
	}

	out := Classify(res, 150, 500)
	if out.Kind != Failed {
		t.Errorf("got %v, want failed", out.Kind)
	}
	if out.Reason != "ping: unknown host" {
		t.Errorf("got reason %q", out.Reason)
	}
}

// A mechanism that never returns must still be cut off at the hard deadline
// plus a small overhead bound.
func TestExecProberDeadline(t *testing.T) {
	// exec so the kill hits the sleeping process itself, an orphaned child
	// would hold the output pipe open past the deadline
	p := fakePing(t, "exec sleep 30")

	deadline := 100 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	start := time.Now()
	res := p.Probe(ctx, "1.1.1.1")
	elapsed := time.Since(start)

	if !res.TimedOut {
		t.Fatalf("expected a timed out result, got %+v", res)
	}
	if elapsed > deadline+500*time.Millisecond {
		t.Errorf("probe returned after %v, deadline was %v", elapsed, deadline)
	}

	out := Classify(res, 150, float64(deadline)/float64(time.Millisecond))
	if out.Kind != Expired {
		t.Errorf("got %v, want expired", out.Kind)
	}
}

func TestExecProberArgs(t *testing.T) {
	p := fakePing(t, `echo "args: $*"`)
	p.Family = "6"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res := p.Probe(ctx, "2606:4700:4700::1111")
	if res.Stdout != "args: -6 -W 1 -c 1 2606:4700:4700::1111\n" {
		t.Errorf("unexpected argument vector: %q", res.Stdout)
	}
}

func TestExecProberArgsWithoutDeadline(t *testing.T) {
	p := fakePing(t, `echo "args: $*"`)

	res := p.Probe(context.Background(), "1.1.1.1")
	if res.Stdout != "args: -c 1 1.1.1.1\n" {
		t.Errorf("unexpected argument vector: %q", res.Stdout)
	}
}
