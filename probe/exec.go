package probe

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/thetooth/pinggraph/util"
)

// ExecProber shells out to the system ping utility, one echo request per
// call. The deadline is enforced twice over: passed to the utility as its
// own reply timeout, and if a wedged utility ignores that, the hard deadline
// on ctx kills the child so an Expired outcome still lands on time.
type ExecProber struct {
	// Family is "any", "4" or "6"; anything but "any" is passed through to
	// the utility.
	Family string

	// command overrides the binary for tests.
	command string
}

func NewExecProber(family string) *ExecProber {
	return &ExecProber{Family: family, command: "ping"}
}

func (p *ExecProber) Probe(ctx context.Context, target string) Result {
	args := ""
	switch p.Family {
	case "4":
		args = "-4 "
	case "6":
		args = "-6 "
	}
	if deadline, ok := ctx.Deadline(); ok {
		// ping -W takes whole seconds, round up so the utility never gives
		// up before the hard deadline does
		secs := int(math.Ceil(time.Until(deadline).Seconds()))
		if secs < 1 {
			secs = 1
		}
		args += fmt.Sprintf("-W %d ", secs)
	}
	args += fmt.Sprintf("-c 1 %v", target)

	stdout, stderr, timedOut, err := util.Exec(ctx, p.command, args)

	return Result{
		ExitErr:  err,
		Stdout:   stdout,
		Stderr:   stderr,
		TimedOut: timedOut,
	}
}
