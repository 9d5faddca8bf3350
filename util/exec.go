package util

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Exec runs a command under ctx, returning its output and whether it was
// killed because the context expired. The child never outlives the call.
func Exec(ctx context.Context, command string, args string) (stdout, stderr string, timedOut bool, err error) {
	logrus.Tracef("EXEC: %v %v", command, args)

	cmd := exec.CommandContext(ctx, command, strings.Split(args, " ")...)
	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	err = cmd.Run()
	stdout = outb.String()
	stderr = errb.String()
	timedOut = ctx.Err() == context.DeadlineExceeded

	return
}
