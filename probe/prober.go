package probe

import (
	"context"
	"errors"
	"net"
)

// Prober issues a single echo request against target. The context passed to
// Probe carries the hard deadline; implementations must return within that
// deadline plus a small fixed overhead regardless of how the underlying
// mechanism behaves, and must not leak a process or socket past the call.
// Probe itself never fails, failure is a Result for Classify to interpret.
type Prober interface {
	Probe(ctx context.Context, target string) Result
}

// Resolve turns a host name or address literal into an IP address, honouring
// the requested family: "any", "4" or "6". Resolution failure is a fatal
// startup error for the caller.
func Resolve(target, family string) (*net.IPAddr, error) {
	if target == "" {
		return nil, errors.New("target cannot be empty")
	}

	network := "ip"
	switch family {
	case "4":
		network = "ip4"
	case "6":
		network = "ip6"
	}

	return net.ResolveIPAddr(network, target)
}
