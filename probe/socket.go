package probe

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/thetooth/pinggraph/util"
)

const (
	timeSliceLength  = 8
	trackerLength    = len(uuid.UUID{})
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

var (
	ipv4Proto = map[string]string{"icmp": "ip4:icmp", "udp": "udp4"}
	ipv6Proto = map[string]string{"icmp": "ip6:ipv6-icmp", "udp": "udp6"}
)

// SocketProber sends one ICMP echo request per call over its own socket and
// waits for the matching reply until the deadline on ctx. Replies are matched
// on the echo ID, the sequence number and a per-prober UUID baked into the
// payload, so stray traffic on the shared ICMP namespace is ignored.
//
// The result is expressed as the canonical reply line so classification is
// identical regardless of which prober produced it.
type SocketProber struct {
	// Privileged selects raw ICMP sockets over unprivileged UDP ping.
	Privileged bool

	id      int
	tracker uuid.UUID

	mu  sync.Mutex
	seq int
}

func NewSocketProber(privileged bool) *SocketProber {
	r := rand.New(rand.NewSource(getSeed()))
	return &SocketProber{
		Privileged: privileged,
		id:         r.Intn(65535),
		tracker:    uuid.New(),
	}
}

func (p *SocketProber) nextSeq() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	if p.seq > 65535 {
		p.seq = 1
	}
	return p.seq
}

func (p *SocketProber) Probe(ctx context.Context, target string) Result {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Second)
	}

	ipv6Target := util.IsIPv6(target)
	proto := "udp"
	if p.Privileged {
		proto = "icmp"
	}

	network := ipv4Proto[proto]
	if ipv6Target {
		network = ipv6Proto[proto]
	}

	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return Result{ExitErr: err, Stderr: err.Error()}
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return Result{ExitErr: err, Stderr: err.Error()}
	}

	seq := p.nextSeq()
	sentAt := time.Now()
	if err := p.send(conn, target, seq, sentAt, ipv6Target); err != nil {
		return Result{ExitErr: err, Stderr: err.Error()}
	}

	return p.await(conn, seq, ipv6Target)
}

func (p *SocketProber) send(conn *icmp.PacketConn, target string, seq int, sentAt time.Time, ipv6Target bool) error {
	trackerBytes, err := p.tracker.MarshalBinary()
	if err != nil {
		return fmt.Errorf("unable to marshal UUID binary: %w", err)
	}
	payload := append(timeToBytes(sentAt), trackerBytes...)

	var typ icmp.Type = ipv4.ICMPTypeEcho
	if ipv6Target {
		typ = ipv6.ICMPTypeEchoRequest
	}

	msg := &icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: payload,
		},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	var dst net.Addr = &net.IPAddr{IP: net.ParseIP(target)}
	if !p.Privileged {
		dst = &net.UDPAddr{IP: net.ParseIP(target)}
	}

	_, err = conn.WriteTo(msgBytes, dst)
	return err
}

// await reads replies off the socket until one belongs to this request or
// the read deadline trips.
func (p *SocketProber) await(conn *icmp.PacketConn, seq int, ipv6Target bool) Result {
	proto := protocolICMP
	if ipv6Target {
		proto = protocolIPv6ICMP
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if neterr, ok := err.(*net.OpError); ok && neterr.Timeout() {
				return Result{TimedOut: true}
			}
			return Result{ExitErr: err, Stderr: err.Error()}
		}
		receivedAt := time.Now()

		msg, err := icmp.ParseMessage(proto, buf[:n])
		if err != nil {
			continue
		}
		if msg.Type != ipv4.ICMPTypeEchoReply && msg.Type != ipv6.ICMPTypeEchoReply {
			continue
		}

		echo, ok := msg.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		// Unprivileged sockets rewrite the echo ID so it can only be
		// checked on raw sockets.
		if p.Privileged && echo.ID != p.id {
			continue
		}
		if len(echo.Data) < timeSliceLength+trackerLength || !p.matchTracker(echo.Data) {
			continue
		}

		rtt := receivedAt.Sub(bytesToTime(echo.Data[:timeSliceLength]))
		stdout := fmt.Sprintf("%d bytes from %v: icmp_seq=%d time=%.3f ms",
			n, peer, seq, float64(rtt)/float64(time.Millisecond))
		return Result{Stdout: stdout}
	}
}

func (p *SocketProber) matchTracker(data []byte) bool {
	var replyUUID uuid.UUID
	if err := replyUUID.UnmarshalBinary(data[timeSliceLength : timeSliceLength+trackerLength]); err != nil {
		return false
	}
	return replyUUID == p.tracker
}

func bytesToTime(b []byte) time.Time {
	var nsec int64
	for i := uint8(0); i < 8; i++ {
		nsec += int64(b[i]) << ((7 - i) * 8)
	}
	return time.Unix(nsec/1000000000, nsec%1000000000)
}

func timeToBytes(t time.Time) []byte {
	nsec := t.UnixNano()
	b := make([]byte, 8)
	for i := uint8(0); i < 8; i++ {
		b[i] = byte((nsec >> ((7 - i) * 8)) & 0xff)
	}
	return b
}

var seed int64 = time.Now().UnixNano()

// getSeed returns a goroutine-safe unique seed
func getSeed() int64 {
	return atomic.AddInt64(&seed, 1)
}
