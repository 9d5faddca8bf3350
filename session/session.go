package session

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/thetooth/pinggraph/probe"
)

// State is the session lifecycle. There is no transition back to Running.
type State int32

const (
	Running State = iota
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// stopGrace is how long past the hard deadline Stop waits for in-flight
// probes before abandoning them.
const stopGrace = 100 * time.Millisecond

// Session owns the result store, the scheduler and the probe dispatch for
// one target. All shared mutable state lives here, nothing is process-wide.
type Session struct {
	Target string

	store    *Store
	sched    *Scheduler
	prober   probe.Prober
	deadline time.Duration

	// thresholdBits holds math.Float64bits of the classification threshold
	// in milliseconds, retunable mid-session.
	thresholdBits uint64

	// sem caps concurrently running probe tasks so a slow mechanism cannot
	// accumulate goroutines without bound.
	sem      chan struct{}
	tasks    sync.WaitGroup
	state    int32
	quit     chan struct{}
	quitOnce sync.Once
	stopped  chan struct{}
	// startedNano is the UnixNano instant Run began, atomic because the
	// render loop reads Elapsed while the Run goroutine owns the write.
	startedNano int64
}

type Option func(*Session)

// WithMaxInFlight overrides the concurrent probe cap.
func WithMaxInFlight(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

func WithSchedulerOptions(opts ...SchedulerOption) Option {
	return func(s *Session) {
		for _, opt := range opts {
			opt(s.sched)
		}
	}
}

// New builds a session probing target through prober. interval is the firing
// cadence, thresholdMs the Slow classification bound and deadline the hard
// per-probe deadline.
func New(target string, prober probe.Prober, interval time.Duration, thresholdMs float64, deadline time.Duration, opts ...Option) *Session {
	// Worst case holds deadline/interval probes in flight at once, doubled
	// for scheduling slop.
	maxInFlight := 2 * int((deadline+interval-1)/interval)
	if maxInFlight < 16 {
		maxInFlight = 16
	}

	s := &Session{
		Target:   target,
		store:    NewStore(),
		sched:    NewScheduler(interval),
		prober:   prober,
		deadline: deadline,
		sem:      make(chan struct{}, maxInFlight),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	s.SetThreshold(thresholdMs)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Store() *Store { return s.store }

func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Session) Elapsed() time.Duration {
	ns := atomic.LoadInt64(&s.startedNano)
	if ns == 0 {
		return 0
	}
	return time.Since(time.Unix(0, ns))
}

// SetThreshold retunes the Slow classification bound, in milliseconds, for
// probes classified from here on. Already recorded outcomes are not revised.
func (s *Session) SetThreshold(ms float64) {
	atomic.StoreUint64(&s.thresholdBits, math.Float64bits(ms))
}

func (s *Session) threshold() float64 {
	return math.Float64frombits(atomic.LoadUint64(&s.thresholdBits))
}

// Run fires probes until Stop is called or ctx is cancelled, then drains
// in-flight probes for at most the hard deadline plus a grace period and
// reports Stopped. Per-probe failures never end the run.
func (s *Session) Run(ctx context.Context) error {
	schedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	atomic.StoreInt64(&s.startedNano, time.Now().UnixNano())

	var g errgroup.Group
	g.Go(func() error {
		s.sched.Run(schedCtx, s.dispatch)
		return nil
	})
	g.Go(func() error {
		select {
		case <-s.quit:
			cancel()
		case <-schedCtx.Done():
		}
		return nil
	})

	err := g.Wait()

	atomic.StoreInt32(&s.state, int32(Stopping))
	logrus.Info("[ SESSION_STOP ] draining ", s.store.InFlight(), " in-flight probes")
	s.drain()
	atomic.StoreInt32(&s.state, int32(Stopped))
	close(s.stopped)

	return err
}

// Stop ceases dispatch immediately. In-flight probes run to their own
// deadline, they are never forcibly joined. Safe to call more than once.
func (s *Session) Stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Done is closed once the session has reached Stopped.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}

func (s *Session) drain() {
	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.deadline + stopGrace):
		logrus.Warn("[ SESSION_STOP ] abandoning ", s.store.InFlight(), " probes past grace period")
	}
}

// dispatch launches the probe task for one sequence number, fire and forget.
// The task's only side effect is a single write into the store.
func (s *Session) dispatch(seq uint64) {
	select {
	case s.sem <- struct{}{}:
	default:
		// The mechanism is slower than the dispatch rate and the cap is
		// exhausted; record the loss and keep the schedule moving.
		s.store.Record(seq, probe.NewFailure("probe capacity exhausted"))
		logrus.Debug("[ PROBE_DROP ] seq: ", seq)
		return
	}

	s.store.Dispatch(seq)
	s.tasks.Add(1)

	go func() {
		defer s.tasks.Done()
		defer func() { <-s.sem }()

		// Not derived from the run context: in-flight probes survive
		// shutdown and are bounded by their own deadline instead.
		ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
		defer cancel()

		res := s.prober.Probe(ctx, s.Target)
		outcome := probe.Classify(res, s.threshold(), float64(s.deadline)/float64(time.Millisecond))
		if outcome.Kind != probe.Success {
			logrus.Debugf("[ PROBE_%s ] seq: %d %s", strings.ToUpper(outcome.Kind.String()), seq, outcome.Reason)
		}
		s.store.Record(seq, outcome)
	}()
}
