package session

import (
	"context"
	"time"
)

// Scheduler maintains the fixed-cadence firing schedule. The next fire time
// advances by exactly one interval per dispatched probe, so a stalled control
// loop is caught up with a burst on resumption and the long-run rate stays at
// one probe per interval. It never waits on probe completion.
type Scheduler struct {
	interval   time.Duration
	resolution time.Duration
	now        func() time.Time

	next time.Time
	seq  uint64
}

type SchedulerOption func(*Scheduler)

// WithResolution sets how often the run loop polls the schedule.
func WithResolution(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.resolution = d
		}
	}
}

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(interval time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		interval:   interval,
		resolution: 10 * time.Millisecond,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolution > s.interval {
		s.resolution = s.interval
	}
	return s
}

// Tick returns the sequence numbers of every probe due at now. The first
// call fires sequence 1 immediately.
func (s *Scheduler) Tick(now time.Time) (due []uint64) {
	if s.next.IsZero() {
		s.next = now
	}

	for !now.Before(s.next) {
		s.seq++
		due = append(due, s.seq)
		s.next = s.next.Add(s.interval)
	}

	return
}

// Run polls the schedule until ctx is cancelled, handing each due sequence
// number to dispatch. Once cancelled no further sequence number is ever
// produced.
func (s *Scheduler) Run(ctx context.Context, dispatch func(seq uint64)) {
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for _, seq := range s.Tick(s.now()) {
		dispatch(seq)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, seq := range s.Tick(s.now()) {
				dispatch(seq)
			}
		}
	}
}
