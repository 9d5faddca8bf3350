package session

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thetooth/pinggraph/probe"
)

// Record pairs a probe's sequence number with its classified outcome.
type Record struct {
	Seq     uint64        `json:"seq"`
	Outcome probe.Outcome `json:"outcome"`
}

// Store is the ordered map from sequence number to outcome. Each sequence
// number is written exactly once, by the probe task that owns it; readers
// take a point-in-time copy and never observe a partial entry. Entries are
// never removed or mutated once written.
type Store struct {
	mu       sync.RWMutex
	results  map[uint64]probe.Outcome
	inFlight map[uint64]struct{}
}

func NewStore() *Store {
	return &Store{
		results:  make(map[uint64]probe.Outcome),
		inFlight: make(map[uint64]struct{}),
	}
}

// Dispatch marks seq as in flight.
func (s *Store) Dispatch(seq uint64) {
	s.mu.Lock()
	s.inFlight[seq] = struct{}{}
	s.mu.Unlock()
}

// Record stores the outcome for seq and clears its in-flight mark. A second
// write for the same sequence number indicates a dispatch bug; the first
// write wins.
func (s *Store) Record(seq uint64, outcome probe.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, seq)
	if _, dup := s.results[seq]; dup {
		logrus.Warn("[ DUPLICATE_RESULT ] seq: ", seq)
		return
	}
	s.results[seq] = outcome
}

// Snapshot returns a copy of every completed entry sorted by sequence
// number. Completion order may differ from fire order, the sort is what
// restores presentation order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	records := make([]Record, 0, len(s.results))
	for seq, outcome := range s.results {
		records = append(records, Record{Seq: seq, Outcome: outcome})
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	return records
}

func (s *Store) InFlight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inFlight)
}

func (s *Store) Completed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Dispatched is the total number of sequence numbers handed to probe tasks,
// completed or still in flight.
func (s *Store) Dispatched() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results) + len(s.inFlight)
}
