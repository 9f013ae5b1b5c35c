package gesture

import (
	"time"

	"github.com/ayusman/punchalert/internal/syncx"
)

// HistoryLen is the number of recent probabilities kept for the confidence graph.
const HistoryLen = 20

// Snapshot is a point-in-time copy of the shared gesture state.
type Snapshot struct {
	Label       Label     `json:"label"`
	Probability float64   `json:"probability"`
	Seq         uint64    `json:"seq"`
	UpdatedAt   time.Time `json:"updated_at"`
	History     []float64 `json:"history"`
	Committed   uint64    `json:"committed"`
	Discarded   uint64    `json:"discarded"`
}

type state struct {
	label       Label
	probability float64
	seq         uint64
	updatedAt   time.Time
	history     [HistoryLen]float64
	committed   uint64
	discarded   uint64
}

// State holds the current label, written by classification tasks and read by the frame loop.
//
// By default the last verdict to complete wins, whatever its window order. With ordered
// set, a verdict is only committed if its sequence number is higher than any committed so far.
type State struct {
	guard   *syncx.RWGuard[state]
	ordered bool
}

// NewState creates a State starting at Neutral.
func NewState(ordered bool) *State {
	return &State{
		guard:   syncx.NewGuard(state{label: Neutral}),
		ordered: ordered,
	}
}

// Label returns the current label.
func (s *State) Label() Label {
	var l Label
	s.guard.Read(func(st state) { l = st.label })
	return l
}

// Commit records v and reports whether it became the visible verdict.
func (s *State) Commit(v Verdict) bool {
	return s.guard.CompareAndUpdate(func(st *state) bool {
		if s.ordered && v.Seq <= st.seq {
			st.discarded++
			return false
		}

		st.label = v.Label
		st.probability = v.Probability
		st.seq = max(st.seq, v.Seq)
		st.updatedAt = v.At
		if st.updatedAt.IsZero() {
			st.updatedAt = time.Now()
		}
		copy(st.history[:], st.history[1:])
		st.history[HistoryLen-1] = v.Probability
		st.committed++
		return true
	})
}

// Reset returns the state to Neutral with an empty history.
func (s *State) Reset() {
	s.guard.Set(state{label: Neutral})
}

// Snapshot returns a copy of the state.
func (s *State) Snapshot() Snapshot {
	var snap Snapshot
	s.guard.Read(func(st state) {
		snap = Snapshot{
			Label:       st.label,
			Probability: st.probability,
			Seq:         st.seq,
			UpdatedAt:   st.updatedAt,
			History:     append([]float64(nil), st.history[:]...),
			Committed:   st.committed,
			Discarded:   st.discarded,
		}
	})
	return snap
}
