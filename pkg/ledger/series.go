package ledger

import (
	"sort"

	"github.com/iotaledger/hive.go/ierrors"

	"github.com/aboutcircles/circles-engine/pkg/model"
)

// ErrTemporalOrder is returned when a write lands strictly before the latest
// entry of a series.
var ErrTemporalOrder = ierrors.New("write precedes the latest entry")

// Series is an append only time series. Writes must not precede the latest
// entry; a write at exactly the latest time replaces it.
type Series[V any] struct {
	entries []seriesEntry[V]
}

type seriesEntry[V any] struct {
	time  model.Tick
	value V
}

// NewSeries creates an empty Series.
func NewSeries[V any]() *Series[V] {
	return &Series[V]{}
}

// Append writes a value at time t.
func (s *Series[V]) Append(t model.Tick, value V) error {
	if latest, _, exists := s.Latest(); exists {
		if t < latest {
			return ierrors.Wrapf(ErrTemporalOrder, "write at %d precedes the latest entry at %d", t, latest)
		}
		if t == latest {
			s.entries[len(s.entries)-1].value = value

			return nil
		}
	}
	s.entries = append(s.entries, seriesEntry[V]{time: t, value: value})

	return nil
}

// Latest returns the most recent entry.
func (s *Series[V]) Latest() (t model.Tick, value V, exists bool) {
	if len(s.entries) == 0 {
		return 0, value, false
	}
	last := s.entries[len(s.entries)-1]

	return last.time, last.value, true
}

// At returns the value written exactly at time t.
func (s *Series[V]) At(t model.Tick) (value V, exists bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].time >= t
	})
	if i < len(s.entries) && s.entries[i].time == t {
		return s.entries[i].value, true
	}

	return value, false
}

// Len returns the number of entries.
func (s *Series[V]) Len() int {
	return len(s.entries)
}

// ForEach visits the entries in ascending time order until the callback
// returns false.
func (s *Series[V]) ForEach(callback func(t model.Tick, value V) bool) {
	for _, entry := range s.entries {
		if !callback(entry.time, entry.value) {
			return
		}
	}
}

// Times returns the entry times in ascending order.
func (s *Series[V]) Times() []model.Tick {
	times := make([]model.Tick, len(s.entries))
	for i, entry := range s.entries {
		times[i] = entry.time
	}

	return times
}
