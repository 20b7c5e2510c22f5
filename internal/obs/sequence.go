package obs

import "sync/atomic"

// Sequence issues monotonically increasing IDs starting at 1. Each
// strategy instance owns one for its order IDs; atomic so a future
// multi-threaded strategy stays correct.
type Sequence struct {
	next uint64
}

// NewSequence returns a sequence whose first Next call yields 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next ID.
func (s *Sequence) Next() uint64 {
	if s == nil {
		return 0
	}
	return atomic.AddUint64(&s.next, 1)
}

// Last returns the most recently issued ID, 0 if none.
func (s *Sequence) Last() uint64 {
	if s == nil {
		return 0
	}
	return atomic.LoadUint64(&s.next)
}
