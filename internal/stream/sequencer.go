package stream

import (
	"sync"
	"sync/atomic"
)

// Sequencer issues per-stream sequence numbers starting at 1.
//
// Thread-safety: Sequencer is safe for concurrent use. Each stream is an
// atomic counter, so Next calls are linearizable per stream.
type Sequencer struct {
	mu      sync.RWMutex
	streams map[uint32]*atomic.Uint64
}

// NewSequencer creates a sequencer with no streams.
func NewSequencer() *Sequencer {
	return &Sequencer{streams: make(map[uint32]*atomic.Uint64)}
}

// NewSequencerAt resumes from persisted cursors. Each value is the next
// sequence to issue on that stream; a value of 0 or 1 starts fresh.
func NewSequencerAt(next map[uint32]uint64) *Sequencer {
	s := NewSequencer()
	for id, n := range next {
		c := &atomic.Uint64{}
		if n > 0 {
			c.Store(n - 1)
		}
		s.streams[id] = c
	}
	return s
}

func (s *Sequencer) counter(streamID uint32) *atomic.Uint64 {
	s.mu.RLock()
	c, ok := s.streams[streamID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.streams[streamID]; !ok {
		c = &atomic.Uint64{}
		s.streams[streamID] = c
	}
	return c
}

// Next returns the next sequence number for streamID.
func (s *Sequencer) Next(streamID uint32) uint64 {
	return s.counter(streamID).Add(1)
}

// Current returns the last issued sequence for streamID, 0 if none.
func (s *Sequencer) Current(streamID uint32) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.streams[streamID]; ok {
		return c.Load()
	}
	return 0
}

// Cursors returns the next sequence to issue for every known stream,
// in the form NewSequencerAt accepts.
func (s *Sequencer) Cursors() map[uint32]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint32]uint64, len(s.streams))
	for id, c := range s.streams {
		out[id] = c.Load() + 1
	}
	return out
}
