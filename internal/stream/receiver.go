package stream

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/umicp/internal/frame"
)

// Policy decides what a Receiver does with a frame ahead of the next
// expected sequence.
type Policy int

const (
	// PolicyBuffer holds early frames until the gap fills.
	PolicyBuffer Policy = iota

	// PolicyReject refuses early frames with *OutOfOrderError.
	PolicyReject

	// PolicySkip delivers early frames and reports the skipped range as lost.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyBuffer:
		return "buffer"
	case PolicyReject:
		return "reject"
	case PolicySkip:
		return "skip"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts "buffer", "reject", or "skip". Empty means buffer.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "buffer":
		return PolicyBuffer, nil
	case "reject":
		return PolicyReject, nil
	case "skip":
		return PolicySkip, nil
	default:
		return 0, fmt.Errorf("unknown stream policy %q", s)
	}
}

// Verdict is the outcome of Receiver.Accept.
type Verdict int

const (
	VerdictDelivered Verdict = iota
	VerdictDuplicate
	VerdictBuffered
	VerdictRejected
)

func (v Verdict) String() string {
	switch v {
	case VerdictDelivered:
		return "delivered"
	case VerdictDuplicate:
		return "duplicate"
	case VerdictBuffered:
		return "buffered"
	case VerdictRejected:
		return "rejected"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Gap is an inclusive range of sequence numbers not yet seen.
type Gap struct {
	From uint64
	To   uint64
}

// Len returns the number of sequences in the gap.
func (g Gap) Len() uint64 { return g.To - g.From + 1 }

// Result describes what Accept did with one frame.
type Result struct {
	Verdict Verdict

	// Delivered holds the frames released to the consumer, in sequence
	// order: the accepted frame plus any buffered frames it unblocked.
	Delivered []*frame.Frame

	// Missing holds ranges still outstanding (PolicyBuffer) or given up as
	// lost (PolicySkip).
	Missing []Gap
}

const (
	DefaultMaxBuffered   = 64
	DefaultFirstSequence = 1
)

// Config configures a Receiver. Zero fields take defaults.
type Config struct {
	Policy        Policy
	MaxBuffered   int
	FirstSequence uint64
	Logger        *slog.Logger
}

type streamState struct {
	next      uint64
	pending   map[uint64]*frame.Frame
	exhausted bool
}

// Receiver tracks the next expected sequence for every stream it has seen.
//
// Frames passed to Accept are retained (buffered or delivered) by pointer;
// callers must not modify them afterwards.
//
// Thread-safety: Receiver is safe for concurrent use via internal mutex.
type Receiver struct {
	mu      sync.Mutex
	cfg     Config
	log     *slog.Logger
	streams map[uint32]*streamState
}

// NewReceiver creates a Receiver.
func NewReceiver(cfg Config) *Receiver {
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = DefaultMaxBuffered
	}
	if cfg.FirstSequence == 0 {
		cfg.FirstSequence = DefaultFirstSequence
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Receiver{
		cfg:     cfg,
		log:     log,
		streams: make(map[uint32]*streamState),
	}
}

func (r *Receiver) state(streamID uint32) *streamState {
	st, ok := r.streams[streamID]
	if !ok {
		st = &streamState{next: r.cfg.FirstSequence, pending: make(map[uint64]*frame.Frame)}
		r.streams[streamID] = st
	}
	return st
}

// Accept applies the ordering discipline to f.
//
// A frame below the next expected sequence, or one already buffered, is a
// duplicate and is ignored. The expected frame is delivered together with
// any contiguous buffered successors. A frame further ahead is handled by
// the configured Policy. Errors are returned only for VerdictRejected.
func (r *Receiver) Accept(f *frame.Frame) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state(f.StreamID)
	seq := f.Sequence

	if st.exhausted {
		return Result{Verdict: VerdictRejected}, fmt.Errorf("%w: stream %d, sequence %d", ErrStreamExhausted, f.StreamID, seq)
	}
	if seq < st.next || st.pending[seq] != nil {
		r.log.Debug("duplicate frame ignored",
			"stream_id", f.StreamID,
			"seq", seq,
			"next", st.next,
		)
		return Result{Verdict: VerdictDuplicate}, nil
	}

	if seq == st.next {
		return Result{Verdict: VerdictDelivered, Delivered: r.deliver(st, f)}, nil
	}

	switch r.cfg.Policy {
	case PolicyReject:
		r.log.Debug("out of order frame rejected",
			"stream_id", f.StreamID,
			"seq", seq,
			"next", st.next,
		)
		return Result{Verdict: VerdictRejected}, &OutOfOrderError{StreamID: f.StreamID, Expected: st.next, Got: seq}

	case PolicySkip:
		lost := Gap{From: st.next, To: seq - 1}
		r.log.Debug("skipping lost frames",
			"stream_id", f.StreamID,
			"from", lost.From,
			"to", lost.To,
		)
		for s := range st.pending {
			if s < seq {
				delete(st.pending, s)
			}
		}
		st.next = seq
		return Result{Verdict: VerdictDelivered, Delivered: r.deliver(st, f), Missing: []Gap{lost}}, nil

	default:
		if len(st.pending) >= r.cfg.MaxBuffered {
			return Result{Verdict: VerdictRejected}, fmt.Errorf("%w: stream %d holds %d frames", ErrBufferFull, f.StreamID, len(st.pending))
		}
		st.pending[seq] = f
		gaps := gapsOf(st)
		r.log.Debug("frame buffered",
			"stream_id", f.StreamID,
			"seq", seq,
			"next", st.next,
			"gaps", len(gaps),
		)
		return Result{Verdict: VerdictBuffered, Missing: gaps}, nil
	}
}

// deliver releases f (which must be st.next) and drains contiguous
// buffered frames behind it. Delivering sequence MaxUint64 exhausts the
// stream, since next cannot advance past it.
func (r *Receiver) deliver(st *streamState, f *frame.Frame) []*frame.Frame {
	out := []*frame.Frame{f}
	for {
		last := out[len(out)-1].Sequence
		if last == math.MaxUint64 {
			st.next = last
			st.exhausted = true
			return out
		}
		st.next = last + 1
		nf, ok := st.pending[st.next]
		if !ok {
			return out
		}
		delete(st.pending, st.next)
		out = append(out, nf)
	}
}

func gapsOf(st *streamState) []Gap {
	if len(st.pending) == 0 {
		return nil
	}
	seqs := make([]uint64, 0, len(st.pending))
	for s := range st.pending {
		seqs = append(seqs, s)
	}
	slices.Sort(seqs)

	var gaps []Gap
	cursor := st.next
	for _, s := range seqs {
		if s > cursor {
			gaps = append(gaps, Gap{From: cursor, To: s - 1})
		}
		cursor = s + 1
	}
	return gaps
}

// Gaps returns the ranges missing below the highest buffered frame.
func (r *Receiver) Gaps(streamID uint32) []Gap {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.streams[streamID]
	if !ok {
		return nil
	}
	return gapsOf(st)
}

// Pending returns how many frames are buffered for streamID.
func (r *Receiver) Pending(streamID uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.streams[streamID]; ok {
		return len(st.pending)
	}
	return 0
}

// Cursor returns the next expected sequence for streamID.
// ok is false for a stream that has not been seen or resumed.
func (r *Receiver) Cursor(streamID uint32) (next uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.streams[streamID]; ok {
		return st.next, true
	}
	return 0, false
}

// Cursors returns the next expected sequence for every known stream.
func (r *Receiver) Cursors() map[uint32]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint32]uint64, len(r.streams))
	for id, st := range r.streams {
		out[id] = st.next
	}
	return out
}

// Resume sets the next expected sequence for streamID, typically from a
// persisted cursor. Buffered frames below next are dropped.
func (r *Receiver) Resume(streamID uint32, next uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(streamID)
	st.next = next
	st.exhausted = false
	for s := range st.pending {
		if s < next {
			delete(st.pending, s)
		}
	}
}

// Reset forgets streamID entirely.
func (r *Receiver) Reset(streamID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, streamID)
}
