package stream

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/umicp/internal/compress"
	"github.com/roach88/umicp/internal/envelope"
	"github.com/roach88/umicp/internal/frame"
)

// DefaultChunkSize is the largest raw payload a Splitter puts in one frame.
const DefaultChunkSize = 64 * 1024

// Splitter chunks messages into sequenced Data frames.
type Splitter struct {
	seq       *Sequencer
	chunkSize int
	comp      *compress.Compressor
	minSize   int
}

// SplitOption configures a Splitter.
type SplitOption func(*Splitter)

// WithChunkSize sets the maximum raw bytes per frame. Non-positive values
// are ignored.
func WithChunkSize(n int) SplitOption {
	return func(s *Splitter) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithCompression compresses every chunk of messages of at least minSize
// bytes and marks those frames FlagCompressed.
func WithCompression(c *compress.Compressor, minSize int) SplitOption {
	return func(s *Splitter) {
		s.comp = c
		s.minSize = minSize
	}
}

// NewSplitter creates a Splitter drawing sequence numbers from seq.
func NewSplitter(seq *Sequencer, opts ...SplitOption) *Splitter {
	s := &Splitter{seq: seq, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split returns the frames carrying msg on streamID. The last frame has
// FlagFinal; an empty message is a single empty final frame.
func (s *Splitter) Split(streamID uint32, msg []byte) ([]*frame.Frame, error) {
	compressed := s.comp.Enabled() && len(msg) >= s.minSize

	n := (len(msg) + s.chunkSize - 1) / s.chunkSize
	if n == 0 {
		n = 1
	}

	frames := make([]*frame.Frame, 0, n)
	for i := 0; i < n; i++ {
		lo := i * s.chunkSize
		hi := min(lo+s.chunkSize, len(msg))
		chunk := msg[lo:hi]

		if compressed {
			packed, err := s.comp.Compress(chunk)
			if err != nil {
				return nil, fmt.Errorf("split stream %d chunk %d: %w", streamID, i, err)
			}
			chunk = packed
		}

		f := frame.New().
			SetType(frame.TypeData).
			SetStreamID(streamID).
			SetSequence(s.seq.Next(streamID)).
			SetPayload(chunk).
			SetCompressed(compressed).
			SetFinal(i == n-1)
		frames = append(frames, f)
	}
	return frames, nil
}

// SplitEnvelope validates env and splits its canonical serialization.
func SplitEnvelope(s *Splitter, streamID uint32, env *envelope.Envelope) ([]*frame.Frame, error) {
	if err := env.Check(); err != nil {
		return nil, err
	}
	data, err := env.Serialize()
	if err != nil {
		return nil, err
	}
	return s.Split(streamID, data)
}

// Assembler rebuilds messages from an in-order frame feed, typically the
// Delivered frames of a Receiver.
//
// Thread-safety: Assembler is safe for concurrent use via internal mutex.
type Assembler struct {
	mu         sync.Mutex
	comp       *compress.Compressor
	maxMessage int
	log        *slog.Logger
	parts      map[uint32][]byte
}

// AssembleOption configures an Assembler.
type AssembleOption func(*Assembler)

// WithMaxMessage bounds the size of one assembled message.
func WithMaxMessage(n int) AssembleOption {
	return func(a *Assembler) { a.maxMessage = n }
}

// WithLogger sets the assembler's logger.
func WithLogger(l *slog.Logger) AssembleOption {
	return func(a *Assembler) { a.log = l }
}

// NewAssembler creates an Assembler. comp decompresses FlagCompressed frames
// and may be nil when no peer compresses.
func NewAssembler(comp *compress.Compressor, opts ...AssembleOption) *Assembler {
	a := &Assembler{
		comp:       comp,
		maxMessage: compress.DefaultMaxOutput,
		log:        slog.New(slog.DiscardHandler),
		parts:      make(map[uint32][]byte),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Push appends f's payload to its stream's partial message. When f is final
// the whole message is returned with done=true and the stream is cleared.
// Non-data frames are ignored. On error the partial message is discarded.
func (a *Assembler) Push(f *frame.Frame) (msg []byte, done bool, err error) {
	if f.Type != frame.TypeData {
		return nil, false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	chunk := f.Payload
	if f.IsCompressed() {
		if !a.comp.Enabled() {
			delete(a.parts, f.StreamID)
			return nil, false, ErrNoCompressor
		}
		if chunk, err = a.comp.Decompress(chunk); err != nil {
			delete(a.parts, f.StreamID)
			return nil, false, fmt.Errorf("assemble stream %d seq %d: %w", f.StreamID, f.Sequence, err)
		}
	}

	buf := append(a.parts[f.StreamID], chunk...)
	if len(buf) > a.maxMessage {
		delete(a.parts, f.StreamID)
		return nil, false, fmt.Errorf("%w: stream %d exceeds %d bytes", ErrMessageTooLarge, f.StreamID, a.maxMessage)
	}

	if !f.IsFinal() {
		a.parts[f.StreamID] = buf
		return nil, false, nil
	}

	delete(a.parts, f.StreamID)
	a.log.Debug("message assembled",
		"stream_id", f.StreamID,
		"seq", f.Sequence,
		"bytes", len(buf),
	)
	if buf == nil {
		buf = []byte{}
	}
	return buf, true, nil
}

// Partial reports how many bytes are waiting on streamID.
func (a *Assembler) Partial(streamID uint32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.parts[streamID])
}

// AssembleEnvelope pushes f and, once a message completes, decodes it as an
// envelope.
func AssembleEnvelope(a *Assembler, f *frame.Frame) (*envelope.Envelope, bool, error) {
	msg, done, err := a.Push(f)
	if err != nil || !done {
		return nil, false, err
	}
	env, err := envelope.Deserialize(msg)
	if err != nil {
		return nil, false, err
	}
	return env, true, nil
}
