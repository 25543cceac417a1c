// Package compress compresses frame payloads with gzip or raw deflate.
//
// A Compressor is immutable after construction and safe for concurrent use.
// Empty input passes through unchanged in both directions.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// ErrCompression wraps every compression and decompression failure.
var ErrCompression = errors.New("compress: failed")

// Algorithm selects the codec.
type Algorithm string

const (
	None    Algorithm = "none"
	Gzip    Algorithm = "gzip"
	Deflate Algorithm = "deflate"
)

// DefaultLevel is used when no level is given.
const DefaultLevel = 6

// DefaultMaxOutput bounds Decompress output.
const DefaultMaxOutput = 64 * 1024 * 1024

// ParseAlgorithm accepts "none", "gzip", or "deflate", case-insensitive.
// An empty string means None.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return None, nil
	case None, Gzip, Deflate:
		return a, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm %q", s)
	}
}

// Compressor applies one algorithm at one level.
type Compressor struct {
	alg       Algorithm
	level     int
	maxOutput int64
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithMaxOutput bounds the size Decompress will produce.
func WithMaxOutput(n int64) Option {
	return func(c *Compressor) { c.maxOutput = n }
}

// New returns a Compressor for alg. level is clamped to 1..9.
func New(alg Algorithm, level int, opts ...Option) (*Compressor, error) {
	if _, err := ParseAlgorithm(string(alg)); err != nil {
		return nil, err
	}
	if alg == "" {
		alg = None
	}
	c := &Compressor{
		alg:       alg,
		level:     max(1, min(9, level)),
		maxOutput: DefaultMaxOutput,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Algorithm returns the configured algorithm.
func (c *Compressor) Algorithm() Algorithm { return c.alg }

// Level returns the clamped compression level.
func (c *Compressor) Level() int { return c.level }

// Enabled reports whether the compressor changes its input.
func (c *Compressor) Enabled() bool { return c != nil && c.alg != None }

// Compress returns data encoded with the configured algorithm.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 || !c.Enabled() {
		return data, nil
	}

	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c.alg {
	case Gzip:
		w, err = gzip.NewWriterLevel(&buf, c.level)
	case Deflate:
		w, err = flate.NewWriter(&buf, c.level)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s writer: %v", ErrCompression, c.alg, err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompression, c.alg, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompression, c.alg, err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Output larger than the configured maximum
// is an error.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 || !c.Enabled() {
		return data, nil
	}

	var r io.ReadCloser
	switch c.alg {
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip header: %v", ErrCompression, err)
		}
		r = zr
	case Deflate:
		r = flate.NewReader(bytes.NewReader(data))
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, c.maxOutput+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompression, c.alg, err)
	}
	if int64(len(out)) > c.maxOutput {
		return nil, fmt.Errorf("%w: %s output exceeds %d bytes", ErrCompression, c.alg, c.maxOutput)
	}
	return out, nil
}

// Ratio returns len(compressed)/len(original), or 1 for empty input.
func Ratio(original, compressed []byte) float64 {
	if len(original) == 0 {
		return 1
	}
	return float64(len(compressed)) / float64(len(original))
}
