package config

import (
	"log/slog"

	"github.com/roach88/umicp/internal/compress"
	"github.com/roach88/umicp/internal/frame"
	"github.com/roach88/umicp/internal/store"
	"github.com/roach88/umicp/internal/stream"
)

// FrameLimits returns the codec limits.
func (c Config) FrameLimits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: c.Frame.MaxPayloadBytes}
}

// ReceiverConfig returns the stream receiver settings.
func (c Config) ReceiverConfig(log *slog.Logger) (stream.Config, error) {
	policy, err := stream.ParsePolicy(c.Stream.Policy)
	if err != nil {
		return stream.Config{}, err
	}
	return stream.Config{
		Policy:        policy,
		MaxBuffered:   c.Stream.MaxBuffered,
		FirstSequence: c.Stream.FirstSequence,
		Logger:        log,
	}, nil
}

// Compressor builds the configured payload compressor.
func (c Config) Compressor() (*compress.Compressor, error) {
	alg, err := compress.ParseAlgorithm(c.Compression.Algorithm)
	if err != nil {
		return nil, err
	}
	return compress.New(alg, c.Compression.Level)
}

// SplitOptions returns the splitter options implied by the stream and
// compression sections.
func (c Config) SplitOptions() ([]stream.SplitOption, error) {
	opts := []stream.SplitOption{stream.WithChunkSize(c.Stream.ChunkSize)}
	comp, err := c.Compressor()
	if err != nil {
		return nil, err
	}
	if comp.Enabled() {
		opts = append(opts, stream.WithCompression(comp, c.Compression.MinSize))
	}
	return opts, nil
}

// StoreOptions returns the message log open options.
func (c Config) StoreOptions() []store.Option {
	return []store.Option{store.WithBusyTimeout(c.Store.BusyTimeoutMS)}
}
