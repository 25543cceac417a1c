// Package config loads umicp settings from YAML or TOML files with
// UMICP_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/umicp/internal/compress"
	"github.com/roach88/umicp/internal/frame"
	"github.com/roach88/umicp/internal/store"
	"github.com/roach88/umicp/internal/stream"
)

// Config is the top-level umicp configuration.
type Config struct {
	Frame       FrameConfig       `yaml:"frame" toml:"frame"`
	Stream      StreamConfig      `yaml:"stream" toml:"stream"`
	Compression CompressionConfig `yaml:"compression" toml:"compression"`
	Store       StoreConfig       `yaml:"store" toml:"store"`
	Bus         BusConfig         `yaml:"bus" toml:"bus"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

type FrameConfig struct {
	MaxPayloadBytes uint32 `yaml:"max_payload_bytes" toml:"max_payload_bytes"`
}

type StreamConfig struct {
	Policy        string `yaml:"policy" toml:"policy"`
	MaxBuffered   int    `yaml:"max_buffered" toml:"max_buffered"`
	FirstSequence uint64 `yaml:"first_sequence" toml:"first_sequence"`
	ChunkSize     int    `yaml:"chunk_size" toml:"chunk_size"`
}

type CompressionConfig struct {
	Algorithm string `yaml:"algorithm" toml:"algorithm"`
	Level     int    `yaml:"level" toml:"level"`
	// MinSize is the smallest message, in bytes, worth compressing.
	MinSize int `yaml:"min_size" toml:"min_size"`
}

type StoreConfig struct {
	Path          string `yaml:"path" toml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" toml:"busy_timeout_ms"`
}

type BusConfig struct {
	Addr       string `yaml:"addr" toml:"addr"`
	Namespace  string `yaml:"namespace" toml:"namespace"`
	MaxRetries uint64 `yaml:"max_retries" toml:"max_retries"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Frame: FrameConfig{MaxPayloadBytes: frame.DefaultLimits().MaxPayloadBytes},
		Stream: StreamConfig{
			Policy:        stream.PolicyBuffer.String(),
			MaxBuffered:   stream.DefaultMaxBuffered,
			FirstSequence: stream.DefaultFirstSequence,
			ChunkSize:     stream.DefaultChunkSize,
		},
		Compression: CompressionConfig{
			Algorithm: string(compress.None),
			Level:     compress.DefaultLevel,
			MinSize:   1024,
		},
		Store: StoreConfig{Path: "umicp.db", BusyTimeoutMS: store.DefaultBusyTimeoutMS},
		Bus: BusConfig{
			Addr:       "localhost:6379",
			Namespace:  "default",
			MaxRetries: 3,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies environment overrides, and
// validates the result. An empty path skips the file.
// The decoder is chosen by extension: .yaml/.yml or .toml.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := decode(filepath.Ext(path), data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(ext string, data []byte, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
		return nil
	default:
		return fmt.Errorf("unsupported config extension %q (want .yaml, .yml, or .toml)", ext)
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from UMICP_* variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, set func(uint64)) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		set(n)
		return nil
	}

	str("UMICP_LOG_LEVEL", &c.Log.Level)
	str("UMICP_LOG_FORMAT", &c.Log.Format)
	str("UMICP_STORE_PATH", &c.Store.Path)
	str("UMICP_BUS_ADDR", &c.Bus.Addr)
	str("UMICP_BUS_NAMESPACE", &c.Bus.Namespace)
	str("UMICP_STREAM_POLICY", &c.Stream.Policy)
	str("UMICP_COMPRESSION", &c.Compression.Algorithm)

	if err := num("UMICP_MAX_PAYLOAD_BYTES", func(n uint64) {
		c.Frame.MaxPayloadBytes = uint32(min(n, math.MaxUint32))
	}); err != nil {
		return err
	}
	if err := num("UMICP_STORE_BUSY_TIMEOUT_MS", func(n uint64) {
		c.Store.BusyTimeoutMS = int(min(n, math.MaxInt32))
	}); err != nil {
		return err
	}
	return num("UMICP_BUS_MAX_RETRIES", func(n uint64) { c.Bus.MaxRetries = n })
}

// Validate rejects values that no component can run with.
func (c Config) Validate() error {
	if c.Frame.MaxPayloadBytes == 0 {
		return fmt.Errorf("frame.max_payload_bytes must be positive")
	}
	if _, err := stream.ParsePolicy(c.Stream.Policy); err != nil {
		return fmt.Errorf("stream.policy: %w", err)
	}
	if c.Stream.MaxBuffered < 0 {
		return fmt.Errorf("stream.max_buffered must not be negative")
	}
	if c.Stream.ChunkSize < 0 || int64(c.Stream.ChunkSize) > int64(c.Frame.MaxPayloadBytes) {
		return fmt.Errorf("stream.chunk_size must be between 0 and frame.max_payload_bytes (%d)", c.Frame.MaxPayloadBytes)
	}
	if _, err := compress.ParseAlgorithm(c.Compression.Algorithm); err != nil {
		return fmt.Errorf("compression.algorithm: %w", err)
	}
	if c.Compression.Level < 1 || c.Compression.Level > 9 {
		return fmt.Errorf("compression.level must be between 1 and 9")
	}
	if c.Compression.MinSize < 0 {
		return fmt.Errorf("compression.min_size must not be negative")
	}
	if c.Store.BusyTimeoutMS < 0 {
		return fmt.Errorf("store.busy_timeout_ms must not be negative")
	}
	if strings.TrimSpace(c.Bus.Namespace) == "" {
		return fmt.Errorf("bus.namespace is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}
