package conformance

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Suite is one vector file.
type Suite struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Envelopes   []EnvelopeCase `yaml:"envelopes,omitempty"`
	Frames      []FrameCase    `yaml:"frames,omitempty"`
	Matrix      []MatrixCase   `yaml:"matrix,omitempty"`

	// Path is the file the suite was loaded from.
	Path string `yaml:"-"`
}

// EnvelopeCase builds an envelope from Envelope or decodes JSON.
type EnvelopeCase struct {
	Name     string          `yaml:"name"`
	Envelope *EnvelopeFields `yaml:"envelope,omitempty"`
	JSON     string          `yaml:"json,omitempty"`
	Expect   EnvelopeExpect  `yaml:"expect"`
}

// EnvelopeFields are applied through the envelope setters. Operation is a
// name or decimal code; empty leaves it unset.
type EnvelopeFields struct {
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	Operation    string `yaml:"operation,omitempty"`
	MessageID    string `yaml:"message_id,omitempty"`
	Capabilities any    `yaml:"capabilities,omitempty"`
}

type EnvelopeExpect struct {
	Canonical string `yaml:"canonical,omitempty"`
	Hash      string `yaml:"hash,omitempty"`
	Valid     *bool  `yaml:"valid,omitempty"`
	// Error is "parse" or "schema".
	Error string `yaml:"error,omitempty"`
}

// FrameCase encodes Frame or decodes Hex.
type FrameCase struct {
	Name   string       `yaml:"name"`
	Frame  *FrameFields `yaml:"frame,omitempty"`
	Hex    string       `yaml:"hex,omitempty"`
	Expect FrameExpect  `yaml:"expect"`
}

// FrameFields use frame.ParseType and frame.ParseFlags syntax.
type FrameFields struct {
	Type       string `yaml:"type"`
	Flags      string `yaml:"flags,omitempty"`
	StreamID   uint32 `yaml:"stream_id"`
	Sequence   uint64 `yaml:"sequence"`
	PayloadHex string `yaml:"payload_hex,omitempty"`
}

type FrameExpect struct {
	Hex    string       `yaml:"hex,omitempty"`
	Fields *FrameFields `yaml:"fields,omitempty"`
	// Error is "truncated", "malformed", or "too_large".
	Error string `yaml:"error,omitempty"`
}

// MatrixCase applies one kernel operation.
type MatrixCase struct {
	Name string `yaml:"name"`
	// Op is one of dot, cosine, magnitude, add, sub, scale, normalize,
	// multiply, transpose.
	Op     string    `yaml:"op"`
	A      []float32 `yaml:"a"`
	B      []float32 `yaml:"b,omitempty"`
	Scalar float32   `yaml:"scalar,omitempty"`
	M      int       `yaml:"m,omitempty"`
	N      int       `yaml:"n,omitempty"`
	P      int       `yaml:"p,omitempty"`
	// DstLen overrides the output length, to exercise dimension checks.
	DstLen    *int         `yaml:"dst_len,omitempty"`
	Tolerance float64      `yaml:"tolerance,omitempty"`
	Expect    MatrixExpect `yaml:"expect"`
}

type MatrixExpect struct {
	Scalar *float64  `yaml:"scalar,omitempty"`
	Vector []float32 `yaml:"vector,omitempty"`
	// Error is "dimension".
	Error string `yaml:"error,omitempty"`
}

var (
	envelopeErrors = []string{"parse", "schema"}
	frameErrors    = []string{"truncated", "malformed", "too_large"}
	matrixOps      = []string{"dot", "cosine", "magnitude", "add", "sub", "scale", "normalize", "multiply", "transpose"}
)

// LoadFile reads and validates one suite. Unknown YAML fields are errors.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}
	suite.Path = path

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite %s: %w", path, err)
	}
	return &suite, nil
}

// LoadDir loads every .yaml and .yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no suite files found in %s", dir)
	}
	slices.Sort(paths)

	suites := make([]*Suite, 0, len(paths))
	for _, p := range paths {
		s, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Envelopes)+len(s.Frames)+len(s.Matrix) == 0 {
		return fmt.Errorf("at least one case is required")
	}

	seen := make(map[string]bool)
	unique := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s case without a name", kind)
		}
		key := kind + "/" + name
		if seen[key] {
			return fmt.Errorf("duplicate %s case %q", kind, name)
		}
		seen[key] = true
		return nil
	}

	for i, c := range s.Envelopes {
		if err := unique("envelope", c.Name); err != nil {
			return err
		}
		if (c.Envelope == nil) == (c.JSON == "") {
			return fmt.Errorf("envelopes[%d]: exactly one of envelope or json is required", i)
		}
		if c.Expect.Error != "" && !slices.Contains(envelopeErrors, c.Expect.Error) {
			return fmt.Errorf("envelopes[%d]: unknown error kind %q", i, c.Expect.Error)
		}
	}
	for i, c := range s.Frames {
		if err := unique("frame", c.Name); err != nil {
			return err
		}
		if (c.Frame == nil) == (c.Hex == "") {
			return fmt.Errorf("frames[%d]: exactly one of frame or hex is required", i)
		}
		if c.Expect.Error != "" && !slices.Contains(frameErrors, c.Expect.Error) {
			return fmt.Errorf("frames[%d]: unknown error kind %q", i, c.Expect.Error)
		}
	}
	for i, c := range s.Matrix {
		if err := unique("matrix", c.Name); err != nil {
			return err
		}
		if !slices.Contains(matrixOps, c.Op) {
			return fmt.Errorf("matrix[%d]: unknown op %q", i, c.Op)
		}
		if c.Expect.Error != "" && c.Expect.Error != "dimension" {
			return fmt.Errorf("matrix[%d]: unknown error kind %q", i, c.Expect.Error)
		}
	}
	return nil
}
