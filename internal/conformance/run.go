package conformance

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/umicp/internal/canonical"
	"github.com/roach88/umicp/internal/envelope"
	"github.com/roach88/umicp/internal/frame"
	"github.com/roach88/umicp/internal/matrix"
)

// DefaultTolerance is the absolute tolerance for matrix results.
const DefaultTolerance = 1e-5

// CaseResult is the outcome of one case.
type CaseResult struct {
	Kind   string         `json:"kind"` // "envelope", "frame", or "matrix"
	Name   string         `json:"name"`
	Pass   bool           `json:"pass"`
	Errors []string       `json:"errors,omitempty"`
	Actual map[string]any `json:"actual"`
}

func newCase(kind, name string) *CaseResult {
	return &CaseResult{Kind: kind, Name: name, Pass: true, Actual: map[string]any{}}
}

func (c *CaseResult) fail(format string, args ...any) {
	c.Errors = append(c.Errors, fmt.Sprintf(format, args...))
	c.Pass = false
}

// Report collects the results of one suite.
type Report struct {
	Suite string       `json:"suite"`
	Cases []CaseResult `json:"cases"`
}

// Passed reports whether every case passed.
func (r *Report) Passed() bool {
	for _, c := range r.Cases {
		if !c.Pass {
			return false
		}
	}
	return true
}

// Counts returns the number of passing and failing cases.
func (r *Report) Counts() (pass, fail int) {
	for _, c := range r.Cases {
		if c.Pass {
			pass++
		} else {
			fail++
		}
	}
	return pass, fail
}

// Failures returns the failing cases.
func (r *Report) Failures() []CaseResult {
	var out []CaseResult
	for _, c := range r.Cases {
		if !c.Pass {
			out = append(out, c)
		}
	}
	return out
}

// Run executes every case in suite, envelopes first, then frames, then
// matrix cases. A failing case never stops the run.
func Run(suite *Suite) (*Report, error) {
	if suite == nil {
		return nil, fmt.Errorf("nil suite")
	}
	report := &Report{Suite: suite.Name, Cases: []CaseResult{}}
	for _, c := range suite.Envelopes {
		report.Cases = append(report.Cases, *runEnvelope(c))
	}
	for _, c := range suite.Frames {
		report.Cases = append(report.Cases, *runFrame(c))
	}
	for _, c := range suite.Matrix {
		report.Cases = append(report.Cases, *runMatrix(c))
	}
	return report, nil
}

// checkError compares an observed error kind with the expected one and
// reports whether the case should continue to output checks.
func checkError(res *CaseResult, want, got string, err error) bool {
	if got != "" {
		res.Actual["error"] = got
	}
	switch {
	case want == "" && err != nil:
		res.fail("unexpected error: %v", err)
		return false
	case want != "" && err == nil:
		res.fail("expected %s error, got none", want)
		return false
	case want != got:
		res.fail("expected %s error, got %v", want, err)
		return false
	}
	return err == nil
}

func runEnvelope(c EnvelopeCase) *CaseResult {
	res := newCase("envelope", c.Name)

	var (
		env *envelope.Envelope
		err error
	)
	if c.Envelope != nil {
		env, err = buildEnvelope(c.Envelope)
	} else {
		env, err = envelope.Deserialize([]byte(c.JSON))
	}
	if !checkError(res, c.Expect.Error, envelopeErrorKind(err), err) {
		return res
	}

	valid := env.Validate()
	res.Actual["valid"] = valid
	if c.Expect.Valid != nil && *c.Expect.Valid != valid {
		res.fail("valid: want %t, got %t", *c.Expect.Valid, valid)
	}

	data, err := env.Serialize()
	if err != nil {
		res.fail("serialize: %v", err)
		return res
	}
	hash, err := env.Hash()
	if err != nil {
		res.fail("hash: %v", err)
		return res
	}
	res.Actual["canonical"] = string(data)
	res.Actual["hash"] = hash

	if c.Expect.Canonical != "" && c.Expect.Canonical != string(data) {
		res.fail("canonical:\n  want %s\n  got  %s", c.Expect.Canonical, data)
	}
	if c.Expect.Hash != "" && !strings.EqualFold(c.Expect.Hash, hash) {
		res.fail("hash: want %s, got %s", c.Expect.Hash, hash)
	}

	back, err := envelope.Deserialize(data)
	if valid && (err != nil || !back.Equal(env)) {
		res.fail("canonical form does not round-trip: %v", err)
	}
	return res
}

func buildEnvelope(f *EnvelopeFields) (*envelope.Envelope, error) {
	env := envelope.New().SetFrom(f.From).SetTo(f.To).SetMessageID(f.MessageID)
	if f.Operation != "" {
		op, err := envelope.ParseOperation(f.Operation)
		if err != nil {
			return nil, &envelope.SchemaError{Field: "operation", Reason: err.Error()}
		}
		if err := env.SetOperation(op); err != nil {
			return nil, err
		}
	}
	if f.Capabilities != nil {
		caps, err := canonical.FromGo(f.Capabilities)
		if err != nil {
			return nil, &envelope.SchemaError{Field: "capabilities", Reason: err.Error()}
		}
		if err := env.SetCapabilities(caps); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func envelopeErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case envelope.IsParseError(err):
		return "parse"
	case envelope.IsSchemaError(err):
		return "schema"
	default:
		return "other"
	}
}

func runFrame(c FrameCase) *CaseResult {
	res := newCase("frame", c.Name)

	var (
		f   *frame.Frame
		err error
	)
	if c.Frame != nil {
		f, err = buildFrame(c.Frame)
		if err != nil {
			res.fail("bad frame fields: %v", err)
			return res
		}
		_, err = f.Serialize()
	} else {
		var raw []byte
		raw, err = decodeHex(c.Hex)
		if err != nil {
			res.fail("bad hex input: %v", err)
			return res
		}
		f, err = frame.Deserialize(raw)
	}
	if !checkError(res, c.Expect.Error, frameErrorKind(err), err) {
		return res
	}

	data, err := f.Serialize()
	if err != nil {
		res.fail("serialize: %v", err)
		return res
	}
	res.Actual["hex"] = hex.EncodeToString(data)
	res.Actual["fields"] = frameFields(f)

	if c.Expect.Hex != "" {
		want, err := decodeHex(c.Expect.Hex)
		if err != nil {
			res.fail("bad expected hex: %v", err)
		} else if !bytes.Equal(want, data) {
			res.fail("hex: want %x, got %x", want, data)
		}
	}
	if c.Expect.Fields != nil {
		want, err := buildFrame(c.Expect.Fields)
		switch {
		case err != nil:
			res.fail("bad expected fields: %v", err)
		case !framesEqual(want, f):
			res.fail("fields: want %s, got %s", want, f)
		}
	}

	back, err := frame.Deserialize(data)
	if err != nil || !framesEqual(back, f) {
		res.fail("encoding does not round-trip: %v", err)
	}
	return res
}

func buildFrame(ff *FrameFields) (*frame.Frame, error) {
	t, err := frame.ParseType(ff.Type)
	if err != nil {
		return nil, err
	}
	flags, err := frame.ParseFlags(ff.Flags)
	if err != nil {
		return nil, err
	}
	payload, err := decodeHex(ff.PayloadHex)
	if err != nil {
		return nil, fmt.Errorf("payload_hex: %w", err)
	}
	return frame.New().
		SetType(t).
		SetFlags(flags).
		SetStreamID(ff.StreamID).
		SetSequence(ff.Sequence).
		SetPayload(payload), nil
}

func frameFields(f *frame.Frame) map[string]any {
	return map[string]any{
		"type":        f.Type.String(),
		"flags":       f.Flags.String(),
		"stream_id":   f.StreamID,
		"sequence":    f.Sequence,
		"payload_hex": hex.EncodeToString(f.Payload),
	}
}

func framesEqual(a, b *frame.Frame) bool {
	return a.Type == b.Type &&
		a.Flags == b.Flags &&
		a.StreamID == b.StreamID &&
		a.Sequence == b.Sequence &&
		bytes.Equal(a.Payload, b.Payload)
}

func frameErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case frame.IsTruncated(err):
		return "truncated"
	case frame.IsMalformed(err):
		return "malformed"
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return "too_large"
	default:
		return "other"
	}
}

// decodeHex ignores whitespace so long vectors can be wrapped in YAML.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}

func runMatrix(c MatrixCase) *CaseResult {
	res := newCase("matrix", c.Name)

	scalar, vector, err := applyMatrix(c)
	kind := ""
	if err != nil {
		kind = "other"
		if errors.Is(err, matrix.ErrDimension) {
			kind = "dimension"
		}
	}
	if !checkError(res, c.Expect.Error, kind, err) {
		return res
	}

	tol := c.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}

	if vector == nil {
		res.Actual["scalar"] = scalar
		switch {
		case c.Expect.Scalar == nil:
		case math.Abs(*c.Expect.Scalar-scalar) > tol:
			res.fail("scalar: want %v, got %v", *c.Expect.Scalar, scalar)
		}
		return res
	}

	res.Actual["vector"] = vectorValues(vector)
	if c.Expect.Vector == nil {
		return res
	}
	if len(c.Expect.Vector) != len(vector) {
		res.fail("vector: want %d elements, got %d", len(c.Expect.Vector), len(vector))
		return res
	}
	for i := range vector {
		if math.Abs(float64(c.Expect.Vector[i])-float64(vector[i])) > tol {
			res.fail("vector[%d]: want %v, got %v", i, c.Expect.Vector[i], vector[i])
		}
	}
	return res
}

// applyMatrix returns a scalar result or, for vector-valued ops, a non-nil
// vector.
func applyMatrix(c MatrixCase) (float64, []float32, error) {
	dst := func(n int) []float32 {
		if c.DstLen != nil {
			n = *c.DstLen
		}
		return make([]float32, max(n, 0))
	}

	switch c.Op {
	case "dot":
		s, err := matrix.DotProduct(c.A, c.B)
		return s, nil, err
	case "cosine":
		s, err := matrix.CosineSimilarity(c.A, c.B)
		return s, nil, err
	case "magnitude":
		s, err := matrix.Magnitude(c.A)
		return s, nil, err
	case "add":
		out := dst(len(c.A))
		return 0, out, matrix.VectorAdd(c.A, c.B, out)
	case "sub":
		out := dst(len(c.A))
		return 0, out, matrix.VectorSubtract(c.A, c.B, out)
	case "scale":
		out := dst(len(c.A))
		return 0, out, matrix.VectorScale(c.A, c.Scalar, out)
	case "normalize":
		out := dst(len(c.A))
		return 0, out, matrix.Normalize(c.A, out)
	case "multiply":
		out := dst(c.M * c.P)
		return 0, out, matrix.MatMultiply(c.A, c.B, c.M, c.N, c.P, out)
	case "transpose":
		out := dst(len(c.A))
		return 0, out, matrix.Transpose(c.A, c.M, c.N, out)
	default:
		return 0, nil, fmt.Errorf("unknown op %q", c.Op)
	}
}

// vectorValues renders float32s by their shortest decimal form so that
// 0.6 is reported as 0.6 rather than its float64 widening.
func vectorValues(v []float32) []any {
	out := make([]any, len(v))
	for i, x := range v {
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(x), 'g', -1, 32), 64)
		out[i] = f
	}
	return out
}
