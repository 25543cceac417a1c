package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/envelope"
)

// envelopeInput reads an envelope from --in (a file, or "-" for stdin) or
// builds one from field flags.
type envelopeInput struct {
	In    string
	From  string
	To    string
	Op    string
	ID    string
	Caps  string
	GenID bool
}

func (in *envelopeInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.In, "in", "", `read envelope JSON from a file ("-" for stdin)`)
	cmd.Flags().StringVar(&in.From, "from", "", "sender id")
	cmd.Flags().StringVar(&in.To, "to", "", "recipient id")
	cmd.Flags().StringVar(&in.Op, "op", "", "operation name or code (CONTROL, DATA, ACK, ERROR, REQUEST, RESPONSE)")
	cmd.Flags().StringVar(&in.ID, "id", "", "message id")
	cmd.Flags().StringVar(&in.Caps, "caps", "", "capabilities as JSON")
	cmd.Flags().BoolVar(&in.GenID, "gen-id", false, "generate a UUIDv7 message id when none is set")
}

// raw returns the JSON named by --in, or nil when fields are given instead.
func (in *envelopeInput) raw(cmd *cobra.Command) ([]byte, error) {
	if in.In == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if in.In == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(in.In)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", in.In, err)
	}
	return []byte(strings.TrimSpace(string(data))), nil
}

// load returns the envelope. Decoding errors keep their envelope error
// types so callers can map them to exit codes.
func (in *envelopeInput) load(cmd *cobra.Command) (*envelope.Envelope, error) {
	data, err := in.raw(cmd)
	if err != nil {
		return nil, err
	}

	var env *envelope.Envelope
	if data != nil {
		env, err = envelope.Deserialize(data)
		if err != nil {
			return nil, err
		}
	} else {
		env, err = in.build()
		if err != nil {
			return nil, err
		}
	}

	if in.GenID {
		env.EnsureMessageID(envelope.UUIDv7Generator{})
	}
	return env, nil
}

func (in *envelopeInput) build() (*envelope.Envelope, error) {
	env := envelope.New().SetFrom(in.From).SetTo(in.To).SetMessageID(in.ID)
	if in.Op != "" {
		op, err := envelope.ParseOperation(in.Op)
		if err != nil {
			return nil, &envelope.SchemaError{Field: "operation", Reason: err.Error()}
		}
		if err := env.SetOperation(op); err != nil {
			return nil, err
		}
	}
	if in.Caps != "" {
		if err := env.SetCapabilitiesJSON([]byte(in.Caps)); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// envelopeFailure maps envelope errors to CLI error codes.
func envelopeFailure(f *OutputFormatter, err error) error {
	switch {
	case envelope.IsParseError(err):
		return f.Fail(ExitFailure, ErrCodeParse, "invalid envelope JSON", err)
	case envelope.IsSchemaError(err):
		return f.Fail(ExitFailure, ErrCodeSchema, "invalid envelope", err)
	default:
		return f.Fail(ExitCommandError, ErrCodeInput, "cannot read envelope", err)
	}
}
