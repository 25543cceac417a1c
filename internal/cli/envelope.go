package cli

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/schema"
	"github.com/roach88/umicp/internal/seal"
)

// EnvelopeResult is the output of envelope serialize, hash, and validate.
type EnvelopeResult struct {
	Canonical string `json:"canonical,omitempty"`
	Hash      string `json:"hash,omitempty"`
	Valid     *bool  `json:"valid,omitempty"`
}

// String renders the result for text output.
func (r EnvelopeResult) String() string {
	switch {
	case r.Valid != nil:
		return "valid"
	case r.Canonical != "":
		return r.Canonical
	default:
		return r.Hash
	}
}

// SealResult is the output of envelope sign and verify.
type SealResult struct {
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key,omitempty"`
	Verified  bool   `json:"verified,omitempty"`
}

// String renders the result for text output.
func (r SealResult) String() string {
	if r.Verified {
		return "signature ok"
	}
	s := fmt.Sprintf("hash:      %s\nsignature: %s", r.Hash, r.Signature)
	if r.PublicKey != "" {
		s += "\npublic:    " + r.PublicKey
	}
	return s
}

// NewEnvelopeCommand creates the envelope command group.
func NewEnvelopeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "Build, serialize, hash, and check envelopes",
		Long: `Work with UMICP envelopes.

Envelopes are read from --in (a JSON file, or "-" for stdin) or assembled
from --from, --to, --op, --id, and --caps.`,
	}

	cmd.AddCommand(newEnvelopeSerializeCommand(rootOpts))
	cmd.AddCommand(newEnvelopeHashCommand(rootOpts))
	cmd.AddCommand(newEnvelopeValidateCommand(rootOpts))
	cmd.AddCommand(newEnvelopeLintCommand(rootOpts))
	cmd.AddCommand(newEnvelopeSignCommand(rootOpts))
	cmd.AddCommand(newEnvelopeVerifyCommand(rootOpts))

	return cmd
}

func newEnvelopeSerializeCommand(rootOpts *RootOptions) *cobra.Command {
	in := &envelopeInput{}
	cmd := &cobra.Command{
		Use:           "serialize",
		Short:         "Print the canonical JSON form",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}
			data, err := env.Serialize()
			if err != nil {
				return envelopeFailure(f, err)
			}
			return f.Success(EnvelopeResult{Canonical: string(data)})
		},
	}
	in.bind(cmd)
	return cmd
}

func newEnvelopeHashCommand(rootOpts *RootOptions) *cobra.Command {
	in := &envelopeInput{}
	cmd := &cobra.Command{
		Use:           "hash",
		Short:         "Print the SHA-256 of the canonical form",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}
			hash, err := env.Hash()
			if err != nil {
				return envelopeFailure(f, err)
			}
			return f.Success(EnvelopeResult{Hash: hash})
		},
	}
	in.bind(cmd)
	return cmd
}

func newEnvelopeValidateCommand(rootOpts *RootOptions) *cobra.Command {
	in := &envelopeInput{}
	cmd := &cobra.Command{
		Use:           "validate",
		Short:         "Check that from, to, and a known operation are set",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}
			if err := env.Check(); err != nil {
				return envelopeFailure(f, err)
			}
			valid := true
			return f.Success(EnvelopeResult{Valid: &valid})
		},
	}
	in.bind(cmd)
	return cmd
}

func newEnvelopeLintCommand(rootOpts *RootOptions) *cobra.Command {
	in := &envelopeInput{}
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check envelope JSON against the CUE schema",
		Long: `Check envelope JSON against the embedded CUE schema.

Unlike validate, lint reports every problem in the document at once and
never decodes it into an envelope first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			data, err := in.raw(cmd)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "cannot read envelope", err)
			}
			if data == nil {
				env, err := in.build()
				if err != nil {
					return envelopeFailure(f, err)
				}
				if data, err = env.Serialize(); err != nil {
					return envelopeFailure(f, err)
				}
			}

			if err := schema.Lint(data); err != nil {
				var lintErr *schema.LintError
				if errors.As(err, &lintErr) {
					if outErr := f.Error(ErrCodeLint, "envelope does not match schema", lintErr.Messages); outErr != nil {
						return outErr
					}
					return &ExitError{Code: ExitFailure, Message: "lint failed", Err: err, Reported: true}
				}
				return f.Fail(ExitCommandError, ErrCodeGeneric, "lint could not run", err)
			}
			valid := true
			return f.Success(EnvelopeResult{Valid: &valid})
		},
	}
	in.bind(cmd)
	return cmd
}

func newEnvelopeSignCommand(rootOpts *RootOptions) *cobra.Command {
	in := &envelopeInput{}
	var keyHex string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign the envelope hash with a secp256k1 key",
		Long: `Produce a detached signature over the envelope's canonical hash.

The key is a 32-byte private scalar in hex. Without --key a fresh key is
generated and its public half is printed with the signature.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}

			var res SealResult
			priv, err := signingKey(keyHex)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "invalid private key", err)
			}
			if keyHex == "" {
				res.PublicKey = seal.PublicKeyHex(priv.PubKey())
				f.VerboseLog("Generated key %s", res.PublicKey)
			}

			s, err := seal.Sign(priv, env)
			if err != nil {
				return envelopeFailure(f, err)
			}
			res.Hash, res.Signature = s.Hash, s.Signature
			return f.Success(res)
		},
	}
	in.bind(cmd)
	cmd.Flags().StringVar(&keyHex, "key", "", "private key (64 hex chars)")
	return cmd
}

func newEnvelopeVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	in := &envelopeInput{}
	var pubHex, sigHex, hash string
	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Verify a detached signature",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if pubHex == "" || sigHex == "" {
				return f.Fail(ExitCommandError, ErrCodeInput, "--pub and --sig are required", nil)
			}
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}
			if err := env.Check(); err != nil {
				return envelopeFailure(f, err)
			}
			pub, err := seal.ParsePublicKeyHex(pubHex)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "invalid public key", err)
			}

			s := seal.Seal{Hash: hash, Signature: sigHex}
			if s.Hash == "" {
				// No claimed hash: verify against the envelope as given.
				if s.Hash, err = env.Hash(); err != nil {
					return envelopeFailure(f, err)
				}
			}

			if err := seal.Verify(pub, env, s); err != nil {
				switch {
				case errors.Is(err, seal.ErrHashMismatch), errors.Is(err, seal.ErrBadSignature):
					return f.Fail(ExitFailure, ErrCodeSeal, "signature does not verify", err)
				default:
					return envelopeFailure(f, err)
				}
			}
			return f.Success(SealResult{Hash: s.Hash, Signature: s.Signature, Verified: true})
		},
	}
	in.bind(cmd)
	cmd.Flags().StringVar(&pubHex, "pub", "", "compressed public key (66 hex chars)")
	cmd.Flags().StringVar(&sigHex, "sig", "", "DER signature in hex")
	cmd.Flags().StringVar(&hash, "hash", "", "hash the signature claims to cover (defaults to the envelope hash)")
	return cmd
}

// signingKey parses keyHex, or generates a key when it is empty.
func signingKey(keyHex string) (*btcec.PrivateKey, error) {
	if keyHex == "" {
		return seal.GenerateKey()
	}
	return seal.ParsePrivateKeyHex(keyHex)
}
