package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/envelope"
	"github.com/roach88/umicp/internal/frame"
	"github.com/roach88/umicp/internal/store"
	"github.com/roach88/umicp/internal/stream"
)

// FrameResult describes one frame.
type FrameResult struct {
	Type       string `json:"type"`
	Flags      string `json:"flags"`
	StreamID   uint32 `json:"stream_id"`
	Sequence   uint64 `json:"sequence"`
	PayloadHex string `json:"payload_hex"`
	Hex        string `json:"hex"`
}

func newFrameResult(f *frame.Frame, wire []byte) FrameResult {
	return FrameResult{
		Type:       f.Type.String(),
		Flags:      f.Flags.String(),
		StreamID:   f.StreamID,
		Sequence:   f.Sequence,
		PayloadHex: hex.EncodeToString(f.Payload),
		Hex:        hex.EncodeToString(wire),
	}
}

// String renders the result for text output.
func (r FrameResult) String() string {
	return fmt.Sprintf("type:     %s\nflags:    %s\nstream:   %d\nsequence: %d\npayload:  %s",
		r.Type, r.Flags, r.StreamID, r.Sequence, r.PayloadHex)
}

// SplitResult lists the wire frames of a split message.
type SplitResult struct {
	StreamID uint32   `json:"stream_id"`
	Frames   []string `json:"frames"`
}

// String renders one hex frame per line.
func (r SplitResult) String() string {
	return strings.Join(r.Frames, "\n")
}

// NewFrameCommand creates the frame command group.
func NewFrameCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Encode, decode, split, and reassemble frames",
		Long: `Work with UMICP binary frames.

Frames are exchanged as hex. Arguments of "-" read whitespace-separated
hex frames from stdin.`,
	}

	cmd.AddCommand(newFrameEncodeCommand(rootOpts))
	cmd.AddCommand(newFrameDecodeCommand(rootOpts))
	cmd.AddCommand(newFrameSplitCommand(rootOpts))
	cmd.AddCommand(newFrameAssembleCommand(rootOpts))

	return cmd
}

func newFrameEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		typ, flags, payloadHex, payload string
		streamID                        uint32
		seq                             uint64
	)
	cmd := &cobra.Command{
		Use:           "encode",
		Short:         "Serialize a frame to hex",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.settings()
			if err != nil {
				return err
			}

			t, err := frame.ParseType(typ)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "invalid --type", err)
			}
			fl, err := frame.ParseFlags(flags)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "invalid --flags", err)
			}
			body := []byte(payload)
			if payloadHex != "" {
				if payload != "" {
					return f.Fail(ExitCommandError, ErrCodeInput, "--payload and --payload-hex are mutually exclusive", nil)
				}
				if body, err = hex.DecodeString(payloadHex); err != nil {
					return f.Fail(ExitCommandError, ErrCodeInput, "invalid --payload-hex", err)
				}
			}

			fr := frame.New().SetType(t).SetFlags(fl).SetStreamID(streamID).SetSequence(seq).SetPayload(body)
			wire, err := fr.SerializeWithLimits(cfg.FrameLimits())
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeFrame, "cannot encode frame", err)
			}
			if f.Format == "json" {
				return f.Success(newFrameResult(fr, wire))
			}
			return f.Success(hex.EncodeToString(wire))
		},
	}
	cmd.Flags().StringVar(&typ, "type", "DATA", "frame type (name or number)")
	cmd.Flags().StringVar(&flags, "flags", "0", `flags, e.g. "FINAL|ACK_REQUIRED" or "0x0004"`)
	cmd.Flags().Uint32Var(&streamID, "stream", 0, "stream id")
	cmd.Flags().Uint64Var(&seq, "seq", 0, "sequence number")
	cmd.Flags().StringVar(&payload, "payload", "", "payload as text")
	cmd.Flags().StringVar(&payloadHex, "payload-hex", "", "payload as hex")
	return cmd
}

func newFrameDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "decode <hex|->",
		Short:         "Decode a hex frame",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.settings()
			if err != nil {
				return err
			}

			wires, err := readHexFrames(cmd, args)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "cannot read frame", err)
			}
			if len(wires) != 1 {
				return f.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("expected one frame, got %d", len(wires)), nil)
			}

			fr, err := frame.DeserializeWithLimits(wires[0], cfg.FrameLimits())
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeFrame, frameErrorMessage(err), err)
			}
			return f.Success(newFrameResult(fr, wires[0]))
		},
	}
	return cmd
}

func newFrameSplitCommand(rootOpts *RootOptions) *cobra.Command {
	in := &envelopeInput{}
	var (
		streamID uint32
		dbPath   string
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split an envelope into data frames",
		Long: `Serialize an envelope and split it into sequenced data frames.

Chunk size and payload compression come from the stream and compression
config sections. With --db, sequence numbers continue from the send
cursors saved by earlier runs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.settings()
			if err != nil {
				return err
			}
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}

			opts, err := cfg.SplitOptions()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid compression settings", err)
			}
			seq := stream.NewSequencer()
			var st *store.Store
			if dbPath != "" {
				if st, err = openStore(rootOpts, f, dbPath); err != nil {
					return err
				}
				defer st.Close()
				cursors, err := st.LoadCursors(cmd.Context(), store.SendCursors)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeStore, "cannot load send cursors", err)
				}
				seq = stream.NewSequencerAt(cursors)
			}

			splitter := stream.NewSplitter(seq, opts...)
			frames, err := stream.SplitEnvelope(splitter, streamID, env)
			if err != nil {
				return envelopeFailure(f, err)
			}

			res := SplitResult{StreamID: streamID}
			for _, fr := range frames {
				wire, err := fr.SerializeWithLimits(cfg.FrameLimits())
				if err != nil {
					return f.Fail(ExitFailure, ErrCodeFrame, "cannot encode frame", err)
				}
				res.Frames = append(res.Frames, hex.EncodeToString(wire))
			}
			if st != nil {
				if err := st.SaveCursors(cmd.Context(), store.SendCursors, seq.Cursors()); err != nil {
					return f.Fail(ExitCommandError, ErrCodeStore, "cannot save send cursors", err)
				}
			}
			f.VerboseLog("Split into %d frame(s) on stream %d", len(frames), streamID)
			return f.Success(res)
		},
	}
	in.bind(cmd)
	cmd.Flags().Uint32Var(&streamID, "stream", 1, "stream id")
	cmd.Flags().StringVar(&dbPath, "db", "", "message log holding send cursors")
	return cmd
}

func newFrameAssembleCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "assemble <hex>... | -",
		Short: "Reassemble data frames into an envelope",
		Long: `Decode hex frames, order them per stream, and reassemble the envelope
they carry. Frames may be given in any order; the stream policy from the
config decides how gaps are handled.

With --db, each stream resumes at the receive cursor saved by earlier
runs, and the advanced cursors are saved again.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.settings()
			if err != nil {
				return err
			}
			log := rootOpts.logger(cmd, cfg)

			wires, err := readHexFrames(cmd, args)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "cannot read frames", err)
			}
			rcfg, err := cfg.ReceiverConfig(log)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid stream settings", err)
			}
			comp, err := cfg.Compressor()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid compression settings", err)
			}

			recv := stream.NewReceiver(rcfg)
			var st *store.Store
			if dbPath != "" {
				if st, err = openStore(rootOpts, f, dbPath); err != nil {
					return err
				}
				defer st.Close()
				cursors, err := st.LoadCursors(cmd.Context(), store.ReceiveCursors)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeStore, "cannot load receive cursors", err)
				}
				for id, next := range cursors {
					recv.Resume(id, next)
				}
			}

			env, err := assembleFrames(f, cfg.FrameLimits(), recv, stream.NewAssembler(comp, stream.WithLogger(log)), wires)
			if err != nil {
				return err
			}
			if st != nil {
				if err := st.SaveCursors(cmd.Context(), store.ReceiveCursors, recv.Cursors()); err != nil {
					return f.Fail(ExitCommandError, ErrCodeStore, "cannot save receive cursors", err)
				}
			}
			if env == nil {
				return f.Fail(ExitFailure, ErrCodeFrame, "no complete message in input", nil)
			}
			data, err := env.Serialize()
			if err != nil {
				return envelopeFailure(f, err)
			}
			return f.Success(EnvelopeResult{Canonical: string(data)})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "message log holding receive cursors")
	return cmd
}

// assembleFrames feeds wires through recv and asm until an envelope
// completes. A nil envelope with a nil error means the input ended first.
func assembleFrames(f *OutputFormatter, limits frame.Limits, recv *stream.Receiver, asm *stream.Assembler, wires [][]byte) (*envelope.Envelope, error) {
	for i, wire := range wires {
		fr, err := frame.DeserializeWithLimits(wire, limits)
		if err != nil {
			return nil, f.Fail(ExitFailure, ErrCodeFrame, fmt.Sprintf("frame %d: %s", i, frameErrorMessage(err)), err)
		}
		res, err := recv.Accept(fr)
		if err != nil {
			return nil, f.Fail(ExitFailure, ErrCodeFrame, "frame out of order", err)
		}
		for _, ready := range res.Delivered {
			env, done, err := stream.AssembleEnvelope(asm, ready)
			if err != nil {
				return nil, envelopeFailure(f, err)
			}
			if done {
				return env, nil
			}
		}
	}
	return nil, nil
}

// readHexFrames decodes each argument as one hex frame. "-" reads
// whitespace-separated frames from stdin.
func readHexFrames(cmd *cobra.Command, args []string) ([][]byte, error) {
	var tokens []string
	for _, arg := range args {
		if arg != "-" {
			tokens = append(tokens, arg)
			continue
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		tokens = append(tokens, strings.Fields(string(data))...)
	}

	out := make([][]byte, 0, len(tokens))
	for i, tok := range tokens {
		b, err := hex.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func frameErrorMessage(err error) string {
	switch {
	case frame.IsTruncated(err):
		return "truncated frame"
	case frame.IsMalformed(err):
		return "malformed frame"
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return "payload exceeds limit"
	default:
		return "cannot decode frame"
	}
}
