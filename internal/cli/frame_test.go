package cli

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/umicp/internal/frame"
	"github.com/roach88/umicp/internal/store"
)

const dataFrameHex = "0001" + "0004" + "00000007" + "0000000000000003" + "00000003" + "010203"

func TestFrameEncode(t *testing.T) {
	out, _, err := execute(t, "", "frame", "encode",
		"--type", "data", "--flags", "FINAL", "--stream", "7", "--seq", "3", "--payload-hex", "010203")
	require.NoError(t, err)
	assert.Equal(t, dataFrameHex+"\n", out)
}

func TestFrameEncodeTextPayload(t *testing.T) {
	out, _, err := execute(t, "", "--format", "json", "frame", "encode", "--payload", "hi")
	require.NoError(t, err)

	var res FrameResult
	decodeData(t, out, &res)
	assert.Equal(t, "DATA", res.Type)
	assert.Equal(t, "6869", res.PayloadHex)
	assert.True(t, strings.HasSuffix(res.Hex, "000000026869"), res.Hex)
}

func TestFrameEncodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"type", []string{"--type", "BOGUS"}},
		{"flags", []string{"--flags", "LOUD"}},
		{"payload hex", []string{"--payload-hex", "xyz"}},
		{"both payloads", []string{"--payload", "a", "--payload-hex", "61"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", append([]string{"frame", "encode"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestFrameDecode(t *testing.T) {
	out, _, err := execute(t, "", "--format", "json", "frame", "decode", dataFrameHex)
	require.NoError(t, err)

	var res FrameResult
	decodeData(t, out, &res)
	assert.Equal(t, FrameResult{
		Type:       "DATA",
		Flags:      "FINAL",
		StreamID:   7,
		Sequence:   3,
		PayloadHex: "010203",
		Hex:        dataFrameHex,
	}, res)

	out, _, err = execute(t, dataFrameHex+"\n", "frame", "decode", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "sequence: 3")
}

func TestFrameDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		message string
	}{
		{"short header", "0001", "truncated frame"},
		{"short payload", strings.TrimSuffix(dataFrameHex, "03"), "truncated frame"},
		{"trailing bytes", dataFrameHex + "ff", "malformed frame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", "--format", "json", "frame", "decode", tt.hex)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			cliErr := decodeError(t, out)
			assert.Equal(t, ErrCodeFrame, cliErr.Code)
			assert.Equal(t, tt.message, cliErr.Message)
		})
	}
}

func TestFrameDecodeHonorsPayloadLimit(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "umicp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("frame:\n  max_payload_bytes: 2\nstream:\n  chunk_size: 2\n"), 0o644))

	out, _, err := execute(t, "", "--config", cfg, "--format", "json", "frame", "decode", dataFrameHex)
	require.Error(t, err)
	assert.Equal(t, "payload exceeds limit", decodeError(t, out).Message)
}

// splitFrames runs frame split with the given config and returns the hex
// frames.
func splitFrames(t *testing.T, cfg string) []string {
	t.Helper()
	args := append([]string{"--config", cfg, "--format", "json", "frame", "split", "--stream", "9"}, sampleFields...)
	out, _, err := execute(t, "", args...)
	require.NoError(t, err)

	var res SplitResult
	decodeData(t, out, &res)
	assert.Equal(t, uint32(9), res.StreamID)
	return res.Frames
}

func TestFrameSplitAssembleRoundTrip(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "umicp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("stream:\n  chunk_size: 16\n"), 0o644))

	frames := splitFrames(t, cfg)
	// 81 bytes of canonical JSON in 16-byte chunks.
	require.Len(t, frames, 6)

	out, _, err := execute(t, "", append([]string{"--config", cfg, "frame", "assemble"}, frames...)...)
	require.NoError(t, err)
	assert.Equal(t, sampleCanonical+"\n", out)

	// Out of order input is reordered by the receiver.
	reversed := slices.Clone(frames)
	slices.Reverse(reversed)
	out, _, err = execute(t, strings.Join(reversed, "\n"), "--config", cfg, "frame", "assemble", "-")
	require.NoError(t, err)
	assert.Equal(t, sampleCanonical+"\n", out)
}

func TestFrameSplitCompressed(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "umicp.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[compression]\nalgorithm = \"gzip\"\nmin_size = 1\n"), 0o644))

	frames := splitFrames(t, cfg)
	require.Len(t, frames, 1)

	out, _, err := execute(t, "", "--format", "json", "frame", "decode", frames[0])
	require.NoError(t, err)
	var res FrameResult
	decodeData(t, out, &res)
	assert.Equal(t, "COMPRESSED|FINAL", res.Flags)

	out, _, err = execute(t, "", "--config", cfg, "frame", "assemble", frames[0])
	require.NoError(t, err)
	assert.Equal(t, sampleCanonical+"\n", out)

	// Without a configured compressor the frame cannot be opened.
	_, _, err = execute(t, "", "frame", "assemble", frames[0])
	require.Error(t, err)
}

func TestFrameAssembleRejectPolicy(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "umicp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("stream:\n  chunk_size: 16\n"), 0o644))
	frames := splitFrames(t, cfg)

	strict := filepath.Join(t.TempDir(), "strict.yaml")
	require.NoError(t, os.WriteFile(strict, []byte("stream:\n  policy: reject\n"), 0o644))

	out, _, err := execute(t, "", "--config", strict, "--format", "json", "frame", "assemble", frames[1], frames[0])
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "frame out of order", decodeError(t, out).Message)
}

func TestFrameAssembleIncomplete(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "umicp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("stream:\n  chunk_size: 16\n"), 0o644))
	frames := splitFrames(t, cfg)

	out, _, err := execute(t, "", "--format", "json", "frame", "assemble", frames[0], frames[1])
	require.Error(t, err)
	assert.Equal(t, "no complete message in input", decodeError(t, out).Message)
}

// frameSequences decodes hex frames and returns their sequence numbers.
func frameSequences(t *testing.T, frames []string) []uint64 {
	t.Helper()
	seqs := make([]uint64, 0, len(frames))
	for _, h := range frames {
		wire, err := hex.DecodeString(h)
		require.NoError(t, err)
		fr, err := frame.Deserialize(wire)
		require.NoError(t, err)
		seqs = append(seqs, fr.Sequence)
	}
	return seqs
}

func TestFrameCursorsPersistAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "umicp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("stream:\n  chunk_size: 16\n"), 0o644))
	db := filepath.Join(dir, "log.db")

	split := func() []string {
		args := append([]string{"--config", cfg, "--format", "json", "frame", "split", "--stream", "9", "--db", db}, sampleFields...)
		out, _, err := execute(t, "", args...)
		require.NoError(t, err)
		var res SplitResult
		decodeData(t, out, &res)
		return res.Frames
	}

	first := split()
	second := split()
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, frameSequences(t, first))
	assert.Equal(t, []uint64{7, 8, 9, 10, 11, 12}, frameSequences(t, second))

	// A fresh receiver waits for sequence 1 and never completes the second
	// message.
	out, _, err := execute(t, "", append([]string{"--config", cfg, "--format", "json", "frame", "assemble"}, second...)...)
	require.Error(t, err)
	assert.Equal(t, "no complete message in input", decodeError(t, out).Message)

	for _, frames := range [][]string{first, second} {
		out, _, err := execute(t, "", append([]string{"--config", cfg, "frame", "assemble", "--db", db}, frames...)...)
		require.NoError(t, err)
		assert.Equal(t, sampleCanonical+"\n", out)
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	send, err := st.LoadCursors(ctx, store.SendCursors)
	require.NoError(t, err)
	assert.Equal(t, map[uint32]uint64{9: 13}, send)

	recv, err := st.LoadCursors(ctx, store.ReceiveCursors)
	require.NoError(t, err)
	assert.Equal(t, map[uint32]uint64{9: 13}, recv)
}
