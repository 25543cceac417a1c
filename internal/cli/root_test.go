package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and stdin, returning stdout,
// stderr, and the command error.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "umicp", cmd.Use)
	assert.Contains(t, cmd.Version, "umicp 1.0.0")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"envelope", "serialize"},
		{"envelope", "hash"},
		{"envelope", "validate"},
		{"envelope", "lint"},
		{"envelope", "sign"},
		{"envelope", "verify"},
		{"frame", "encode"},
		{"frame", "decode"},
		{"frame", "split"},
		{"frame", "assemble"},
		{"matrix", "dot"},
		{"matrix", "cosine"},
		{"matrix", "magnitude"},
		{"matrix", "add"},
		{"matrix", "sub"},
		{"matrix", "scale"},
		{"matrix", "normalize"},
		{"matrix", "multiply"},
		{"matrix", "transpose"},
		{"log", "append"},
		{"log", "list"},
		{"log", "show"},
		{"bus", "publish"},
		{"bus", "listen"},
		{"conformance"},
		{"version"},
	}

	for _, path := range commands {
		name := strings.Join(path, " ")
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "", "--format", "yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "", "--config", "/nonexistent/umicp.yaml", "frame", "decode", "00")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "umicp 1.0.0 (wire v1, go"), out)

	out, _, err = execute(t, "", "--format", "json", "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"wire_version":1`)
	assert.Contains(t, out, `"version":"1.0.0"`)
}

func TestFlagErrorsAreCommandErrors(t *testing.T) {
	_, _, err := execute(t, "", "matrix", "dot", "--a", "1,x")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, IsReported(err))
}
