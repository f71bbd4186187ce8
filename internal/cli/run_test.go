package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flowgraph/content"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
)

const validInput = "hello world this is a test message"

func TestRunArgument(t *testing.T) {
	res := execute(t, nil, "run", validInput)
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "📝 Processed Content:\nHello world this is a test message.\n")
	assert.Contains(t, res.stdout, "- Processing steps: 2")
}

func TestRunStdin(t *testing.T) {
	res := execute(t, strings.NewReader(validInput+"\n"), "run")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "- Original length: 34 characters")
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("  spaced    out  \n"), 0o644))

	res := execute(t, nil, "run", "--file", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Spaced out.")
}

func TestRunJSON(t *testing.T) {
	res := execute(t, nil, "run", "--format", "json", "--run-id", "cli-run", validInput)
	require.NoError(t, res.err)

	var out content.Result
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "cli-run", out.RunID)
	assert.Equal(t, graph.StatusCompleted, out.Status)
	assert.Equal(t, "Hello world this is a test message.", out.ProcessedContent)
	assert.Equal(t, []string{content.NodeValidate, content.NodeProcess, content.NodeFormat}, out.Path)
}

func TestRunRejectedInput(t *testing.T) {
	res := execute(t, nil, "run", "")
	require.Error(t, res.err)

	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Contains(t, res.err.Error(), content.MsgEmpty)
	assert.Contains(t, res.stdout, "❌ Error: "+content.MsgEmpty)
}

func TestRunMaxLength(t *testing.T) {
	res := execute(t, nil, "run", "--max-length", "5", "hello world")
	require.Error(t, res.err)

	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "too long (max 5 characters)")
}

func TestRunMaxLengthFromConfig(t *testing.T) {
	path := writeConfig(t, "content:\n  max_length: 4\n")

	res := execute(t, nil, "run", "--config", path, "hello")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "too long (max 4 characters)")
}

func TestRunStepLimit(t *testing.T) {
	res := execute(t, nil, "run", "--max-steps", "1", validInput)
	require.Error(t, res.err)

	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.ErrorIs(t, res.err, graph.ErrStepLimitExceeded)
}

func TestRunArgumentAndFile(t *testing.T) {
	res := execute(t, nil, "run", "--file", "x.txt", "text")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
}

func TestRunMissingFile(t *testing.T) {
	res := execute(t, nil, "run", "--file", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.err.Error(), "failed to read content")
}
