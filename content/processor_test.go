package content_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flowgraph/content"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/config"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

func newProcessor(t *testing.T) *content.Processor {
	t.Helper()
	cfg := config.DefaultGraphConfig("")
	cfg.Observer = "noop"

	p, err := content.New(content.DefaultConfig(), cfg)
	require.NoError(t, err)
	return p
}

func assertGolden(t *testing.T, name, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got+"\n"))
}

func TestProcess_ValidInput(t *testing.T) {
	input := "hello world this is a test message"

	res, err := newProcessor(t).Process(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, graph.StatusCompleted, res.Status)
	assert.True(t, res.Valid())
	assert.Equal(t, "Hello world this is a test message.", res.ProcessedContent)
	assert.Equal(t, content.NodeFormat, res.CurrentStep)
	assert.Equal(t, []string{content.NodeValidate, content.NodeProcess, content.NodeFormat}, res.Path)
	assert.Equal(t, []string{
		"Input validated: " + itoa(len(input)) + " characters",
		"Content processed: 35 characters",
		"Output formatted successfully",
	}, res.Messages)
	assert.Contains(t, res.FinalResult, "Original length: "+itoa(len(input))+" characters")

	assertGolden(t, "valid_message", res.FinalResult)
}

func TestProcess_IrregularSpacing(t *testing.T) {
	res, err := newProcessor(t).Process(context.Background(), "  hello   WORLD  ")
	require.NoError(t, err)

	assert.Equal(t, "hello   WORLD", res.Content)
	assert.Equal(t, "Hello world.", res.ProcessedContent)
	assert.Equal(t, "Input validated: 17 characters", res.Messages[0])

	assertGolden(t, "irregular_spacing", res.FinalResult)
}

func TestProcess_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		res, err := newProcessor(t).Process(context.Background(), input)
		require.NoError(t, err, "validation failures complete the run")

		assert.Equal(t, graph.StatusCompleted, res.Status)
		assert.False(t, res.Valid())
		assert.Equal(t, content.MsgEmpty, res.Error)
		assert.Equal(t, content.NodeError, res.CurrentStep)
		assert.Equal(t, []string{content.NodeValidate, content.NodeError}, res.Path)
		assert.Equal(t, []string{"Error handled: " + content.MsgEmpty}, res.Messages)
		assert.Empty(t, res.ProcessedContent)

		assertGolden(t, "empty_input", res.FinalResult)
	}
}

func TestProcess_LengthBoundary(t *testing.T) {
	p := newProcessor(t)

	res, err := p.Process(context.Background(), strings.Repeat("a", 1000))
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, content.NodeFormat, res.CurrentStep)

	res, err = p.Process(context.Background(), strings.Repeat("a", 1001))
	require.NoError(t, err)
	assert.Equal(t, "Input content is too long (max 1000 characters)", res.Error)
	assert.Equal(t, []string{content.NodeValidate, content.NodeError}, res.Path)

	assertGolden(t, "too_long", res.FinalResult)
}

func TestProcess_LengthCountsCharacters(t *testing.T) {
	res, err := newProcessor(t).Process(context.Background(), strings.Repeat("é", 1000))
	require.NoError(t, err)
	assert.True(t, res.Valid(), "1000 two-byte characters are within the limit")
}

func TestProcess_CustomMaxLength(t *testing.T) {
	cfg := config.DefaultGraphConfig("short")
	cfg.Observer = "noop"

	p, err := content.New(content.Config{MaxLength: 5}, cfg)
	require.NoError(t, err)

	res, err := p.Process(context.Background(), "too long")
	require.NoError(t, err)
	assert.Equal(t, "Input content is too long (max 5 characters)", res.Error)
	assert.Equal(t, "short", p.Graph().Name())
}

func TestProcess_Deterministic(t *testing.T) {
	p := newProcessor(t)
	input := "same   input every time"

	first, err := p.Process(context.Background(), input, graph.WithRunID("fixed"))
	require.NoError(t, err)
	second, err := p.Process(context.Background(), input, graph.WithRunID("fixed"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newProcessor(t).Process(ctx, "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrCancelled))
	assert.Equal(t, graph.StatusFailed, res.Status)
	assert.NotEmpty(t, res.Failure)
}

func TestProcess_UndeclaredRouterLabel(t *testing.T) {
	broken := graph.NewRouter([]string{content.LabelProcess, content.LabelError}, func(state.State) string {
		return "retry"
	})

	cfg := config.DefaultGraphConfig("broken")
	cfg.Observer = "noop"

	g, err := graph.NewBuilder().
		WithSchema(content.Schema()).
		AddNode(content.NodeValidate, content.Validate(content.DefaultMaxLength)).
		AddNode(content.NodeProcess, content.Transform()).
		AddNode(content.NodeError, content.HandleError()).
		AddEdge(content.NodeValidate, graph.Conditional(content.RouterName, broken, map[string]string{
			content.LabelProcess: content.NodeProcess,
			content.LabelError:   content.NodeError,
		})).
		AddEdge(content.NodeProcess, graph.Direct(graph.End)).
		AddEdge(content.NodeError, graph.Direct(graph.End)).
		SetEntryPoint(content.NodeValidate).
		Build(cfg)
	require.NoError(t, err)

	res, err := g.Run(context.Background(), map[string]any{content.FieldContent: "hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrRouterInconsistency))
	assert.Equal(t, graph.StatusFailed, res.Status)
}

func TestTopology(t *testing.T) {
	topo := newProcessor(t).Graph().Topology()

	assert.Equal(t, content.DefaultGraphName, topo.Name)
	assert.Equal(t, content.NodeValidate, topo.EntryPoint)
	assert.Equal(t, []string{
		content.NodeValidate, content.NodeProcess, content.NodeFormat, content.NodeError,
	}, topo.Nodes)
	assert.Len(t, topo.Transitions, 5)
}

func TestConfigMerge(t *testing.T) {
	cfg := content.DefaultConfig()
	cfg.Merge(&content.Config{})
	assert.Equal(t, content.DefaultMaxLength, cfg.MaxLength)

	cfg.Merge(&content.Config{MaxLength: 42})
	assert.Equal(t, 42, cfg.MaxLength)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
