package plan

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridci/gridci/internal/event"
)

func TestWriteJSON_MatchesGolden(t *testing.T) {
	p, err := Build(context.Background(), testWorkflow(t), event.Event{Kind: event.Push, Ref: "master"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.WriteJSON(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plan_push", buf.Bytes())
}

func TestWriteText_RendersTable(t *testing.T) {
	p, err := Build(context.Background(), testWorkflow(t), event.Event{Kind: event.Push, Ref: "master"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "3 job instance(s)")
	assert.Contains(t, out, "job.tests[python=3.11]")
	assert.Contains(t, out, "job.report")
}

func TestWriteText_NonFiringPlan(t *testing.T) {
	p, err := Build(context.Background(), testWorkflow(t), event.Event{Kind: event.Push, Ref: "dev"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.WriteText(&buf))
	assert.Contains(t, buf.String(), "does not fire")
}
