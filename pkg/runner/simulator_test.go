package runner_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jnickzlim/wa-chrome-assistance/internal/runtime"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/memory"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/assist"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/controller"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/conversation"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/dsl"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/library"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulate(t *testing.T, input string) (string, *controller.Controller) {
	t.Helper()
	ctx := context.Background()

	lib := library.New(memory.NewKV())
	require.NoError(t, lib.SaveFlows(ctx, []*domain.Flow{
		dsl.New("f1").
			Name("Support").
			Add("w").Message("Hello {{customer_name}}").On("1", "p").On("2", "s").
			Add("p").Message("Pricing info").
			Add("s").Prompt("Route to?").Option("Pricing", "p").
			MustBuild(),
	}))

	var out bytes.Buffer
	host := runner.NewTerminalHost(&out, nil)
	ctrl := controller.New(conversation.NewTable(), runtime.NewEngine(lib), host)
	loop := assist.NewLoop(host, ctrl, assist.WithEnabled(true))

	sim := runner.New(ctrl, loop, host,
		runner.WithConversation("Ana"),
		runner.WithIO(strings.NewReader(input), &out),
	)
	require.NoError(t, sim.Run(ctx, "f1"))
	return out.String(), ctrl
}

func TestSimulator_CustomerReplies(t *testing.T) {
	out, ctrl := simulate(t, "9\n1\n")

	assert.Contains(t, out, "[draft:start]\nHello Ana")
	assert.Contains(t, out, "[draft:assist]\nPricing info")

	state, err := ctrl.State(context.Background(), "Ana")
	require.NoError(t, err)
	assert.Equal(t, "p", state.NodeID)
	assert.Equal(t, "1", state.LastSeenMessage)
}

func TestSimulator_OperatorCommands(t *testing.T) {
	out, ctrl := simulate(t, "/reply 2\n/view\n/option 1\n/redraft\n/option x\n/bogus\n/quit\n1\n")

	assert.Contains(t, out, "[draft:reply]\nRoute to?")
	assert.Contains(t, out, "Support / s (drafted)\nRoute to?\n  1. Pricing")
	assert.Contains(t, out, "[draft:option]\nPricing info")
	assert.Contains(t, out, "[draft:redraft]\nPricing info")
	assert.Contains(t, out, "Error: usage: /option N")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "Bye!")

	state, err := ctrl.State(context.Background(), "Ana")
	require.NoError(t, err)
	assert.Equal(t, "p", state.NodeID)
	assert.Empty(t, state.LastSeenMessage, "input after /quit is never read")
}

func TestSimulator_Restart(t *testing.T) {
	out, _ := simulate(t, "/restart\n/view\n/reply 9\n")

	assert.Contains(t, out, "[compose cleared]")
	assert.Contains(t, out, "panel closed (status active)")
	assert.Contains(t, out, "(no transition)")
}

func TestTerminalHost_Compose(t *testing.T) {
	var out bytes.Buffer
	host := runner.NewTerminalHost(&out, func(s string) (string, error) { return "**" + s + "**", nil })
	ctx := context.Background()

	require.NoError(t, host.InsertDraft(ctx, domain.Draft{Source: domain.SourceStart, Text: "hi"}))
	assert.Equal(t, "hi", host.Compose())
	assert.Contains(t, out.String(), "**hi**")

	require.NoError(t, host.ClearCompose(ctx, "Ana"))
	assert.Empty(t, host.Compose())

	host.Receive("Ana", "one")
	host.Receive("Ana", "two")
	sample, err := host.Sample(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", sample.LatestIncoming)
	assert.Equal(t, "one\ntwo", sample.RecentText)
}
