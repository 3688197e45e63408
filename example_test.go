package assistant_test

import (
	"context"
	"os"

	"github.com/jnickzlim/wa-chrome-assistance/internal/runtime"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/adapters/memory"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/controller"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/conversation"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/dsl"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/library"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/runner"
)

// Example wires a flow, the library and a terminal host by hand.
func Example() {
	ctx := context.Background()

	flow := dsl.New("support").
		Add("welcome").Message("Hi {{customer_name}}! Reply 1 for pricing.").On("1", "pricing").
		Add("pricing").Message("Our plans start at $10.").
		MustBuild()

	lib := library.New(memory.NewKV())
	if err := lib.SaveFlows(ctx, []*domain.Flow{flow}); err != nil {
		panic(err)
	}

	host := runner.NewTerminalHost(os.Stdout, nil)
	ctrl := controller.New(conversation.NewTable(), runtime.NewEngine(lib), host)

	if _, err := ctrl.Start(ctx, "Ana", "support"); err != nil {
		panic(err)
	}
	if _, err := ctrl.Observe(ctx, "Ana", "1"); err != nil {
		panic(err)
	}

	// Output:
	// [draft:start]
	// Hi Ana! Reply 1 for pricing.
	//
	// [draft:assist]
	// Our plans start at $10.
}
