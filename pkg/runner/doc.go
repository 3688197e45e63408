/*
Package runner implements the terminal simulator: an interactive loop where
the user plays the customer while the assistant drafts replies, with
operator commands for the manual path.

Customer lines are fed through the assist loop exactly like messages read
from a live page, so the simulator exercises the same code path as the
browser panel.

# Usage

	sim := runner.New(ctrl, loop, host,
		runner.WithConversation("Ana"),
		runner.WithIO(os.Stdin, os.Stdout),
	)
	if err := sim.Run(ctx, "f_general"); err != nil {
		log.Fatal(err)
	}
*/
package runner
