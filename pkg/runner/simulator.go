package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/assist"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/controller"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// DefaultConversation is the customer name used when none is configured.
const DefaultConversation = "Customer"

const helpText = `Operator commands:
  /view            show the current step
  /option N        click option N (1-based)
  /reply KEY       simulate the customer replying KEY
  /redraft         insert the current step again
  /restart         close the panel and clear the compose box
  /start           start the flow again
  /quit            leave the simulator
Anything else is sent as the customer's message.`

// Simulator drives one conversation from a terminal.
type Simulator struct {
	controller *controller.Controller
	loop       *assist.Loop
	host       *TerminalHost

	conversation string
	in           io.Reader
	out          io.Writer
	status       func(domain.Status) string
	logger       *slog.Logger
}

// Option configures the Simulator.
type Option func(*Simulator)

// WithConversation sets the customer name (also the conversation id).
func WithConversation(name string) Option {
	return func(s *Simulator) {
		if name != "" {
			s.conversation = name
		}
	}
}

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Simulator) {
		s.in = in
		s.out = out
	}
}

// WithStatusStyle sets how /view renders the conversation status.
func WithStatusStyle(style func(domain.Status) string) Option {
	return func(s *Simulator) {
		if style != nil {
			s.status = style
		}
	}
}

// WithLogger sets the simulator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// New creates a simulator. The loop must have been built over host and be enabled.
func New(ctrl *controller.Controller, loop *assist.Loop, host *TerminalHost, opts ...Option) *Simulator {
	s := &Simulator{
		controller:   ctrl,
		loop:         loop,
		host:         host,
		conversation: DefaultConversation,
		in:           os.Stdin,
		out:          os.Stdout,
		status:       func(st domain.Status) string { return string(st) },
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts flowID and processes input lines until EOF, /quit, or ctx is done.
func (s *Simulator) Run(ctx context.Context, flowID string) error {
	// The first tick only switches to the conversation.
	s.host.Receive(s.conversation, "")
	if err := s.loop.Tick(ctx); err != nil {
		return err
	}
	if _, err := s.controller.Start(ctx, s.conversation, flowID); err != nil {
		return fmt.Errorf("failed to start flow: %w", err)
	}

	lines := s.pump()
	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return nil
			}
			quit, err := s.handle(ctx, flowID, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(s.out, "Error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// pump reads lines in the background so Run can honor ctx while blocked on input.
func (s *Simulator) pump() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			s.logger.Warn("Input read failed", "err", err)
		}
	}()
	return lines
}

func (s *Simulator) handle(ctx context.Context, flowID, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		s.host.Receive(s.conversation, line)
		return false, s.loop.Tick(ctx)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		fmt.Fprintln(s.out, "Bye!")
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, helpText)
		return false, nil
	case "/view":
		return false, s.printView(ctx)
	case "/option":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return false, fmt.Errorf("usage: /option N")
		}
		_, err = s.controller.ChooseOption(ctx, s.conversation, n-1)
		return false, err
	case "/reply":
		if arg == "" {
			return false, errors.New("usage: /reply KEY")
		}
		draft, err := s.controller.SimulateReply(ctx, s.conversation, arg)
		if err == nil && draft == nil {
			fmt.Fprintln(s.out, "(no transition)")
		}
		return false, err
	case "/redraft":
		_, err := s.controller.Redraft(ctx, s.conversation)
		return false, err
	case "/restart":
		s.controller.Restart(ctx, s.conversation)
		return false, nil
	case "/start":
		_, err := s.controller.Start(ctx, s.conversation, flowID)
		return false, err
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (s *Simulator) printView(ctx context.Context) error {
	v, err := s.controller.View(ctx, s.conversation)
	if err != nil {
		return err
	}
	if !v.Open {
		fmt.Fprintf(s.out, "panel closed (status %s)\n", s.status(v.Status))
		return nil
	}
	fmt.Fprintf(s.out, "%s / %s (%s)\n%s\n", v.FlowName, v.NodeID, s.status(v.Status), v.Question)
	for i, label := range v.Options {
		fmt.Fprintf(s.out, "  %d. %s\n", i+1, label)
	}
	if len(v.Replies) > 0 {
		fmt.Fprintf(s.out, "  replies: %s\n", strings.Join(v.Replies, ", "))
	}
	return nil
}
