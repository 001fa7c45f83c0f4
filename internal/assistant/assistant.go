// File: internal/assistant/assistant.go
package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/api/schemas"
	"github.com/okazakidev/adjutant/internal/config"
	"github.com/okazakidev/adjutant/internal/permissions"
)

// ANSI styling for the interactive loop.
const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Interpreter turns one utterance into an ordered command batch.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string) []schemas.Command
}

// Executor performs one confirmed command.
type Executor interface {
	Execute(ctx context.Context, cmd schemas.Command) schemas.Result
}

// Status reports subsystem availability for the banner.
type Status struct {
	BrowserLive     bool
	SearchAvailable bool
	WorkspaceRoot   string
}

// Assistant is the interactive loop: it feeds utterances to the interpreter,
// displays each proposed command with its confidence, obtains explicit
// per-command confirmation, and only then passes the command to the
// executor. Execution is strictly sequential within a batch.
type Assistant struct {
	cfg    config.Interface
	logger *zap.Logger
	interp Interpreter
	exec   Executor
	perms  *permissions.Store
	status Status

	in  *bufio.Scanner
	out io.Writer
}

// New wires the loop. The reader and writer are injected so the loop is
// testable without a terminal.
func New(cfg config.Interface, logger *zap.Logger, interp Interpreter, exec Executor,
	perms *permissions.Store, status Status, in io.Reader, out io.Writer) *Assistant {
	return &Assistant{
		cfg:    cfg,
		logger: logger.Named("assistant"),
		interp: interp,
		exec:   exec,
		perms:  perms,
		status: status,
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

// Run drives the read-interpret-confirm-execute loop until the user exits,
// input ends, or the context is cancelled. No single command failure ever
// terminates the loop.
func (a *Assistant) Run(ctx context.Context) error {
	a.printBanner()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprintf(a.out, "\n%s%sYOU >%s ", ansiBold, ansiCyan, ansiReset)
		if !a.in.Scan() {
			return a.in.Err()
		}
		utterance := strings.TrimSpace(a.in.Text())
		if utterance == "" {
			continue
		}
		if lower := strings.ToLower(utterance); lower == "quit" || lower == "exit" {
			fmt.Fprintf(a.out, "%sSystem shutdown initiated...%s\n", ansiRed, ansiReset)
			return nil
		}

		commands := a.interp.Interpret(ctx, utterance)
		a.runBatch(ctx, commands)
	}
}

// runBatch walks the ordered batch one command at a time; command N+1 does
// not begin until command N's result is rendered.
func (a *Assistant) runBatch(ctx context.Context, commands []schemas.Command) {
	for i, cmd := range commands {
		if cmd.Action == schemas.ActionRespond {
			// Conversational output needs no confirmation, but a respond
			// with nothing to say is dropped rather than printed blank.
			message, ok := cmd.StringParam("message")
			if !ok {
				a.logger.Warn("Dropping respond command with no message",
					zap.String("command_id", cmd.ID))
				continue
			}
			fmt.Fprintf(a.out, "%sAI >%s %s\n", ansiGreen, ansiReset, message)
			continue
		}

		a.printProposal(cmd, i+1, len(commands))

		if !a.confirm(cmd) {
			fmt.Fprintf(a.out, "%sAction cancelled.%s\n", ansiRed, ansiReset)
			continue
		}

		result := a.exec.Execute(ctx, cmd)
		a.logger.Info("Command executed",
			zap.String("command_id", cmd.ID),
			zap.String("action", string(cmd.Action)),
			zap.Bool("ok", result.OK),
			zap.String("kind", string(result.Kind)))
		fmt.Fprintf(a.out, "%sAI >%s %s\n", ansiGreen, ansiReset, result.Render())
	}
}

// confirm gates one command on the permission store and, when needed, an
// explicit y/n/a/d prompt. Persisted ALLOWED decisions only bypass the prompt
// when the command's confidence clears the configured threshold.
func (a *Assistant) confirm(cmd schemas.Command) bool {
	threshold := a.cfg.Assistant().ConfidenceThreshold
	decision := a.perms.Check(string(cmd.Action), cmd.Target())

	switch decision {
	case permissions.Denied:
		fmt.Fprintf(a.out, "%sBlocked by saved preference.%s\n", ansiRed, ansiReset)
		return false
	case permissions.Allowed:
		if cmd.Confidence >= threshold {
			fmt.Fprintf(a.out, "%sAuto-approved by saved preference.%s\n", ansiDim, ansiReset)
			return true
		}
	}

	if cmd.Confidence < threshold {
		fmt.Fprintf(a.out, "%sLow confidence (%.2f) - review carefully.%s\n",
			ansiYellow, cmd.Confidence, ansiReset)
	}

	fmt.Fprintf(a.out, "    %sEXECUTE?%s (y/n, a=always, d=never) > ", ansiYellow, ansiReset)
	if !a.in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(a.in.Text())) {
	case "y", "yes":
		return true
	case "a", "always":
		a.perms.Grant(string(cmd.Action), cmd.Target())
		return true
	case "d", "never":
		a.perms.Deny(string(cmd.Action), cmd.Target())
		return false
	default:
		return false
	}
}

// printProposal renders one proposed command with its parameters and
// confidence, in batch order.
func (a *Assistant) printProposal(cmd schemas.Command, index, total int) {
	fmt.Fprintf(a.out, "\n%sProposed Action (%d/%d)%s\n", ansiBold, index, total, ansiReset)
	fmt.Fprintf(a.out, "  Action:     %s\n", cmd.Action)
	fmt.Fprintf(a.out, "  Confidence: %.2f\n", cmd.Confidence)

	keys := make([]string, 0, len(cmd.Params))
	for k := range cmd.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  Param %-6s %v\n", k+":", cmd.Params[k])
	}
}

// printBanner shows the subsystem status table at startup.
func (a *Assistant) printBanner() {
	online := func(ok bool) string {
		if ok {
			return ansiGreen + "ONLINE" + ansiReset
		}
		return ansiRed + "OFFLINE" + ansiReset
	}

	fmt.Fprintf(a.out, "%s%sadjutant%s - natural language command agent\n\n", ansiBold, ansiCyan, ansiReset)
	fmt.Fprintf(a.out, "  Core Intelligence  %s\n", online(true))
	fmt.Fprintf(a.out, "  Screen Vision      %s\n", online(a.status.BrowserLive))
	fmt.Fprintf(a.out, "  Web Agent          %s\n", online(a.status.SearchAvailable))
	fmt.Fprintf(a.out, "  Workspace          %s%s%s\n", ansiDim, a.status.WorkspaceRoot, ansiReset)
	fmt.Fprintf(a.out, "\nType a request, or 'quit' to exit.\n")
}
