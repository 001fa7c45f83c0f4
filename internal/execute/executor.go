// File: internal/execute/executor.go
package execute

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/api/schemas"
	"github.com/okazakidev/adjutant/internal/config"
	"github.com/okazakidev/adjutant/internal/llm"
)

// Capturer is the vision collaborator: it produces an opaque JPEG of the
// current screen on request. A nil Capturer or an error means capture is
// unavailable and screen analysis must fail with a specific message.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Searcher is the web-search collaborator. Implementations return formatted
// result text, including their own "no results" sentinel on empty results.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) (string, error)
}

// Typist is the input-injection collaborator. Failures are reported as text
// by the executor, never propagated as faults.
type Typist interface {
	Type(ctx context.Context, text string) error
}

// URLOpener opens a URL for the user. The default implementation shells out
// to the platform's browser opener; the managed browser session provides an
// in-session alternative.
type URLOpener interface {
	Open(ctx context.Context, url string) error
}

// Collaborators bundles the external subsystems the executor dispatches to.
// Any of them may be nil, in which case the matching action reports the
// subsystem as unavailable.
type Collaborators struct {
	Opener   URLOpener
	Runner   Runner
	Capturer Capturer
	Searcher Searcher
	Typist   Typist
}

// Executor validates and performs one command at a time. Execute never
// panics through to the caller and never returns an error: every outcome is
// a Result the loop can render.
type Executor struct {
	sandbox    Sandbox
	logger     *zap.Logger
	asker      llm.Asker
	collab     Collaborators
	maxResults int
	goos       string
}

// New constructs an executor rooted at the configured workspace.
func New(cfg config.Interface, logger *zap.Logger, asker llm.Asker, collab Collaborators) (*Executor, error) {
	sandbox, err := NewSandbox(cfg.Workspace().Root)
	if err != nil {
		return nil, err
	}
	if collab.Runner == nil {
		collab.Runner = ExecRunner{}
	}
	return &Executor{
		sandbox:    sandbox,
		logger:     logger.Named("executor"),
		asker:      asker,
		collab:     collab,
		maxResults: cfg.Search().MaxResults,
		goos:       runtime.GOOS,
	}, nil
}

// Execute validates the command's parameters once, up front, then dispatches
// to the action handler. Unknown actions and validation failures are explicit
// results, not silent drops.
func (e *Executor) Execute(ctx context.Context, cmd schemas.Command) (res schemas.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic during command execution",
				zap.String("command_id", cmd.ID),
				zap.String("action", string(cmd.Action)),
				zap.Any("panic", r))
			res = schemas.Failure(cmd.Action, schemas.FailureInternal, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if !cmd.Action.Known() {
		return schemas.Failure(cmd.Action, schemas.FailureUnknownAction,
			fmt.Sprintf("unknown action: %s", cmd.Action))
	}
	if err := cmd.ValidateParams(); err != nil {
		return schemas.Failure(cmd.Action, schemas.FailureInvalidParams, err.Error())
	}

	e.logger.Debug("Executing command",
		zap.String("command_id", cmd.ID),
		zap.String("action", string(cmd.Action)),
		zap.Float64("confidence", cmd.Confidence))

	switch cmd.Action {
	case schemas.ActionRespond:
		message, _ := cmd.StringParam("message")
		return schemas.Success(cmd.Action, message)

	case schemas.ActionOpenURL:
		url, _ := cmd.StringParam("url")
		return e.openURL(ctx, url)

	case schemas.ActionOpenApp:
		name, _ := cmd.StringParam("name")
		prog, args := openAppCommand(e.goos, name)
		if err := e.collab.Runner.Run(ctx, prog, args...); err != nil {
			return schemas.Failure(cmd.Action, schemas.FailureInternal,
				fmt.Sprintf("could not launch %q: %v", name, err))
		}
		return schemas.Success(cmd.Action, fmt.Sprintf("Launched application: %s", name))

	case schemas.ActionCloseApp:
		name, _ := cmd.StringParam("name")
		prog, args := closeAppCommand(e.goos, name)
		// Termination is best-effort: a nonzero exit usually just means
		// there was no such process.
		if err := e.collab.Runner.Run(ctx, prog, args...); err != nil {
			return schemas.Failure(cmd.Action, schemas.FailureCollaborator,
				fmt.Sprintf("could not close %q (it might not be running)", name))
		}
		return schemas.Success(cmd.Action, fmt.Sprintf("Closed application: %s", name))

	case schemas.ActionSystemControl:
		action, _ := cmd.StringParam("action")
		prog, args, err := systemControlCommand(e.goos, action)
		if err != nil {
			return schemas.Failure(cmd.Action, schemas.FailureUnsupported, err.Error())
		}
		if err := e.collab.Runner.Run(ctx, prog, args...); err != nil {
			return schemas.Failure(cmd.Action, schemas.FailureInternal, err.Error())
		}
		return schemas.Success(cmd.Action, fmt.Sprintf("System action initiated: %s", action))

	case schemas.ActionCreateFolder:
		name, _ := cmd.StringParam("name")
		return e.createFolder(name)

	case schemas.ActionWriteFile:
		filename, _ := cmd.StringParam("filename")
		content, _ := cmd.StringParam("content")
		return e.writeFile(filename, content)

	case schemas.ActionReadFile:
		filename, _ := cmd.StringParam("filename")
		return e.readFile(filename)

	case schemas.ActionListDirectory:
		return e.listDirectory()

	case schemas.ActionAnalyzeScreen:
		prompt, _ := cmd.StringParam("prompt")
		return e.analyzeScreen(ctx, prompt)

	case schemas.ActionSearchWeb:
		query, _ := cmd.StringParam("query")
		return e.searchWeb(ctx, query)

	case schemas.ActionTypeText:
		text, _ := cmd.StringParam("text")
		return e.typeText(ctx, text)
	}

	// Unreachable while Known covers the switch, kept as a hard stop.
	return schemas.Failure(cmd.Action, schemas.FailureUnknownAction,
		fmt.Sprintf("unknown action: %s", cmd.Action))
}

func (e *Executor) openURL(ctx context.Context, url string) schemas.Result {
	if e.collab.Opener != nil {
		if err := e.collab.Opener.Open(ctx, url); err == nil {
			return schemas.Success(schemas.ActionOpenURL, fmt.Sprintf("Opened URL: %s", url))
		}
		// Fall through to the platform opener when the managed session
		// cannot take the navigation.
	}
	prog, args := openURLCommand(e.goos, url)
	if err := e.collab.Runner.Run(ctx, prog, args...); err != nil {
		return schemas.Failure(schemas.ActionOpenURL, schemas.FailureInternal,
			fmt.Sprintf("could not open %q: %v", url, err))
	}
	return schemas.Success(schemas.ActionOpenURL, fmt.Sprintf("Opened URL: %s", url))
}

func (e *Executor) analyzeScreen(ctx context.Context, prompt string) schemas.Result {
	if e.collab.Capturer == nil {
		return schemas.Failure(schemas.ActionAnalyzeScreen, schemas.FailureCollaborator,
			"screen capture is unavailable")
	}
	img, err := e.collab.Capturer.Capture(ctx)
	if err != nil || len(img) == 0 {
		return schemas.Failure(schemas.ActionAnalyzeScreen, schemas.FailureCollaborator,
			fmt.Sprintf("failed to capture screen: %v", err))
	}

	answer, err := e.asker.Ask(ctx, prompt, llm.AskOptions{ImageJPEG: img})
	if err != nil {
		return schemas.Failure(schemas.ActionAnalyzeScreen, schemas.FailureCollaborator,
			fmt.Sprintf("vision analysis failed: %v", err))
	}
	return schemas.Success(schemas.ActionAnalyzeScreen, "Vision Analysis: "+answer)
}

func (e *Executor) searchWeb(ctx context.Context, query string) schemas.Result {
	if e.collab.Searcher == nil {
		return schemas.Failure(schemas.ActionSearchWeb, schemas.FailureCollaborator,
			"web search is unavailable")
	}
	// The searcher's formatted text, including its own "no results"
	// sentinel, passes through verbatim.
	text, err := e.collab.Searcher.Search(ctx, query, e.maxResults)
	if err != nil {
		return schemas.Failure(schemas.ActionSearchWeb, schemas.FailureCollaborator,
			fmt.Sprintf("web search failed: %v", err))
	}
	return schemas.Success(schemas.ActionSearchWeb, text)
}

func (e *Executor) typeText(ctx context.Context, text string) schemas.Result {
	if e.collab.Typist == nil {
		return schemas.Failure(schemas.ActionTypeText, schemas.FailureCollaborator,
			"text injection is unavailable")
	}
	if err := e.collab.Typist.Type(ctx, text); err != nil {
		return schemas.Failure(schemas.ActionTypeText, schemas.FailureCollaborator,
			fmt.Sprintf("failed to type text: %v", err))
	}
	return schemas.Success(schemas.ActionTypeText, "Typed text: "+text)
}
