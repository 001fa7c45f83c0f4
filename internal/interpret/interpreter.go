// File: internal/interpret/interpreter.go
package interpret

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/api/schemas"
	"github.com/okazakidev/adjutant/internal/llm"
)

// statusMessage is the fixed reply for the status rule.
const statusMessage = "All systems operational."

// parseFailureMessage is the generic reply when the model-assisted phase
// fails for any reason other than unparseable output.
const parseFailureMessage = "I encountered an error parsing your command."

// noActionMessage is the reply when the model parses cleanly but proposes no
// commands at all. The parse worked, so this reads as a clarification request
// rather than an error.
const noActionMessage = "I couldn't map that request to an action. Could you rephrase it?"

// urlRulePattern matches "open <url-or-domain>" and nothing else. Case folded
// at match time; the captured value keeps the utterance's original casing.
var urlRulePattern = regexp.MustCompile(`(?i)^open\s+(https?://\S+|www\.\S+|[a-z0-9][a-z0-9.-]*\.[a-z]{2,})$`)

// listSynonyms are the exact utterances the directory-listing rule accepts.
var listSynonyms = map[string]struct{}{
	"ls":         {},
	"list":       {},
	"list files": {},
	"show files": {},
}

// Interpreter turns one utterance into an ordered command batch. Fast
// deterministic rules run first; the model-assisted parser is the fallback.
// Interpret never fails upward: every failure path degrades to a respond
// command the loop can display.
type Interpreter struct {
	asker  llm.Asker
	logger *zap.Logger
}

// New creates an interpreter backed by the given request layer.
func New(asker llm.Asker, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		asker:  asker,
		logger: logger.Named("interpreter"),
	}
}

// Interpret parses natural language into structured commands. Rules are
// evaluated in fixed priority order with first match winning; only when no
// rule fires does the original utterance go to the model.
func (i *Interpreter) Interpret(ctx context.Context, utterance string) []schemas.Command {
	trimmed := strings.TrimSpace(utterance)
	normalized := strings.ToLower(trimmed)

	if cmd, ok := matchURLRule(trimmed); ok {
		return []schemas.Command{stamp(cmd)}
	}

	if _, ok := listSynonyms[normalized]; ok {
		return []schemas.Command{stamp(schemas.Command{
			Action:     schemas.ActionListDirectory,
			Params:     map[string]any{},
			Confidence: 1.0,
		})}
	}

	if strings.Contains(normalized, "system status") || normalized == "status" {
		return []schemas.Command{stamp(respondCommand(statusMessage, 1.0))}
	}

	return i.modelAssisted(ctx, trimmed)
}

// matchURLRule handles "open example.com" style utterances. Domain-only
// input is normalized by prefixing a secure scheme.
func matchURLRule(trimmed string) (schemas.Command, bool) {
	m := urlRulePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return schemas.Command{}, false
	}
	url := m[1]
	if !strings.HasPrefix(strings.ToLower(url), "http") {
		url = "https://" + url
	}
	return schemas.Command{
		Action:     schemas.ActionOpenURL,
		Params:     map[string]any{"url": url},
		Confidence: 1.0,
	}, true
}

// modelAssisted sends the original utterance to the request layer and parses
// the reply defensively.
func (i *Interpreter) modelAssisted(ctx context.Context, utterance string) []schemas.Command {
	raw, err := i.asker.Ask(ctx, utterance, llm.AskOptions{SystemPrompt: parserSystemPrompt})
	if err != nil {
		i.logger.Error("Model-assisted interpretation failed", zap.Error(err))
		return []schemas.Command{stamp(respondCommand(parseFailureMessage, 0.0))}
	}

	batch, err := ExtractCommands(raw)
	if err != nil {
		// Best effort: the raw text is usually a usable conversational
		// reply even when it is not valid JSON.
		i.logger.Warn("Model output was not parseable JSON, passing it through",
			zap.String("raw", raw), zap.Error(err))
		return []schemas.Command{stamp(respondCommand(raw, 1.0))}
	}
	if len(batch) == 0 {
		return []schemas.Command{stamp(respondCommand(noActionMessage, 0.0))}
	}

	out := make([]schemas.Command, 0, len(batch))
	for _, cmd := range batch {
		if cmd.Params == nil {
			cmd.Params = map[string]any{}
		}
		out = append(out, stamp(cmd))
	}
	return out
}

func respondCommand(message string, confidence float64) schemas.Command {
	return schemas.Command{
		Action:     schemas.ActionRespond,
		Params:     map[string]any{"message": message},
		Confidence: confidence,
	}
}

// stamp assigns the log-correlation id.
func stamp(cmd schemas.Command) schemas.Command {
	cmd.ID = uuid.NewString()
	return cmd
}
