// File: internal/interpret/interpreter_test.go
package interpret

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/api/schemas"
	"github.com/okazakidev/adjutant/internal/llm"
	"github.com/okazakidev/adjutant/internal/mocks"
)

func newTestInterpreter(asker llm.Asker) *Interpreter {
	return New(asker, zap.NewNop())
}

// stripIDs clears the generated ids so batches can be compared structurally.
func stripIDs(batch []schemas.Command) []schemas.Command {
	out := make([]schemas.Command, len(batch))
	for i, cmd := range batch {
		cmd.ID = ""
		out[i] = cmd
	}
	return out
}

func TestInterpretRules(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		utterance string
		action    schemas.Action
		params    map[string]any
	}{
		{
			name:      "open full url",
			utterance: "open https://example.com/path",
			action:    schemas.ActionOpenURL,
			params:    map[string]any{"url": "https://example.com/path"},
		},
		{
			name:      "open bare domain gets secure scheme",
			utterance: "open example.com",
			action:    schemas.ActionOpenURL,
			params:    map[string]any{"url": "https://example.com"},
		},
		{
			name:      "open www domain",
			utterance: "open www.example.com",
			action:    schemas.ActionOpenURL,
			params:    map[string]any{"url": "https://www.example.com"},
		},
		{
			name:      "ls synonym",
			utterance: "ls",
			action:    schemas.ActionListDirectory,
			params:    map[string]any{},
		},
		{
			name:      "show files synonym",
			utterance: "  Show Files  ",
			action:    schemas.ActionListDirectory,
			params:    map[string]any{},
		},
		{
			name:      "system status substring",
			utterance: "give me the system status please",
			action:    schemas.ActionRespond,
			params:    map[string]any{"message": statusMessage},
		},
		{
			name:      "bare status",
			utterance: "status",
			action:    schemas.ActionRespond,
			params:    map[string]any{"message": statusMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &mocks.MockAsker{}
			interp := newTestInterpreter(asker)

			batch := interp.Interpret(ctx, tt.utterance)

			require.Len(t, batch, 1, "rule matches produce exactly one command")
			assert.Equal(t, tt.action, batch[0].Action)
			assert.Equal(t, 1.0, batch[0].Confidence, "rules always report full confidence")
			assert.NotEmpty(t, batch[0].ID)
			if diff := cmp.Diff(tt.params, batch[0].Params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
			assert.Empty(t, asker.Calls, "rule matches must not issue a model call")
		})
	}
}

func TestInterpretModelAssisted(t *testing.T) {
	ctx := context.Background()

	t.Run("compound request decomposes into ordered commands", func(t *testing.T) {
		asker := &mocks.MockAsker{}
		asker.On("Ask", mock.Anything, "create folder reports and write file notes.txt with done", mock.Anything).
			Return(`[
				{"action":"create_folder","params":{"name":"reports"},"confidence":1.0},
				{"action":"write_file","params":{"filename":"notes.txt","content":"done"},"confidence":1.0}
			]`, nil)
		interp := newTestInterpreter(asker)

		batch := interp.Interpret(ctx, "create folder reports and write file notes.txt with done")

		want := []schemas.Command{
			{Action: schemas.ActionCreateFolder, Params: map[string]any{"name": "reports"}, Confidence: 1.0},
			{Action: schemas.ActionWriteFile, Params: map[string]any{"filename": "notes.txt", "content": "done"}, Confidence: 1.0},
		}
		if diff := cmp.Diff(want, stripIDs(batch)); diff != "" {
			t.Errorf("batch mismatch (-want +got):\n%s", diff)
		}
		asker.AssertExpectations(t)
	})

	t.Run("model call carries the parser system prompt", func(t *testing.T) {
		asker := &mocks.MockAsker{}
		asker.On("Ask", mock.Anything, mock.Anything, llm.AskOptions{SystemPrompt: parserSystemPrompt}).
			Return(`[{"action":"respond","params":{"message":"hello"},"confidence":1.0}]`, nil)
		interp := newTestInterpreter(asker)

		interp.Interpret(ctx, "say hello")
		asker.AssertExpectations(t)
	})

	t.Run("unparseable model text passes through as best-effort response", func(t *testing.T) {
		raw := "I can't structure that, but here's my thinking."
		asker := &mocks.MockAsker{}
		asker.On("Ask", mock.Anything, mock.Anything, mock.Anything).Return(raw, nil)
		interp := newTestInterpreter(asker)

		batch := interp.Interpret(ctx, "do something odd")

		require.Len(t, batch, 1)
		assert.Equal(t, schemas.ActionRespond, batch[0].Action)
		assert.Equal(t, raw, batch[0].Params["message"])
		assert.Equal(t, 1.0, batch[0].Confidence)
	})

	t.Run("request layer failure degrades to a zero-confidence response", func(t *testing.T) {
		asker := &mocks.MockAsker{}
		asker.On("Ask", mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("backend down"))
		interp := newTestInterpreter(asker)

		batch := interp.Interpret(ctx, "anything at all")

		require.Len(t, batch, 1)
		assert.Equal(t, schemas.ActionRespond, batch[0].Action)
		assert.Equal(t, parseFailureMessage, batch[0].Params["message"])
		assert.Equal(t, 0.0, batch[0].Confidence)
	})

	t.Run("empty batch degrades to a clarification request", func(t *testing.T) {
		asker := &mocks.MockAsker{}
		asker.On("Ask", mock.Anything, mock.Anything, mock.Anything).Return("[]", nil)
		interp := newTestInterpreter(asker)

		batch := interp.Interpret(ctx, "hmm")

		require.Len(t, batch, 1)
		assert.Equal(t, schemas.ActionRespond, batch[0].Action)
		assert.Equal(t, noActionMessage, batch[0].Params["message"])
		assert.Equal(t, 0.0, batch[0].Confidence)
	})

	t.Run("original casing is forwarded to the model", func(t *testing.T) {
		asker := &mocks.MockAsker{}
		asker.On("Ask", mock.Anything, "Email Bob About The Meeting", mock.Anything).
			Return(`[{"action":"respond","params":{"message":"ok"},"confidence":1.0}]`, nil)
		interp := newTestInterpreter(asker)

		interp.Interpret(ctx, "  Email Bob About The Meeting  ")
		asker.AssertExpectations(t)
	})
}
