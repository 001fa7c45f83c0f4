// File: internal/assistant/assistant_test.go
package assistant_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/api/schemas"
	"github.com/okazakidev/adjutant/internal/assistant"
	"github.com/okazakidev/adjutant/internal/config"
	"github.com/okazakidev/adjutant/internal/permissions"
)

// scriptedInterpreter maps utterances to fixed batches.
type scriptedInterpreter struct {
	batches map[string][]schemas.Command
}

func (s scriptedInterpreter) Interpret(_ context.Context, utterance string) []schemas.Command {
	if batch, ok := s.batches[utterance]; ok {
		return batch
	}
	return []schemas.Command{{
		ID: "fallback", Action: schemas.ActionRespond,
		Params: map[string]any{"message": "unscripted"}, Confidence: 1.0,
	}}
}

// recordingExecutor records every command it is handed.
type recordingExecutor struct {
	executed []schemas.Command
}

func (r *recordingExecutor) Execute(_ context.Context, cmd schemas.Command) schemas.Result {
	r.executed = append(r.executed, cmd)
	return schemas.Success(cmd.Action, "done: "+string(cmd.Action))
}

type loopFixture struct {
	loop  *assistant.Assistant
	exec  *recordingExecutor
	perms *permissions.Store
	out   *bytes.Buffer
}

func newLoop(t *testing.T, interp assistant.Interpreter, input string) *loopFixture {
	t.Helper()
	cfg := &config.Config{
		AssistantC: config.AssistantConfig{ConfidenceThreshold: 0.6},
	}
	exec := &recordingExecutor{}
	perms := permissions.NewStore(filepath.Join(t.TempDir(), "permissions.json"), zap.NewNop())
	out := &bytes.Buffer{}

	loop := assistant.New(cfg, zap.NewNop(), interp, exec, perms,
		assistant.Status{WorkspaceRoot: "/tmp/ws"}, strings.NewReader(input), out)
	return &loopFixture{loop: loop, exec: exec, perms: perms, out: out}
}

func launchCommand(confidence float64) schemas.Command {
	return schemas.Command{
		ID:         "cmd-1",
		Action:     schemas.ActionOpenApp,
		Params:     map[string]any{"name": "firefox"},
		Confidence: confidence,
	}
}

func TestRunRespondNeedsNoConfirmation(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"hello": {{
			ID: "r1", Action: schemas.ActionRespond,
			Params: map[string]any{"message": "Hi! How can I help?"}, Confidence: 1.0,
		}},
	}}
	f := newLoop(t, interp, "hello\nquit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	assert.Contains(t, f.out.String(), "Hi! How can I help?")
	assert.NotContains(t, f.out.String(), "EXECUTE?")
	assert.Empty(t, f.exec.executed, "respond never reaches the executor")
}

func TestRunDropsMessagelessRespond(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"mumble": {{
			ID: "r1", Action: schemas.ActionRespond,
			Params: map[string]any{}, Confidence: 1.0,
		}},
	}}
	f := newLoop(t, interp, "mumble\nquit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	assert.NotContains(t, f.out.String(), "AI >", "a respond with no message prints nothing")
	assert.Empty(t, f.exec.executed)
}

func TestRunConfirmYes(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"launch firefox": {launchCommand(0.9)},
	}}
	f := newLoop(t, interp, "launch firefox\ny\nquit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	require.Len(t, f.exec.executed, 1)
	assert.Equal(t, schemas.ActionOpenApp, f.exec.executed[0].Action)
	assert.Contains(t, f.out.String(), "Proposed Action (1/1)")
	assert.Contains(t, f.out.String(), "done: open_app")
}

func TestRunConfirmNo(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"launch firefox": {launchCommand(0.9)},
	}}
	f := newLoop(t, interp, "launch firefox\nn\nquit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	assert.Empty(t, f.exec.executed)
	assert.Contains(t, f.out.String(), "Action cancelled.")
}

func TestRunAlwaysPersistsAndAutoApproves(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"launch firefox": {launchCommand(0.9)},
	}}
	// First run answers "a"; the second run of the same command must not
	// consume the next input line, which is the quit.
	f := newLoop(t, interp, "launch firefox\na\nlaunch firefox\nquit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	assert.Len(t, f.exec.executed, 2)
	assert.Equal(t, permissions.Allowed, f.perms.Check("open_app", "firefox"))
	assert.Contains(t, f.out.String(), "Auto-approved by saved preference.")
}

func TestRunNeverPersistsAndBlocks(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"launch firefox": {launchCommand(0.9)},
	}}
	f := newLoop(t, interp, "launch firefox\nd\nlaunch firefox\nquit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	assert.Empty(t, f.exec.executed)
	assert.Equal(t, permissions.Denied, f.perms.Check("open_app", "firefox"))
	assert.Contains(t, f.out.String(), "Blocked by saved preference.")
}

func TestRunLowConfidencePromptsDespiteSavedAllow(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"launch firefox": {launchCommand(0.3)},
	}}
	f := newLoop(t, interp, "launch firefox\nn\nquit\n")
	f.perms.Grant("open_app", "firefox")

	require.NoError(t, f.loop.Run(context.Background()))
	assert.Empty(t, f.exec.executed, "a saved allow does not bypass the prompt below the threshold")
	assert.Contains(t, f.out.String(), "Low confidence (0.30)")
	assert.Contains(t, f.out.String(), "EXECUTE?")
}

func TestRunBatchIsSequentialAndPerCommand(t *testing.T) {
	interp := scriptedInterpreter{batches: map[string][]schemas.Command{
		"set up reports": {
			{ID: "b1", Action: schemas.ActionCreateFolder,
				Params: map[string]any{"name": "reports"}, Confidence: 1.0},
			{ID: "b2", Action: schemas.ActionWriteFile,
				Params: map[string]any{"filename": "reports/notes.txt", "content": "done"}, Confidence: 1.0},
		},
	}}
	// Approve the first command, decline the second.
	f := newLoop(t, interp, "set up reports\ny\nn\nquit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	require.Len(t, f.exec.executed, 1, "declining one command must not skip or approve its siblings")
	assert.Equal(t, schemas.ActionCreateFolder, f.exec.executed[0].Action)
	assert.Contains(t, f.out.String(), "Proposed Action (1/2)")
	assert.Contains(t, f.out.String(), "Proposed Action (2/2)")
}

func TestRunQuitAndBlankLines(t *testing.T) {
	f := newLoop(t, scriptedInterpreter{}, "\n   \nexit\n")

	require.NoError(t, f.loop.Run(context.Background()))
	assert.Contains(t, f.out.String(), "System shutdown initiated...")
	assert.Empty(t, f.exec.executed)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newLoop(t, scriptedInterpreter{}, "hello\nquit\n")
	err := f.loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.exec.executed)
}
