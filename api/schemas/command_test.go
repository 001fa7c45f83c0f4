// File: api/schemas/command_test.go
package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionKnown(t *testing.T) {
	for _, a := range []Action{
		ActionRespond, ActionOpenURL, ActionOpenApp, ActionCloseApp,
		ActionSystemControl, ActionCreateFolder, ActionWriteFile,
		ActionReadFile, ActionListDirectory, ActionAnalyzeScreen,
		ActionSearchWeb, ActionTypeText,
	} {
		assert.True(t, a.Known(), "%s should be known", a)
	}
	assert.False(t, Action("levitate").Known())
	assert.False(t, Action("").Known())
}

func TestStringParam(t *testing.T) {
	cmd := Command{Params: map[string]any{
		"url":   "https://example.com",
		"count": 3,
		"empty": "",
	}}

	v, ok := cmd.StringParam("url")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", v)

	_, ok = cmd.StringParam("count")
	assert.False(t, ok, "non-string values are rejected")

	_, ok = cmd.StringParam("empty")
	assert.False(t, ok, "empty strings count as missing")

	_, ok = cmd.StringParam("absent")
	assert.False(t, ok)
}

func TestValidateParams(t *testing.T) {
	t.Run("all required present", func(t *testing.T) {
		cmd := Command{Action: ActionWriteFile, Params: map[string]any{
			"filename": "a.txt", "content": "x",
		}}
		assert.NoError(t, cmd.ValidateParams())
	})

	t.Run("one of several missing", func(t *testing.T) {
		cmd := Command{Action: ActionWriteFile, Params: map[string]any{"filename": "a.txt"}}
		err := cmd.ValidateParams()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "content")
		assert.Contains(t, err.Error(), "write_file")
	})

	t.Run("parameterless action validates with nil params", func(t *testing.T) {
		cmd := Command{Action: ActionListDirectory}
		assert.NoError(t, cmd.ValidateParams())
	})
}

func TestTarget(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"url action", Command{Action: ActionOpenURL, Params: map[string]any{"url": "https://go.dev"}}, "https://go.dev"},
		{"app action", Command{Action: ActionOpenApp, Params: map[string]any{"name": "firefox"}}, "firefox"},
		{"file action", Command{Action: ActionReadFile, Params: map[string]any{"filename": "notes.txt"}}, "notes.txt"},
		{"system action", Command{Action: ActionSystemControl, Params: map[string]any{"action": "shutdown"}}, "shutdown"},
		{"parameterless", Command{Action: ActionListDirectory}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Target())
		})
	}
}
