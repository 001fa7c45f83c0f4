// File: api/schemas/command.go
package schemas

import "fmt"

// Action identifies what a Command asks the executor to do.
type Action string

const (
	ActionRespond       Action = "respond"
	ActionOpenURL       Action = "open_url"
	ActionOpenApp       Action = "open_app"
	ActionCloseApp      Action = "close_app"
	ActionSystemControl Action = "system_control"
	ActionCreateFolder  Action = "create_folder"
	ActionWriteFile     Action = "write_file"
	ActionReadFile      Action = "read_file"
	ActionListDirectory Action = "list_directory"
	ActionAnalyzeScreen Action = "analyze_screen"
	ActionSearchWeb     Action = "search_web"
	ActionTypeText      Action = "type_text"
)

// requiredParams maps each known action to the parameter keys it cannot run
// without. Actions absent from this table take no required parameters.
var requiredParams = map[Action][]string{
	ActionOpenURL:       {"url"},
	ActionOpenApp:       {"name"},
	ActionCloseApp:      {"name"},
	ActionSystemControl: {"action"},
	ActionCreateFolder:  {"name"},
	ActionWriteFile:     {"filename", "content"},
	ActionReadFile:      {"filename"},
	ActionAnalyzeScreen: {"prompt"},
	ActionSearchWeb:     {"query"},
	ActionTypeText:      {"text"},
	ActionRespond:       {"message"},
}

// Known reports whether the action is part of the supported set.
func (a Action) Known() bool {
	switch a {
	case ActionRespond, ActionOpenURL, ActionOpenApp, ActionCloseApp,
		ActionSystemControl, ActionCreateFolder, ActionWriteFile,
		ActionReadFile, ActionListDirectory, ActionAnalyzeScreen,
		ActionSearchWeb, ActionTypeText:
		return true
	}
	return false
}

// Command is the unit the interpreter produces and the executor consumes.
// It is treated as immutable once built; the executor only reads it.
type Command struct {
	// ID is assigned at interpretation time and used for log correlation.
	ID string `json:"id,omitempty"`
	// Action selects the handler.
	Action Action `json:"action"`
	// Params carries the action-specific parameters. Keys and types are
	// only as trustworthy as their producer; ValidateParams gates them
	// before dispatch.
	Params map[string]any `json:"params"`
	// Confidence is the interpreter's certainty in [0,1]. Rule matches
	// report 1.0; model-produced values are advisory and unverified.
	Confidence float64 `json:"confidence"`
}

// StringParam returns the named parameter as a string, or ok=false if it is
// missing, not a string, or empty.
func (c Command) StringParam(key string) (string, bool) {
	v, ok := c.Params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ValidateParams checks that every required parameter for the command's
// action is present as a non-empty string. It is the single pre-dispatch
// gate, so individual handlers never see a half-formed command.
func (c Command) ValidateParams() error {
	for _, key := range requiredParams[c.Action] {
		if _, ok := c.StringParam(key); !ok {
			return fmt.Errorf("missing required parameter %q for action %q", key, c.Action)
		}
	}
	return nil
}

// Target returns the parameter that names what the command operates on, used
// as the second half of a permission-store key. Empty for parameterless
// actions.
func (c Command) Target() string {
	for _, key := range []string{"url", "name", "filename", "query", "action", "prompt", "text"} {
		if v, ok := c.StringParam(key); ok {
			return v
		}
	}
	return ""
}
