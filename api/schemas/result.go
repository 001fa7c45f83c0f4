// File: api/schemas/result.go
package schemas

import "fmt"

// FailureKind classifies why a command failed, so the loop can render (and
// log) failures uniformly instead of each handler inventing its own prose.
type FailureKind string

const (
	// FailureInvalidParams means a required parameter was missing or malformed.
	FailureInvalidParams FailureKind = "invalid_params"
	// FailureSandbox means a filesystem target resolved outside the workspace.
	FailureSandbox FailureKind = "sandbox_violation"
	// FailureUnsupported means the platform has no implementation for the action.
	FailureUnsupported FailureKind = "unsupported_platform"
	// FailureUnknownAction means the action tag is not in the supported set.
	FailureUnknownAction FailureKind = "unknown_action"
	// FailureCollaborator means an external subsystem (vision, search, input
	// injection, LLM backend) reported an error.
	FailureCollaborator FailureKind = "collaborator_error"
	// FailureInternal covers everything else caught at the executor boundary.
	FailureInternal FailureKind = "internal_error"
)

// Result is the outcome of executing one Command. Exactly one of the two
// shapes is populated: a success detail, or a failure kind plus detail.
type Result struct {
	OK     bool        `json:"ok"`
	Action Action      `json:"action"`
	Detail string      `json:"detail"`
	Kind   FailureKind `json:"kind,omitempty"`
}

// Success builds a successful result for the given action.
func Success(action Action, detail string) Result {
	return Result{OK: true, Action: action, Detail: detail}
}

// Failure builds a failed result tagged with the action and failure kind.
func Failure(action Action, kind FailureKind, detail string) Result {
	return Result{OK: false, Action: action, Kind: kind, Detail: detail}
}

// Render produces the user-facing text for the result. Failures are prefixed
// so they are recognizable even when spoken or logged out of context.
func (r Result) Render() string {
	if r.OK {
		return r.Detail
	}
	return fmt.Sprintf("Failed to execute %s: %s", r.Action, r.Detail)
}
