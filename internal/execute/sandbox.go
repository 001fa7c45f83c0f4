// File: internal/execute/sandbox.go
package execute

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox confines every filesystem-affecting action to one directory. The
// root is canonicalized once at construction; each target is canonicalized,
// resolved through symlinks, and prefix-checked before any filesystem call is
// made.
type Sandbox struct {
	root string
}

// NewSandbox canonicalizes the workspace root, resolving any symlinks in it.
// The root must already exist; config.ResolveWorkspaceRoot creates it at
// startup.
func NewSandbox(root string) (Sandbox, error) {
	if root == "" {
		return Sandbox{}, fmt.Errorf("sandbox root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Sandbox{}, fmt.Errorf("failed to canonicalize sandbox root %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Sandbox{}, fmt.Errorf("failed to resolve sandbox root %q: %w", root, err)
	}
	return Sandbox{root: filepath.Clean(resolved)}, nil
}

// Root returns the canonical sandbox root.
func (s Sandbox) Root() string { return s.root }

// Resolve joins name onto the root, canonicalizes the result, resolves
// symlinks, and rejects any target whose real path does not stay under the
// root. The one prefix check blocks ".." traversal, absolute-path overrides,
// and symlinks inside the workspace that point out of it. No filesystem write
// happens here; rejection happens before any side effect.
func (s Sandbox) Resolve(name string) (string, error) {
	var target string
	if filepath.IsAbs(name) {
		target = filepath.Clean(name)
	} else {
		target = filepath.Join(s.root, name)
	}

	resolved, err := resolveExisting(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target %q: %w", name, err)
	}

	if resolved != s.root && !strings.HasPrefix(resolved, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal out of workspace: target %q escapes %q", resolved, s.root)
	}
	return resolved, nil
}

// resolveExisting resolves symlinks on the deepest existing ancestor of
// target and rejoins the not-yet-existing remainder onto it, so write targets
// that do not exist yet still get their real path checked.
func resolveExisting(target string) (string, error) {
	suffix := ""
	dir := target
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(dir), suffix)
		dir = parent
	}
}
