// File: internal/execute/platform.go
package execute

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner abstracts process invocation for the platform-facing actions so
// tests can observe calls without touching the host.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// openAppCommand selects the platform's native application launch facility.
func openAppCommand(goos, name string) (string, []string) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", name}
	case "darwin":
		return "open", []string{"-a", name}
	default:
		return "xdg-open", []string{name}
	}
}

// closeAppCommand selects the platform's process-termination facility. The
// kill is by image/process name and best-effort; success is judged solely by
// the command's exit status.
func closeAppCommand(goos, name string) (string, []string) {
	if goos == "windows" {
		return "taskkill", []string{"/IM", name + ".exe", "/F"}
	}
	return "pkill", []string{"-f", name}
}

// openURLCommand selects the platform's default-browser opener.
func openURLCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

// systemControlCommand maps a power action to the platform command. Only
// Windows is implemented; other OS families report not-implemented instead
// of attempting anything.
func systemControlCommand(goos, action string) (string, []string, error) {
	if goos != "windows" {
		return "", nil, fmt.Errorf("system control is not implemented on %s", goos)
	}
	switch action {
	case "shutdown":
		return "shutdown", []string{"/s", "/t", "0"}, nil
	case "restart":
		return "shutdown", []string{"/r", "/t", "0"}, nil
	case "lock":
		return "rundll32.exe", []string{"user32.dll,LockWorkStation"}, nil
	default:
		return "", nil, fmt.Errorf("unknown system action: %s", action)
	}
}
