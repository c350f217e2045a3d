package command

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Delegate performs a named operation and returns the log lines it produced.
// The runner treats the delegate as opaque: any error is captured into the
// audit record, never propagated to the HTTP caller.
type Delegate interface {
	Execute(ctx context.Context, command string, params map[string]interface{}) ([]string, error)
}

// SystemDelegate executes operations against the host's service manager.
type SystemDelegate struct{}

func (SystemDelegate) Execute(ctx context.Context, command string, params map[string]interface{}) ([]string, error) {
	switch command {
	case "restart":
		target, _ := params["target"].(string)
		if target == "" {
			return nil, errors.New("restart requires a target")
		}
		out, err := exec.CommandContext(ctx, "systemctl", "restart", target).CombinedOutput()
		lines := splitLines(string(out))
		if err != nil {
			return lines, fmt.Errorf("restart %s: %w", target, err)
		}
		return append(lines, fmt.Sprintf("restarted %s", target)), nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
