package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Tool is an external binary liepavoice shells out to.
type Tool struct {
	Name    string
	Command string
	Purpose string
}

// Status is the result of locating a Tool.
type Status struct {
	Tool
	// Path is the resolved executable when available.
	Path string
	// Version is the first line of "<tool> -version", when it prints one.
	Version string
	Err     error
}

// Available reports whether the tool was found.
func (s Status) Available() bool { return s.Err == nil }

// Detail describes the status for a preflight line.
func (s Status) Detail() string {
	switch {
	case s.Err != nil:
		return s.Err.Error()
	case s.Version != "":
		return fmt.Sprintf("%s (%s)", s.Path, s.Version)
	default:
		return s.Path
	}
}

var errNotConfigured = errors.New("command not configured")

const versionTimeout = 5 * time.Second

// Check resolves each tool on PATH and asks it for a version line.
func Check(ctx context.Context, tools []Tool) []Status {
	statuses := make([]Status, 0, len(tools))
	for _, tool := range tools {
		tool.Command = strings.TrimSpace(tool.Command)
		status := Status{Tool: tool}
		if tool.Command == "" {
			status.Err = errNotConfigured
			statuses = append(statuses, status)
			continue
		}
		path, err := exec.LookPath(tool.Command)
		if err != nil {
			status.Err = fmt.Errorf("binary %q not found", tool.Command)
			statuses = append(statuses, status)
			continue
		}
		status.Path = path
		status.Version = versionLine(ctx, path)
		statuses = append(statuses, status)
	}
	return statuses
}

// Unavailable returns the statuses whose tool was not found.
func Unavailable(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available() {
			missing = append(missing, s)
		}
	}
	return missing
}

func versionLine(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output() //nolint:gosec
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return ""
	}
	line := strings.TrimSpace(scanner.Text())
	// "ffmpeg version 6.1.1 Copyright ..." keeps the "version 6.1.1" part.
	if fields := strings.Fields(line); len(fields) >= 3 && fields[1] == "version" {
		return strings.Join(fields[1:3], " ")
	}
	return line
}
