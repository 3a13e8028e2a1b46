// This file implements the pre-flight check for external tools.

package config

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/checkin/internal/errors"
)

// ToolStatus represents whether an external tool was found.
type ToolStatus int

const (
	// ToolStatusMissing indicates the tool could not be found.
	ToolStatusMissing ToolStatus = iota

	// ToolStatusInstalled indicates the tool is available.
	ToolStatusInstalled
)

// String returns a human-readable representation of the tool status.
func (s ToolStatus) String() string {
	switch s {
	case ToolStatusInstalled:
		return "installed"
	case ToolStatusMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for human-readable JSON output.
func (s ToolStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Tool is an external program a run depends on.
type Tool struct {
	// Name is the tool identifier shown to the user.
	Name string `json:"name"`

	// Path is a binary name looked up on PATH, or an absolute file path.
	Path string `json:"path"`

	// Reason explains which setting needs the tool.
	Reason string `json:"reason"`

	// Resolved is the location the tool was found at.
	Resolved string `json:"resolved,omitempty"`

	// Status is the detection result.
	Status ToolStatus `json:"status"`
}

// LookPathFunc resolves a binary name on PATH.
type LookPathFunc func(file string) (string, error)

// RequiredTools returns the tools cfg needs: sendemail when mail is
// configured, and a custom Chromium binary when one is set.
func RequiredTools(cfg *Config) []Tool {
	var tools []Tool
	if cfg.Notification.Configured() {
		tools = append(tools, Tool{
			Name:   "sendemail",
			Path:   cfg.Notification.Binary,
			Reason: "notification is configured",
		})
	}
	if cfg.Browser.ExecutablePath != "" {
		tools = append(tools, Tool{
			Name:   "chromium",
			Path:   cfg.Browser.ExecutablePath,
			Reason: "browser.executable_path is set",
		})
	}
	return tools
}

// CheckTools detects every tool concurrently. It returns the detection
// results and, when any tool is missing, an error wrapping
// ErrMissingRequiredTools that names them.
func CheckTools(ctx context.Context, tools []Tool, lookPath LookPathFunc) ([]Tool, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	results := make([]Tool, len(tools))
	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)

	for i, tool := range tools {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			detected := detectTool(tool, lookPath)
			mu.Lock()
			results[i] = detected
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to detect tools: %w", err)
	}

	var missing []string
	for _, t := range results {
		if t.Status == ToolStatusMissing {
			missing = append(missing, fmt.Sprintf("%s (%s, needed because %s)", t.Name, t.Path, t.Reason))
		}
	}
	if len(missing) > 0 {
		return results, errors.Wrapf(errors.ErrMissingRequiredTools, "%s", strings.Join(missing, "; "))
	}
	return results, nil
}

// detectTool resolves one tool. Absolute paths are checked on disk,
// anything else is looked up on PATH.
func detectTool(tool Tool, lookPath LookPathFunc) Tool {
	tool.Status = ToolStatusMissing
	if strings.ContainsRune(tool.Path, os.PathSeparator) {
		if info, err := os.Stat(tool.Path); err == nil && !info.IsDir() {
			tool.Resolved = tool.Path
			tool.Status = ToolStatusInstalled
		}
		return tool
	}
	if resolved, err := lookPath(tool.Path); err == nil {
		tool.Resolved = resolved
		tool.Status = ToolStatusInstalled
	}
	return tool
}
