// Package record persists a JSON summary of each run next to its artifacts
// so a finished run can be inspected after the fact.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrz1836/checkin/internal/constants"
	"github.com/mrz1836/checkin/internal/domain"
	"github.com/mrz1836/checkin/internal/engine"
	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// File and directory permissions for summaries.
const (
	filePerm = 0o600
	dirPerm  = 0o750
)

// Attempt is one attempt's entry in a summary.
type Attempt struct {
	Number int                `json:"number"`
	Status string             `json:"status"`
	Kind   checkinerrors.Kind `json:"kind,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Summary is the persisted view of a finished run.
type Summary struct {
	SchemaVersion string            `json:"schema_version"`
	Run           domain.RunContext `json:"run"`
	Attempts      []Attempt         `json:"attempts"`
	Artifacts     []domain.Artifact `json:"artifacts"`
	Subject       string            `json:"subject"`
	Notified      bool              `json:"notified"`
	RecordedAt    time.Time         `json:"recorded_at"`
}

// FromResult builds the summary of a finished run.
func FromResult(result *engine.RunResult, recordedAt time.Time) *Summary {
	s := &Summary{
		SchemaVersion: constants.RecordSchemaVersion,
		Run:           *result.Run,
		Attempts:      make([]Attempt, 0, len(result.Attempts)),
		Artifacts:     result.Artifacts,
		Subject:       result.Report.Subject,
		Notified:      result.Notified,
		RecordedAt:    recordedAt,
	}
	for _, a := range result.Attempts {
		entry := Attempt{Number: a.Attempt, Status: string(a.Status), Kind: a.Kind}
		if a.Err != nil {
			entry.Error = a.Err.Error()
		}
		s.Attempts = append(s.Attempts, entry)
	}
	return s
}

// Path returns the summary file path for runID inside dir.
func Path(dir, runID string) string {
	if dir == "" {
		dir = constants.DefaultScratchDir
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", constants.ArtifactPrefix, runID))
}

// Save writes s to dir and returns the file path.
func Save(dir string, s *Summary) (string, error) {
	if s == nil {
		return "", checkinerrors.Wrap(checkinerrors.ErrEmptyValue, "summary is required")
	}
	if s.Run.RunID == "" {
		return "", checkinerrors.Wrap(checkinerrors.ErrEmptyValue, "summary run id is required")
	}
	if s.SchemaVersion == "" {
		s.SchemaVersion = constants.RecordSchemaVersion
	}

	path := Path(dir, s.Run.RunID)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return "", fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a summary. A missing file returns ErrRecordNotFound.
func Load(path string) (*Summary, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is supplied by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, checkinerrors.Wrapf(checkinerrors.ErrRecordNotFound, "%s", path)
		}
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary %s: %w", path, err)
	}
	return &s, nil
}

// atomicWrite writes data to path via a synced temp file and rename.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
