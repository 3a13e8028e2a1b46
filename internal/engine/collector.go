package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/checkin/internal/browser"
	"github.com/mrz1836/checkin/internal/clock"
	"github.com/mrz1836/checkin/internal/constants"
	"github.com/mrz1836/checkin/internal/domain"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Collector captures forensic artifacts for each attempt of one run and
// keeps them in an append-only, attempt-ordered list.
type Collector struct {
	mu        sync.Mutex
	dir       string
	runID     string
	clock     clock.Clock
	logger    zerolog.Logger
	artifacts []domain.Artifact
}

// NewCollector creates a collector writing into dir for runID.
func NewCollector(dir, runID string, clk clock.Clock, logger zerolog.Logger) *Collector {
	if dir == "" {
		dir = constants.DefaultScratchDir
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Collector{
		dir:    dir,
		runID:  runID,
		clock:  clk,
		logger: logger.With().Str("component", "collector").Str("run_id", runID).Logger(),
	}
}

// ArtifactPath returns the file path for an attempt artifact. Names embed
// the run id and attempt number, so they never collide within a run.
func ArtifactPath(dir, runID string, attempt int, kind domain.ArtifactKind) string {
	name := fmt.Sprintf("%s-%s-attempt%d%s", constants.ArtifactPrefix, runID, attempt, kind.Extension())
	return filepath.Join(dir, name)
}

// LogPath returns the run log path for runID.
func LogPath(dir, runID string) string {
	if dir == "" {
		dir = constants.DefaultScratchDir
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", constants.ArtifactPrefix, runID, domain.ArtifactLogFile.Extension()))
}

// CaptureAttempt writes the page snapshot and screenshot of attempt. Each
// capture is independent and failures are logged, never returned. When the
// page body cannot be read the snapshot records why, so every attempt leaves
// at least one artifact behind.
func (c *Collector) CaptureAttempt(session browser.Session, attempt int) []domain.Artifact {
	var captured []domain.Artifact

	if a, ok := c.capturePage(session, attempt); ok {
		captured = append(captured, a)
	}
	if a, ok := c.captureScreenshot(session, attempt); ok {
		captured = append(captured, a)
	}

	c.mu.Lock()
	c.artifacts = append(c.artifacts, captured...)
	c.mu.Unlock()

	return captured
}

func (c *Collector) capturePage(session browser.Session, attempt int) (domain.Artifact, bool) {
	path := ArtifactPath(c.dir, c.runID, attempt, domain.ArtifactPageSnapshot)
	c.logger.Debug().Int("attempt", attempt).Str("path", path).Msg("capturing page")

	var body string
	if session == nil {
		body = "<!-- page snapshot unavailable: no active browser session -->\n"
	} else if b, err := session.CaptureBody(); err != nil {
		c.logger.Error().Err(err).Int("attempt", attempt).Msg("failed to capture page")
		body = fmt.Sprintf("<!-- page snapshot unavailable: %s -->\n", err)
	} else {
		body = b
	}

	return c.write(path, domain.ArtifactPageSnapshot, attempt, []byte(body))
}

func (c *Collector) captureScreenshot(session browser.Session, attempt int) (domain.Artifact, bool) {
	if session == nil {
		c.logger.Warn().Int("attempt", attempt).Msg("skipping screenshot: no active browser session")
		return domain.Artifact{}, false
	}

	path := ArtifactPath(c.dir, c.runID, attempt, domain.ArtifactScreenshot)
	c.logger.Debug().Int("attempt", attempt).Str("path", path).Msg("capturing screenshot")

	data, err := session.CaptureScreenshot()
	if err != nil {
		c.logger.Error().Err(err).Int("attempt", attempt).Msg("failed to capture screenshot")
		return domain.Artifact{}, false
	}

	return c.write(path, domain.ArtifactScreenshot, attempt, data)
}

func (c *Collector) write(path string, kind domain.ArtifactKind, attempt int, data []byte) (domain.Artifact, bool) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("failed to create artifact directory")
		return domain.Artifact{}, false
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("failed to write artifact")
		return domain.Artifact{}, false
	}
	return domain.Artifact{
		Kind:      kind,
		Attempt:   attempt,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: c.clock.Now(),
	}, true
}

// AddLog appends the run log at path. It is registered after the last
// attempt so it is the final attachment.
func (c *Collector) AddLog(path string, attempt int) {
	if path == "" {
		return
	}
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts = append(c.artifacts, domain.Artifact{
		Kind:      domain.ArtifactLogFile,
		Attempt:   attempt,
		Path:      path,
		Size:      size,
		CreatedAt: c.clock.Now(),
	})
}

// Artifacts returns a copy of everything collected so far, in capture order.
func (c *Collector) Artifacts() []domain.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Artifact, len(c.artifacts))
	copy(out, c.artifacts)
	return out
}
