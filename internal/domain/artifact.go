package domain

import "time"

// ArtifactKind identifies the type of forensic capture.
type ArtifactKind string

const (
	// ArtifactPageSnapshot is the page HTML at the end of an attempt.
	ArtifactPageSnapshot ArtifactKind = "page_snapshot"

	// ArtifactScreenshot is a PNG screenshot at the end of an attempt.
	ArtifactScreenshot ArtifactKind = "screenshot"

	// ArtifactLogFile is the run log.
	ArtifactLogFile ArtifactKind = "log_file"
)

// Extension returns the file extension used for the kind.
func (k ArtifactKind) Extension() string {
	switch k {
	case ArtifactPageSnapshot:
		return ".html"
	case ArtifactScreenshot:
		return ".png"
	case ArtifactLogFile:
		return ".log"
	default:
		return ".bin"
	}
}

// Artifact is a file captured during a run. Artifacts are created once and
// never mutated; a run keeps all of them until the report is sent.
type Artifact struct {
	Kind ArtifactKind `json:"kind"`

	// Attempt is the attempt the capture belongs to. The run log spans the
	// whole run and carries the final attempt number.
	Attempt int `json:"attempt"`

	// Path is where the artifact was written.
	Path string `json:"path"`

	// Size is the number of bytes written.
	Size int64 `json:"size"`

	CreatedAt time.Time `json:"created_at"`
}

// NotificationMessage is the single report sent at the end of a run.
type NotificationMessage struct {
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Attachments []Artifact `json:"attachments"`
}
