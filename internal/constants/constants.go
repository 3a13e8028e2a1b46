// Package constants provides centralized constant values used throughout checkin.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by checkin.
const (
	// CheckinHome is the hidden directory name where checkin keeps its config
	// and history log. It is created in the user's home directory.
	CheckinHome = ".checkin"

	// LogsDir is the directory name where the rotating history log lives.
	LogsDir = "logs"

	// HistoryLogFileName is the rotating log that collects every run.
	HistoryLogFileName = "checkin.log"

	// GlobalConfigName is the name of the global configuration file.
	GlobalConfigName = "config.yaml"

	// DefaultEnvFileName is the dotenv file looked up in the working directory
	// and in the checkin home.
	DefaultEnvFileName = ".env"

	// DefaultScratchDir is where per-run artifacts are written.
	// Housekeeping of this directory is left to the operator.
	DefaultScratchDir = "/tmp"

	// ArtifactPrefix prefixes every per-run artifact file name.
	ArtifactPrefix = "checkin"
)

// Retry configuration defaults.
const (
	// DefaultMaxAttempts is the number of attempts made before a run is exhausted.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is multiplied by the attempt number to get the backoff
	// before the next attempt.
	DefaultBaseDelay = 5 * time.Second
)

// Browser defaults. The target site hides the check-in form below a minimum
// width, so the viewport is part of correctness.
const (
	// DefaultViewportWidth is the browser viewport width in pixels.
	DefaultViewportWidth = 1600

	// DefaultViewportHeight is the browser viewport height in pixels.
	DefaultViewportHeight = 1280

	// MinViewportWidth is the narrowest viewport the check-in form renders in.
	MinViewportWidth = 1024

	// DefaultActionTimeout bounds each locate/click/type driver call.
	DefaultActionTimeout = 30 * time.Second

	// DefaultSettleDwell is the fixed wait after the final confirmation click.
	DefaultSettleDwell = 3 * time.Second

	// DefaultSettleTimeout bounds polling for outstanding requests to clear.
	DefaultSettleTimeout = 20 * time.Second

	// DefaultSettlePollInterval is how often outstanding requests are polled.
	DefaultSettlePollInterval = 250 * time.Millisecond

	// DefaultTargetURL is the check-in site.
	DefaultTargetURL = "https://southwest.com"
)

// Log file rotation settings for the history log.
const (
	// LogMaxSizeMB is the maximum size in megabytes before rotation.
	LogMaxSizeMB = 5

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 5

	// LogMaxAgeDays is the maximum age of rotated files.
	LogMaxAgeDays = 90

	// LogCompress compresses rotated files.
	LogCompress = true
)

// Notification defaults.
const (
	// SendEmailBinary is the SMTP command-line client used to deliver reports.
	SendEmailBinary = "sendemail"

	// DefaultSenderName is the display name on outgoing reports.
	DefaultSenderName = "SWA Check In Script"

	// DefaultSendTimeout bounds a single sendemail invocation.
	DefaultSendTimeout = 2 * time.Minute
)

// RecordSchemaVersion is the current version of the run summary JSON schema.
const RecordSchemaVersion = "1.0"
