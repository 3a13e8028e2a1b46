package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinels to user-facing messages. Order matters:
// the first errors.Is() match wins.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	{
		err: ErrConfiguration,
		info: ErrorInfo{
			Message: "Check-in configuration is incomplete or invalid.",
			Action:  "Set SWA_CONFIRMATION and SWA_NAME (or traveler.* in the config file) and retry.",
		},
	},
	{
		err: ErrMissingRequiredTools,
		info: ErrorInfo{
			Message: "A required external tool is not installed.",
			Action:  "Install the missing tool (e.g. sendemail) or unset the mail settings.",
		},
	},
	{
		err: ErrSiteReported,
		info: ErrorInfo{
			Message: "Southwest rejected the check-in.",
			Action:  "Read the attached page snapshot; the check-in window may not be open yet.",
		},
	},
	{
		err: ErrTimeout,
		info: ErrorInfo{
			Message: "The check-in page did not settle in time.",
			Action:  "Raise steps.settle_timeout or retry later.",
		},
	},
	{
		err: ErrInteraction,
		info: ErrorInfo{
			Message: "The browser could not operate the check-in page.",
			Action:  "The site layout may have changed; inspect the screenshot and update the selectors.",
		},
	},
	{
		err: ErrNotificationFailed,
		info: ErrorInfo{
			Message: "The result email could not be sent.",
			Action:  "Verify the mail server credentials.",
		},
	},
	{
		err: ErrRecordNotFound,
		info: ErrorInfo{
			Message: "No run summary was found at that path.",
		},
	},
}

// getErrorInfo looks up the ErrorInfo for a given error.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing obvious to do.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
