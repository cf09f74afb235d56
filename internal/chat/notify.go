package chat

import "github.com/jasperwreed/guidera-chat/internal/models"

type Level int

const (
	LevelSuccess Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Notice is a short user-facing message, rendered as a toast or status line.
type Notice struct {
	Level Level
	Text  string
}

const (
	TextComplianceFailed  = "Compliance check failed - content blocked"
	TextComplianceWarning = "Content compliance warning - review recommended"
	TextCompliancePassed  = "Content passed all compliance checks"
	TextRequestFailed     = "Failed to analyze content. Please try again."
	TextHistoryCleared    = "Chat history cleared"
)

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

type discard struct{}

func (discard) Notify(Notice) {}

// complianceNotice maps a compliance status to its notice. ok is false for
// an absent or unknown status.
func complianceNotice(status models.ComplianceStatus) (Notice, bool) {
	switch status {
	case models.ComplianceFailed:
		return Notice{Level: LevelError, Text: TextComplianceFailed}, true
	case models.ComplianceWarning:
		return Notice{Level: LevelWarning, Text: TextComplianceWarning}, true
	case models.CompliancePassed:
		return Notice{Level: LevelSuccess, Text: TextCompliancePassed}, true
	}
	return Notice{}, false
}
