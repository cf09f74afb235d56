package cli

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

// Validator provides methods for validating CLI inputs
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEmail checks that the login email is present and well formed
func (v *Validator) ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}

// ValidateTradeoff checks the cost/performance tradeoff is in [0, 1]
func (v *Validator) ValidateTradeoff(tradeoff float64) error {
	if tradeoff < 0 || tradeoff > 1 {
		return fmt.Errorf("--tradeoff must be between 0 and 1, got %v", tradeoff)
	}
	return nil
}

// ValidateDirection parses a policy direction argument
func (v *Validator) ValidateDirection(direction string) (models.PolicyDirection, error) {
	return models.ParseDirection(direction)
}

// ValidateRole checks a --role filter; empty means no filter
func (v *Validator) ValidateRole(role string) (models.Role, error) {
	switch r := models.Role(strings.ToLower(role)); r {
	case "", models.RoleUser, models.RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q: must be user or assistant", role)
}

// ValidateStatus checks a --status filter; empty means no filter
func (v *Validator) ValidateStatus(status string) (models.ComplianceStatus, error) {
	s := models.ComplianceStatus(strings.ToLower(status))
	if s == "" || s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("invalid status %q: must be passed, warning or failed", status)
}

// ValidateFormat checks the export format
func (v *Validator) ValidateFormat(format string) error {
	switch format {
	case "json", "markdown":
		return nil
	}
	return fmt.Errorf("unsupported format %q: must be json or markdown", format)
}

// ResolvePath resolves a path to an absolute path
func (v *Validator) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path == "." {
		return os.Getwd()
	}

	if filepath.IsAbs(path) {
		return path, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return filepath.Join(cwd, path), nil
}

// GetDefaultDatabasePath returns the default database path
func (v *Validator) GetDefaultDatabasePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".guidera", "guidera.db"), nil
}
