package models

import (
	"fmt"
	"strings"
	"time"
)

type PolicyDirection string

const (
	DirectionInput  PolicyDirection = "input"
	DirectionOutput PolicyDirection = "output"
)

// ParseDirection accepts any casing of "input" or "output".
func ParseDirection(s string) (PolicyDirection, error) {
	switch d := PolicyDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionInput, DirectionOutput:
		return d, nil
	}
	return "", fmt.Errorf("invalid policy direction %q: must be input or output", s)
}

type CompliancePolicy struct {
	ID          string          `json:"id"`
	Direction   PolicyDirection `json:"direction"`
	Description string          `json:"description"`
}

// Credential is a bearer token plus its absolute expiry in unix seconds.
type Credential struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"exp"`
}

func (c Credential) ValidAt(now time.Time) bool {
	return c.Token != "" && c.ExpiresAt > now.Unix()
}

func (c Credential) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}
