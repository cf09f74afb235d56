// Package policy manages the user's compliance policies. The server list is
// canonical: every mutation is followed by a fresh fetch.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

var (
	ErrEmptyDescription = errors.New("policy description is empty")
	ErrNotFound         = errors.New("policy not found")
)

// API is the subset of the client used for policy CRUD.
type API interface {
	AddPolicy(ctx context.Context, direction, description string) (any, error)
	RemovePolicy(ctx context.Context, direction, description string) (any, error)
	GetPolicies(ctx context.Context) (client.PolicySet, error)
}

type Manager struct {
	api API
}

func NewManager(api API) *Manager {
	return &Manager{api: api}
}

// List returns input policies followed by output policies. IDs are derived
// from direction and position, so they are only stable until the next
// mutation.
func (m *Manager) List(ctx context.Context) ([]models.CompliancePolicy, error) {
	set, err := m.api.GetPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch policies: %w", err)
	}
	return FromSet(set), nil
}

func (m *Manager) Add(ctx context.Context, direction, description string) ([]models.CompliancePolicy, error) {
	d, desc, err := validate(direction, description)
	if err != nil {
		return nil, err
	}
	if _, err := m.api.AddPolicy(ctx, string(d), desc); err != nil {
		return nil, fmt.Errorf("failed to add policy: %w", err)
	}
	return m.List(ctx)
}

func (m *Manager) Remove(ctx context.Context, direction, description string) ([]models.CompliancePolicy, error) {
	d, desc, err := validate(direction, description)
	if err != nil {
		return nil, err
	}
	if _, err := m.api.RemovePolicy(ctx, string(d), desc); err != nil {
		return nil, fmt.Errorf("failed to remove policy: %w", err)
	}
	return m.List(ctx)
}

// RemoveByID resolves an id such as "output-2" against the current list and
// removes that policy.
func (m *Manager) RemoveByID(ctx context.Context, id string) ([]models.CompliancePolicy, error) {
	current, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range current {
		if p.ID == id {
			return m.Remove(ctx, string(p.Direction), p.Description)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// FromSet flattens the server's two lists into policy records.
func FromSet(set client.PolicySet) []models.CompliancePolicy {
	out := make([]models.CompliancePolicy, 0, len(set.InputPolicies)+len(set.OutputPolicies))
	for i, desc := range set.InputPolicies {
		out = append(out, record(models.DirectionInput, i, desc))
	}
	for i, desc := range set.OutputPolicies {
		out = append(out, record(models.DirectionOutput, i, desc))
	}
	return out
}

func record(d models.PolicyDirection, i int, desc string) models.CompliancePolicy {
	return models.CompliancePolicy{
		ID:          fmt.Sprintf("%s-%d", d, i),
		Direction:   d,
		Description: desc,
	}
}

func validate(direction, description string) (models.PolicyDirection, string, error) {
	d, err := models.ParseDirection(direction)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", client.ErrInvalidDirection, direction)
	}
	desc := strings.TrimSpace(description)
	if desc == "" {
		return "", "", ErrEmptyDescription
	}
	return d, desc, nil
}
