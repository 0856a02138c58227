package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

// Seed declares resources and quotas to provision at startup.
type Seed struct {
	Resources []SeedResource `yaml:"resources,omitempty"`
	Quotas    []SeedQuota    `yaml:"quotas,omitempty"`
}

// SeedResource is a catalog entry in a seed file. ID is required so that
// re-applying the file is idempotent.
type SeedResource struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	Type            string         `yaml:"type"`
	Description     string         `yaml:"description,omitempty"`
	Specs           map[string]any `yaml:"specs,omitempty"`
	Status          string         `yaml:"status,omitempty"`
	CostPerHour     float64        `yaml:"cost_per_hour"`
	MaxBookingHours float64        `yaml:"max_booking_hours,omitempty"`
	Owner           string         `yaml:"owner,omitempty"`
	Tags            []string       `yaml:"tags,omitempty"`
}

// SeedQuota is a quota declaration. An empty AgentID declares a global quota.
type SeedQuota struct {
	AgentID          string   `yaml:"agent_id,omitempty"`
	Type             string   `yaml:"type"`
	Limit            float64  `yaml:"limit"`
	Period           string   `yaml:"period,omitempty"`
	WarningThreshold *float64 `yaml:"warning_threshold,omitempty"`
	HardStop         *bool    `yaml:"hard_stop,omitempty"`
}

// LoadSeed reads and validates a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return &seed, nil
}

// Validate checks the fields the services cannot default.
func (s *Seed) Validate() error {
	seen := make(map[string]bool, len(s.Resources))
	for i, r := range s.Resources {
		if r.ID == "" {
			return fmt.Errorf("resources[%d]: id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("resources[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
	}
	for i, q := range s.Quotas {
		if q.Type == "" {
			return fmt.Errorf("quotas[%d]: type is required", i)
		}
	}
	return nil
}

// NewResource converts the declaration into catalog input.
func (r SeedResource) NewResource() model.NewResource {
	return model.NewResource{
		ID:              r.ID,
		Name:            r.Name,
		Type:            r.Type,
		Description:     r.Description,
		Specs:           r.Specs,
		Status:          model.ResourceStatus(r.Status),
		CostPerHour:     r.CostPerHour,
		MaxBookingHours: r.MaxBookingHours,
		Owner:           r.Owner,
		Tags:            r.Tags,
	}
}

// QuotaSpec converts the declaration into quota input.
func (q SeedQuota) QuotaSpec() model.QuotaSpec {
	spec := model.QuotaSpec{
		Type:             model.QuotaType(q.Type),
		Limit:            q.Limit,
		Period:           model.QuotaPeriod(q.Period),
		WarningThreshold: q.WarningThreshold,
		HardStop:         q.HardStop,
	}
	if q.AgentID != "" {
		agentID := q.AgentID
		spec.AgentID = &agentID
	}
	return spec
}
