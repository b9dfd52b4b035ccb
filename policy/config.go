package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/quorum"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultEvidenceThreshold is the amount, in minor units, from which
	// supporting evidence is mandatory.
	DefaultEvidenceThreshold int64 = 50000
	// DefaultRequiredSigners is the number of cheque signatories.
	DefaultRequiredSigners = 2
)

// Config represents the declarative policy catalog.
type Config struct {
	Defaults Defaults              `json:"defaults" yaml:"defaults"`
	Teams    map[string]TeamConfig `json:"teams,omitempty" yaml:"teams,omitempty"`
}

// Defaults are association-wide rules applied to every team.
type Defaults struct {
	Tiers             mpolicy.Tiers           `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	EvidenceThreshold int64                   `json:"evidenceThreshold" yaml:"evidenceThreshold"`
	RequiredSigners   int                     `json:"requiredSigners" yaml:"requiredSigners"`
	Governance        mpolicy.GovernanceRules `json:"governance" yaml:"governance"`
}

// TeamConfig overrides defaults for one team. Nil fields inherit.
type TeamConfig struct {
	Tiers             mpolicy.Tiers `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	EvidenceThreshold *int64        `json:"evidenceThreshold,omitempty" yaml:"evidenceThreshold,omitempty"`
	RequiredSigners   *int          `json:"requiredSigners,omitempty" yaml:"requiredSigners,omitempty"`
	SpendCaps         []Cap         `json:"spendCaps,omitempty" yaml:"spendCaps,omitempty"`
	QuorumThreshold   *int          `json:"quorumThreshold,omitempty" yaml:"quorumThreshold,omitempty"`
}

// Cap is a base spend cap for a team dimension. An empty Dimension caps the
// whole team.
type Cap struct {
	Dimension string `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	Amount    int64  `json:"amount" yaml:"amount"`
}

// DefaultConfig returns the built-in association defaults.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			EvidenceThreshold: DefaultEvidenceThreshold,
			RequiredSigners:   DefaultRequiredSigners,
			Governance: mpolicy.GovernanceRules{
				Mode:              quorum.ModePercent,
				Threshold:         50,
				EligibleFamilies:  quorum.ActiveRoster,
				AllowTeamOverride: true,
				CountBounds:       mpolicy.Bounds{Min: 1, Max: 100},
				PercentBounds:     mpolicy.Bounds{Min: 50, Max: 100},
			},
		},
		Teams: map[string]TeamConfig{},
	}
}

// Load decodes a YAML catalog on top of DefaultConfig. Unknown keys are
// rejected.
func Load(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return ret, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(ret); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode policy catalog: %w", err)
	}
	if ret.Teams == nil {
		ret.Teams = map[string]TeamConfig{}
	}
	return ret, nil
}

func (t TeamConfig) clone() TeamConfig {
	ret := t
	ret.Tiers = t.Tiers.Clone()
	ret.SpendCaps = append([]Cap(nil), t.SpendCaps...)
	if t.EvidenceThreshold != nil {
		v := *t.EvidenceThreshold
		ret.EvidenceThreshold = &v
	}
	if t.RequiredSigners != nil {
		v := *t.RequiredSigners
		ret.RequiredSigners = &v
	}
	if t.QuorumThreshold != nil {
		v := *t.QuorumThreshold
		ret.QuorumThreshold = &v
	}
	return ret
}
