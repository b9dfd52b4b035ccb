package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/fingov/internal/clock"
	mpolicy "github.com/viant/fingov/model/policy"
	"github.com/viant/fingov/model/types"
)

// Resolver resolves the policy snapshot of a team.
type Resolver interface {
	Resolve(teamID string) (*mpolicy.Context, error)
}

// Catalog holds the validated policy configuration and resolves per-team
// snapshots. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	defaults Defaults
	teams    map[string]TeamConfig
	revision int64
}

// NewCatalog validates cfg and builds a catalog. Invalid configuration is
// reported as a ConfigurationError and never adjusted.
func NewCatalog(cfg *Config) (*Catalog, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := validateDefaults(cfg.Defaults); err != nil {
		return nil, err
	}
	ret := &Catalog{
		defaults: cfg.Defaults,
		teams:    make(map[string]TeamConfig, len(cfg.Teams)),
		revision: 1,
	}
	ret.defaults.Tiers = cfg.Defaults.Tiers.Clone()
	for teamID, team := range cfg.Teams {
		if err := ret.validateTeam(teamID, team); err != nil {
			return nil, err
		}
		ret.teams[teamID] = team.clone()
	}
	return ret, nil
}

func validateDefaults(d Defaults) error {
	if err := d.Tiers.Validate(); err != nil {
		return types.NewConfigurationError("policy/defaults", "%v", err)
	}
	if d.EvidenceThreshold < 0 {
		return types.NewConfigurationError("policy/defaults", "evidence threshold must be >= 0, got %d", d.EvidenceThreshold)
	}
	if d.RequiredSigners < 1 {
		return types.NewConfigurationError("policy/defaults", "required signers must be >= 1, got %d", d.RequiredSigners)
	}
	if err := d.Governance.Validate(); err != nil {
		return types.NewConfigurationError("policy/defaults/governance", "%v", err)
	}
	return nil
}

func (c *Catalog) validateTeam(teamID string, team TeamConfig) error {
	scope := "policy/teams/" + teamID
	if strings.TrimSpace(teamID) == "" {
		return types.NewConfigurationError("policy/teams", "team id is required")
	}
	if err := team.Tiers.Validate(); err != nil {
		return types.NewConfigurationError(scope, "%v", err)
	}
	if team.EvidenceThreshold != nil && *team.EvidenceThreshold < 0 {
		return types.NewConfigurationError(scope, "evidence threshold must be >= 0, got %d", *team.EvidenceThreshold)
	}
	if team.RequiredSigners != nil && *team.RequiredSigners < 1 {
		return types.NewConfigurationError(scope, "required signers must be >= 1, got %d", *team.RequiredSigners)
	}
	seen := map[string]bool{}
	for _, spendCap := range team.SpendCaps {
		if seen[spendCap.Dimension] {
			return types.NewConfigurationError(scope, "duplicate spend cap for dimension %q", spendCap.Dimension)
		}
		seen[spendCap.Dimension] = true
		if spendCap.Amount < 0 {
			return types.NewConfigurationError(scope, "spend cap %q must be >= 0, got %d", spendCap.Dimension, spendCap.Amount)
		}
	}
	if team.QuorumThreshold != nil {
		if err := c.validateOverride(*team.QuorumThreshold); err != nil {
			return types.NewConfigurationError(scope, "%v", err)
		}
	}
	return nil
}

func (c *Catalog) validateOverride(threshold int) error {
	governance := c.defaults.Governance
	if !governance.AllowTeamOverride {
		return fmt.Errorf("team quorum override is not allowed")
	}
	bounds := governance.OverrideBounds()
	if !bounds.Contains(threshold) {
		return fmt.Errorf("%s threshold %d outside override bounds [%d, %d]", governance.Mode, threshold, bounds.Min, bounds.Max)
	}
	return nil
}

// SetTeamQuorumOverride replaces the team's quorum threshold. Values outside
// the override bounds of the active mode are rejected, never clamped.
func (c *Catalog) SetTeamQuorumOverride(teamID string, threshold int) error {
	if strings.TrimSpace(teamID) == "" {
		return types.NewValidationError("teamId", "is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.validateOverride(threshold); err != nil {
		return types.NewConfigurationError("policy/teams/"+teamID, "%v", err)
	}
	team := c.teams[teamID].clone()
	team.QuorumThreshold = &threshold
	c.teams[teamID] = team
	c.revision++
	return nil
}

// Revision returns the catalog revision; every accepted change increments it.
func (c *Catalog) Revision() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Teams returns configured team ids in ascending order.
func (c *Catalog) Teams() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make([]string, 0, len(c.teams))
	for teamID := range c.teams {
		ret = append(ret, teamID)
	}
	sort.Strings(ret)
	return ret
}

// Defaults returns a copy of the association defaults.
func (c *Catalog) Defaults() Defaults {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := c.defaults
	ret.Tiers = ret.Tiers.Clone()
	return ret
}

// Resolve returns the immutable policy snapshot effective for teamID. Teams
// without overrides resolve to the association defaults.
func (c *Catalog) Resolve(teamID string) (*mpolicy.Context, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, types.NewValidationError("teamId", "is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	team := c.teams[teamID]
	snapshot := mpolicy.Snapshot{
		TeamID:            teamID,
		Tiers:             c.defaults.Tiers,
		EvidenceThreshold: c.defaults.EvidenceThreshold,
		RequiredSigners:   c.defaults.RequiredSigners,
		Governance:        c.defaults.Governance,
		Revision:          c.revision,
		ResolvedAt:        clock.Now(),
	}
	if team.Tiers != nil {
		snapshot.Tiers = team.Tiers
	}
	if team.EvidenceThreshold != nil {
		snapshot.EvidenceThreshold = *team.EvidenceThreshold
	}
	if team.RequiredSigners != nil {
		snapshot.RequiredSigners = *team.RequiredSigners
	}
	if team.QuorumThreshold != nil {
		snapshot.Governance.Threshold = *team.QuorumThreshold
	}
	for _, spendCap := range team.SpendCaps {
		snapshot.SpendCaps = append(snapshot.SpendCaps, mpolicy.SpendCap{
			Scope:  mpolicy.Scope{TeamID: teamID, Dimension: spendCap.Dimension},
			Amount: spendCap.Amount,
		})
	}
	return mpolicy.NewContext(snapshot), nil
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithContext embeds a resolved policy snapshot in ctx.
func WithContext(ctx context.Context, p *mpolicy.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy snapshot, or nil when none is attached.
func FromContext(ctx context.Context) *mpolicy.Context {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*mpolicy.Context); ok {
		return v
	}
	return nil
}
