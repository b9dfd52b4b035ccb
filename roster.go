package fingov

import (
	"context"
	"strings"

	"github.com/viant/fingov/model/ledger"
	"github.com/viant/fingov/model/quorum"
	"github.com/viant/fingov/model/role"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/commit"
	"github.com/viant/fingov/service/lock"
)

// Roster describes one team's members, families and budgets. It is the
// document imported by ImportRoster and LoadRoster.
type Roster struct {
	TeamID   string         `json:"teamId" yaml:"teamId"`
	Members  []RosterMember `json:"members" yaml:"members"`
	Families []RosterFamily `json:"families,omitempty" yaml:"families,omitempty"`
	Budgets  []RosterBudget `json:"budgets,omitempty" yaml:"budgets,omitempty"`
}

type RosterMember struct {
	UserID   string    `json:"userId" yaml:"userId"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Email    string    `json:"email,omitempty" yaml:"email,omitempty"`
	Role     role.Role `json:"role" yaml:"role"`
	Inactive bool      `json:"inactive,omitempty" yaml:"inactive,omitempty"`
}

type RosterFamily struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Inactive bool   `json:"inactive,omitempty" yaml:"inactive,omitempty"`
}

type RosterBudget struct {
	ID     string `json:"id" yaml:"id"`
	Season string `json:"season,omitempty" yaml:"season,omitempty"`
}

// RosterResult counts records written by an import.
type RosterResult struct {
	TeamID   string `json:"teamId"`
	Members  int    `json:"members"`
	Families int    `json:"families"`
	Budgets  int    `json:"budgets"`
}

// MemberID returns the roster entry id of userID on teamID.
func MemberID(teamID, userID string) string {
	return teamID + ":" + userID
}

// Validate checks the roster document.
func (r *Roster) Validate() error {
	if strings.TrimSpace(r.TeamID) == "" {
		return types.NewValidationError("teamId", "is required")
	}
	seen := map[string]bool{}
	for i, m := range r.Members {
		switch {
		case strings.TrimSpace(m.UserID) == "":
			return types.NewValidationError("members", "entry %d: userId is required", i)
		case !m.Role.Valid():
			return types.NewValidationError("members", "entry %d: role is required", i)
		case seen[m.UserID]:
			return types.NewValidationError("members", "duplicate userId %q", m.UserID)
		}
		seen[m.UserID] = true
	}
	for i, f := range r.Families {
		if strings.TrimSpace(f.ID) == "" {
			return types.NewValidationError("families", "entry %d: id is required", i)
		}
	}
	for i, b := range r.Budgets {
		if strings.TrimSpace(b.ID) == "" {
			return types.NewValidationError("budgets", "entry %d: id is required", i)
		}
	}
	return nil
}

// ImportRoster upserts the roster of one team. Existing budgets keep their status.
func (s *Service) ImportRoster(ctx context.Context, roster *Roster) (*RosterResult, error) {
	if roster == nil {
		return nil, types.NewValidationError("roster", "is required")
	}
	if err := roster.Validate(); err != nil {
		return nil, err
	}
	var result *RosterResult
	err := s.unit.Run(ctx, lock.Key("roster", roster.TeamID), func(ctx context.Context, scope *commit.Scope) error {
		result = &RosterResult{TeamID: roster.TeamID}
		tx := scope.Tx()
		for _, m := range roster.Members {
			id := MemberID(roster.TeamID, m.UserID)
			member, err := tx.Members().Load(ctx, id)
			if err != nil {
				return err
			}
			if member == nil {
				member = &role.Member{ID: id, UserID: m.UserID, TeamID: roster.TeamID}
			}
			member.Name, member.Email, member.Role, member.Active = m.Name, m.Email, m.Role, !m.Inactive
			if err = tx.Members().Save(ctx, member); err != nil {
				return err
			}
			result.Members++
		}
		for _, f := range roster.Families {
			family, err := tx.Families().Load(ctx, f.ID)
			if err != nil {
				return err
			}
			if family == nil {
				family = &quorum.Family{ID: f.ID, TeamID: roster.TeamID}
			} else if family.TeamID != roster.TeamID {
				return types.NewConflictError("family", f.ID, "", "belongs to team "+family.TeamID)
			}
			family.Name, family.Active = f.Name, !f.Inactive
			if err = tx.Families().Save(ctx, family); err != nil {
				return err
			}
			result.Families++
		}
		for _, b := range roster.Budgets {
			budget, err := tx.Budgets().Load(ctx, b.ID)
			if err != nil {
				return err
			}
			if budget != nil {
				if budget.TeamID != roster.TeamID {
					return types.NewConflictError("budget", b.ID, string(budget.Status), "belongs to team "+budget.TeamID)
				}
				continue
			}
			budget = &ledger.Budget{ID: b.ID, TeamID: roster.TeamID, Season: b.Season, Status: ledger.BudgetProposed}
			if err = tx.Budgets().Save(ctx, budget); err != nil {
				return err
			}
			result.Budgets++
		}
		return scope.Audit(ctx, "roster.import", "team", roster.TeamID, "", nil, map[string]interface{}{
			"members":  result.Members,
			"families": result.Families,
			"budgets":  result.Budgets,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LoadRoster imports the roster document at location.
func (s *Service) LoadRoster(ctx context.Context, location string) (*RosterResult, error) {
	roster := &Roster{}
	if err := s.metaService.Load(ctx, location, roster); err != nil {
		return nil, err
	}
	return s.ImportRoster(ctx, roster)
}
