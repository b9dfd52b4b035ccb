package quorum

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects how the acknowledgment threshold is interpreted.
type Mode string

const (
	ModeCount   Mode = "COUNT"
	ModePercent Mode = "PERCENT"
)

// ParseMode converts a textual mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(value))) {
	case ModeCount:
		return ModeCount, nil
	case ModePercent:
		return ModePercent, nil
	}
	return "", fmt.Errorf("unknown quorum mode: %q", value)
}

// EligibleDefinition names the rule that decides which families count.
type EligibleDefinition string

// ActiveRoster counts families currently active on the team roster. It is the
// only supported definition.
const ActiveRoster EligibleDefinition = "ACTIVE_ROSTER"

// Family is a household on a team roster.
type Family struct {
	ID      string `json:"id"`
	TeamID  string `json:"teamId"`
	Name    string `json:"name,omitempty"`
	Active  bool   `json:"active"`
	Version int64  `json:"version"`
}

func (f *Family) GetVersion() int64  { return f.Version }
func (f *Family) SetVersion(v int64) { f.Version = v }

// Field exposes filterable attributes.
func (f *Family) Field(name string) (string, bool) {
	switch name {
	case "TeamID":
		return f.TeamID, true
	case "Active":
		return strconv.FormatBool(f.Active), true
	}
	return "", false
}

// Acknowledgment is a family's sign-off on a budget.
type Acknowledgment struct {
	ID             string     `json:"id"`
	BudgetID       string     `json:"budgetId"`
	FamilyID       string     `json:"familyId"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	Version        int64      `json:"version"`
}

func (a *Acknowledgment) GetVersion() int64  { return a.Version }
func (a *Acknowledgment) SetVersion(v int64) { a.Version = v }

// Field exposes filterable attributes.
func (a *Acknowledgment) Field(name string) (string, bool) {
	switch name {
	case "BudgetID":
		return a.BudgetID, true
	case "FamilyID":
		return a.FamilyID, true
	}
	return "", false
}

// Result is the outcome of a quorum evaluation.
type Result struct {
	Met       bool            `json:"met"`
	Mode      Mode            `json:"mode"`
	Threshold int             `json:"threshold"`
	Count     int             `json:"count"`
	Eligible  int             `json:"eligible"`
	Percent   decimal.Decimal `json:"percent"`
}
