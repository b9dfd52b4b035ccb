package role

import (
	"fmt"
	"strings"
)

// Role is a closed enumeration of team roles.
type Role int

const (
	Unknown Role = iota
	TeamMember
	Coach
	Manager
	President
	Treasurer
	AssistantTreasurer
	count
)

var names = [count]string{
	Unknown:            "UNKNOWN",
	TeamMember:         "MEMBER",
	Coach:              "COACH",
	Manager:            "MANAGER",
	President:          "PRESIDENT",
	Treasurer:          "TREASURER",
	AssistantTreasurer: "ASSISTANT_TREASURER",
}

// pairs maps a creator role to the role whose holder approves its expenses.
// Every role except Unknown must have an approver-eligible pair.
var pairs = [count]Role{
	Unknown:            Unknown,
	TeamMember:         Treasurer,
	Coach:              Treasurer,
	Manager:            Treasurer,
	President:          Treasurer,
	Treasurer:          AssistantTreasurer,
	AssistantTreasurer: Treasurer,
}

var approvers = [count]bool{
	President:          true,
	Treasurer:          true,
	AssistantTreasurer: true,
}

// All returns every valid role.
func All() []Role {
	ret := make([]Role, 0, int(count)-1)
	for r := TeamMember; r < count; r++ {
		ret = append(ret, r)
	}
	return ret
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r > Unknown && r < count }

func (r Role) String() string {
	if r < 0 || r >= count {
		return names[Unknown]
	}
	return names[r]
}

// Pair returns the approving role for expenses created by r.
func Pair(r Role) Role {
	if !r.Valid() {
		return Unknown
	}
	return pairs[r]
}

// CanApprove reports whether holders of r may act as approvers.
func (r Role) CanApprove() bool {
	return r.Valid() && approvers[r]
}

// Parse converts a role name into a Role.
func Parse(name string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for r := TeamMember; r < count; r++ {
		if names[r] == normalized {
			return r, nil
		}
	}
	return Unknown, fmt.Errorf("unknown role: %q", name)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role: %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
