package role

import "strconv"

// Member is a roster entry: one user holding one role on one team.
type Member struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	TeamID  string `json:"teamId"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Role    Role   `json:"role"`
	Active  bool   `json:"active"`
	Version int64  `json:"version"`
}

func (m *Member) GetVersion() int64  { return m.Version }
func (m *Member) SetVersion(v int64) { m.Version = v }

// Field exposes filterable attributes.
func (m *Member) Field(name string) (string, bool) {
	switch name {
	case "TeamID":
		return m.TeamID, true
	case "UserID":
		return m.UserID, true
	case "Role":
		return m.Role.String(), true
	case "Active":
		return strconv.FormatBool(m.Active), true
	}
	return "", false
}
