// internal/models/department.go
package models

import "strings"

// Department is a group members can ask to join. A department accepts
// requests only when MemberRoleID and ChannelID are set; LeaderRoleID is
// checked later in the submit flow.
type Department struct {
	Name         string `json:"name"`
	MemberRoleID string `json:"memberRoleId"`
	LeaderRoleID string `json:"leaderRoleId"`
	ChannelID    string `json:"channelId"`
}

// AcceptsRequests reports whether the member role and channel are configured.
func (d Department) AcceptsRequests() bool {
	return d.MemberRoleID != "" && d.ChannelID != ""
}

// DepartmentDirectory is the ordered set of configured departments.
type DepartmentDirectory struct {
	order  []string
	byName map[string]Department
}

func NewDepartmentDirectory(departments ...Department) *DepartmentDirectory {
	dir := &DepartmentDirectory{byName: make(map[string]Department, len(departments))}
	for _, d := range departments {
		if _, dup := dir.byName[d.Name]; !dup {
			dir.order = append(dir.order, d.Name)
		}
		dir.byName[d.Name] = d
	}
	return dir
}

// Lookup finds a department by exact name.
func (d *DepartmentDirectory) Lookup(name string) (Department, bool) {
	dept, ok := d.byName[name]
	return dept, ok
}

// All returns departments in display order.
func (d *DepartmentDirectory) All() []Department {
	out := make([]Department, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.byName[name])
	}
	return out
}

// ChoiceActionPrefix prefixes the custom id of every department button.
const ChoiceActionPrefix = "choix_"

// ChoiceActionID builds the button custom id for a department.
func ChoiceActionID(department string) string {
	return ChoiceActionPrefix + department
}

// DepartmentFromAction extracts the department name from a button custom id.
func DepartmentFromAction(actionID string) (string, bool) {
	if !strings.HasPrefix(actionID, ChoiceActionPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(actionID, ChoiceActionPrefix)
	return name, name != ""
}
