// Package slots defines the fixed routing template: the thirteen signature
// slots a dossier can carry, the phase each belongs to, and the marker the
// signer anchors its visible signature on.
package slots

import (
	"fmt"
	"slices"
	"strings"
)

// Key names a slot of the routing template.
type Key string

const (
	Submitter         Key = "Submitter"
	DepartmentHead    Key = "DepartmentHead"
	RelatedDepartment Key = "RelatedDepartment"
	KHTH              Key = "KHTH"
	HCQT              Key = "HCQT"
	TCCB              Key = "TCCB"
	TCKT              Key = "TCKT"
	CTCD              Key = "CTCD"
	Deputy1           Key = "Deputy1"
	Deputy2           Key = "Deputy2"
	Deputy3           Key = "Deputy3"
	Clerk             Key = "Clerk"
	Director          Key = "Director"
)

// Phase groups slots that become eligible together.
type Phase int

const (
	Region1 Phase = iota + 1
	Region2
	Region3
	ClerkPhase
	DirectorPhase
)

func (p Phase) String() string {
	switch p {
	case Region1:
		return "Region1"
	case Region2:
		return "Region2"
	case Region3:
		return "Region3"
	case ClerkPhase:
		return "Clerk"
	case DirectorPhase:
		return "Director"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Kind selects how an assignee is resolved for a slot.
type Kind int

const (
	// DepartmentStaffed slots are signed by the head of a department.
	DepartmentStaffed Kind = iota + 1
	// Leadership slots are bound to a named user in the system configuration.
	Leadership
	// Registry is the clerk slot, signed by any active clerk.
	Registry
)

type def struct {
	key      Key
	phase    Phase
	kind     Kind
	optional bool
}

// template lists every slot in template order. The position (1-based) is the
// slot's marker index.
var template = []def{
	{Submitter, Region1, DepartmentStaffed, false},
	{DepartmentHead, Region1, DepartmentStaffed, false},
	{RelatedDepartment, Region1, DepartmentStaffed, true},
	{KHTH, Region2, DepartmentStaffed, false},
	{HCQT, Region2, DepartmentStaffed, false},
	{TCCB, Region2, DepartmentStaffed, false},
	{TCKT, Region2, DepartmentStaffed, false},
	{CTCD, Region2, DepartmentStaffed, false},
	{Deputy1, Region3, Leadership, false},
	{Deputy2, Region3, Leadership, false},
	{Deputy3, Region3, Leadership, false},
	{Clerk, ClerkPhase, Registry, false},
	{Director, DirectorPhase, Leadership, false},
}

var (
	// Sequential lists the Region1 slots in the order they must be signed.
	Sequential = []Key{Submitter, DepartmentHead, RelatedDepartment}
	// Functional lists the Region2 functional department slots.
	Functional = []Key{KHTH, HCQT, TCCB, TCKT, CTCD}
	// Deputies lists the Region3 deputy director slots.
	Deputies = []Key{Deputy1, Deputy2, Deputy3}
)

// All returns every slot key in template order.
func All() []Key {
	keys := make([]Key, len(template))
	for i, d := range template {
		keys[i] = d.key
	}
	return keys
}

// Parse resolves a slot code case-insensitively.
func Parse(code string) (Key, bool) {
	code = strings.TrimSpace(code)
	for _, d := range template {
		if strings.EqualFold(string(d.key), code) {
			return d.key, true
		}
	}
	return "", false
}

// Valid reports whether k is a template slot.
func (k Key) Valid() bool {
	return k.index() >= 0
}

// Phase returns the phase k belongs to, or zero for unknown keys.
func (k Key) Phase() Phase {
	if i := k.index(); i >= 0 {
		return template[i].phase
	}
	return 0
}

// Kind returns the assignee resolution kind of k, or zero for unknown keys.
func (k Key) Kind() Kind {
	if i := k.index(); i >= 0 {
		return template[i].kind
	}
	return 0
}

// Optional reports whether the template allows k to be left out.
func (k Key) Optional() bool {
	i := k.index()
	return i >= 0 && template[i].optional
}

// IsFunctional reports whether k is a Region2 functional department slot.
func (k Key) IsFunctional() bool {
	return slices.Contains(Functional, k)
}

// VisiblePattern returns the text marker ##{Sn}## placed in the document where
// the slot's visible signature goes. Unknown keys have no marker.
func (k Key) VisiblePattern() string {
	i := k.index()
	if i < 0 {
		return ""
	}
	return fmt.Sprintf("##{S%d}##", i+1)
}

func (k Key) index() int {
	return slices.IndexFunc(template, func(d def) bool { return d.key == k })
}
