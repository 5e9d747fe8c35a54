package model

import "strings"

// Role is the closed set of console personas.
type Role string

const (
	// RoleNone marks a session whose profile is missing or could not be loaded.
	RoleNone          Role = ""
	RoleAdmin         Role = "admin"
	RoleDoctor        Role = "doctor"
	RoleNurse         Role = "nurse"
	RolePharmacist    Role = "pharmacist"
	RoleLabTechnician Role = "lab_technician"
	RolePatient       Role = "patient"
)

// Roles lists every assignable role in display order.
var Roles = []Role{
	RoleAdmin,
	RoleDoctor,
	RoleNurse,
	RolePharmacist,
	RoleLabTechnician,
	RolePatient,
}

// ParseRole maps a stored role string to a Role. Unknown values yield RoleNone.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(s))
	if r.Valid() {
		return r, true
	}
	return RoleNone, false
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RolePharmacist, RoleLabTechnician, RolePatient:
		return true
	}
	return false
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Title renders the role for greetings and headers, e.g. "Lab Technician".
func (r Role) Title() string {
	if r == RoleNone {
		return "User"
	}
	parts := strings.Split(string(r), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
