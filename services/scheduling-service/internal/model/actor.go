package model

import "strings"

type Role string

const (
	RoleOwner        Role = "owner"
	RoleVeterinarian Role = "veterinarian"
	RoleReceptionist Role = "receptionist"
	RoleAuxiliary    Role = "auxiliary"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleVeterinarian, RoleReceptionist, RoleAuxiliary, RoleAdmin:
		return true
	}
	return false
}

// Actor is the caller on whose behalf an operation runs. PractitionerID is set for
// veterinarian accounts and references the practitioner record directly.
type Actor struct {
	UserID         string `json:"user_id"`
	Role           Role   `json:"role"`
	PractitionerID string `json:"practitioner_id,omitempty"`
}

// IsPractitioner reports whether the actor is the veterinarian identified by practitionerID.
func (a Actor) IsPractitioner(practitionerID string) bool {
	return a.Role == RoleVeterinarian && a.PractitionerID != "" && a.PractitionerID == practitionerID
}

// NewActor normalises caller identity from a token or gateway headers. It reports false
// when the user id is missing or the role is not one the clinic knows.
func NewActor(userID, role, practitionerID string) (Actor, bool) {
	a := Actor{
		UserID:         strings.TrimSpace(userID),
		Role:           Role(strings.ToLower(strings.TrimSpace(role))),
		PractitionerID: strings.TrimSpace(practitionerID),
	}
	return a, a.UserID != "" && a.Role.Valid()
}
