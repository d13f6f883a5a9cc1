package users

import "strings"

// RoleType is a role carried in the active_role claim and on the user profile.
type RoleType string

const (
	// Internal (BGV operator) roles
	RoleSuperAdmin RoleType = "super_admin" // Full access, manages roles and users
	RoleAdmin      RoleType = "admin"       // Manages organizations, packages and candidates
	RoleOperations RoleType = "operations"  // Works verification cases
	RoleVerifier   RoleType = "verifier"    // Reviews address-verification evidence

	// Client organization roles
	RoleClientAdmin RoleType = "client_admin" // Manages a client organization's users
	RoleClientUser  RoleType = "client_user"  // Raises and tracks candidate checks

	// Candidate flows
	RoleCandidate RoleType = "candidate" // One-time link holder filling a form
)

// UserType is the user_type claim.
type UserType string

const (
	UserTypeInternal  UserType = "internal"
	UserTypeClient    UserType = "client"
	UserTypeCandidate UserType = "candidate"
)

// Profile is the user record returned by /user/me, verify-otp and refresh-token.
type Profile struct {
	ID             string     `json:"id,omitempty"`             // Unique identifier for the user
	Email          string     `json:"email,omitempty"`          // Login email
	FirstName      string     `json:"firstName,omitempty"`      // Given name
	LastName       string     `json:"lastName,omitempty"`       // Family name
	Role           RoleType   `json:"role,omitempty"`           // Currently active role
	Roles          []RoleType `json:"roles,omitempty"`          // Every role the user may select
	UserType       UserType   `json:"userType,omitempty"`       // internal, client or candidate
	OrganizationID string     `json:"organizationId,omitempty"` // Client organization, empty for internal users
}

// HasRole reports whether role is the active role or one of the selectable roles.
func (p *Profile) HasRole(role RoleType) bool {
	if p == nil {
		return false
	}
	if p.Role == role {
		return true
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DisplayName returns "First Last", falling back to the email.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

// IsInternal reports whether the user belongs to the BGV operator side.
func (p *Profile) IsInternal() bool {
	return p != nil && p.UserType == UserTypeInternal
}
