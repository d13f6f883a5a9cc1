package fakebackend

import "time"

// InviteKind selects which verification endpoint accepts an invitation token.
type InviteKind int

const (
	InviteCandidateForm InviteKind = iota // /auth/verify-invite
	InviteAddress                         // /auth/verify-address-invite
)

// Structured error codes returned by the invitation endpoints.
const (
	CodeAlreadySubmitted = "ALREADY_SUBMITTED"
	CodeDisabled         = "DISABLED"
	CodeExpired          = "EXPIRED"
	CodeInvalidToken     = "INVALID_TOKEN"
)

var legacyMessages = map[string]string{
	CodeAlreadySubmitted: "Form has already been submitted",
	CodeDisabled:         "This link has been disabled by the administrator",
	CodeExpired:          "This link has expired",
	CodeInvalidToken:     "Invalid token",
}

// Invite is a one-time candidate link held by the fake backend.
type Invite struct {
	CandidateID string
	Kind        InviteKind
	Code        string    // Empty for a usable invite, otherwise one of the Code* values
	Legacy      bool      // Omit errorCode from failures, as older backends do
	ExpiresAt   time.Time // Defaults to 72 hours from creation
}

// CreateInvite registers inv and returns its one-time token.
func (b *Backend) CreateInvite(inv Invite) string {
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = b.nowFunc().Add(72 * time.Hour)
	}
	tokenType := "invite"
	if inv.Kind == InviteAddress {
		tokenType = "address_invite"
	}
	raw, err := signToken(b.secret, Claims{
		Subject:    inv.CandidateID,
		ActiveRole: "candidate",
		UserType:   "candidate",
		TokenType:  tokenType,
		ExpiresAt:  inv.ExpiresAt,
	})
	if err != nil {
		panic(err)
	}

	b.mu.Lock()
	b.invites[raw] = &inv
	b.mu.Unlock()
	return raw
}

// SetInviteCode changes the state of an existing invite, e.g. after submission.
func (b *Backend) SetInviteCode(token, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if inv, ok := b.invites[token]; ok {
		inv.Code = code
	}
}

func (b *Backend) lookupInvite(token string, kind InviteKind) (*Invite, string) {
	b.mu.Lock()
	inv, ok := b.invites[token]
	b.mu.Unlock()

	if !ok || inv.Kind != kind {
		return nil, CodeInvalidToken
	}
	if inv.Code != "" {
		return inv, inv.Code
	}
	if !b.nowFunc().Before(inv.ExpiresAt) {
		return inv, CodeExpired
	}
	return inv, ""
}
