package auth

import "strings"

// InviteStatus is the outcome of verifying a one-time candidate link.
type InviteStatus int

const (
	InviteValid InviteStatus = iota
	InviteAlreadySubmitted
	InviteDisabled
	InviteExpired
	InviteInvalid
)

func (s InviteStatus) String() string {
	switch s {
	case InviteValid:
		return "valid"
	case InviteAlreadySubmitted:
		return "already_submitted"
	case InviteDisabled:
		return "disabled"
	case InviteExpired:
		return "expired"
	case InviteInvalid:
		return "invalid"
	}
	return "unknown"
}

var inviteCodes = map[string]InviteStatus{
	"ALREADY_SUBMITTED": InviteAlreadySubmitted,
	"DISABLED":          InviteDisabled,
	"EXPIRED":           InviteExpired,
	"INVALID_TOKEN":     InviteInvalid,
}

// InviteStatusFromCode maps the backend's errorCode to a status. ok is false
// for an empty or unknown code.
func InviteStatusFromCode(code string) (status InviteStatus, ok bool) {
	status, ok = inviteCodes[strings.ToUpper(strings.TrimSpace(code))]
	return status, ok
}

// ClassifyInviteMessage derives a status from the message text of backends
// that do not send errorCode. It is the only place message text is inspected.
func ClassifyInviteMessage(message string) InviteStatus {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "already") && strings.Contains(msg, "submitted"):
		return InviteAlreadySubmitted
	case strings.Contains(msg, "disabled"):
		return InviteDisabled
	case strings.Contains(msg, "expired"):
		return InviteExpired
	}
	return InviteInvalid
}

// InviteVerification is the result of VerifyInvite and VerifyAddressInvite.
type InviteVerification struct {
	Status      InviteStatus
	CandidateID string
	Message     string
}

// Usable reports whether the candidate may go on and fill in the form.
func (v *InviteVerification) Usable() bool {
	return v != nil && v.Status == InviteValid
}

func inviteStatus(code, message string) InviteStatus {
	if status, ok := InviteStatusFromCode(code); ok {
		return status
	}
	return ClassifyInviteMessage(message)
}
