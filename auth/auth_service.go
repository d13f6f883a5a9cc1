// Package auth wraps the backend's authentication, profile, invitation and
// file endpoints on top of the request dispatcher and session store.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/bgv-gateway/client"
	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
	"github.com/jrsteele09/bgv-gateway/navigation"
	"github.com/jrsteele09/bgv-gateway/token/refresh"
	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	RouteVerifyCredentials   = "/auth/verify-credentials"
	RouteVerifyOTP           = "/auth/verify-otp"
	RouteResendOTP           = "/auth/resend-otp"
	RouteRefreshToken        = "/auth/refresh-token"
	RouteLogout              = "/auth/logout"
	RouteUserMe              = "/user/me"
	RouteVerifyInvite        = "/auth/verify-invite"
	RouteVerifyAddressInvite = "/auth/verify-address-invite"
	RouteFiles               = "/files/"
)

// Requester is the part of the dispatcher the service sends through.
type Requester interface {
	AuthenticatedRequest(ctx context.Context, body any, url, method string, options ...client.RequestOption) (*client.Response, error)
	UnauthenticatedRequest(ctx context.Context, body any, url, method string, options ...client.RequestOption) (*client.Response, error)
	CookieRequest(ctx context.Context, cfg client.RequestConfig) (*client.Response, error)
}

// SessionStore is the part of the session store the service writes to.
type SessionStore interface {
	SetAuthData(token string) error
	SetUser(profile *users.Profile)
	Clear()
}

// MFAChallenge is returned once the credentials are accepted and an OTP has
// been sent.
type MFAChallenge struct {
	MFASessionID string `json:"mfaSessionId"`
	Message      string `json:"-"`
}

// LoginResult is the outcome of a successful OTP verification.
type LoginResult struct {
	User                  *users.Profile
	RoleSelectionRequired bool
	NextRoute             string
}

// File is a downloaded binary file.
type File struct {
	ContentType string
	Data        []byte
}

type tokenPayload struct {
	AccessToken           string         `json:"accessToken"`
	User                  *users.Profile `json:"user"`
	RoleSelectionRequired bool           `json:"roleSelectionRequired"`
}

type invitePayload struct {
	AbleToFillForm bool   `json:"ableToFillForm"`
	CandidateID    string `json:"candidateId"`
}

// Service performs the authentication flows against the BGV backend.
type Service struct {
	requester Requester
	store     SessionStore
	validator *Validator
}

func NewService(requester Requester, store SessionStore) (*Service, error) {
	if requester == nil {
		return nil, errors.New("[NewService] requester is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	return &Service{
		requester: requester,
		store:     store,
		validator: NewValidator(),
	}, nil
}

// VerifyCredentials checks email and password and starts the OTP challenge.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*MFAChallenge, error) {
	if err := s.validator.ValidateCredentials(email, password); err != nil {
		return nil, errors.Wrap(err, "[VerifyCredentials]")
	}
	resp, err := s.requester.UnauthenticatedRequest(ctx, map[string]string{
		"email":    email,
		"password": password,
	}, RouteVerifyCredentials, http.MethodPost)
	if err != nil {
		return nil, errors.Wrap(err, "[VerifyCredentials]")
	}
	if err := resp.Err(); err != nil {
		return nil, errors.Wrap(err, "[VerifyCredentials]")
	}

	var challenge MFAChallenge
	if err := resp.Decode(&challenge); err != nil {
		return nil, errors.Wrap(err, "[VerifyCredentials]")
	}
	if challenge.MFASessionID == "" {
		return nil, MissingMFASessionErr
	}
	challenge.Message = resp.Message
	return &challenge, nil
}

// VerifyOTP completes the login. The access token and user are written to the
// session store and the backend's refresh cookie lands in the cookie jar.
func (s *Service) VerifyOTP(ctx context.Context, mfaSessionID, otp string) (*LoginResult, error) {
	if err := s.validator.ValidateOTP(mfaSessionID, otp); err != nil {
		return nil, errors.Wrap(err, "[VerifyOTP]")
	}
	cfg := client.NewRequest(http.MethodPost, RouteVerifyOTP).WithBody(map[string]string{
		"mfaSessionId": mfaSessionID,
		"otp":          otp,
	})
	resp, err := s.requester.CookieRequest(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "[VerifyOTP]")
	}
	if err := resp.Err(); err != nil {
		return nil, errors.Wrap(err, "[VerifyOTP]")
	}

	var payload tokenPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "[VerifyOTP]")
	}
	if payload.AccessToken == "" {
		return nil, MissingAccessTokenErr
	}
	if payload.User == nil {
		return nil, MissingUserErr
	}
	if err := s.store.SetAuthData(payload.AccessToken); err != nil {
		return nil, errors.Wrap(err, "[VerifyOTP] SetAuthData")
	}
	s.store.SetUser(payload.User)

	result := &LoginResult{
		User:                  payload.User,
		RoleSelectionRequired: payload.RoleSelectionRequired,
		NextRoute:             navigation.RouteDashboard,
	}
	if result.RoleSelectionRequired {
		result.NextRoute = navigation.RouteSelectRole
	}
	log.Info().Str("user", payload.User.DisplayName()).Msg("Logged in")
	return result, nil
}

func (s *Service) ResendOTP(ctx context.Context, mfaSessionID string) error {
	if err := s.validator.ValidateMFASession(mfaSessionID); err != nil {
		return errors.Wrap(err, "[ResendOTP]")
	}
	resp, err := s.requester.UnauthenticatedRequest(ctx, map[string]string{
		"mfaSessionId": mfaSessionID,
	}, RouteResendOTP, http.MethodPost)
	if err != nil {
		return errors.Wrap(err, "[ResendOTP]")
	}
	return errors.Wrap(resp.Err(), "[ResendOTP]")
}

// Refresh exchanges the refresh cookie for a new access token. It only talks
// to the backend; the refresh gate decides what happens to the session.
func (s *Service) Refresh(ctx context.Context) (*refresh.Result, error) {
	resp, err := s.requester.CookieRequest(ctx, client.NewRequest(http.MethodPost, RouteRefreshToken))
	if err != nil {
		return nil, refreshFailed(err)
	}
	if err := resp.Err(); err != nil {
		return nil, refreshFailed(err)
	}
	var payload tokenPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, refreshFailed(err)
	}
	if payload.AccessToken == "" {
		return nil, refreshFailed(MissingAccessTokenErr)
	}
	return &refresh.Result{AccessToken: payload.AccessToken, User: payload.User}, nil
}

func refreshFailed(err error) error {
	return errors.Wrap(fmt.Errorf("%w: %w", gwerrors.ErrRefreshFailed, err), "[Refresh]")
}

// Logout invalidates the refresh cookie server side. The local session is
// cleared whatever the backend says.
func (s *Service) Logout(ctx context.Context) error {
	defer s.store.Clear()

	resp, err := s.requester.CookieRequest(ctx, client.NewRequest(http.MethodPost, RouteLogout))
	if err != nil {
		return errors.Wrap(err, "[Logout]")
	}
	return errors.Wrap(resp.Err(), "[Logout]")
}

// Me fetches the logged in user's profile and stores it in the session.
func (s *Service) Me(ctx context.Context) (*users.Profile, error) {
	resp, err := s.requester.AuthenticatedRequest(ctx, nil, RouteUserMe, http.MethodGet)
	if err != nil {
		return nil, errors.Wrap(err, "[Me]")
	}
	if err := resp.Err(); err != nil {
		return nil, errors.Wrap(err, "[Me]")
	}
	var profile users.Profile
	if err := resp.Decode(&profile); err != nil {
		return nil, errors.Wrap(err, "[Me]")
	}
	s.store.SetUser(&profile)
	return &profile, nil
}

// VerifyInvite checks a candidate form link. A usable link's token becomes
// the session token. Backend rejections come back as a non-valid status, not
// as an error.
func (s *Service) VerifyInvite(ctx context.Context, inviteToken string) (*InviteVerification, error) {
	return s.verifyInvite(ctx, RouteVerifyInvite, inviteToken)
}

// VerifyAddressInvite checks an address verification link.
func (s *Service) VerifyAddressInvite(ctx context.Context, inviteToken string) (*InviteVerification, error) {
	return s.verifyInvite(ctx, RouteVerifyAddressInvite, inviteToken)
}

func (s *Service) verifyInvite(ctx context.Context, route, inviteToken string) (*InviteVerification, error) {
	if err := s.validator.ValidateToken(inviteToken); err != nil {
		return nil, errors.Wrapf(fmt.Errorf("%w: %w", gwerrors.ErrInvalidInvite, err), "[verifyInvite] %s", route)
	}
	resp, err := s.requester.UnauthenticatedRequest(ctx, nil, route, http.MethodGet, client.Param("token", inviteToken))
	if err != nil {
		return nil, errors.Wrapf(err, "[verifyInvite] %s", route)
	}

	var payload invitePayload
	if resp.OK() && resp.Success {
		if err := resp.Decode(&payload); err != nil {
			return nil, errors.Wrapf(err, "[verifyInvite] %s", route)
		}
	}
	if !payload.AbleToFillForm {
		status := inviteStatus(resp.ErrorCode, resp.Message)
		if status == InviteValid {
			status = InviteInvalid
		}
		log.Info().Str("route", route).Int("status", resp.Status).Stringer("invite", status).Msg("Invitation rejected")
		return &InviteVerification{Status: status, Message: resp.Message}, nil
	}

	if err := s.store.SetAuthData(inviteToken); err != nil {
		return nil, errors.Wrapf(err, "[verifyInvite] %s SetAuthData", route)
	}
	return &InviteVerification{
		Status:      InviteValid,
		CandidateID: payload.CandidateID,
		Message:     resp.Message,
	}, nil
}

// FetchFile downloads a binary file. Downloads are never held back by the
// dispatcher's latency floor.
func (s *Service) FetchFile(ctx context.Context, fileID string) (*File, error) {
	if err := s.validator.ValidateFileID(fileID); err != nil {
		return nil, errors.Wrap(err, "[FetchFile]")
	}
	resp, err := s.requester.AuthenticatedRequest(ctx, nil, RouteFiles+url.PathEscape(fileID), http.MethodGet, client.AsBlob())
	if err != nil {
		return nil, errors.Wrap(err, "[FetchFile]")
	}
	if !resp.OK() {
		return nil, errors.Wrap(resp.Err(), "[FetchFile]")
	}
	return &File{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        resp.Body,
	}, nil
}
