package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/bgv-gateway/auth"
	"github.com/jrsteele09/bgv-gateway/client"
	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
	"github.com/jrsteele09/bgv-gateway/internal/fakebackend"
	"github.com/jrsteele09/bgv-gateway/navigation"
	"github.com/jrsteele09/bgv-gateway/sessions"
	"github.com/jrsteele09/bgv-gateway/token/refresh"
	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/stretchr/testify/require"
)

const (
	testUserID       = "user-1"
	testUserEmail    = "verifier@example.com"
	testUserPassword = "password123"
)

// testFixture holds all test dependencies
type testFixture struct {
	backend    *fakebackend.Backend
	server     *httptest.Server
	store      *sessions.Store
	location   *navigation.Location
	dispatcher *client.Dispatcher
	service    *auth.Service
}

func setupTestFixture(t *testing.T, options ...fakebackend.Option) *testFixture {
	t.Helper()

	backend := fakebackend.New(options...)
	_, err := backend.AddUser(users.Profile{
		ID:        testUserID,
		Email:     testUserEmail,
		FirstName: "Vera",
		LastName:  "Fier",
		Role:      users.RoleVerifier,
		UserType:  users.UserTypeInternal,
	}, testUserPassword)
	require.NoError(t, err)

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	f := &testFixture{
		backend:  backend,
		server:   server,
		store:    sessions.NewStore(),
		location: navigation.NewLocation(navigation.RouteLogin),
	}
	gate := refresh.NewGate(f.store, func(ctx context.Context) (*refresh.Result, error) {
		return f.service.Refresh(ctx)
	}, f.location)

	f.dispatcher, err = client.New(server.URL, f.store, gate, f.location, client.WithMinLatency(0))
	require.NoError(t, err)
	f.service, err = auth.NewService(f.dispatcher, f.store)
	require.NoError(t, err)
	return f
}

func (f *testFixture) login(t *testing.T) *auth.LoginResult {
	t.Helper()
	ctx := context.Background()
	challenge, err := f.service.VerifyCredentials(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	result, err := f.service.VerifyOTP(ctx, challenge.MFASessionID, fakebackend.DefaultOTP)
	require.NoError(t, err)
	return result
}

func TestNewService(t *testing.T) {
	_, err := auth.NewService(nil, sessions.NewStore())
	require.Error(t, err)

	d, err := client.New("http://localhost", sessions.NewStore(), nil, nil)
	require.NoError(t, err)
	_, err = auth.NewService(d, nil)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	challenge, err := f.service.VerifyCredentials(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NotEmpty(t, challenge.MFASessionID)
	require.Equal(t, "OTP sent to registered email", challenge.Message)
	require.False(t, f.store.IsAuthenticated())

	result, err := f.service.VerifyOTP(ctx, challenge.MFASessionID, fakebackend.DefaultOTP)
	require.NoError(t, err)
	require.False(t, result.RoleSelectionRequired)
	require.Equal(t, navigation.RouteDashboard, result.NextRoute)
	require.Equal(t, testUserID, result.User.ID)

	snap := f.store.Snapshot()
	require.True(t, snap.IsAuthenticated())
	require.Equal(t, string(users.RoleVerifier), *snap.LoggedInRole)
	require.Equal(t, string(users.UserTypeInternal), *snap.UserType)
	require.Equal(t, "access", *snap.TokenType)
	require.Equal(t, "Vera Fier", snap.User.DisplayName())

	reqs := f.backend.Requests()
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		require.Empty(t, r.Authorization)
	}
}

func TestLogin_RoleSelection(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.backend.AddUser(users.Profile{
		ID:       "user-2",
		Email:    "multi@example.com",
		Roles:    []users.RoleType{users.RoleAdmin, users.RoleVerifier},
		UserType: users.UserTypeInternal,
	}, testUserPassword)
	require.NoError(t, err)

	ctx := context.Background()
	challenge, err := f.service.VerifyCredentials(ctx, "multi@example.com", testUserPassword)
	require.NoError(t, err)
	result, err := f.service.VerifyOTP(ctx, challenge.MFASessionID, fakebackend.DefaultOTP)
	require.NoError(t, err)
	require.True(t, result.RoleSelectionRequired)
	require.Equal(t, navigation.RouteSelectRole, result.NextRoute)
}

func TestLogin_Failures(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t.Run("invalid input never reaches the backend", func(t *testing.T) {
		_, err := f.service.VerifyCredentials(ctx, "not-an-email", testUserPassword)
		require.ErrorIs(t, err, gwerrors.ErrInvalidRequest)
		_, err = f.service.VerifyOTP(ctx, "mfa", "12")
		require.ErrorIs(t, err, gwerrors.ErrInvalidRequest)
		require.Empty(t, f.backend.Requests())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.VerifyCredentials(ctx, testUserEmail, "wrong")
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.Status)
		require.Equal(t, "Invalid email or password", apiErr.Message)
		require.ErrorIs(t, err, gwerrors.ErrNotAuthorized)
	})

	t.Run("wrong otp", func(t *testing.T) {
		challenge, err := f.service.VerifyCredentials(ctx, testUserEmail, testUserPassword)
		require.NoError(t, err)
		_, err = f.service.VerifyOTP(ctx, challenge.MFASessionID, "000000")
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "Invalid OTP", apiErr.Message)
		require.False(t, f.store.IsAuthenticated())

		require.NoError(t, f.service.ResendOTP(ctx, challenge.MFASessionID))
		require.Error(t, f.service.ResendOTP(ctx, "unknown-session"))
	})
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Refresh(ctx)
	require.ErrorIs(t, err, gwerrors.ErrRefreshFailed, "no refresh cookie yet")

	f.login(t)
	result, err := f.service.Refresh(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, testUserID, result.User.ID)

	reqs := f.backend.Requests()
	last := reqs[len(reqs)-1]
	require.Equal(t, auth.RouteRefreshToken, last.Path)
	require.True(t, last.HasCookie)
	require.Empty(t, last.Authorization)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.login(t)

	require.NoError(t, f.service.Logout(ctx))
	require.False(t, f.store.IsAuthenticated())
	require.Nil(t, f.store.Snapshot().User)

	_, err := f.service.Refresh(ctx)
	require.Error(t, err, "refresh cookie should be gone")
}

func TestMe(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Me(ctx)
	require.ErrorIs(t, err, gwerrors.ErrSessionExpired)

	f.login(t)
	f.store.SetUser(nil)
	profile, err := f.service.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, profile.Email)
	require.Equal(t, testUserEmail, f.store.Snapshot().User.Email)
}

func TestMe_RefreshesExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	expired := fakebackend.MintToken(fakebackend.Claims{
		Subject:    testUserID,
		ActiveRole: string(users.RoleVerifier),
		UserType:   string(users.UserTypeInternal),
		TokenType:  "access",
		ExpiresAt:  time.Now().Add(-time.Minute),
	})
	require.NoError(t, f.store.SetAuthData(expired))

	_, err := f.service.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.backend.RefreshCalls())
	require.NotEqual(t, expired, f.store.AccessToken())
}

func TestVerifyInvite(t *testing.T) {
	tests := []struct {
		name   string
		invite fakebackend.Invite
		status auth.InviteStatus
	}{
		{name: "valid", invite: fakebackend.Invite{CandidateID: "cand-1"}, status: auth.InviteValid},
		{name: "submitted", invite: fakebackend.Invite{Code: fakebackend.CodeAlreadySubmitted}, status: auth.InviteAlreadySubmitted},
		{name: "disabled", invite: fakebackend.Invite{Code: fakebackend.CodeDisabled}, status: auth.InviteDisabled},
		{name: "expired", invite: fakebackend.Invite{ExpiresAt: time.Now().Add(-time.Hour)}, status: auth.InviteExpired},
		{name: "legacy submitted", invite: fakebackend.Invite{Code: fakebackend.CodeAlreadySubmitted, Legacy: true}, status: auth.InviteAlreadySubmitted},
		{name: "legacy expired", invite: fakebackend.Invite{Code: fakebackend.CodeExpired, Legacy: true}, status: auth.InviteExpired},
		{name: "wrong kind", invite: fakebackend.Invite{Kind: fakebackend.InviteAddress}, status: auth.InviteInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			raw := f.backend.CreateInvite(tt.invite)
			f.location.Set("/fill-candidate-form?token=" + raw)

			v, err := f.service.VerifyInvite(context.Background(), raw)
			require.NoError(t, err)
			require.Equal(t, tt.status, v.Status)
			require.Equal(t, tt.status == auth.InviteValid, v.Usable())

			if tt.status == auth.InviteValid {
				require.Equal(t, tt.invite.CandidateID, v.CandidateID)
				require.Equal(t, raw, f.store.AccessToken())
				require.Equal(t, "invite", *f.store.Snapshot().TokenType)
			} else {
				require.False(t, f.store.IsAuthenticated())
			}
			require.Zero(t, f.backend.RefreshCalls())
		})
	}
}

func TestVerifyAddressInvite(t *testing.T) {
	f := setupTestFixture(t)
	raw := f.backend.CreateInvite(fakebackend.Invite{CandidateID: "cand-7", Kind: fakebackend.InviteAddress})
	f.location.Set("/verify-address?token=" + raw)

	v, err := f.service.VerifyAddressInvite(context.Background(), raw)
	require.NoError(t, err)
	require.True(t, v.Usable())
	require.Equal(t, "cand-7", v.CandidateID)
	require.Equal(t, "address_invite", *f.store.Snapshot().TokenType)

	_, err = f.service.VerifyAddressInvite(context.Background(), "garbage")
	require.ErrorIs(t, err, gwerrors.ErrInvalidRequest)
	require.ErrorIs(t, err, gwerrors.ErrInvalidInvite)
}

func TestFetchFile(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddFile("evidence-1", "application/pdf", []byte("%PDF-1.7"))
	f.login(t)

	file, err := f.service.FetchFile(context.Background(), "evidence-1")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", file.ContentType)
	require.Equal(t, []byte("%PDF-1.7"), file.Data)

	_, err = f.service.FetchFile(context.Background(), "missing")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

// stubRequester answers every call with the same response.
type stubRequester struct {
	resp *client.Response
}

func (s stubRequester) AuthenticatedRequest(context.Context, any, string, string, ...client.RequestOption) (*client.Response, error) {
	return s.resp, nil
}

func (s stubRequester) UnauthenticatedRequest(context.Context, any, string, string, ...client.RequestOption) (*client.Response, error) {
	return s.resp, nil
}

func (s stubRequester) CookieRequest(context.Context, client.RequestConfig) (*client.Response, error) {
	return s.resp, nil
}

func TestVerifyOTP_MissingUser(t *testing.T) {
	raw := fakebackend.MintToken(fakebackend.Claims{
		Subject:    testUserID,
		ActiveRole: string(users.RoleVerifier),
		TokenType:  "access",
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	store := sessions.NewStore()
	service, err := auth.NewService(stubRequester{resp: &client.Response{
		Status:  http.StatusOK,
		Success: true,
		Data:    json.RawMessage(`{"accessToken":"` + raw + `"}`),
	}}, store)
	require.NoError(t, err)

	_, err = service.VerifyOTP(context.Background(), "mfa-1", fakebackend.DefaultOTP)
	require.ErrorIs(t, err, auth.MissingUserErr)
	require.False(t, store.IsAuthenticated())
}
