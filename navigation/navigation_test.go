package navigation_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/bgv-gateway/internal/fakebackend"
	"github.com/jrsteele09/bgv-gateway/navigation"
	"github.com/jrsteele09/bgv-gateway/sessions"
	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/stretchr/testify/require"
)

func TestIsPublicPath(t *testing.T) {
	tests := []struct {
		path   string
		extra  []string
		public bool
	}{
		{path: "/fill-candidate-form?token=XYZ", public: true},
		{path: "/fill-candidate-form", public: true},
		{path: "/verify-address/abc", public: true},
		{path: "/reset-password/", public: true},
		{path: "fill-candidate-form", public: true},
		{path: "/fill-candidate-formx", public: false},
		{path: "/dashboard", public: false},
		{path: "/candidates?name=fill-candidate-form", public: false},
		{path: "", public: false},
		{path: "/", public: false},
		{path: "/kiosk/start", extra: []string{"/kiosk"}, public: true},
		{path: "/dashboard", extra: []string{"/"}, public: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.public, navigation.IsPublicPath(tt.path, tt.extra...))
		})
	}
}

func TestLocation(t *testing.T) {
	l := navigation.NewLocation("/fill-candidate-form?token=XYZ")
	require.True(t, l.IsPublic())
	require.Equal(t, "XYZ", l.Query("token"))

	l.Set("/dashboard")
	require.False(t, l.IsPublic())
	require.Equal(t, "/dashboard", l.Path())
	require.Empty(t, l.Query("token"))

	var nilLocation *navigation.Location
	require.False(t, nilLocation.IsPublic())

	kiosk := navigation.NewLocation("/kiosk", "/kiosk")
	require.True(t, kiosk.IsPublic())
}

func TestGuard(t *testing.T) {
	store := sessions.NewStore()
	require.Equal(t, navigation.Wait, navigation.Guard(store.Snapshot()))

	store.SetLoading(false)
	require.Equal(t, navigation.RedirectLogin, navigation.Guard(store.Snapshot()))

	raw := fakebackend.MintToken(fakebackend.Claims{
		Subject:    "user-1",
		ActiveRole: string(users.RoleVerifier),
		UserType:   string(users.UserTypeInternal),
		TokenType:  "access",
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, store.SetAuthData(raw))

	snap := store.Snapshot()
	require.Equal(t, navigation.Allow, navigation.Guard(snap))
	require.Equal(t, navigation.Allow, navigation.Guard(snap, users.RoleAdmin, users.RoleVerifier))
	require.Equal(t, navigation.Forbidden, navigation.Guard(snap, users.RoleSuperAdmin))
	require.Equal(t, "forbidden", navigation.Forbidden.String())
}
