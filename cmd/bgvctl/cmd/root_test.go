package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/bgv-gateway/internal/fakebackend"
	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*fakebackend.Backend, string) {
	t.Helper()
	t.Setenv("BGV_MIN_LATENCY", "0s")
	t.Setenv("BGV_DATA_FOLDER", t.TempDir())

	backend := fakebackend.New()
	_, err := backend.AddUser(users.Profile{
		ID:        "user-1",
		Email:     "ops@example.com",
		FirstName: "Olive",
		LastName:  "Ops",
		Role:      users.RoleOperations,
		UserType:  users.UserTypeInternal,
	}, "password")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle(apiPrefix+"/", http.StripPrefix(apiPrefix, backend))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return backend, server.URL + apiPrefix
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	backend, api := newBackend(t)

	out, err := run(t, "--api", api, "login", "--email", "ops@example.com", "--password", "password", "--otp", fakebackend.DefaultOTP)
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as Olive Ops")

	// A new process only has the refresh cookie from the data file.
	out, err = run(t, "--api", api, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Email:  ops@example.com")
	require.Contains(t, out, "Role:   operations")
	require.Contains(t, out, "Access: BGV operations staff")
	require.Equal(t, 1, backend.RefreshCalls())

	_, err = run(t, "--api", api, "logout")
	require.NoError(t, err)

	_, err = run(t, "--api", api, "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestLogin_PromptsForOTP(t *testing.T) {
	_, api := newBackend(t)
	loginOTP = ""
	t.Cleanup(func() { loginOTP = "" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("resend\n" + fakebackend.DefaultOTP + "\n"))
	rootCmd.SetArgs([]string{"--api", api, "login", "--email", "ops@example.com", "--password", "password"})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), "OTP resent")
	require.Contains(t, out.String(), "Logged in as")
}

func TestInviteVerify(t *testing.T) {
	backend, api := newBackend(t)
	valid := backend.CreateInvite(fakebackend.Invite{CandidateID: "cand-3"})
	disabled := backend.CreateInvite(fakebackend.Invite{Code: fakebackend.CodeDisabled})

	out, err := run(t, "--api", api, "invite", "verify", valid)
	require.NoError(t, err)
	require.Contains(t, out, "Status: valid")
	require.Contains(t, out, "Candidate: cand-3")

	out, err = run(t, "--api", api, "invite", "verify", disabled)
	require.NoError(t, err)
	require.Contains(t, out, "Status: disabled")
	require.Zero(t, backend.RefreshCalls())
}

func TestFileGet(t *testing.T) {
	backend, api := newBackend(t)
	backend.AddFile("evidence-1", "application/pdf", []byte("%PDF-1.7"))
	_, err := run(t, "--api", api, "login", "--email", "ops@example.com", "--password", "password", "--otp", fakebackend.DefaultOTP)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "evidence.pdf")
	_, err = run(t, "--api", api, "file", "get", "evidence-1", "-o", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.7"), data)
	fileOutput = ""
}

func TestRecent(t *testing.T) {
	newBackend(t)

	_, err := run(t, "recent", "add", "cand-1", "--name", "Ada")
	require.NoError(t, err)
	_, err = run(t, "recent", "add", "cand-2", "--name", "Grace")
	require.NoError(t, err)

	out, err := run(t, "recent", "list")
	require.NoError(t, err)
	require.Less(t, strings.Index(out, "cand-2"), strings.Index(out, "cand-1"))

	_, err = run(t, "recent", "clear")
	require.NoError(t, err)
	out, err = run(t, "recent", "list")
	require.NoError(t, err)
	require.Contains(t, out, "No recent searches")
}
