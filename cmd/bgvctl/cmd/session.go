package cmd

import (
	"fmt"
	"strings"
	"time"

	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
	"github.com/jrsteele09/bgv-gateway/navigation"
	"github.com/jrsteele09/bgv-gateway/token"
	"github.com/spf13/cobra"
)

// dashboardPath is where session commands pretend to sit, so the start-up
// refresh runs.
const dashboardPath = navigation.RouteDashboard

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, dashboardPath, true)
		if err != nil {
			return err
		}
		defer s.Close()

		profile, err := s.Auth.Me(ctx)
		if err != nil {
			return notLoggedIn(err)
		}
		snap := s.Store.Snapshot()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:   %s\n", profile.DisplayName())
		fmt.Fprintf(out, "Email:  %s\n", profile.Email)
		if snap.LoggedInRole != nil {
			fmt.Fprintf(out, "Role:   %s\n", *snap.LoggedInRole)
		}
		if snap.UserType != nil {
			fmt.Fprintf(out, "Type:   %s\n", *snap.UserType)
		}
		if profile.IsInternal() {
			fmt.Fprintln(out, "Access: BGV operations staff")
		}
		if len(profile.Roles) > 0 {
			roles := make([]string, 0, len(profile.Roles))
			for _, r := range profile.Roles {
				roles = append(roles, string(r))
			}
			fmt.Fprintf(out, "Roles:  %s\n", strings.Join(roles, ", "))
		}
		fmt.Fprintf(out, "Token expires: %s\n", tokenExpiry(snap.AccessToken))
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh cookie for a new access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, dashboardPath, false)
		if err != nil {
			return err
		}
		defer s.Close()

		accessToken, err := s.Gate.Refresh(ctx)
		if err != nil {
			return err
		}
		if accessToken == "" {
			return notLoggedIn(gwerrors.ErrSessionExpired)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session refreshed, token expires %s\n", tokenExpiry(accessToken))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and drop the refresh cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, dashboardPath, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd, refreshCmd, logoutCmd)
}

func tokenExpiry(raw string) string {
	claims, err := token.Decode(raw)
	if err != nil {
		return "unknown"
	}
	return claims.ExpiresAt.Local().Format(time.DateTime)
}

func notLoggedIn(err error) error {
	if gwerrors.Is(err, gwerrors.ErrSessionExpired) {
		return fmt.Errorf("not logged in, run bgvctl login: %w", err)
	}
	return err
}
