package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/bgv-gateway/navigation"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
	loginOTP      string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email, password and OTP",
	Long: `Verifies the credentials, then the OTP sent to the registered email.
Values not given as flags are read from stdin. The refresh cookie is kept in
the data folder so later commands can refresh silently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		s, err := openSession(ctx, navigation.RouteLogin, false)
		if err != nil {
			return err
		}
		defer s.Close()

		email, err := valueOrPrompt(in, out, loginEmail, "Email: ")
		if err != nil {
			return err
		}
		password, err := valueOrPrompt(in, out, loginPassword, "Password: ")
		if err != nil {
			return err
		}
		challenge, err := s.Auth.VerifyCredentials(ctx, email, password)
		if err != nil {
			return err
		}
		if challenge.Message != "" {
			fmt.Fprintln(out, challenge.Message)
		}

		otp, err := readOTP(ctx, s, in, out, challenge.MFASessionID)
		if err != nil {
			return err
		}
		result, err := s.Auth.VerifyOTP(ctx, challenge.MFASessionID, otp)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Logged in as %s (%s)\n", result.User.DisplayName(), result.User.Email)
		if result.RoleSelectionRequired {
			fmt.Fprintln(out, "More than one role is assigned, select one to continue")
		}
		fmt.Fprintf(out, "Next: %s\n", result.NextRoute)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	loginCmd.Flags().StringVar(&loginOTP, "otp", "", "one-time password")
	rootCmd.AddCommand(loginCmd)
}

// readOTP returns the --otp flag or prompts for it. Typing "resend" asks the
// backend for a new code.
func readOTP(ctx context.Context, s *session, in *bufio.Reader, out io.Writer, mfaSessionID string) (string, error) {
	if loginOTP != "" {
		return loginOTP, nil
	}
	for {
		otp, err := prompt(in, out, "OTP (or \"resend\"): ")
		if err != nil {
			return "", err
		}
		if otp != "resend" {
			return otp, nil
		}
		if err := s.Auth.ResendOTP(ctx, mfaSessionID); err != nil {
			return "", err
		}
		fmt.Fprintln(out, "OTP resent")
	}
}

func valueOrPrompt(in *bufio.Reader, out io.Writer, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return prompt(in, out, label)
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}
