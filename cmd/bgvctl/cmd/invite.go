package cmd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/bgv-gateway/auth"
	"github.com/spf13/cobra"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Check candidate invitation links",
}

var inviteVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a candidate form invitation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInvite(cmd, "/fill-candidate-form", args[0], func(ctx context.Context, svc *auth.Service, t string) (*auth.InviteVerification, error) {
			return svc.VerifyInvite(ctx, t)
		})
	},
}

var inviteAddressCmd = &cobra.Command{
	Use:   "verify-address <token>",
	Short: "Verify an address verification invitation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInvite(cmd, "/verify-address", args[0], func(ctx context.Context, svc *auth.Service, t string) (*auth.InviteVerification, error) {
			return svc.VerifyAddressInvite(ctx, t)
		})
	},
}

func init() {
	inviteCmd.AddCommand(inviteVerifyCmd, inviteAddressCmd)
	rootCmd.AddCommand(inviteCmd)
}

type verifyFunc func(ctx context.Context, svc *auth.Service, inviteToken string) (*auth.InviteVerification, error)

// runInvite opens the gateway on the candidate route so no refresh is
// attempted, then verifies the token.
func runInvite(cmd *cobra.Command, route, inviteToken string, verify verifyFunc) error {
	ctx := cmd.Context()
	path := route + "?" + url.Values{"token": {inviteToken}}.Encode()
	s, err := openSession(ctx, path, true)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := verify(ctx, s.Auth, s.Location.Query("token"))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status: %s\n", v.Status)
	if v.CandidateID != "" {
		fmt.Fprintf(out, "Candidate: %s\n", v.CandidateID)
	}
	if !v.Usable() && v.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", v.Message)
	}
	return nil
}
