package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/bgv-gateway/internal/fakebackend"
	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const apiPrefix = "/api"

var (
	fakeAddr     string
	fakeEmail    string
	fakePassword string
	fakeDelay    time.Duration
)

var fakeServerCmd = &cobra.Command{
	Use:   "fake-server",
	Short: "Run an in-memory BGV backend for local testing",
	Long: `Serves the authentication, profile, invitation and file endpoints under /api
with one seeded user, one candidate invitation and one file. The OTP is always ` + fakebackend.DefaultOTP + `.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		displayAppname(cmd.OutOrStdout(), cfg.GetAppName())

		backend := fakebackend.New(fakebackend.WithDelay(fakeDelay))
		if err := seed(cmd, backend); err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Mount(apiPrefix, http.StripPrefix(apiPrefix, backend))
		backend.LogRoutes()

		server := &http.Server{Addr: fakeAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
		errCh := make(chan error, 1)
		go func() {
			errCh <- listenAndServe(server)
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		return shutdown(server)
	},
}

func init() {
	fakeServerCmd.Flags().StringVar(&fakeAddr, "addr", ":8080", "listen address")
	fakeServerCmd.Flags().StringVar(&fakeEmail, "email", "ops@example.com", "seeded user email")
	fakeServerCmd.Flags().StringVar(&fakePassword, "password", "password", "seeded user password")
	fakeServerCmd.Flags().DurationVar(&fakeDelay, "delay", 0, "added latency per request")
	rootCmd.AddCommand(fakeServerCmd)
}

func seed(cmd *cobra.Command, backend *fakebackend.Backend) error {
	if _, err := backend.AddUser(users.Profile{
		ID:        "user-1",
		Email:     fakeEmail,
		FirstName: "Demo",
		LastName:  "Operator",
		Role:      users.RoleOperations,
		UserType:  users.UserTypeInternal,
	}, fakePassword); err != nil {
		return err
	}
	backend.AddFile("demo-file", "text/plain", []byte("demo evidence\n"))
	invite := backend.CreateInvite(fakebackend.Invite{CandidateID: "cand-1"})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:    %s / %s (OTP %s)\n", fakeEmail, fakePassword, fakebackend.DefaultOTP)
	fmt.Fprintf(out, "Invite:  %s\n", invite)
	fmt.Fprintln(out, "File:    demo-file")
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
