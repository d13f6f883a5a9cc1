package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/bgv-gateway/client"
	"github.com/jrsteele09/bgv-gateway/gateway"
	"github.com/jrsteele09/bgv-gateway/internal/config"
	"github.com/jrsteele09/bgv-gateway/internal/logging"
	"github.com/jrsteele09/bgv-gateway/storage"
	bboltstorage "github.com/jrsteele09/bgv-gateway/storage/bbolt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
)

const dataFile = "bgvctl.db"

var (
	configPath string
	apiURL     string
	logLevel   string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bgvctl",
	Short: "bgvctl talks to the BGV admin backend",
	Long: `A command line client for the background verification admin backend.
It logs in with email, password and OTP, keeps the refresh cookie between runs
and calls the profile, invitation and file endpoints.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.New()
		}
		level := cfg.GetLogLevel()
		if logLevel != "" {
			level = logLevel
		}
		logging.Setup(os.Stderr, level, cfg.GetEnv())
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides BGV_API_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

func openStore() (storage.KV, error) {
	folder := cfg.GetDataFolder()
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data folder: %w", err)
	}
	kv, err := bboltstorage.NewFromFile(filepath.Join(folder, dataFile), &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dataFile, err)
	}
	return kv, nil
}

// session is an open gateway plus the store backing its cookie jar.
type session struct {
	*gateway.Gateway
	kv storage.KV
}

func (s *session) Close() {
	if err := s.kv.Close(); err != nil {
		log.Err(err).Msg("Failed to close data file")
	}
}

// openSession opens the data file and builds a gateway sitting on path. When
// start is set the silent refresh runs before returning.
func openSession(ctx context.Context, path string, start bool) (*session, error) {
	kv, err := openStore()
	if err != nil {
		return nil, err
	}
	jar, err := client.NewPersistentJar(kv)
	if err != nil {
		kv.Close()
		return nil, err
	}
	opts := []gateway.Option{gateway.WithCookieJar(jar)}
	if apiURL != "" {
		opts = append(opts, gateway.WithBaseURL(apiURL))
	}
	gw, err := gateway.New(cfg, path, opts...)
	if err != nil {
		kv.Close()
		return nil, err
	}
	s := &session{Gateway: gw, kv: kv}
	if start {
		if err := gw.Start(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}
