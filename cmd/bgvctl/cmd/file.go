package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var fileOutput string

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Work with stored files",
}

var fileGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Download a file by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, dashboardPath, true)
		if err != nil {
			return err
		}
		defer s.Close()

		f, err := s.Auth.FetchFile(ctx, args[0])
		if err != nil {
			return notLoggedIn(err)
		}
		if fileOutput == "" || fileOutput == "-" {
			_, err = cmd.OutOrStdout().Write(f.Data)
			return err
		}
		if err := os.WriteFile(fileOutput, f.Data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", fileOutput, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes (%s) to %s\n", len(f.Data), f.ContentType, fileOutput)
		return nil
	},
}

func init() {
	fileGetCmd.Flags().StringVarP(&fileOutput, "output", "o", "", "write to this file instead of stdout")
	fileCmd.AddCommand(fileGetCmd)
	rootCmd.AddCommand(fileCmd)
}
