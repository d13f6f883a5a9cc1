package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/bgv-gateway/recent"
	"github.com/spf13/cobra"
)

var (
	recentName string
	recentCase string
	recentOrg  string
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Manage the recent candidate searches",
}

var recentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent searches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecent(func(l *recent.List) error {
			entries, err := l.All()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recent searches")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CANDIDATE\tNAME\tCASE\tORGANIZATION\tSEARCHED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.CandidateID, e.CandidateName, e.CaseNumber, e.Organization,
					e.SearchedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		})
	},
}

var recentAddCmd = &cobra.Command{
	Use:   "add <candidate-id>",
	Short: "Remember a candidate search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecent(func(l *recent.List) error {
			return l.Add(recent.Entry{
				CandidateID:   args[0],
				CandidateName: recentName,
				CaseNumber:    recentCase,
				Organization:  recentOrg,
			})
		})
	},
}

var recentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all recent searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecent(func(l *recent.List) error {
			return l.Clear()
		})
	},
}

func init() {
	recentAddCmd.Flags().StringVar(&recentName, "name", "", "candidate name")
	recentAddCmd.Flags().StringVar(&recentCase, "case", "", "case number")
	recentAddCmd.Flags().StringVar(&recentOrg, "org", "", "organization")
	recentCmd.AddCommand(recentListCmd, recentAddCmd, recentClearCmd)
	rootCmd.AddCommand(recentCmd)
}

func withRecent(fn func(l *recent.List) error) error {
	kv, err := openStore()
	if err != nil {
		return err
	}
	defer kv.Close()
	return fn(recent.NewList(kv))
}
