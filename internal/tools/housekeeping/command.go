package housekeeping

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charmops/charmops-backend/internal/di"
	"github.com/charmops/charmops-backend/internal/tools/common"
)

type options struct {
	envFile string
	ci      bool
}

// NewRootCommand wires the retention pruning meant to run from cron: aged
// activity pings and expired refresh sessions.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "housekeeping", Short: "Retention pruning for presence activity and sessions"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newPruneCommand(opts))
	return cmd
}

func newPruneCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete activity older than ACTIVITY_RETENTION and expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := prune(opts)
			if opts.ci {
				common.PrintCIResult(err == nil, "housekeeping prune", details, err)
			} else {
				common.PrintResult("housekeeping prune", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func prune(opts *options) ([]string, error) {
	if err := common.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	runner, err := di.InitializeHousekeepingRunner()
	if err != nil {
		return nil, err
	}
	pings, sessions, err := runner.Run()
	if err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("pruned %d activity pings", pings),
		fmt.Sprintf("pruned %d expired sessions", sessions),
	}, nil
}
