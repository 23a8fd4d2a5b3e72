package seed

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

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Super admin bootstrap tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Ensure the configured super admin account exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := apply(opts)
			report(opts, "seed apply", details, err)
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			details := []string{
				"would run schema migrations",
				"would create SUPER_ADMIN_EMAIL as super_admin if missing",
				"would promote an existing account and reset its password otherwise",
			}
			report(opts, "seed dry-run", details, common.LoadEnvFile(opts.envFile))
			return nil
		},
	}
}

func apply(opts *options) ([]string, error) {
	if err := common.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	runner, err := di.InitializeSeedRunner()
	if err != nil {
		return nil, err
	}
	r, err := runner.Run()
	if err != nil {
		return nil, err
	}
	details := []string{"migrations applied"}
	switch {
	case r.Created:
		details = append(details, fmt.Sprintf("created super admin: %s", r.Email))
	case r.Promoted:
		details = append(details, fmt.Sprintf("promoted existing user to super admin: %s", r.Email))
	case r.Reset:
		details = append(details, fmt.Sprintf("reset super admin password: %s", r.Email))
	default:
		details = append(details, fmt.Sprintf("super admin already in place: %s", r.Email))
	}
	return details, nil
}

func report(opts *options, title string, details []string, err error) {
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
		return
	}
	common.PrintResult(title, details, err)
}
