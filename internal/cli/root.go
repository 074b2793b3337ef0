package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"vendoralerts/internal/config"
)

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "vendoralerts",
		Short:         "Notification dispatch for the vendor catalog",
		Long:          "vendoralerts watches regulatory approvals and data conflicts, queues notifications and delivers them in-app and by email.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = newLogger(cfg.Log, cmd.ErrOrStderr())
			slog.SetDefault(a.log)
			return nil
		},
	}
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newEnqueueCmd(a))
	cmd.AddCommand(newTokenCmd(a))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		slog.Error("Command failed", "error", err)
	}
	return err
}
