package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-go/agriguard-live/pkg/core"
	"github.com/vango-go/agriguard-live/pkg/journal"
)

var migrateCommands = map[string]bool{
	"up":        true,
	"up-by-one": true,
	"down":      true,
	"redo":      true,
	"reset":     true,
	"status":    true,
	"version":   true,
}

func newMigrateCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|up-by-one|down|redo|reset|status|version]",
		Short: "Apply the Postgres journal schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if !migrateCommands[command] {
				return fmt.Errorf("unknown migrate command %q", command)
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return core.NewInvalidConfigError("required for migrations", "DATABASE_URL")
			}
			if err := journal.Migrate(cmd.Context(), cfg.DatabaseURL, command); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", command)
			return nil
		},
	}
}
