package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vendoralerts/internal/db"
	"vendoralerts/internal/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(func(m *migrations.Migrator) error { return m.Up() })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(func(m *migrations.Migrator) error { return m.Down() })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(func(m *migrations.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if dirty {
					fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", version)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return a.withMigrator(func(m *migrations.Migrator) error { return m.Force(version) })
		},
	})

	var yes bool
	drop := &cobra.Command{
		Use:   "drop",
		Short: "Drop every table in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to drop the database without --yes")
			}
			return a.withMigrator(func(m *migrations.Migrator) error { return m.Drop() })
		},
	}
	drop.Flags().BoolVar(&yes, "yes", false, "confirm dropping all tables")
	cmd.AddCommand(drop)

	return cmd
}

func (a *app) withMigrator(fn func(m *migrations.Migrator) error) error {
	conn, err := db.Connect(a.cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()

	m, err := openMigrator(a.cfg.DB, conn)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(m)
}
