package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/wakelight/internal/alarm"
	"github.com/nerrad567/wakelight/internal/infrastructure/config"
	"github.com/nerrad567/wakelight/internal/infrastructure/database"
	"github.com/nerrad567/wakelight/migrations"
)

// openLocal opens the configured database without requiring connection
// settings, for offline maintenance.
func openLocal(ctx context.Context, configPath string) (*database.DB, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func newAlarmsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "alarms",
		Short: "List stored alarms and the time zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := openLocal(ctx, *configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx, migrations.FS()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			list, err := alarm.NewSQLiteRepository(db.DB).All(ctx)
			if err != nil {
				return fmt.Errorf("listing alarms: %w", err)
			}
			zone := alarm.CurrentTimezone(ctx, alarm.NewSQLiteTimezoneRepository(db.DB))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "time zone: %s\n", zone.Name)
			if len(list) == 0 {
				fmt.Fprintln(out, "no alarms")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDAY\tTIME")
			for _, a := range list {
				fmt.Fprintf(w, "%d\t%d\t%02d:%02d\n", a.ID, a.Day, a.Hour, a.Minute)
			}
			return w.Flush()
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or change the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := openLocal(ctx, *configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx, migrations.FS()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				db, err := openLocal(ctx, *configPath)
				if err != nil {
					return err
				}
				defer db.Close()

				statuses, err := db.MigrationStatus(ctx, migrations.FS())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tNAME\tSTATE")
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.Version, s.Name, state)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				db, err := openLocal(ctx, *configPath)
				if err != nil {
					return err
				}
				defer db.Close()

				rolled, err := db.Rollback(ctx, migrations.FS())
				if err != nil {
					return err
				}
				if !rolled {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "rolled back latest migration")
				return nil
			},
		},
	)
	return cmd
}
