package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/infra/app"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

// errConflictsRecorded makes the process exit non-zero after a run that finished with conflicts.
var errConflictsRecorded = errors.New("migration finished with conflicts")

type runFlags struct {
	runID       string
	dumpDir     string
	applySchema bool
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Move legacy TrustedValley users and documents into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCommand(),
		newSchemaCommand(),
		newRepairAdminRolesCommand(),
	)

	return root
}

func newRunCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every migration pass and print the summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(func(cfg *config.AppConfig) {
				if flags.runID != "" {
					cfg.Migration.RunID = flags.runID
				}
				if flags.dumpDir != "" {
					cfg.Legacy.Driver = config.LegacyDriverDump
					cfg.Legacy.DumpDir = flags.dumpDir
				}
			})
			if err != nil {
				return err
			}

			if flags.applySchema {
				if err := app.MigrateSchema(cfg); err != nil {
					return fmt.Errorf("apply schema: %w", err)
				}
			}

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			defer application.Close()

			summary, err := application.Migrate(cmd.Context())
			if err != nil {
				return err
			}

			if summary.Failed() {
				return fmt.Errorf("%w: %d of %d records", errConflictsRecorded,
					summary.ErrorCount, summary.ErrorCount+summary.MigratedCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.runID, "run-id", "", "identifier for this run (default: random UUID)")
	cmd.Flags().StringVar(&flags.dumpDir, "dump-dir", "", "read legacy collections from a JSON export directory instead of Firestore")
	cmd.Flags().BoolVar(&flags.applySchema, "apply-schema", false, "apply schema migrations before running")

	return cmd
}

func newSchemaCommand() *cobra.Command {
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Manage the PostgreSQL schema",
	}

	schema.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			return app.MigrateSchema(cfg)
		},
	})

	return schema
}

func newRepairAdminRolesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repair-admin-roles",
		Short: "Promote users whose profile marks them as administrators",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			defer application.Close()

			repaired, err := application.RepairAdminRoles(cmd.Context())
			if err != nil {
				return err
			}

			application.Logger().Info("admin roles repaired", zap.Int("count", repaired))
			fmt.Fprintf(cmd.OutOrStdout(), "repaired %d admin roles\n", repaired)
			return nil
		},
	}
}

// loadConfig reads configuration and applies command-line overrides before validation.
func loadConfig(override func(*config.AppConfig)) (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	return cfg, nil
}
