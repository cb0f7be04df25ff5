package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petgalaxy/classroom-pets/config"
	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/postgres"
	"github.com/petgalaxy/classroom-pets/internal/interface/http/handlers"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATE
// ══════════════════════════════════════════════════════════════════════════════

func newMigrateCmd() *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := setupLogger(cfg)
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg.Store, log)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			defer func() { _ = st.Close() }()

			pg, ok := st.(*postgres.Store)
			if !ok {
				if rollback {
					return fmt.Errorf("rollback is only supported by the postgres driver")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", storeDriverName(cfg.Store))
				return nil
			}
			if rollback {
				if err := pg.RollbackLast(ctx); err != nil {
					return fmt.Errorf("failed to roll back: %w", err)
				}
				log.Warn("rolled back last migration")
			}
			return printMigrationStatus(ctx, cmd.OutOrStdout(), pg)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "revert the last applied migration (postgres only)")
	return cmd
}

func printMigrationStatus(ctx context.Context, w io.Writer, pg *postgres.Store) error {
	status, err := pg.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	for _, m := range status {
		state := "pending"
		if m.IsApplied {
			state = "applied"
		}
		fmt.Fprintf(w, "%03d %-32s %s\n", m.Version, m.Name, state)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESET
// ══════════════════════════════════════════════════════════════════════════════

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every student, pet and uploaded resource",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "This wipes the whole classroom. Continue?") {
				return errors.New("reset aborted")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := setupLogger(cfg)
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			room, st, err := openClassroom(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			removed := len(room.Snapshot().Students)
			if _, err := room.Dispatch(ctx, classroom.ClearAll{}); err != nil {
				return fmt.Errorf("failed to reset classroom: %w", err)
			}
			log.Warn("classroom reset", logger.Int("students_removed", removed))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d students\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HASH-PASSCODE
// ══════════════════════════════════════════════════════════════════════════════

func newHashPasscodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passcode <passcode>",
		Short: "Print the bcrypt hash to set as TEACHER_PASSCODE_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := handlers.HashPasscode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// storeDriverName is used in messages about the configured backend.
func storeDriverName(cfg config.StoreConfig) string {
	if cfg.Driver == config.DriverSQLite {
		return "sqlite (" + cfg.SQLitePath + ")"
	}
	return cfg.Driver
}
