package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "migrationctl",
		Short: "Control the legacy-to-shared frontend migration",
		Long: `migrationctl manages the migration phase file consumed by the
migration control gateway. Use it to advance the rollout phase,
inspect the resolved flag state, trigger an emergency rollback,
or test backend service connectivity.`,
		SilenceUsage: true,
	}

	setCmd = &cobra.Command{
		Use:   "set <phase>",
		Short: "Set the active migration phase (foundation, services, critical)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSet,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the active phase and the resolved flag values",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	rollbackCmd = &cobra.Command{
		Use:   "rollback",
		Short: "Trigger an emergency rollback to the legacy frontend",
		Args:  cobra.NoArgs,
		RunE:  runRollback,
	}

	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Probe each backend service and the devnet RPC endpoint",
		Args:  cobra.NoArgs,
		RunE:  runTest,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		defaultConfigPath(), "path to the migration phase file")

	rootCmd.AddCommand(setCmd, statusCmd, rollbackCmd, testCmd)
}

// defaultConfigPath mirrors the gateway: PHASE_FILE names the shared phase
// file, falling back to the conventional name in the working directory.
func defaultConfigPath() string {
	if path := os.Getenv("PHASE_FILE"); path != "" {
		return path
	}
	return "migration-control.yaml"
}
