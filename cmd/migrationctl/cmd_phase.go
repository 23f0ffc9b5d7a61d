package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/govmigrate/govmigrate/internal/config"
	"github.com/govmigrate/govmigrate/internal/flags"
)

// runSet advances the migration phase. The phase file must already exist;
// a missing file means the environment was never provisioned, which is an
// error rather than something to silently create.
func runSet(cmd *cobra.Command, args []string) error {
	phase, err := flags.ParsePhase(args[0])
	if err != nil {
		return fmt.Errorf("%w (valid phases: foundation, services, critical)", err)
	}

	file, err := config.LoadPhaseFile(configPath)
	if err != nil {
		return err
	}

	file.Phase = phase
	file.UpdatedAt = time.Now().UTC()
	if err := config.SavePhaseFile(configPath, file); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "migration phase set to %s\n", phase)
	printResolved(cmd, file)
	return nil
}

// runStatus reports the phase and resolved flag values without writing
// anything. A missing phase file is not an error here; the environment
// defaults describe what the gateway would run with.
func runStatus(cmd *cobra.Command, _ []string) error {
	file, err := config.LoadPhaseFile(configPath)
	switch {
	case err == nil:
		fmt.Fprintf(cmd.OutOrStdout(), "phase file: %s\n", configPath)
	case errors.Is(err, config.ErrPhaseFileNotFound):
		fmt.Fprintf(cmd.OutOrStdout(), "phase file: %s (not found, showing environment defaults)\n", configPath)
		phase, envErr := flags.EnvironmentPhase(nil)
		if envErr != nil {
			return envErr
		}
		file = config.PhaseFile{Phase: phase}
	default:
		return err
	}

	printResolved(cmd, file)
	return nil
}

// runRollback forces emergencyRollback on in the phase file. It always
// succeeds locally; whether backends are reachable is deliberately not
// checked, an operator rolling back mid-incident must not be blocked.
func runRollback(cmd *cobra.Command, _ []string) error {
	file, err := config.LoadPhaseFile(configPath)
	if err != nil && !errors.Is(err, config.ErrPhaseFileNotFound) {
		return err
	}

	if file.Overrides == nil {
		file.Overrides = make(map[flags.Key]bool)
	}
	file.Overrides[flags.KeyEmergencyRollback] = true
	file.UpdatedAt = time.Now().UTC()

	if err := config.SavePhaseFile(configPath, file); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "emergency rollback triggered: all shared components disabled")
	fmt.Fprintln(cmd.OutOrStdout(), "to recover, remove the emergencyRollback override and run set")
	printResolved(cmd, file)
	return nil
}

// printResolved walks the resolution pipeline the gateway uses: defaults,
// phase set, environment overrides, file overrides, then the safety
// override pass.
func printResolved(cmd *cobra.Command, file config.PhaseFile) {
	phase := file.Phase
	if phase == "" {
		phase = flags.PhaseFoundation
	}

	resolved := flags.Defaults()
	resolved.Merge(flags.PhaseFlags(phase))
	if env, err := flags.EnvironmentOverrides(nil); err == nil {
		resolved.Merge(env)
	}
	resolved.Merge(file.OverridesPartial())
	resolved = flags.ApplyOverrides(resolved)

	fmt.Fprintf(cmd.OutOrStdout(), "phase: %s\n", phase)
	for _, key := range flags.Keys() {
		state := "off"
		if resolved[key] {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-22s %s\n", key, state)
	}
}
