// migrationctl is the operator CLI for the frontend migration: it edits the
// phase file the gateway watches, reports the resolved flag state, triggers
// an emergency rollback, and probes backend reachability.
package main

import "os"

func main() {
	// Execute the root command. Cobra handles parsing the arguments and
	// printing the error; the exit code is ours.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
