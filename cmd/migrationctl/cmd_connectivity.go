package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/govmigrate/govmigrate/internal/health"
	"github.com/govmigrate/govmigrate/internal/probe"
)

const defaultDevnetRPCURL = "http://localhost:8899"

// runTest probes every configured backend's /health endpoint plus the
// devnet RPC endpoint. Down dependencies are reported, never fatal: the
// command exits zero so it can run in provisioning scripts before the
// backends come up.
func runTest(cmd *cobra.Command, _ []string) error {
	registry, err := health.RegistryFromEnv(nil)
	if err != nil {
		return err
	}

	prober := probe.NewProber(probe.ProberConfig{
		Logger:     zerolog.Nop(),
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})

	down := 0
	for _, key := range registry.Keys() {
		svc, err := registry.Get(key)
		if err != nil {
			return err
		}
		if !reportProbe(cmd, prober, svc.Key, svc.Name, svc.BaseURL+"/health") {
			down++
		}
	}

	rpcURL := os.Getenv("DEVNET_RPC_URL")
	if rpcURL == "" {
		rpcURL = defaultDevnetRPCURL
	}
	if !reportProbe(cmd, prober, "devnet", "Quantumagi Devnet RPC", rpcURL) {
		down++
	}

	if down > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d endpoint(s) down\n", down)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "all endpoints up")
	}
	return nil
}

func reportProbe(cmd *cobra.Command, prober *probe.Prober, target, name, url string) bool {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := prober.Probe(ctx, target, url)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s DOWN  %s (%v)\n", name, url, err)
		return false
	}

	if result.Up {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s UP    %s (%d, %s)\n",
			name, url, result.StatusCode, result.Duration.Round(time.Millisecond))
		return true
	}

	detail := result.Err
	if detail == "" && result.StatusCode != 0 {
		detail = fmt.Sprintf("status %d", result.StatusCode)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %-24s DOWN  %s (%s)\n", name, url, detail)
	return false
}
