// Package main is the entrypoint for the gateway service: the multi-tenant
// proxy in front of the messaging provider.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/relaygate/relaygate/internal/config"
	"github.com/relaygate/relaygate/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:           "gateway",
		PortFromConfig: func(cfg *config.Config) int { return cfg.Gateway.HTTPPort },
		Setup:          setup,
	}, nil)
}
