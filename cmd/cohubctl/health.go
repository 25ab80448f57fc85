package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/cohub/internal/healthcheck"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newHealthCmd(opts *options) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running server's gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = "localhost:" + opts.cfg.GRPCPort
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			status, err := healthcheck.Check(ctx, addr, healthcheck.ServiceName)
			if err != nil {
				return err
			}
			if status != healthpb.HealthCheckResponse_SERVING {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", addr, errorStyle.Render(status.String()))
				return fmt.Errorf("server is %s", status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", addr, successStyle.Render(status.String()))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "gRPC health address (default localhost:$GRPC_PORT)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for an answer")
	return cmd
}
