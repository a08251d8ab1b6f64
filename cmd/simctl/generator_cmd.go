package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/ashureev/boothsim/internal/agent"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

func newServeGeneratorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-generator",
		Short: "Serve the mock generator over gRPC",
		Long: `Starts a gRPC generator service backed by the deterministic mock
generator, for running the server with GENERATOR=grpc without a model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}

			s := grpc.NewServer()
			agent.RegisterGenerateServer(s, agent.NewGeneratorServer(agent.NewMockGenerator()))

			go func() {
				<-cmd.Context().Done()
				s.GracefulStop()
			}()
			slog.Info("Generator service listening", "addr", lis.Addr().String())
			return s.Serve(lis)
		},
	}
	cmd.Flags().String("addr", "localhost:50051", "listen address")
	return cmd
}
