package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/policy"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/simd"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/logger"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the screening daemon (HTTP + gRPC)",
		Long: `Serve the screening API. HTTP exposes /v1/materials, /v1/simulate and
/v1/searches; gRPC exposes nloscreen.v1.ScreeningService and the standard
health service. Searches are kept in memory only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				a.cfg.Server.HTTPAddr, _ = cmd.Flags().GetString("http-addr")
			}
			if cmd.Flags().Changed("grpc-addr") {
				a.cfg.Server.GRPCAddr, _ = cmd.Flags().GetString("grpc-addr")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			policies := policy.NewPolicyManager(&a.cfg.Server)
			executor := simd.NewSearchExecutor(simd.NewRunStore(), a.sim, a.cfg.Scorer, simd.NewNotifierWithRetry(policies.GetRetry()))
			return serve(ctx, a.cfg.Server.HTTPAddr, a.cfg.Server.GRPCAddr, executor, policies.GetRateLimiting())
		},
	}
	cmd.Flags().String("http-addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().String("grpc-addr", "", "gRPC listen address (overrides config)")
	return cmd
}

// serve runs both servers until ctx is done or one of them fails
func serve(ctx context.Context, httpAddr, grpcAddr string, executor *simd.SearchExecutor, limiter policy.RateLimitingPolicy) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// TODO: configure TLS and authentication before exposing the daemon beyond localhost.
	grpcServer := grpc.NewServer()
	simd.RegisterScreeningServiceServer(grpcServer, simd.NewScreeningGRPCServer(executor))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(simd.ScreeningServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", grpcAddr, err)
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           simd.NewHTTPServer(executor).WithRateLimit(limiter).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
			cancel()
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	healthServer.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
