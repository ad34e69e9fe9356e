package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "ai-offline-assistant/internal/api/grpc"
	"ai-offline-assistant/internal/app"
	"ai-offline-assistant/internal/config"
	httpapi "ai-offline-assistant/internal/http"
	"ai-offline-assistant/internal/observability"
	"ai-offline-assistant/internal/observability/logging"
	"ai-offline-assistant/internal/observability/metrics"
	"ai-offline-assistant/internal/watch"
)

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application")
	}
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	var obsServer *observability.Server
	if cfg.Observability.MetricsEnabled {
		obsServer = observability.NewServer(":"+cfg.Service.MetricsPort, application.Ready)
		obsServer.Start()
	}

	// HTTP API
	httpServer := &http.Server{
		Addr: ":" + cfg.Service.HTTPPort,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Sessions:       application.Sessions,
			Assistant:      application.Assistant,
			Ready:          application.Ready,
			CORSOrigins:    cfg.Service.CORSOrigins,
			MaxUploadBytes: cfg.Upload.MaxBytes,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Starting HTTP API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	// gRPC API
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
		grpc.MaxRecvMsgSize(int(cfg.Upload.MaxBytes)*2),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	grpcapi.Register(grpcServer, application.Sessions, application.Assistant)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(grpcServer)

	go func() {
		log.Info().Str("addr", lis.Addr().String()).Msg("Starting gRPC API")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("gRPC serve failed")
		}
	}()

	// Inbox watcher
	if cfg.Inbox.Dir != "" {
		inbox := watch.New(watch.Config{Dir: cfg.Inbox.Dir, ScanExisting: true}, application.Sessions, application.Assistant)
		go func() {
			if err := inbox.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Inbox watcher stopped")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	grpcServer.GracefulStop()
	if obsServer != nil {
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Observability shutdown failed")
		}
	}
	if err := application.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Application shutdown failed")
	}
}
