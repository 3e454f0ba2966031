package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	grpchealth "github.com/brewops/brewops-server/internal/api/grpc/health"
	grpcrouter "github.com/brewops/brewops-server/internal/api/grpc/router"
	grpcserver "github.com/brewops/brewops-server/internal/api/grpc/server"
	httpctx "github.com/brewops/brewops-server/internal/api/http/context"
	httprouter "github.com/brewops/brewops-server/internal/api/http/router"
	httpserver "github.com/brewops/brewops-server/internal/api/http/server"
	"github.com/brewops/brewops-server/internal/config"
	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
	"github.com/brewops/brewops-server/internal/repository/postgres"
	"github.com/brewops/brewops-server/internal/server"
	"github.com/brewops/brewops-server/internal/service"
	storage "github.com/brewops/brewops-server/internal/storage/minio"
	"github.com/brewops/brewops-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	logAppVersion()

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	storageClient, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	userRepo := postgres.NewUserRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	profileService := service.NewProfile(userRepo, storageClient, cfg.Avatar.MaxBytes, logger)
	authService := service.NewAuth(userRepo, tokenManager, logger)

	httpRouter := httprouter.New(cfg, profileService, authService, authService, userRepo, httpctx.NewManager(), logger)
	httpSrv := httpserver.NewHTTPServer(
		httpRouter.Register(ctx),
		fmt.Sprintf(":%s", cfg.HTTP.Port),
		httpserver.Timeouts{Read: cfg.HTTP.ReadTimeout, Write: cfg.HTTP.WriteTimeout, Idle: cfg.HTTP.IdleTimeout},
	)

	checker := grpchealth.NewChecker(userRepo, cfg.GRPC.HealthCheckInterval, logger)
	grpcSrv := grpcserver.NewGRPCServer(
		grpcrouter.New(checker.Server(), logger).Register(),
		fmt.Sprintf(":%s", cfg.GRPC.Port),
	)

	httpSecurity := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	grpcSecurity := server.NewPlainListener()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checker.Run(gctx)
		return nil
	})
	g.Go(func() error { return serve(logger, httpSrv, httpSecurity) })
	g.Go(func() error { return serve(logger, grpcSrv, grpcSecurity) })

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			stopServer(shutdownCtx, logger, httpSrv),
			stopServer(shutdownCtx, logger, grpcSrv),
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server terminated with error", "error", err)
	}
	logger.Info("shutdown complete")
}

func serve(logger *logger.Logger, s model.Server, sl model.SecurityLayer) error {
	logger.Info("Starting server on", "address", s.Address())
	if err := s.Start(sl); err != nil {
		return fmt.Errorf("server on %s: %w", s.Address(), err)
	}
	return nil
}

func stopServer(ctx context.Context, logger *logger.Logger, s model.Server) error {
	if err := s.Stop(ctx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", s.Address())
		return err
	}
	return nil
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
