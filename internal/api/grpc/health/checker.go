package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
)

// ProfileService is the service name reported alongside the overall status.
const ProfileService = "brewops.Profile"

const (
	pingTimeout     = 2 * time.Second
	defaultInterval = 10 * time.Second
)

// Checker keeps the gRPC health status in line with the database.
type Checker struct {
	server   *health.Server
	pinger   model.Pinger
	interval time.Duration
	logger   *logger.Logger
}

// NewChecker creates a Checker. Both services start as NOT_SERVING until the
// first probe succeeds. A non-positive interval falls back to 10s.
func NewChecker(pinger model.Pinger, interval time.Duration, logger *logger.Logger) *Checker {
	if interval <= 0 {
		interval = defaultInterval
	}

	c := &Checker{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		logger:   logger,
	}
	c.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Server returns the health service implementation to register.
func (c *Checker) Server() healthpb.HealthServer {
	return c.server
}

// Run probes immediately and then every interval until ctx is done, after
// which all services are reported as NOT_SERVING.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.probe(ctx)
		}
	}
}

func (c *Checker) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		c.logger.Warn("Health checker: database ping failed", "error", err.Error())
		c.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	c.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (c *Checker) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ProfileService, status)
}
