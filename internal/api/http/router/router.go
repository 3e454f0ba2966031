package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/brewops/brewops-server/internal/api/http/handler"
	"github.com/brewops/brewops-server/internal/api/http/middleware"
	"github.com/brewops/brewops-server/internal/config"
	"github.com/brewops/brewops-server/internal/logger"
	"github.com/brewops/brewops-server/internal/model"
)

// Router wires handlers and middleware into a gin engine.
type Router struct {
	cfg            *config.Config
	profileService handler.ProfileService
	authService    handler.AuthService
	authenticator  middleware.Authenticator
	pinger         model.Pinger
	contextManager model.ContextManager
	logger         *logger.Logger
}

func New(
	cfg *config.Config,
	profileService handler.ProfileService,
	authService handler.AuthService,
	authenticator middleware.Authenticator,
	pinger model.Pinger,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		cfg:            cfg,
		profileService: profileService,
		authService:    authService,
		authenticator:  authenticator,
		pinger:         pinger,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Register builds the engine. Rate limiter janitors run until ctx is done.
func (r *Router) Register(ctx context.Context) *gin.Engine {
	if !r.cfg.HTTP.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	logging := middleware.NewLogging(r.logger)

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logging.Handle(),
		logging.Recovery(),
		cors.New(r.corsConfig()),
	)

	health := handler.NewHealth(r.pinger)
	engine.GET("/health", health.Live)
	engine.GET("/ready", health.Ready)

	api := engine.Group(r.cfg.HTTP.BasePath)
	api.Use(middleware.NewRateLimiter(ctx, r.cfg.RateLimit.RPS, r.cfg.RateLimit.Burst).Handle())

	authenticate := middleware.NewAuthenticate(r.authenticator, r.contextManager, r.logger).Handle()
	r.registerAuthRoutes(ctx, api, authenticate)
	r.registerProfileRoutes(api, authenticate)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})

	return engine
}

func (r *Router) registerAuthRoutes(ctx context.Context, api *gin.RouterGroup, authenticate gin.HandlerFunc) {
	authHandler := handler.NewAuth(r.authService, r.contextManager, r.logger)
	loginLimiter := middleware.NewRateLimiter(ctx, r.cfg.RateLimit.AuthRPS, r.cfg.RateLimit.AuthBurst)

	auth := api.Group("/auth")
	auth.POST("/login", loginLimiter.Handle(), authHandler.Login)
	auth.POST("/logout-all", authenticate, authHandler.LogoutAll)
}

func (r *Router) registerProfileRoutes(api *gin.RouterGroup, authenticate gin.HandlerFunc) {
	profileHandler := handler.NewProfile(r.profileService, r.contextManager, r.cfg.Avatar.MaxBytes, r.logger)

	profile := api.Group("/profile", authenticate)
	profile.GET("", profileHandler.GetProfile)
	profile.PUT("", profileHandler.UpdateProfile)
	profile.GET("/avatar", profileHandler.GetAvatar)
	profile.PUT("/avatar", profileHandler.UploadAvatar)
}

func (r *Router) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = r.cfg.CORS.AllowOrigins
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Auth-Token", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}
