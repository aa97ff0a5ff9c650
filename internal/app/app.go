package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"rcslicense/internal/config"
	licenseErrors "rcslicense/internal/errors"
	"rcslicense/internal/infrastructure"
	"rcslicense/internal/license"
	customMiddleware "rcslicense/internal/middleware"
	"rcslicense/internal/security"
	handlers "rcslicense/internal/transport/http"
	"rcslicense/pkg/contracts"
)

// ServiceName identifies the API in logs and telemetry.
const ServiceName = "license-api"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Service       *license.Service
	ErrorHandler  *licenseErrors.ErrorHandler
	Router        *chi.Mux
	Server        *http.Server
}

// Option adjusts the application during construction.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	services []license.Option
}

// WithLogger replaces the logger built from the logging configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithServiceOptions appends options to the license service.
func WithServiceOptions(opts ...license.Option) Option {
	return func(o *options) { o.services = append(o.services, opts...) }
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("application starting",
		slog.String("service", ServiceName),
		slog.String("version", contracts.Version),
		slog.String("license_version", cfg.License.CurrentVersion),
	)

	otelConfig := infrastructure.NewOTelConfig(cfg.Telemetry, ServiceName)
	otelConfig.RuntimeMetrics = true
	providers, err := infrastructure.InitializeOTel(otelConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	keys := security.DefaultKeys()
	keys.Breakpoint = cfg.License.Breakpoint

	serviceOpts := append([]license.Option{
		license.WithKeys(keys),
		license.WithCurrentVersion(cfg.License.CurrentVersion),
		license.WithLogger(logger),
		license.WithMeter(providers.Meter),
		license.WithTracer(providers.Tracer),
	}, o.services...)

	service, err := license.NewService(serviceOpts...)
	if err != nil {
		providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize license service: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Service:       service,
		ErrorHandler:  licenseErrors.NewErrorHandler(logger, false),
	}

	if err := app.setupRouter(); err != nil {
		providers.Shutdown(context.Background())
		return nil, err
	}
	app.createServer()

	return app, nil
}

// setupRouter configures the HTTP router with all routes.
// Middleware order: RequestID -> RealIP -> OTel -> Logger -> Recoverer.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}
	r.Use(customMiddleware.BodyLimit(a.Config.Server.MaxBodyBytes))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Get("/version", healthHandler.Version)
	r.Handle("/metrics", a.OTelProviders.MetricsHandler())

	licenseHandler := handlers.NewLicenseHandler(a.Service, a.ErrorHandler, customMiddleware.NewValidator(), a.Logger)
	r.Route("/api/"+contracts.APIVersion, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Mount("/licenses", licenseHandler.Routes())
	})

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// server down gracefully.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "server listening", slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Run listens on the configured address and serves until SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Stop shuts the server down and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}
