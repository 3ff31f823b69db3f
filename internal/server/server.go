package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chatpage/internal/config"
	handlers "chatpage/internal/http/handler"
	"chatpage/internal/http/middleware"
	"chatpage/internal/render"
	"chatpage/internal/storage"
	"chatpage/internal/watcher"
)

// Server owns one Fiber application and everything it needs to serve the page.
// Instances are independent of each other.
type Server struct {
	cfg     *config.AppConfig
	logger  zerolog.Logger
	app     *fiber.App
	views   *render.Engine
	watcher *watcher.Watcher
}

type options struct {
	source   storage.Source
	registry *prometheus.Registry
}

// Option customizes New.
type Option func(o *options)

// WithSource replaces the template source derived from the configuration.
func WithSource(src storage.Source) Option {
	return func(o *options) { o.source = src }
}

// WithRegistry sets the Prometheus registry used for request metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// New builds the server: template source, renderer, middleware and routes.
// Routes are registered before New returns; nothing listens until Run or Serve.
func New(cfg *config.AppConfig, logger zerolog.Logger, opts ...Option) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	src := o.source
	if src == nil {
		var err error
		if src, err = newSource(cfg); err != nil {
			return nil, err
		}
	}

	s := &Server{cfg: cfg, logger: logger}
	debug := cfg.Mode.IsDebug()

	// Debug mode picks up template edits: through the watcher for local
	// directories, by reading on every request otherwise.
	reload := false
	if debug {
		if dir := storage.Root(src); dir != "" {
			w, err := s.watch(dir)
			if err != nil {
				logger.Warn().Err(err).Msg("Template directory cannot be watched, reading templates on every request")
			}
			s.watcher = w
		}
		reload = s.watcher == nil
	}

	s.views = render.New(src,
		render.WithPreload(cfg.Template.Name),
		render.WithReload(reload),
		render.WithLogger(logger),
	)

	if s.watcher != nil {
		_ = s.watcher.Start(context.Background())
	}

	app := fiber.New(fiber.Config{
		AppName:               "chatpage",
		Views:                 s.views,
		ErrorHandler:          handlers.ErrorHandler(debug),
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: debug}))
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(logger))

	routes := handlers.Routes{
		TemplateName: cfg.Template.Name,
		StaticDir:    cfg.StaticDir,
	}

	if cfg.MetricsEnabled {
		reg := o.registry
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		prom, err := middleware.NewPrometheusMiddleware(reg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}

		app.Use(prom.Handler())
		routes.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	handlers.RegisterRoutes(app, routes)
	s.app = app

	return s, nil
}

func (s *Server) watch(dir string) (*watcher.Watcher, error) {
	w, err := watcher.New(s.logger)
	if err != nil {
		return nil, err
	}

	// s.views is assigned before the watcher starts dispatching.
	listener := watcher.ChangeListenerFunc(func(l zerolog.Logger) { s.views.OnChanged(l) })
	if err := w.Add(dir, listener); err != nil {
		_ = w.Stop(context.Background())
		return nil, err
	}

	return w, nil
}

func newSource(cfg *config.AppConfig) (storage.Source, error) {
	switch cfg.Template.Source {
	case config.TemplateSourceMinIO:
		src, err := storage.NewMinIO(cfg.Template.MinIO)
		if err != nil {
			return nil, fmt.Errorf("initialize template storage: %w", err)
		}
		return src, nil
	default:
		return storage.NewDirectory(cfg.Template.Dir), nil
	}
}

// App exposes the Fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address and serves until ctx is cancelled.
// A bind failure, such as the port already being in use, is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		s.Close()
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down within the
// configured timeout. Serve takes ownership of ln and does not return
// while ln still accepts connections.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	if ctx.Err() != nil {
		_ = ln.Close()
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("mode", string(s.cfg.Mode)).
		Str("template", s.cfg.Template.Name).
		Msg("Server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	shutdownErr := s.app.ShutdownWithContext(shutdownCtx)

	// Shutdown only closes listeners fasthttp already tracks; the accept
	// loop may not have registered ln yet.
	_ = ln.Close()

	select {
	case <-errCh:
	case <-shutdownCtx.Done():
		s.logger.Warn().Msg("Listener did not stop within the shutdown timeout")
	}

	if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}

	return nil
}

// Close releases the template watcher. It is safe to call more than once.
func (s *Server) Close() {
	if s.watcher != nil {
		_ = s.watcher.Stop(context.Background())
		s.watcher = nil
	}
}
