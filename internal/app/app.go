package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/pos"
	"github.com/xenking/streetmagic-pos/internal/domain/report"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
	"github.com/xenking/streetmagic-pos/internal/handler"
	"github.com/xenking/streetmagic-pos/internal/storage"
	"github.com/xenking/streetmagic-pos/pkg/health"
	"github.com/xenking/streetmagic-pos/pkg/httpmiddleware"
)

const eventsPath = "/api/register/events"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		DatabaseURL: cfg.Storage.DatabaseURL,
		Baseline:    cfg.Register.BillBaseline,
		Menu:        menu.Defaults(),
	})
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()
	if store.SeededMenu {
		lg.Info("Seeded default menu", zap.String("storage", store.Name))
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck(store.Name, 5*time.Second, health.PingCheck(store.Name, store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)

	// Terminal.
	metrics, err := pos.NewMetrics(m.MeterProvider().Meter("pos"))
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}
	terminal, err := pos.NewCartStore(ctx, store.Register, pos.Options{
		Layout:  table.NewLayout(cfg.Register.Tables),
		Logger:  lg.Named("register"),
		Metrics: metrics,
	})
	if err != nil {
		return errors.Wrap(err, "create cart store")
	}

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{Location: loc},
		terminal,
		menu.NewService(store.Menu),
		order.NewHistory(store.Orders, loc),
		report.NewService(store.Orders, store.Books, loc),
		store.Customers,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// The event stream lifts its own write deadline.
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{"Content-Disposition", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   skipRateLimit,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pos-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}
	server.RegisterOnShutdown(h.Shutdown)
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		err := server.Shutdown(shutdownCtx)
		healthSvc.Stop()
		if err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// skipRateLimit exempts probes and the long-lived event stream.
func skipRateLimit(r *http.Request) bool {
	switch {
	case r.URL.Path == "/livez", r.URL.Path == "/readyz":
		return true
	case strings.HasPrefix(r.URL.Path, eventsPath):
		return true
	}
	return false
}
