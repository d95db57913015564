// Package server wires the application together: backends, services,
// listeners, the HTTP kernel, the gRPC health endpoint and the scheduler.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/app/controllers"
	"github.com/developlogy/sitebuilder/app/jobs"
	"github.com/developlogy/sitebuilder/app/listeners"
	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/render"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/app/routes"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/config"
	_ "github.com/developlogy/sitebuilder/database/migrations"
	"github.com/developlogy/sitebuilder/internal/kernel"
	"github.com/developlogy/sitebuilder/pkg/broker"
	"github.com/developlogy/sitebuilder/pkg/cache"
	"github.com/developlogy/sitebuilder/pkg/database"
	"github.com/developlogy/sitebuilder/pkg/event"
	grpcserver "github.com/developlogy/sitebuilder/pkg/grpc"
	pkghttp "github.com/developlogy/sitebuilder/pkg/http"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/middleware"
	"github.com/developlogy/sitebuilder/pkg/migration"
	"github.com/developlogy/sitebuilder/pkg/queue"
	"github.com/developlogy/sitebuilder/pkg/router"
	"github.com/developlogy/sitebuilder/pkg/schedule"
	"github.com/developlogy/sitebuilder/pkg/session"
	"github.com/developlogy/sitebuilder/pkg/storage"
	"github.com/developlogy/sitebuilder/pkg/workerpool"
	"github.com/developlogy/sitebuilder/pkg/ws"
)

// Options adjusts how New assembles the application.
type Options struct {
	// InMemory keeps every backend in process: repositories, cache, queue,
	// storage and the event publisher. Nothing external is dialled.
	InMemory bool
	// Now overrides the wall clock.
	Now func() time.Time
	// Gateway overrides the PAYMENT_GATEWAY strategy.
	Gateway services.PaymentGateway
	// Publisher overrides the AMQP publisher.
	Publisher broker.Publisher
}

// Repositories are the storage ports the services run on.
type Repositories struct {
	Sites     repositories.SiteRepository
	Users     repositories.UserRepository
	Orders    repositories.OrderRepository
	Analytics repositories.AnalyticsRepository
}

// App is a fully wired application.
type App struct {
	Router    *router.Router
	Bus       *event.Bus
	Hub       *ws.Hub
	Queue     *queue.Manager
	Pool      *workerpool.Pool
	Scheduler *schedule.Scheduler
	Health    *grpcserver.Server
	Publisher broker.Publisher
	Cache     cache.Store
	Disk      storage.Disk
	Repos     Repositories
	DB        *gorm.DB

	Sites     *services.SiteService
	Editors   *services.EditorRegistry
	Carts     *services.CartService
	Checkout  *services.CheckoutService
	Analytics *services.AnalyticsService
	Auth      *services.AuthService
	Exports   *services.ExportService

	closers []func(context.Context) error
}

// New connects the configured backends and builds every service. Call Close
// when done, or Run, which closes on return.
func New(ctx context.Context, opts Options) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{Bus: event.NewBus(), Hub: ws.NewHub()}
	if err := a.openBackends(ctx, opts); err != nil {
		a.Close(ctx) //nolint:errcheck
		return nil, err
	}

	gateway := opts.Gateway
	if gateway == nil {
		g, err := services.NewPaymentGateway(config.PaymentGateway(), pkghttp.New(&http.Client{Timeout: 20 * time.Second}))
		if err != nil {
			a.Close(ctx) //nolint:errcheck
			return nil, err
		}
		gateway = g
	}

	now := opts.Now
	renderer := render.Default()
	a.Pool = workerpool.New("analytics", config.AnalyticsWorkers(), 1024)
	a.closers = append(a.closers, func(context.Context) error { a.Pool.Shutdown(); return nil })

	a.Sites = services.NewSiteService(a.Repos.Sites, a.Bus, now)
	a.Editors = services.NewEditorRegistry(a.Sites, a.Repos.Sites, a.Bus, now)
	a.Carts = services.NewCartService(a.Sites, now)
	a.Checkout = services.NewCheckoutService(a.Repos.Orders, a.Sites, gateway, config.PaymentCurrency(), a.Cache, a.Bus, now)
	a.Analytics = services.NewAnalyticsService(a.Repos.Analytics, a.Sites, a.Pool, now)
	a.Auth = services.NewAuthService(a.Repos.Users, a.Cache, a.Queue, a.Bus, config.BaseURL(), now)
	a.Exports = services.NewExportService(a.Sites, a.Disk, renderer, config.BaseURL())

	listeners.Register(a.Bus, listeners.Deps{
		Hub:       a.Hub,
		Publisher: a.Publisher,
		Jobs:      a.Queue,
		Orders:    a.Repos.Orders,
		Sites:     a.Repos.Sites,
		Editors:   a.Editors,
	})

	gql, err := controllers.NewGraphQLHandler(a.Sites, a.Analytics)
	if err != nil {
		a.Close(ctx) //nolint:errcheck
		return nil, fmt.Errorf("graphql: %w", err)
	}

	sessions := session.DefaultOptions()
	sessions.Store = a.Cache
	sessions.Secure = config.IsProduction()

	ws.AllowOrigins(middleware.DefaultCORSOptions().AllowedOrigins)
	a.Router = kernel.NewRouter(routes.Controllers{
		Auth:          controllers.NewAuthController(a.Auth),
		Sites:         controllers.NewSiteController(a.Sites, a.Exports),
		Builder:       controllers.NewBuilderController(a.Editors, renderer),
		Store:         controllers.NewStoreController(a.Carts, a.Checkout),
		Orders:        controllers.NewOrderController(a.Checkout),
		Analytics:     controllers.NewAnalyticsController(a.Analytics, config.Duration("ANALYTICS_STREAM_INTERVAL", 5*time.Second)),
		Public:        controllers.NewPublicController(a.Sites, a.Exports, renderer),
		Notifications: controllers.NewNotificationController(a.Sites, a.Hub),
		GraphQL:       gql,
		Revoked:       a.Auth,
		Sessions:      sessions,
	})

	if err := a.schedule(); err != nil {
		a.Close(ctx) //nolint:errcheck
		return nil, err
	}
	a.Health = grpcserver.New(a.healthChecks())
	return a, nil
}

func (a *App) openBackends(ctx context.Context, opts Options) error {
	now := opts.Now
	a.Publisher = opts.Publisher

	if opts.InMemory {
		a.Cache = cache.NewMemoryStore()
		a.Disk = storage.NewMemoryDisk(config.StorageURL())
		a.Queue = queue.NewManager(queue.NewMemoryDriver(256))
		if a.Publisher == nil {
			a.Publisher = &broker.LogPublisher{}
		}
		a.Repos = Repositories{
			Sites:     repositories.NewMemorySiteRepository(now),
			Users:     repositories.NewMemoryUserRepository(now),
			Orders:    repositories.NewMemoryOrderRepository(now),
			Analytics: repositories.NewMemoryAnalyticsRepository(now, eventLimit()),
		}
		jobs.Register(a.Queue)
		return nil
	}

	if err := database.Connect(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	a.DB = database.DB
	if config.Get("AUTO_MIGRATE", "true") == "true" {
		n, err := migration.New(a.DB).WithOutput(io.Discard).Run()
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if n > 0 {
			logger.Info("database migrated", "migrations", n)
		}
	}

	if err := cache.Connect(); err != nil {
		logger.Warn("cache: redis unavailable, using the in-process store", "error", err)
	}
	a.Cache = cache.Default()

	storage.Connect(ctx)
	a.Disk = storage.Default()

	if a.Publisher == nil {
		if err := broker.Connect(); err != nil {
			logger.Warn("broker: AMQP unavailable, domain events are logged only", "error", err)
		}
		a.Publisher = broker.Default()
		a.closers = append(a.closers, func(context.Context) error { return a.Publisher.Close() })
	}

	driver := queue.Driver(queue.NewMemoryDriver(1024))
	if config.QueueDriver() == "redis" && cache.RDB != nil {
		driver = queue.NewRedisDriver(ctx, cache.RDB)
	}
	a.Queue = queue.NewManager(driver)
	a.Queue.UseFailureStore(queue.NewDBFailureStore(a.DB))
	jobs.Register(a.Queue)

	sites := repositories.SiteRepository(repositories.NewGormSiteRepository(a.DB, now))
	a.Repos = Repositories{
		Sites:  repositories.NewCachedSiteRepository(sites, a.Cache, config.Duration("SITE_CACHE_TTL", 5*time.Minute)),
		Users:  repositories.NewGormUserRepository(a.DB, now),
		Orders: repositories.NewGormOrderRepository(a.DB, now),
	}

	limit := eventLimit()
	switch config.AnalyticsDriver() {
	case "mongo":
		repo, err := repositories.ConnectMongoAnalytics(ctx, config.MongoURI(), config.MongoDatabase(), limit, now)
		if err != nil {
			return fmt.Errorf("analytics: %w", err)
		}
		a.Repos.Analytics = repo
		a.closers = append(a.closers, repo.Close)
	case "memory":
		a.Repos.Analytics = repositories.NewMemoryAnalyticsRepository(now, limit)
	default:
		a.Repos.Analytics = repositories.NewGormAnalyticsRepository(a.DB, now, limit)
	}
	return nil
}

// eventLimit caps the stored analytics event log.
func eventLimit() int { return config.Int("ANALYTICS_MAX_EVENTS", models.MaxAnalyticsEvents) }

// schedule registers the periodic tasks: republishing the sitemap and
// closing abandoned editor sessions.
func (a *App) schedule() error {
	a.Scheduler = schedule.New()

	err := a.Scheduler.Hourly().Name("sitemap:publish").WithoutOverlapping().Do(func(ctx context.Context) error {
		url, err := a.Exports.PublishSitemap(ctx)
		if err != nil {
			return err
		}
		logger.WithCtx(ctx).Info("sitemap published", "url", url)
		return nil
	})
	if err != nil {
		return err
	}

	idle := config.Duration("EDITOR_IDLE_TIMEOUT", 2*time.Hour)
	return a.Scheduler.Every(10 * time.Minute).Name("editors:sweep").Do(func(ctx context.Context) error {
		if n := a.Editors.Sweep(idle); n > 0 {
			logger.WithCtx(ctx).Info("idle editor sessions closed", "count", n)
		}
		return nil
	})
}

func (a *App) healthChecks() map[string]grpcserver.Check {
	checks := map[string]grpcserver.Check{
		"cache": func(ctx context.Context) error {
			_, err := a.Cache.Get(ctx, "health:ping", new(string))
			return err
		},
	}
	if a.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	return checks
}

// Handler is the HTTP kernel.
func (a *App) Handler() http.Handler { return a.Router.Handler() }

// Run serves HTTP and gRPC health, runs the queue workers, the analytics
// pool, the websocket hub and the scheduler until ctx is done or a server
// fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.Hub.Run(ctx)
	a.Queue.StartWorkers(ctx, config.Int("QUEUE_WORKERS", 4))
	a.Scheduler.Start(ctx)
	go a.Health.Watch(ctx, 15*time.Second)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := a.Health.ListenAndServe(config.GRPCPort()); err != nil {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		logger.Error("server failed", "error", runErr)
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()

	logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	a.Health.Stop()
	a.Scheduler.Wait()
	return errors.Join(runErr, a.Close(shutdownCtx))
}

// Close releases the backends in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.Bus.Wait()
	return errors.Join(errs...)
}

// Start runs the configured application until SIGINT or SIGTERM.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, Options{})
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
