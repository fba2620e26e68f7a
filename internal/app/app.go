package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/icmpp/concursuri/internal/config"
	"github.com/icmpp/concursuri/internal/database"
	"github.com/icmpp/concursuri/internal/middleware"
	"github.com/icmpp/concursuri/internal/modules/competition"
	"github.com/icmpp/concursuri/internal/modules/storage"
	"github.com/icmpp/concursuri/internal/pkg/cache"
	pkgcron "github.com/icmpp/concursuri/internal/pkg/cron"
	jwtpkg "github.com/icmpp/concursuri/internal/pkg/jwt"
	pkgredis "github.com/icmpp/concursuri/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → storage → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if cfg.JWTSecret != "" {
		jwtpkg.SetSecret(cfg.JWTSecret)
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		// The app degrades gracefully without Redis: caches turn into
		// pass-throughs.
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		rc = nil
	}

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		// Local runs without bucket credentials still serve everything
		// except document uploads.
		logger.Warn("object storage not configured, uploads disabled", zap.Error(err))
		store = nil
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())

	cacheSvc := cache.New(rc)
	compSvc := competition.NewService(db, cacheSvc)

	sched := pkgcron.New(logger)
	registerCronJobs(sched, compSvc)
	sched.Start(ctx)

	app := &App{cfg: cfg, router: router, db: db, logger: logger, cancel: cancel, sched: sched}
	app.registerRoutes(rc, cacheSvc, compSvc, store)

	return app, nil
}

// registerCronJobs wires the periodic maintenance work.
func registerCronJobs(sched *pkgcron.Scheduler, compSvc *competition.Service) {
	sched.Register(pkgcron.Job{
		Name:        "auto-archive",
		Description: "Arhivează concursurile cu auto_archive activ al căror termen a expirat.",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			_, err := compSvc.ArchiveExpired(ctx)
			return err
		},
	})
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines.
func (a *App) Shutdown() { a.cancel() }
