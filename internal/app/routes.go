package app

import (
	"github.com/gin-gonic/gin"
	"github.com/icmpp/concursuri/internal/middleware"
	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/modules/auth"
	"github.com/icmpp/concursuri/internal/modules/competition"
	"github.com/icmpp/concursuri/internal/modules/document"
	"github.com/icmpp/concursuri/internal/modules/health"
	"github.com/icmpp/concursuri/internal/modules/storage"
	"github.com/icmpp/concursuri/internal/modules/user"
	"github.com/icmpp/concursuri/internal/pkg/cache"
	pkgredis "github.com/icmpp/concursuri/internal/pkg/redis"
	"github.com/icmpp/concursuri/internal/pkg/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *App) registerRoutes(rc *pkgredis.Client, cacheSvc *cache.Service, compSvc *competition.Service, store *storage.Client) {
	r := a.router
	db := a.db

	r.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	r.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authSvc := auth.NewService(db, a.cfg.EmailDomain)
	docSvc := document.NewService(db, cacheSvc)
	userSvc := user.NewService(db, a.cfg.EmailDomain, a.logger)

	compHandler := competition.NewHandler(compSvc, store, a.logger)
	docHandler := document.NewHandler(docSvc, store, a.logger)
	authHandler := auth.NewHandler(authSvc, a.logger)
	userHandler := user.NewHandler(userSvc)
	healthHandler := health.NewHandler(db, rc, a.sched)

	authMW := middleware.Auth(db)

	healthHandler.RegisterRoutes(r.Group(""))

	api := r.Group("/api")
	healthHandler.RegisterRoutes(api)
	authHandler.RegisterRoutes(api, authMW)

	// Read-only site surface plus its /embed mirror for iframes. Both
	// run the same handlers; anonymous GETs are served from Redis.
	for _, prefix := range []string{"", "/embed"} {
		g := api.Group(prefix)
		g.Use(middleware.OptionalAuth(db))
		if rc != nil {
			g.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{}))
		}
		compHandler.RegisterPublicRoutes(g)
	}

	// Admin panel. Content management is open to both roles; account
	// management is admin only.
	admin := api.Group("/admin")
	admin.Use(authMW)

	staff := admin.Group("", middleware.RequireRole(db, models.RoleAdmin, models.RoleEditor))
	compHandler.RegisterAdminRoutes(staff)
	docHandler.RegisterAdminRoutes(staff)

	adminOnly := admin.Group("", middleware.RequireRole(db, models.RoleAdmin))
	userHandler.RegisterAdminRoutes(adminOnly)
	healthHandler.RegisterAdminRoutes(adminOnly)
}
