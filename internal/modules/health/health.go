package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/icmpp/concursuri/internal/pkg/cron"
	redispkg "github.com/icmpp/concursuri/internal/pkg/redis"
	"github.com/icmpp/concursuri/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	db      *gorm.DB
	rc      *redispkg.Client
	cron    *cron.Scheduler
	started time.Time
}

func NewHandler(db *gorm.DB, rc *redispkg.Client, scheduler *cron.Scheduler) *Handler {
	return &Handler{db: db, rc: rc, cron: scheduler, started: time.Now()}
}

// RegisterRoutes wires the public health probe.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.health)
}

// RegisterAdminRoutes exposes the job list and manual trigger to admins.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.jobs)
	r.POST("/jobs/:name/run", h.runJob)
}

func (h *Handler) health(c *gin.Context) {
	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error"
	}

	redisStatus := "ok"
	if h.rc == nil {
		redisStatus = "disabled"
	} else if err := h.rc.Ping(c.Request.Context()); err != nil {
		redisStatus = "error"
	}

	status := http.StatusOK
	overall := "ok"
	if dbStatus == "error" {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":    overall,
		"database":  dbStatus,
		"redis":     redisStatus,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) jobs(c *gin.Context) {
	response.OK(c, h.cron.List())
}

func (h *Handler) runJob(c *gin.Context) {
	if err := h.cron.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, "Sarcina nu a fost găsită.")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Sarcina a fost pornită."})
}
