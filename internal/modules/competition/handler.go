package competition

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/icmpp/concursuri/internal/modules/storage"
	"github.com/icmpp/concursuri/internal/pkg/pagination"
	"github.com/icmpp/concursuri/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles competition HTTP requests.
type Handler struct {
	svc    *Service
	store  *storage.Client
	logger *zap.Logger
}

func NewHandler(svc *Service, store *storage.Client, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, store: store, logger: logger}
}

// RegisterPublicRoutes mounts the read-only surface. The same handlers
// serve both the site routes and the /embed mirror.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	comps := rg.Group("/competitions")
	comps.GET("", h.list)
	comps.GET("/:identifier", h.getByIdentifier)
}

// RegisterAdminRoutes mounts the mutation surface (already auth-gated).
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	comps := rg.Group("/competitions")
	comps.GET("", h.listPaged)
	comps.GET("/:id", h.getByIdentifier)
	comps.POST("", h.create)
	comps.PATCH("/:id", h.update)
	comps.PUT("/:id", h.update)
	comps.DELETE("/:id", h.delete)
}

// list GET /competitions
func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comps, err := h.svc.List(c.Request.Context(), lq)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			response.BadRequest(c, "Status invalid.")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, comps)
}

// listPaged GET /admin/competitions
func (h *Handler) listPaged(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comps, meta, err := h.svc.ListPaged(c.Request.Context(), lq, pagination.FromContext(c))
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			response.BadRequest(c, "Status invalid.")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Paged(c, comps, meta)
}

// getByIdentifier GET /competitions/:identifier (slug, falling back to id)
func (h *Handler) getByIdentifier(c *gin.Context) {
	identifier := c.Param("identifier")
	if identifier == "" {
		identifier = c.Param("id")
	}
	comp, err := h.svc.GetByIdentifier(c.Request.Context(), identifier)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if comp == nil {
		response.NotFoundMsg(c, "Concursul nu a fost găsit.")
		return
	}
	response.OK(c, toResponse(comp, h.store))
}

// create POST /admin/competitions
func (h *Handler) create(c *gin.Context) {
	var dto CreateCompetitionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comp, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlugExists):
			response.Conflict(c, "Există deja un concurs cu acest slug.")
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTitle):
			response.BadRequest(c, "Date invalide.")
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, toResponse(comp, h.store))
}

// update PATCH /admin/competitions/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateCompetitionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comp, err := h.svc.Update(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlugExists):
			response.Conflict(c, "Există deja un concurs cu acest slug.")
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidDate):
			response.BadRequest(c, "Date invalide.")
		default:
			response.InternalError(c, err)
		}
		return
	}
	if comp == nil {
		response.NotFoundMsg(c, "Concursul nu a fost găsit.")
		return
	}
	response.OK(c, toResponse(comp, h.store))
}

// delete DELETE /admin/competitions/:id
func (h *Handler) delete(c *gin.Context) {
	filePaths, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "Concursul nu a fost găsit.")
			return
		}
		response.InternalError(c, err)
		return
	}

	// Bucket cleanup is best-effort; the rows are already gone.
	if h.store != nil && len(filePaths) > 0 {
		go func(paths []string) {
			ctx := context.Background()
			for _, p := range paths {
				if err := h.store.Delete(ctx, p); err != nil && h.logger != nil {
					h.logger.Warn("object cleanup failed", zap.String("key", p), zap.Error(err))
				}
			}
		}(filePaths)
	}

	response.NoContent(c)
}
