package document

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/modules/storage"
	"github.com/icmpp/concursuri/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	msgCompetitionNotFound = "Concursul nu a fost găsit."
	msgDocumentNotFound    = "Documentul nu a fost găsit."
	msgInvalidInput        = "Date invalide."
	msgFileRequired        = "Fișierul este obligatoriu."

	maxUploadSize = 50 << 20
)

type Handler struct {
	svc    *Service
	store  *storage.Client
	logger *zap.Logger
}

func NewHandler(svc *Service, store *storage.Client, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, store: store, logger: logger.Named("document")}
}

// RegisterAdminRoutes wires the document management routes onto an
// already-guarded router group.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/competitions/:id/documents", h.list)
	r.POST("/competitions/:id/documents", h.upload)
	r.PUT("/competitions/:id/documents/reorder", h.reorder)
	r.PATCH("/documents/:id", h.update)
	r.DELETE("/documents/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.svc.ListByCompetition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(docs))
	for i := range docs {
		out = append(out, h.render(&docs[i]))
	}
	response.OK(c, out)
}

func (h *Handler) upload(c *gin.Context) {
	var form UploadDocumentForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, msgInvalidInput)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, msgFileRequired)
		return
	}
	if file.Size > maxUploadSize {
		response.BadRequest(c, "Fișierul depășește dimensiunea maximă permisă.")
		return
	}

	competitionID := c.Param("id")
	key := storage.BuildObjectKey(competitionID, file.Filename)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.putObject(c.Request.Context(), key, contentType, file); err != nil {
		h.logger.Error("upload failed", zap.String("key", key), zap.Error(err))
		response.InternalError(c, err)
		return
	}

	doc, err := h.svc.Create(c.Request.Context(), competitionID, &form, key, file.Filename, contentType)
	if err != nil {
		h.removeObject(key)
		switch {
		case errors.Is(err, ErrCompetitionNotFound):
			response.NotFoundMsg(c, msgCompetitionNotFound)
		case errors.Is(err, ErrInvalidDate):
			response.BadRequest(c, msgInvalidInput)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, h.render(doc))
}

func (h *Handler) update(c *gin.Context) {
	var form UpdateDocumentForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, msgInvalidInput)
		return
	}

	var (
		newKey, newName, newType string
	)
	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxUploadSize {
			response.BadRequest(c, "Fișierul depășește dimensiunea maximă permisă.")
			return
		}
		current, err := h.svc.byID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, ErrDocumentNotFound) {
				response.NotFoundMsg(c, msgDocumentNotFound)
			} else {
				response.InternalError(c, err)
			}
			return
		}
		newKey = storage.BuildObjectKey(current.CompetitionID, file.Filename)
		newName = file.Filename
		newType = file.Header.Get("Content-Type")
		if newType == "" {
			newType = "application/octet-stream"
		}
		if err := h.putObject(c.Request.Context(), newKey, newType, file); err != nil {
			h.logger.Error("upload failed", zap.String("key", newKey), zap.Error(err))
			response.InternalError(c, err)
			return
		}
	}

	doc, oldKey, err := h.svc.Update(c.Request.Context(), c.Param("id"), &form, newKey, newName, newType)
	if err != nil {
		if newKey != "" {
			h.removeObject(newKey)
		}
		switch {
		case errors.Is(err, ErrDocumentNotFound):
			response.NotFoundMsg(c, msgDocumentNotFound)
		case errors.Is(err, ErrInvalidDate):
			response.BadRequest(c, msgInvalidInput)
		default:
			response.InternalError(c, err)
		}
		return
	}
	if oldKey != "" {
		h.removeObject(oldKey)
	}
	response.OK(c, h.render(doc))
}

func (h *Handler) delete(c *gin.Context) {
	doc, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			response.NotFoundMsg(c, msgDocumentNotFound)
		} else {
			response.InternalError(c, err)
		}
		return
	}
	h.removeObject(doc.FilePath)
	response.NoContent(c)
}

func (h *Handler) reorder(c *gin.Context) {
	var dto ReorderDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, msgInvalidInput)
		return
	}
	err := h.svc.Reorder(c.Request.Context(), c.Param("id"), dto.Documents)
	if err != nil {
		switch {
		case errors.Is(err, ErrCompetitionNotFound):
			response.NotFoundMsg(c, msgCompetitionNotFound)
		case errors.Is(err, ErrDocumentNotFound):
			response.BadRequest(c, "Lista de documente conține intrări care nu aparțin concursului.")
		default:
			response.InternalError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ordinea documentelor a fost actualizată."})
}

func (h *Handler) putObject(ctx context.Context, key, contentType string, file *multipart.FileHeader) error {
	if h.store == nil {
		return errors.New("object storage is not configured")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	payload, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	_, err = h.store.Upload(ctx, key, payload, contentType)
	return err
}

// removeObject is best effort; a stale object in the bucket is preferable
// to failing the request after the row change already committed.
func (h *Handler) removeObject(key string) {
	if key == "" || h.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.store.Delete(ctx, key); err != nil {
			h.logger.Warn("object cleanup failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

func (h *Handler) render(doc *models.CompetitionDocumentModel) gin.H {
	url := ""
	if h.store != nil {
		url = h.store.PublicURL(doc.FilePath)
	}
	return gin.H{
		"id":             doc.ID,
		"competition_id": doc.CompetitionID,
		"title":          doc.Title,
		"doc_date":       doc.DocDate,
		"description":    doc.Description,
		"file_name":      doc.FileName,
		"file_type":      doc.FileType,
		"order_index":    doc.OrderIndex,
		"url":            url,
		"created_at":     doc.CreatedAt,
		"updated_at":     doc.UpdatedAt,
	}
}
