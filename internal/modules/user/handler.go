package user

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/icmpp/concursuri/internal/middleware"
	"github.com/icmpp/concursuri/internal/pkg/response"
)

const (
	msgWrongDomain  = "Doar adresele de email instituționale pot primi cont."
	msgInvalidRole  = "Rol invalid. Rolurile permise sunt admin și editor."
	msgEmailTaken   = "Există deja un cont cu această adresă de email."
	msgUserNotFound = "Utilizatorul nu a fost găsit."
	msgSelfDeletion = "Nu vă puteți șterge propriul cont."
	msgWeakPassword = "Parola trebuie să aibă cel puțin 8 caractere."
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes wires the account management routes. The caller
// must already have applied the admin-only guard.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/users", h.list)
	r.POST("/users", h.create)
	r.DELETE("/users/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, users)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Date invalide.")
		return
	}

	account, role, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrWrongDomain):
			response.BadRequest(c, msgWrongDomain)
		case errors.Is(err, ErrInvalidRole):
			response.BadRequest(c, msgInvalidRole)
		case errors.Is(err, ErrWeakPassword):
			response.BadRequest(c, msgWeakPassword)
		case errors.Is(err, ErrEmailTaken):
			response.Conflict(c, msgEmailTaken)
		default:
			response.InternalError(c, err)
		}
		return
	}

	response.Created(c, userResponse{
		ID:            account.ID,
		Email:         account.Email,
		Role:          role,
		LastLoginTime: account.LastLoginTime,
		CreatedAt:     account.CreatedAt,
	})
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfDeletion):
			response.BadRequest(c, msgSelfDeletion)
		case errors.Is(err, ErrUserNotFound):
			response.NotFoundMsg(c, msgUserNotFound)
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}
