package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/icmpp/concursuri/internal/middleware"
	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgBadCredentials = "Email sau parolă incorecte."
	msgWrongDomain    = "Doar adresele de email instituționale pot accesa panoul de administrare."
	msgNoRole         = "Contul nu are un rol atribuit. Contactați un administrator."
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.Named("auth")}
}

// RegisterRoutes wires /auth/login publicly and /auth/logout, /auth/me
// behind the auth middleware supplied by the caller.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authed gin.HandlerFunc) {
	r.POST("/auth/login", h.login)
	r.POST("/auth/logout", authed, h.logout)
	r.GET("/auth/me", authed, h.me)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Date invalide.")
		return
	}

	token, user, role, err := h.svc.Login(c.Request.Context(), dto.Email, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, ErrWrongDomain):
			response.ForbiddenMsg(c, msgWrongDomain)
		case errors.Is(err, ErrBadCredentials):
			response.UnauthorizedMsg(c, msgBadCredentials)
		case errors.Is(err, ErrNoRole):
			response.ForbiddenMsg(c, msgNoRole)
		default:
			response.InternalError(c, err)
		}
		return
	}

	h.logger.Info("login", zap.String("user", user.ID), zap.String("ip", c.ClientIP()))
	response.OK(c, loginResponse{Token: token, User: toAccount(user, role)})
}

func (h *Handler) logout(c *gin.Context) {
	err := h.svc.Logout(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentSessionID(c))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	user, role, err := h.svc.Me(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if user == nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, toAccount(user, role))
}

func toAccount(user *models.UserModel, role string) accountResponse {
	out := accountResponse{ID: user.ID, Email: user.Email, Role: role}
	if user.LastLoginTime != nil {
		out.LastLoginTime = user.LastLoginTime.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}
