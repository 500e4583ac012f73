package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/http/middleware"
	"github.com/obispado/citas-backend/internal/session"
)

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"obispo"`
	Password string `json:"password" binding:"required" example:"s3cret-passw0rd"`
}

// Login godoc
// @ID          adminLogin
// @Summary     Sign in
// @Description Verifies the credentials and returns a bearer token. The session slides forward on every authenticated request.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  services.Login
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Invalid credentials"
// @Failure     429  {object}  handlers.ErrorResponse "Too many requests"
// @Router      /admin/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Usuario y contraseña requeridos")
		return
	}
	res, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password, client(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// Logout godoc
// @ID          adminLogout
// @Summary     Sign out
// @Tags        Auth
// @Security    BearerAuth
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	sess, found := middleware.SessionFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Sesión expirada. Inicie sesión nuevamente.")
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), sess, client(c)); err != nil {
		h.respondError(c, err)
		return
	}
	noContent(c)
}

// Me godoc
// @ID          adminMe
// @Summary     Current session
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  session.Session
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Router      /admin/me [get]
func (h *Handlers) Me(c *gin.Context) {
	sess, found := middleware.SessionFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Sesión expirada. Inicie sesión nuevamente.")
		return
	}
	ok(c, http.StatusOK, session.Session{
		ID:        sess.ID,
		Username:  sess.Username,
		Role:      sess.Role,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
}
