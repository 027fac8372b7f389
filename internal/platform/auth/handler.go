package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
)

type AuthHandler struct{ svc AuthService }

// RegisterRoutes mounts login on r and the account admin routes on admin,
// which the caller guards with RequireAuth + RequireRole(RoleAdmin).
func RegisterRoutes(r gin.IRoutes, admin gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/auth/login", h.Login)
	admin.POST("/auth/accounts", h.Register)
	admin.DELETE("/auth/accounts/:id", h.DeleteAccount)
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBindError(err))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.ID, req.Password)
	if errors.Is(err, ErrBadLogin) {
		apperr.Respond(c, apperr.Unauthorized("IDまたはパスワードが間違っています"))
		return
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token})
}

type RegisterRequest struct {
	ID       string  `json:"id" binding:"required,max=64"`
	Password string  `json:"password" binding:"required,min=8"`
	Role     *string `json:"role,omitempty"` // defaults to staff
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBindError(err))
		return
	}

	role := RoleStaff
	if req.Role != nil && *req.Role != "" {
		role = *req.Role
	}

	err := h.svc.Register(c.Request.Context(), req.ID, req.Password, role)
	if errors.Is(err, ErrAlreadyExists) {
		apperr.Respond(c, apperr.Duplicate("Account %s already exists", req.ID))
		return
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Location", "/api/auth/accounts/"+req.ID)
	c.JSON(http.StatusCreated, gin.H{"id": req.ID, "role": role})
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	id := c.Param("id")
	err := h.svc.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		apperr.Respond(c, apperr.NotFound("Account", id))
		return
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
