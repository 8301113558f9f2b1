package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/transport/http/middleware"
	"github.com/mlinyun/user-center/internal/usecase"
)

// AdminHandler exposes the admin console endpoints. Every handler resolves
// the caller through the role gate before touching the target account.
type AdminHandler struct {
	auth  *usecase.AuthService
	users *usecase.UserService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(auth *usecase.AuthService, users *usecase.UserService) *AdminHandler {
	return &AdminHandler{auth: auth, users: users}
}

// RegisterRoutes binds the admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users", h.listUsers)
	r.POST("/users", h.createUser)
	r.GET("/users/:id", h.getUser)
	r.PATCH("/users/:id", h.updateUser)
	r.DELETE("/users/:id", h.deleteUser)
	r.POST("/users/:id/password", h.resetPassword)
	r.POST("/users/:id/status", h.setStatus)
}

// requireAdmin resolves the caller and enforces the admin role. It writes
// the error response itself and returns nil when the request must stop.
func (h *AdminHandler) requireAdmin(c *gin.Context) *domain.User {
	admin, err := h.auth.RequireRole(c.Request.Context(), middleware.SessionID(c), domain.RoleAdmin)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "authorization failed")
		return nil
	}
	return admin
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user id"))
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) listUsers(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}

	query := usecase.ListUsersQuery{
		Account:       c.Query("userAccount"),
		Name:          c.Query("userName"),
		Profile:       c.Query("userProfile"),
		Role:          domain.UserRole(c.Query("userRole")),
		Phone:         c.Query("userPhone"),
		Email:         c.Query("userEmail"),
		Status:        domain.UserStatus(c.Query("userStatus")),
		PlanetCode:    c.Query("planetCode"),
		SortField:     c.Query("sortField"),
		SortAscending: c.Query("sortOrder") == "asc",
	}
	if raw := c.Query("id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			query.ID = v
		}
	}
	if raw := c.Query("userGender"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			gender := domain.Gender(v)
			query.Gender = &gender
		}
	}
	if raw := c.Query("current"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			query.Current = v
		}
	}
	if raw := c.Query("size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			query.Size = v
		}
	}
	if raw := c.Query("createdAfter"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			query.CreatedAtStart = &ts
		}
	}
	if raw := c.Query("createdBefore"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			query.CreatedAtEnd = &ts
		}
	}

	page, err := h.users.AdminListUsers(c.Request.Context(), query)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to list users")
		return
	}

	c.JSON(http.StatusOK, ListUsersResponse{
		Records: page.Users,
		Total:   page.Total,
		Current: page.Current,
		Size:    page.Size,
	})
}

func (h *AdminHandler) createUser(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}

	var req AdminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	id, err := h.users.AdminCreateUser(c.Request.Context(), usecase.AdminCreateUserInput{
		Account:       req.UserAccount,
		Password:      req.UserPassword,
		CheckPassword: req.CheckPassword,
		PlanetCode:    req.PlanetCode,
		Name:          req.UserName,
		Role:          req.UserRole,
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{ID: id})
}

func (h *AdminHandler) getUser(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	principal, err := h.users.AdminGetUser(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, principal)
}

func (h *AdminHandler) updateUser(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid update payload"))
		return
	}

	err := h.users.AdminUpdateUser(c.Request.Context(), usecase.AdminUpdateUserInput{
		UserID:    id,
		Name:      req.UserName,
		AvatarURL: req.UserAvatar,
		Profile:   req.Profile,
		Gender:    req.Gender,
		Phone:     req.Phone,
		Email:     req.Email,
		Role:      req.UserRole,
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to update user")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "updated"})
}

func (h *AdminHandler) deleteUser(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.users.AdminDeleteUser(c.Request.Context(), id); err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to delete user")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "deleted"})
}

func (h *AdminHandler) resetPassword(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req AdminResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	if err := h.users.AdminResetPassword(c.Request.Context(), id, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to reset password")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}

func (h *AdminHandler) setStatus(c *gin.Context) {
	admin := h.requireAdmin(c)
	if admin == nil {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req AdminSetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid status payload"))
		return
	}

	if err := h.users.AdminSetUserStatus(c.Request.Context(), admin.ID, id, req.UserStatus); err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to update status")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "status updated"})
}
