package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mlinyun/user-center/internal/infra/security"
	"github.com/mlinyun/user-center/internal/transport/http/middleware"
	"github.com/mlinyun/user-center/internal/usecase"
)

// UserHandler exposes registration, session and self-service endpoints.
type UserHandler struct {
	registration *usecase.RegistrationService
	auth         *usecase.AuthService
	users        *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(registration *usecase.RegistrationService, auth *usecase.AuthService, users *usecase.UserService) *UserHandler {
	return &UserHandler{
		registration: registration,
		auth:         auth,
		users:        users,
	}
}

// RegisterRoutes binds the user-facing routes, applying optional throttling
// middleware ahead of the register and login handlers.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, registerLimit, loginLimit gin.HandlerFunc) {
	if registerLimit != nil {
		r.POST("/register", registerLimit, h.register)
	} else {
		r.POST("/register", h.register)
	}
	if loginLimit != nil {
		r.POST("/login", loginLimit, h.login)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/logout", h.logout)
	r.GET("/current", h.current)
	r.POST("/update", h.updateProfile)
	r.POST("/update-password", h.updatePassword)
	r.POST("/password/strength", h.passwordStrength)
	r.GET("/password/generate", h.passwordGenerate)
}

func (h *UserHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	id, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Account:       strings.TrimSpace(req.UserAccount),
		Password:      req.UserPassword,
		CheckPassword: req.CheckPassword,
		PlanetCode:    strings.TrimSpace(req.PlanetCode),
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusOK, RegisterResponse{ID: id})
}

func (h *UserHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	// Fresh identifier on every login; the one the client presented may have
	// been planted before authentication.
	sessionID := middleware.RotateSession(c)
	principal, err := h.auth.Login(c.Request.Context(), sessionID, strings.TrimSpace(req.UserAccount), req.UserPassword)
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, principal)
}

func (h *UserHandler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "logout failed")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *UserHandler) current(c *gin.Context) {
	principal, err := h.auth.CurrentPrincipal(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to load current user")
		return
	}
	c.JSON(http.StatusOK, principal)
}

func (h *UserHandler) updateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid update payload"))
		return
	}

	actor, err := h.auth.CurrentUser(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to load current user")
		return
	}

	err = h.users.UpdateProfile(c.Request.Context(), actor, usecase.UpdateProfileInput{
		UserID:    req.ID,
		Name:      req.UserName,
		AvatarURL: req.UserAvatar,
		Profile:   req.Profile,
		Gender:    req.Gender,
		Phone:     req.Phone,
		Email:     req.Email,
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "update failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "updated"})
}

func (h *UserHandler) updatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), middleware.SessionID(c), usecase.ChangePasswordInput{
		UserID:        req.ID,
		OldPassword:   req.RawPassword,
		NewPassword:   req.NewPassword,
		CheckPassword: req.CheckPassword,
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "password change failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed, please log in again"})
}

// passwordStrength is the advisory meter backing the registration form. It
// never gates anything; the registrar applies its own policy server side.
func (h *UserHandler) passwordStrength(c *gin.Context) {
	var req PasswordStrengthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid strength payload"))
		return
	}

	evaluation := security.Evaluate(req.Password)
	c.JSON(http.StatusOK, PasswordStrengthResponse{
		Strength: evaluation.Strength.String(),
		Score:    evaluation.Score,
	})
}

// passwordGenerate suggests a random password satisfying the strong policy,
// backing the registration form's "suggest" button.
func (h *UserHandler) passwordGenerate(c *gin.Context) {
	length := security.DefaultGeneratedLength
	if raw := c.Query("length"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid length"))
			return
		}
		length = parsed
	}

	password, err := security.Generate(length)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	c.JSON(http.StatusOK, GeneratedPasswordResponse{Password: password})
}
