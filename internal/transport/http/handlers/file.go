package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mlinyun/user-center/internal/transport/http/middleware"
	"github.com/mlinyun/user-center/internal/usecase"
)

// FileHandlerConfig bounds what the avatar endpoint accepts.
type FileHandlerConfig struct {
	Dir        string
	BaseURL    string
	MaxBytes   int64
	Extensions []string
}

// FileHandler stores avatar uploads and links them to the calling account.
type FileHandler struct {
	auth       *usecase.AuthService
	users      *usecase.UserService
	logger     *zap.Logger
	dir        string
	baseURL    string
	maxBytes   int64
	extensions map[string]bool
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(auth *usecase.AuthService, users *usecase.UserService, logger *zap.Logger, cfg FileHandlerConfig) *FileHandler {
	extensions := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions[strings.ToLower(ext)] = true
	}
	if len(extensions) == 0 {
		extensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "/static/avatar"
	}

	return &FileHandler{
		auth:       auth,
		users:      users,
		logger:     logger,
		dir:        cfg.Dir,
		baseURL:    baseURL,
		maxBytes:   maxBytes,
		extensions: extensions,
	}
}

// RegisterRoutes binds the upload route.
func (h *FileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/avatar", h.uploadAvatar)
}

func (h *FileHandler) uploadAvatar(c *gin.Context) {
	actor, err := h.auth.CurrentUser(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to load current user")
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "avatar file is required"))
		return
	}
	if file.Size > h.maxBytes {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, fmt.Sprintf("avatar exceeds the %d byte limit", h.maxBytes)))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !h.extensions[ext] {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unsupported avatar format"))
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("failed to prepare upload directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to store avatar"))
		return
	}

	// The stored name is always server-generated; the client's filename only
	// contributes its extension.
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.dir, name)); err != nil {
		h.logger.Error("failed to store avatar", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to store avatar"))
		return
	}

	avatarURL := h.baseURL + "/" + name
	err = h.users.UpdateProfile(c.Request.Context(), actor, usecase.UpdateProfileInput{
		UserID:    actor.ID,
		AvatarURL: &avatarURL,
	})
	if err != nil {
		RespondWithMappedError(c, err, authErrorCases(), http.StatusInternalServerError, "failed to link avatar")
		return
	}

	c.JSON(http.StatusOK, UploadAvatarResponse{UserAvatar: avatarURL})
}
