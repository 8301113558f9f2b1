package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlinyun/user-center/internal/core/domain"
	"github.com/mlinyun/user-center/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request's trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest defines the self-service registration payload. Field names
// mirror the frontend contract.
type RegisterRequest struct {
	UserAccount   string `json:"userAccount" binding:"required"`
	UserPassword  string `json:"userPassword" binding:"required"`
	CheckPassword string `json:"checkPassword" binding:"required"`
	PlanetCode    string `json:"planetCode" binding:"required"`
}

// RegisterResponse returns the newly assigned user identifier.
type RegisterResponse struct {
	ID int64 `json:"id"`
}

// LoginRequest defines the login payload.
type LoginRequest struct {
	UserAccount  string `json:"userAccount" binding:"required"`
	UserPassword string `json:"userPassword" binding:"required"`
}

// UpdateProfileRequest carries a self-service profile edit. Absent fields
// are left untouched.
type UpdateProfileRequest struct {
	ID         int64          `json:"id" binding:"required"`
	UserName   *string        `json:"userName"`
	UserAvatar *string        `json:"userAvatar"`
	Profile    *string        `json:"userProfile"`
	Gender     *domain.Gender `json:"userGender"`
	Phone      *string        `json:"userPhone"`
	Email      *string        `json:"userEmail"`
}

// UpdatePasswordRequest carries a self-service password change.
type UpdatePasswordRequest struct {
	ID            int64  `json:"id" binding:"required"`
	RawPassword   string `json:"rawPassword" binding:"required"`
	NewPassword   string `json:"newPassword" binding:"required"`
	CheckPassword string `json:"checkPassword" binding:"required"`
}

// PasswordStrengthRequest asks for an advisory strength evaluation.
type PasswordStrengthRequest struct {
	Password string `json:"password" binding:"required"`
}

// PasswordStrengthResponse reports the classification and an estimator score.
type PasswordStrengthResponse struct {
	Strength string `json:"strength"`
	Score    int    `json:"score"`
}

// GeneratedPasswordResponse returns a suggested password.
type GeneratedPasswordResponse struct {
	Password string `json:"password"`
}

// AdminCreateUserRequest carries an admin-initiated account creation.
type AdminCreateUserRequest struct {
	UserAccount   string          `json:"userAccount" binding:"required"`
	UserPassword  string          `json:"userPassword" binding:"required"`
	CheckPassword string          `json:"checkPassword" binding:"required"`
	PlanetCode    string          `json:"planetCode" binding:"required"`
	UserName      string          `json:"userName"`
	UserRole      domain.UserRole `json:"userRole"`
}

// AdminUpdateUserRequest carries an admin partial edit, including role.
type AdminUpdateUserRequest struct {
	UserName   *string          `json:"userName"`
	UserAvatar *string          `json:"userAvatar"`
	Profile    *string          `json:"userProfile"`
	Gender     *domain.Gender   `json:"userGender"`
	Phone      *string          `json:"userPhone"`
	Email      *string          `json:"userEmail"`
	UserRole   *domain.UserRole `json:"userRole"`
}

// AdminResetPasswordRequest carries an admin credential reset.
type AdminResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

// AdminSetStatusRequest bans or unbans an account.
type AdminSetStatusRequest struct {
	UserStatus domain.UserStatus `json:"userStatus" binding:"required"`
}

// ListUsersResponse is one page of the admin user listing.
type ListUsersResponse struct {
	Records []domain.Principal `json:"records"`
	Total   int64              `json:"total"`
	Current int                `json:"current"`
	Size    int                `json:"size"`
}

// UploadAvatarResponse returns the stored avatar's public URL.
type UploadAvatarResponse struct {
	UserAvatar string `json:"userAvatar"`
}

// HealthResponse reports liveness/readiness state.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
