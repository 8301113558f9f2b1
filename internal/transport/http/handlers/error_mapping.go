package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlinyun/user-center/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Invalid-input failures reuse the error's
// own message so field-level validation detail reaches the caller.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			message := cs.Message
			if message == "" {
				message = err.Error()
			}
			c.JSON(cs.Status, NewErrorResponse(c, message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// authErrorCases is the shared mapping for session-guarded endpoints.
// InvalidInput and validation failures carry their own message (empty
// Message falls through to err.Error()).
func authErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: usecase.ErrInvalidCredentials.Error()},
		{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest},
		{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: usecase.ErrForbidden.Error()},
		{Err: usecase.ErrNotLoggedIn, Status: http.StatusUnauthorized, Message: usecase.ErrNotLoggedIn.Error()},
		{Err: usecase.ErrNoPermission, Status: http.StatusForbidden, Message: usecase.ErrNoPermission.Error()},
		{Err: usecase.ErrOperationFailed, Status: http.StatusBadRequest},
		{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: usecase.ErrUserNotFound.Error()},
	}
}
