package usecase

import "errors"

// Sentinel errors for the service layer. Transport maps each family to an
// HTTP status; anything outside this set is treated as a storage failure.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("incorrect account or password")
	ErrForbidden          = errors.New("account is banned")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrNoPermission       = errors.New("no permission")
	ErrOperationFailed    = errors.New("operation failed")
	ErrUserNotFound       = errors.New("user not found")
)

// FieldError reports a validation failure for a single input field.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Is lets callers match any field error with errors.Is(err, ErrInvalidInput).
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput
}
