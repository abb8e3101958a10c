package services

import "errors"

type ErrorCode int

const (
	CodeValidation ErrorCode = iota + 1
	CodeForbidden
	CodeNotFound
	CodeConflict
)

// ServiceError carries a caller-presentable message plus a code the handler
// layer maps to an HTTP status. Anything else bubbling out of a service is
// treated as an internal storage failure.
type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func ValidationError(message string) error {
	return &ServiceError{Code: CodeValidation, Message: message}
}

func ForbiddenError(message string) error {
	return &ServiceError{Code: CodeForbidden, Message: message}
}

func NotFoundError(message string) error {
	return &ServiceError{Code: CodeNotFound, Message: message}
}

func ConflictError(message string) error {
	return &ServiceError{Code: CodeConflict, Message: message}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == CodeNotFound
}

func IsForbidden(err error) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == CodeForbidden
}

func IsConflict(err error) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == CodeConflict
}
