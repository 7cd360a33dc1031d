package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so the HTTP boundary can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Error is the typed error returned by the core packages.
// Two errors are considered equal by errors.Is when Kind and Code match.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithErr returns a copy of e carrying cause. The copy still matches e with errors.Is.
func (e *Error) WithErr(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// New builds an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation reports malformed, missing or duplicate input.
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// NotFound reports a referenced entity that does not exist.
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Persistence wraps a storage failure. The message is not exposed to clients.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: CodePersistence, Message: op, Err: err}
}

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeMissingParameters = "MISSING_PARAMETERS"
	CodePersistence       = "PERSISTENCE_ERROR"
)

var (
	// ErrMissingParameters is returned when a required request field is absent.
	ErrMissingParameters = Validation(CodeMissingParameters, "Missing parameters")
	// ErrUserNameTaken is returned when signing up with a userName that already exists.
	ErrUserNameTaken = Validation("USER_NAME_TAKEN", "userName already exists")
	// ErrRoleNameTaken is returned when creating a role whose name already exists.
	ErrRoleNameTaken = Validation("ROLE_NAME_TAKEN", "role name already exists")
	// ErrUnknownRole is returned when a user references a role that does not exist.
	ErrUnknownRole = Validation("UNKNOWN_ROLE", "referenced role does not exist")

	// ErrMissingCredentials is returned when signin is called without userName or password.
	ErrMissingCredentials = New(KindAuthentication, CodeMissingParameters, "Missing parameters")
	// ErrInvalidCredentials covers both unknown userName and wrong password.
	ErrInvalidCredentials = New(KindAuthentication, "INVALID_CREDENTIALS", "invalid userName or password")
	// ErrMissingToken is returned when no bearer token was presented.
	ErrMissingToken = New(KindAuthentication, "MISSING_TOKEN", "authentication is required")
	// ErrInvalidToken is returned for malformed tokens or bad signatures.
	ErrInvalidToken = New(KindAuthentication, "INVALID_TOKEN", "invalid token")
	// ErrTokenExpired is returned once a token's expiry has elapsed.
	ErrTokenExpired = New(KindAuthentication, "TOKEN_EXPIRED", "token expired")
	// ErrSessionRevoked is returned for a well-formed token that is no longer in its owner's sessions.
	ErrSessionRevoked = New(KindAuthentication, "SESSION_REVOKED", "session is no longer active")

	// ErrForbidden is returned when an authenticated user lacks the admin role.
	ErrForbidden = New(KindAuthorization, "FORBIDDEN", "admin role is required")

	// ErrUserNotFound is returned when a user id or name does not resolve.
	ErrUserNotFound = NotFound("USER_NOT_FOUND", "user not found")
	// ErrRoleNotFound is returned when a role id or name does not resolve.
	ErrRoleNotFound = NotFound("ROLE_NOT_FOUND", "role not found")
)

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if !errors.As(err, &e) {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}

	switch e.Kind {
	case KindValidation:
		if e.Code == CodeMissingParameters {
			return NewHTTPError(http.StatusUnauthorized, e.Message, e.Code)
		}
		return NewHTTPError(http.StatusUnprocessableEntity, e.Message, e.Code)
	case KindAuthentication:
		return NewHTTPError(http.StatusUnauthorized, e.Message, e.Code)
	case KindAuthorization:
		return NewHTTPError(http.StatusForbidden, e.Message, e.Code)
	case KindNotFound:
		return NewHTTPError(http.StatusNotFound, e.Message, e.Code)
	case KindPersistence:
		return NewHTTPError(http.StatusServiceUnavailable, "storage unavailable, retry later", e.Code)
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
