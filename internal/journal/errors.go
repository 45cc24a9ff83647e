package journal

import (
	"errors"
	"net/http"
)

// Code classifies journal errors.
type Code string

const (
	CodeValidation     Code = "VALIDATION"
	CodeDuplicate      Code = "DUPLICATE"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInactiveWindow Code = "INACTIVE_WINDOW"
	CodeCapacity       Code = "CAPACITY"
	CodePermission     Code = "PERMISSION"
	CodeStore          Code = "STORE"
)

// HTTPStatus maps a code to the status a handler should answer with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeDuplicate, CodeInactiveWindow:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCapacity, CodePermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a journal error. Message is safe to show to users; Cause is for logs.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code. A target carrying a message must match it as well, so
// errors.Is(err, ErrTableFull) is specific while errors.Is(err, &Error{Code: CodeCapacity})
// matches any capacity error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of err, or CodeStore for errors from outside the package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStore
}

var (
	ErrEmptyResponse    = NewError(CodeValidation, "Response cannot be empty")
	ErrResponseTooLong  = NewError(CodeValidation, "Response must be 500 characters or less")
	ErrInvalidName      = NewError(CodeValidation, "Display name must be between 1 and 50 characters")
	ErrInvalidTableName = NewError(CodeValidation, "Table name must be between 3 and 50 characters")
	ErrInvalidTime      = NewError(CodeValidation, "Invalid time format. Use HH:MM")

	ErrAlreadyResponded = NewError(CodeDuplicate, "You have already responded to this prompt")
	ErrAlreadyMember    = NewError(CodeDuplicate, "You are already a member of this table")

	ErrTableNotFound    = NewError(CodeNotFound, "Table not found")
	ErrInvalidInvite    = NewError(CodeNotFound, "Invalid invite code")
	ErrUserNotFound     = NewError(CodeNotFound, "User not found")
	ErrPromptNotFound   = NewError(CodeNotFound, "Prompt not found")
	ErrResponseNotFound = NewError(CodeNotFound, "Response not found")
	ErrNotMember        = NewError(CodeNotFound, "You are not a member of this table")
	ErrNoTable          = NewError(CodeNotFound, "You are not at a table yet")
	ErrNoPreviousPrompt = NewError(CodeNotFound, "No prompt for the previous day")

	ErrInactiveWindow = NewError(CodeInactiveWindow, "This prompt is no longer active")

	ErrTableFull = NewError(CodeCapacity, "This table is full")

	ErrOwnerCannotLeave = NewError(CodePermission, "Owner cannot leave while other members remain")
	ErrNotOwner         = NewError(CodePermission, "Only the table owner can change settings")
	ErrNotTableMember   = NewError(CodePermission, "You must be a member of this table")
)

const storeMessage = "Something went wrong, please try again"
