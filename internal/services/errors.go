package services

import "errors"

// Error kinds. Every error a service returns on purpose wraps exactly one of
// these; anything else is an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Error is a classified error whose message is safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrInvalidID = newError(ErrValidation, "Invalid id")

	ErrCommentEmpty = newError(ErrValidation, "Comment must contain text or image")
	ErrReplyEmpty   = newError(ErrValidation, "Reply must contain text or image")
	ErrPostEmpty    = newError(ErrValidation, "Post must contain text or image")
	ErrSelfFollow   = newError(ErrValidation, "You cannot follow yourself")

	ErrUserNotFound          = newError(ErrNotFound, "User not found")
	ErrPostNotFound          = newError(ErrNotFound, "Post not found")
	ErrCommentNotFound       = newError(ErrNotFound, "Comment not found")
	ErrParentNotFound        = newError(ErrNotFound, "Parent comment not found")
	ErrUserOrPostNotFound    = newError(ErrNotFound, "User or post not found")
	ErrUserOrCommentNotFound = newError(ErrNotFound, "User or comment not found")
	ErrNotificationNotFound  = newError(ErrNotFound, "Notification not found")

	ErrNotCommentOwner = newError(ErrForbidden, "You can only delete your own comments")
	ErrNotPostOwner    = newError(ErrForbidden, "You can only delete your own posts")
)

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsForbidden checks if an error is an ownership violation
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsConflict checks if an error is a conflict/already exists error
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
