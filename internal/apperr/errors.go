package apperr

import (
	"errors"
)

// Kind is the stable, caller-visible category of a failure. Its string form
// is the "code" field of the JSON error envelope.
type Kind string

const (
	InvalidCredentials Kind = "invalid_credentials"
	UsernameTaken      Kind = "username_taken"
	InvalidInviteToken Kind = "invalid_invite_token"
	CoupleFull         Kind = "couple_full"
	NotPaired          Kind = "not_paired"
	NoAccess           Kind = "no_access"
	NotFound           Kind = "not_found"
	InvalidFormat      Kind = "invalid_format"
	SessionExpired     Kind = "session_expired"
	SessionInvalid     Kind = "session_invalid"
	Internal           Kind = "internal_error"
)

// Error is a domain failure with a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredentials = &Error{Kind: InvalidCredentials, Message: "invalid username or password"}
	ErrUsernameTaken      = &Error{Kind: UsernameTaken, Message: "username is already taken"}
	ErrInvalidInviteToken = &Error{Kind: InvalidInviteToken, Message: "invalid invite token"}
	ErrCoupleFull         = &Error{Kind: CoupleFull, Message: "couple already has two members"}
	ErrNotPaired          = &Error{Kind: NotPaired, Message: "you are not part of a couple yet"}
	ErrNoAccess           = &Error{Kind: NoAccess, Message: "you do not have access to this resource"}
	ErrNotFound           = &Error{Kind: NotFound, Message: "resource not found"}
	ErrInvalidFormat      = &Error{Kind: InvalidFormat, Message: "invalid format"}
	ErrSessionExpired     = &Error{Kind: SessionExpired, Message: "session expired"}
	ErrSessionInvalid     = &Error{Kind: SessionInvalid, Message: "invalid session"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, Internal for
// any other non-nil error, and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
