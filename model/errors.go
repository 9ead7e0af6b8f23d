package model

import (
	"errors"
	"fmt"
)

// Error kinds the engine distinguishes. Handlers map these to HTTP codes;
// background tasks only ever log them.
type ErrKind int

const (
	KindValidation ErrKind = iota + 1
	KindNotFound
	KindRateLimited
	KindPrecondition
	KindExternal
)

type AppError struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewValidation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func NewRateLimited(msg string) *AppError {
	return &AppError{Kind: KindRateLimited, Message: msg}
}

// NewPrecondition reports a violated state-machine guard. The message
// names the failed precondition so callers can act on it.
func NewPrecondition(msg string) *AppError {
	return &AppError{Kind: KindPrecondition, Message: msg}
}

func NewExternal(msg string, err error) *AppError {
	return &AppError{Kind: KindExternal, Message: msg, Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Kind == kind
}
