package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable numeric identifier a client sees for a failure.
type Code int

const (
	CodeInvalidInput     Code = 1001
	CodeUnauthorized     Code = 1002
	CodeForbidden        Code = 1003
	CodeBadCredentials   Code = 1004
	CodeAccountLocked    Code = 1005
	CodeAccountDisabled  Code = 1006
	CodeTokenInvalid     Code = 1007
	CodeTokenExpired     Code = 1008
	CodeAccountDeleted   Code = 1009
	CodeTokenRevoked     Code = 1010
	CodeAccountNotFound  Code = 1011
	CodeStoreUnavailable Code = 9001
	CodeUncategorized    Code = 9999
)

type meta struct {
	name   string
	key    string
	status int
}

var codes = map[Code]meta{
	CodeInvalidInput:     {"INVALID_INPUT", "error.validation", http.StatusBadRequest},
	CodeUnauthorized:     {"UNAUTHORIZED", "error.unauthorized", http.StatusUnauthorized},
	CodeForbidden:        {"FORBIDDEN", "error.forbidden", http.StatusForbidden},
	CodeBadCredentials:   {"BAD_CREDENTIALS", "error.login.bad_credentials", http.StatusUnauthorized},
	CodeAccountLocked:    {"ACCOUNT_LOCKED", "error.account.locked", http.StatusForbidden},
	CodeAccountDisabled:  {"ACCOUNT_DISABLED", "error.account.disabled", http.StatusForbidden},
	CodeTokenInvalid:     {"TOKEN_INVALID", "error.token.invalid", http.StatusUnauthorized},
	CodeTokenExpired:     {"TOKEN_EXPIRED", "error.token.expired", http.StatusUnauthorized},
	CodeAccountDeleted:   {"ACCOUNT_DELETED", "error.account.deleted", http.StatusForbidden},
	CodeTokenRevoked:     {"TOKEN_REVOKED", "error.token.revoked", http.StatusUnauthorized},
	CodeAccountNotFound:  {"ACCOUNT_NOT_FOUND", "error.account.not_found", http.StatusNotFound},
	CodeStoreUnavailable: {"STORE_UNAVAILABLE", "error.store.unavailable", http.StatusServiceUnavailable},
	CodeUncategorized:    {"UNCATEGORIZED", "error.internal", http.StatusInternalServerError},
}

func (c Code) lookup() meta {
	if m, ok := codes[c]; ok {
		return m
	}
	return codes[CodeUncategorized]
}

// MessageKey is the key used to look up localized text.
func (c Code) MessageKey() string { return c.lookup().key }

func (c Code) HTTPStatus() int { return c.lookup().status }

// Retriable is true only for transient store failures.
func (c Code) Retriable() bool {
	return c == CodeStoreUnavailable
}

func (c Code) String() string { return c.lookup().name }

// Error is a classified failure. Two Errors match under errors.Is when their
// codes are equal, so sentinels can be compared against wrapped instances.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidInput     = &Error{Code: CodeInvalidInput}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized}
	ErrForbidden        = &Error{Code: CodeForbidden}
	ErrBadCredentials   = &Error{Code: CodeBadCredentials}
	ErrAccountLocked    = &Error{Code: CodeAccountLocked}
	ErrAccountDisabled  = &Error{Code: CodeAccountDisabled}
	ErrTokenInvalid     = &Error{Code: CodeTokenInvalid}
	ErrTokenExpired     = &Error{Code: CodeTokenExpired}
	ErrAccountDeleted   = &Error{Code: CodeAccountDeleted}
	ErrTokenRevoked     = &Error{Code: CodeTokenRevoked}
	ErrAccountNotFound  = &Error{Code: CodeAccountNotFound}
	ErrStoreUnavailable = &Error{Code: CodeStoreUnavailable}
	ErrUncategorized    = &Error{Code: CodeUncategorized}
)

// Wrap classifies err under code, keeping it as the cause for logs.
func Wrap(code Code, err error) error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the code of the first classified error in the chain.
// Deadline and cancellation errors count as store failures, anything else
// unclassified is uncategorized.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeStoreUnavailable
	}
	return CodeUncategorized
}

func Retriable(err error) bool {
	return err != nil && CodeOf(err).Retriable()
}
