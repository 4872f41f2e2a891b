package upstream

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure
type Kind int

const (
	KindGeneric Kind = iota
	KindAuth
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	}
	return "generic"
}

// Sentinels matched by errors.Is against *Error
var (
	ErrUnauthorized = errors.New("upstream: authentication failed")
	ErrRateLimited  = errors.New("upstream: rate limit exceeded")
)

// Error is returned for every failed supplier call
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("upstream %s error (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("upstream %s error (%d)", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("upstream %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("upstream %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Kind sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindAuth
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

func errorForStatus(status int, message string) *Error {
	kind := KindGeneric
	switch status {
	case 401:
		kind = KindAuth
	case 429:
		kind = KindRateLimited
	}
	return &Error{Kind: kind, StatusCode: status, Message: message}
}
