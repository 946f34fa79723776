package logical

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies an authentication failure. Callers dispatch on the
// kind rather than matching error strings.
type FailureKind string

const (
	// InvalidCredentials is user-correctable and safe to show. It never
	// carries the secret.
	InvalidCredentials FailureKind = "invalid_credentials"

	// RealmUnreachable means the selected federated realm no longer
	// resolves. Transient or a configuration problem; retryable.
	RealmUnreachable FailureKind = "realm_unreachable"

	// BackendUnavailable means the identity backend could not be reached
	// or timed out. Retryable with backoff owned by the caller.
	BackendUnavailable FailureKind = "backend_unavailable"

	// NoScopableProject means no project accepted the scoping exchange.
	// Terminal for the attempt; needs administrative action.
	NoScopableProject FailureKind = "no_scopable_project"

	// MisconfiguredDomain means neither the request nor the configuration
	// supplied an identity domain. An operator problem, not a user one.
	MisconfiguredDomain FailureKind = "misconfigured_domain"
)

// AuthFailure is a structured authentication error. It carries a kind from
// the taxonomy above and a human-safe detail message. The password from the
// originating request is never retained.
type AuthFailure struct {
	Kind   FailureKind
	Detail string
	Err    error
}

// Error implements the error interface.
func (f *AuthFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Detail, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Unwrap returns the underlying error.
func (f *AuthFailure) Unwrap() error {
	return f.Err
}

// Retryable reports whether the caller may retry the attempt as-is.
func (f *AuthFailure) Retryable() bool {
	return f.Kind == RealmUnreachable || f.Kind == BackendUnavailable
}

// Code returns the HTTP status code for the failure kind.
func (f *AuthFailure) Code() int {
	switch f.Kind {
	case InvalidCredentials:
		return http.StatusUnauthorized
	case RealmUnreachable:
		return http.StatusBadGateway
	case BackendUnavailable:
		return http.StatusServiceUnavailable
	case NoScopableProject:
		return http.StatusForbidden
	case MisconfiguredDomain:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrInvalidCredentials creates an InvalidCredentials failure.
func ErrInvalidCredentials(detail string) *AuthFailure {
	return &AuthFailure{Kind: InvalidCredentials, Detail: detail}
}

// ErrRealmUnreachable creates a RealmUnreachable failure.
func ErrRealmUnreachable(detail string) *AuthFailure {
	return &AuthFailure{Kind: RealmUnreachable, Detail: detail}
}

// ErrBackendUnavailable creates a BackendUnavailable failure wrapping the
// transport error.
func ErrBackendUnavailable(detail string, err error) *AuthFailure {
	return &AuthFailure{Kind: BackendUnavailable, Detail: detail, Err: err}
}

// ErrNoScopableProject creates a NoScopableProject failure wrapping the
// aggregated per-candidate errors.
func ErrNoScopableProject(detail string, err error) *AuthFailure {
	return &AuthFailure{Kind: NoScopableProject, Detail: detail, Err: err}
}

// ErrMisconfiguredDomain creates a MisconfiguredDomain failure.
func ErrMisconfiguredDomain(detail string) *AuthFailure {
	return &AuthFailure{Kind: MisconfiguredDomain, Detail: detail}
}

// AsFailure extracts an AuthFailure from err, if there is one.
func AsFailure(err error) (*AuthFailure, bool) {
	var f *AuthFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the failure kind of err. Errors that are not AuthFailures
// are treated as BackendUnavailable, the conservative retryable default.
func KindOf(err error) FailureKind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	return BackendUnavailable
}
