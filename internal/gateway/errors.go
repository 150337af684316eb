package gateway

import (
	"errors"

	"bookmarker/internal/lib/ratelimit"
	"bookmarker/internal/services"
	"bookmarker/internal/storage"
)

const (
	CodeDuplicateIdentity   = "DUPLICATE_IDENTITY"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeIncorrectPassword   = "INCORRECT_PASSWORD"
	CodeInvalidToken        = "INVALID_OR_EXPIRED_TOKEN"
	CodeUserMismatch        = "USER_MISMATCH"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeEmailDeliveryFailed = "EMAIL_DELIVERY_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeBadUserInput        = "BAD_USER_INPUT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_SERVER_ERROR"
)

const internalMessage = "Something went wrong. Please try again later."

// publicError is the only error shape that leaves the gateway.
// It implements graphql-go's ResolverError so the code ends up in extensions.
type publicError struct {
	message    string
	code       string
	retryAfter int
}

func (e *publicError) Error() string {
	return e.message
}

func (e *publicError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.code}
	if e.retryAfter > 0 {
		ext["retryAfter"] = e.retryAfter
	}
	return ext
}

var knownErrors = []struct {
	target  error
	code    string
	message string
}{
	{storage.ErrSubjectExists, CodeDuplicateIdentity, "A subject with that name already exists."},
	{services.ErrDuplicateIdentity, CodeDuplicateIdentity, "An account with that email or username already exists. Please try again."},
	{services.ErrInvalidCredentials, CodeInvalidCredentials, "If the user you entered exists, you entered the wrong username and/or password."},
	{services.ErrIncorrectPassword, CodeIncorrectPassword, "The existing password you entered is incorrect."},
	{services.ErrInvalidOrExpiredToken, CodeInvalidToken, "This token doesn't exist or has expired."},
	{services.ErrUserMismatch, CodeUserMismatch, "There is no user associated with that token."},
	{services.ErrUnauthorized, CodeUnauthenticated, "You must be logged in to perform this action."},
	{services.ErrEmailDeliveryFailed, CodeEmailDeliveryFailed, "Failed to send email. Try again later."},
	{services.ErrNotFound, CodeNotFound, "The requested item could not be found."},
	{services.ErrInvalidInput, CodeBadUserInput, "The input you entered is invalid."},
}

// toPublic maps a service error to its fixed user-facing form.
// The second result is false for errors outside the domain taxonomy.
func toPublic(err error) (*publicError, bool) {
	var limitErr *ratelimit.LimitError
	if errors.As(err, &limitErr) {
		return &publicError{
			message:    "You are doing that too often.",
			code:       CodeRateLimited,
			retryAfter: limitErr.RetryAfterSeconds(),
		}, true
	}

	for _, known := range knownErrors {
		if errors.Is(err, known.target) {
			return &publicError{message: known.message, code: known.code}, true
		}
	}
	return &publicError{message: internalMessage, code: CodeInternal}, false
}
