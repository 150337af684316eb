// Package services holds the errors shared by the workflow services.
package services

import "errors"

var (
	ErrDuplicateIdentity     = errors.New("email or username already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrIncorrectPassword     = errors.New("incorrect password")
	ErrInvalidOrExpiredToken = errors.New("verification token is invalid or expired")
	ErrUserMismatch          = errors.New("token does not belong to the user")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrEmailDeliveryFailed   = errors.New("email delivery failed")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
)

// PasswordResetMessage is returned for every accepted reset request,
// whether or not the email belongs to an account.
const PasswordResetMessage = "If the email you entered exists, you will be sent an email with a new password."

const (
	VerificationSentMessage = "A verification email has been sent."
	AlreadyVerifiedMessage  = "Your email is already verified."
)
