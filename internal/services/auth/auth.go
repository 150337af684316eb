package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	netmail "net/mail"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/lib/ratelimit"
	"bookmarker/internal/lib/utilities"
	"bookmarker/internal/services"
	"bookmarker/internal/services/auth/interfaces"
	"bookmarker/internal/storage"
)

const (
	OpRequestVerification = "addEmailVerificationToken"
	OpForgotPassword      = "forgotPassword"

	tempPasswordLength = 10
	defaultPicCount    = 5
	defaultPicPath     = "/assets/images/default-profile-pics/default-profile-pic-%d.jpg"
)

// Policy holds the tunables of the workflow
type Policy struct {
	VerificationLimit  ratelimit.Rule
	PasswordResetLimit ratelimit.Rule
	// VerificationURL is the client page that receives token and email as query parameters
	VerificationURL string
}

// Session is a signed credential together with the user it was issued for
type Session struct {
	Token string
	User  *models.User
}

type Auth struct {
	log           *slog.Logger
	usrSaver      interfaces.UserSaver
	usrProvider   interfaces.UserProvider
	credentials   interfaces.CredentialUpdater
	emailVerifier interfaces.EmailVerifier
	limiter       interfaces.RateLimiter
	mailer        interfaces.Mailer
	tokenIssuer   interfaces.TokenIssuer
	policy        Policy
}

// New returns a new instance of the Auth service
func New(
	log *slog.Logger,
	userSaver interfaces.UserSaver,
	userProvider interfaces.UserProvider,
	credentials interfaces.CredentialUpdater,
	emailVerifier interfaces.EmailVerifier,
	limiter interfaces.RateLimiter,
	mailer interfaces.Mailer,
	tokenIssuer interfaces.TokenIssuer,
	policy Policy,
) *Auth {
	if policy.VerificationLimit.Operation == "" {
		policy.VerificationLimit.Operation = OpRequestVerification
	}
	if policy.PasswordResetLimit.Operation == "" {
		policy.PasswordResetLimit.Operation = OpForgotPassword
	}

	return &Auth{
		log:           log,
		usrSaver:      userSaver,
		usrProvider:   userProvider,
		credentials:   credentials,
		emailVerifier: emailVerifier,
		limiter:       limiter,
		mailer:        mailer,
		tokenIssuer:   tokenIssuer,
		policy:        policy,
	}
}

// Signup registers a new user and signs a session credential for it
//
// If the email or username is taken, returns services.ErrDuplicateIdentity and creates nothing.
func (a *Auth) Signup(ctx context.Context, username string, email string, password string) (*Session, error) {
	const op = "auth.Signup"
	log := a.log.With(slog.String("op", op))

	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || password == "" || !validEmail(email) {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}

	_, err := a.usrProvider.UserByEmailOrUsername(ctx, email, username)
	if err == nil {
		log.Info("email or username already registered")
		return nil, fmt.Errorf("%s: %w", op, services.ErrDuplicateIdentity)
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to get user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password's hash", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrSaver.SaveUser(ctx, &models.User{
		Username:   username,
		Email:      email,
		PassHash:   passHash,
		ProfilePic: defaultProfilePic(),
		Roles:      []models.Role{{Role: models.RoleUser, AssociatedIDs: []string{}}},
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Info("lost registration race")
			return nil, fmt.Errorf("%s: %w", op, services.ErrDuplicateIdentity)
		}
		log.Error("failed to save user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("successfully registered user", slog.String("user_id", user.ID))
	return a.session(op, user)
}

// Login checks if user with given credentials exists in system
//
// Unknown email and wrong password both return services.ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, email string, password string) (*Session, error) {
	const op = "auth.Login"
	log := a.log.With(slog.String("op", op), slog.String("env", utilities.EnvFromContext(ctx)))

	user, err := a.usrProvider.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidCredentials)
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", slog.String("user_id", user.ID))
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidCredentials)
	}

	log.Info("user logged in successfully", slog.String("user_id", user.ID))
	return a.session(op, user)
}

// ForgotPassword replaces the password of the account with a generated one and mails it
//
// Returns the same message whether or not the email belongs to an account.
// When the mail cannot be sent the new password stays in place.
func (a *Auth) ForgotPassword(ctx context.Context, caller models.Caller, email string) (string, error) {
	const op = "auth.ForgotPassword"
	log := a.log.With(slog.String("op", op))

	if err := a.limiter.Allow(ctx, a.policy.PasswordResetLimit, caller.Key()); err != nil {
		log.Info("password reset rate limited", slog.String("caller", caller.Key()))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	email = normalizeEmail(email)
	if _, err := a.usrProvider.UserByEmail(ctx, email); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("password reset for unknown email")
			return services.PasswordResetMessage, nil
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	password, err := utilities.RandomString(tempPasswordLength)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.credentials.SetPasswordByEmail(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user removed during password reset")
			return services.PasswordResetMessage, nil
		}
		log.Error("failed to update password", slog.String("error", err.Error()))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := a.mailer.SendPasswordResetMail(ctx, user.Email, user.Username, password); err != nil {
		log.Error("failed to send password reset mail", slog.String("user_id", user.ID), slog.String("error", err.Error()))
		return "", fmt.Errorf("%s: %w: %w", op, services.ErrEmailDeliveryFailed, err)
	}

	log.Info("password reset mail sent", slog.String("user_id", user.ID))
	return services.PasswordResetMessage, nil
}

// UpdatePassword changes the password of the caller's own account after checking the old one
func (a *Auth) UpdatePassword(
	ctx context.Context,
	caller models.Caller,
	email string,
	oldPassword string,
	newPassword string,
) (*models.User, error) {
	const op = "auth.UpdatePassword"
	log := a.log.With(slog.String("op", op))

	if !caller.Authenticated() {
		log.Info("anonymous caller")
		return nil, fmt.Errorf("%s: %w", op, services.ErrUnauthorized)
	}
	if newPassword == "" {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}

	user, err := a.usrProvider.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrNotFound)
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !caller.Owns(user.ID) {
		log.Warn("caller tried to change another user's password", slog.String("caller_id", caller.UserID))
		return nil, fmt.Errorf("%s: %w", op, services.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(oldPassword)); err != nil {
		log.Info("existing password incorrect", slog.String("user_id", user.ID))
		return nil, fmt.Errorf("%s: %w", op, services.ErrIncorrectPassword)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := a.credentials.SetPassword(ctx, user.ID, passHash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrNotFound)
		}
		log.Error("failed to update password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password updated", slog.String("user_id", user.ID))
	user.PassHash = passHash
	return user, nil
}

// RequestVerification issues a verification token and mails the link to the user's stored email
//
// Verified users get a success message without a new mail.
// When the mail cannot be sent the token stays persisted.
func (a *Auth) RequestVerification(ctx context.Context, caller models.Caller, userID string) (string, error) {
	const op = "auth.RequestVerification"
	log := a.log.With(slog.String("op", op), slog.String("user_id", userID))

	if !caller.Owns(userID) {
		log.Info("caller does not own the account")
		return "", fmt.Errorf("%s: %w", op, services.ErrUnauthorized)
	}

	if err := a.limiter.Allow(ctx, a.policy.VerificationLimit, caller.Key()); err != nil {
		log.Info("verification request rate limited")
		return "", fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", fmt.Errorf("%s: %w", op, services.ErrNotFound)
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if user.IsVerified {
		log.Info("user already verified")
		return services.AlreadyVerifiedMessage, nil
	}

	token, err := a.emailVerifier.Issue(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	link, err := a.verificationLink(token.Token, user.Email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := a.mailer.SendVerificationMail(ctx, user.Email, user.Username, link); err != nil {
		log.Error("failed to send verification mail", slog.String("error", err.Error()))
		return "", fmt.Errorf("%s: %w: %w", op, services.ErrEmailDeliveryFailed, err)
	}

	log.Info("verification mail sent")
	return services.VerificationSentMessage, nil
}

// VerifyEmail marks the token's user verified when the email matches
//
// Verifying an already verified user succeeds without changes.
func (a *Auth) VerifyEmail(ctx context.Context, email string, token string) (*models.User, error) {
	const op = "auth.VerifyEmail"
	log := a.log.With(slog.String("op", op))

	userID, err := a.emailVerifier.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) || errors.Is(err, storage.ErrTokenExpired) {
			log.Info("token rejected", slog.String("reason", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidOrExpiredToken)
		}
		log.Error("failed to validate token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("token owner no longer exists", slog.String("user_id", userID))
			return nil, fmt.Errorf("%s: %w", op, services.ErrUserMismatch)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !strings.EqualFold(user.Email, normalizeEmail(email)) {
		log.Info("token does not match email", slog.String("user_id", userID))
		return nil, fmt.Errorf("%s: %w", op, services.ErrUserMismatch)
	}
	if user.IsVerified {
		log.Info("user already verified", slog.String("user_id", userID))
		return user, nil
	}

	user, err = a.credentials.SetVerified(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrUserMismatch)
		}
		log.Error("failed to mark user verified", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.String("user_id", userID))
	return user, nil
}

func (a *Auth) session(op string, user *models.User) (*Session, error) {
	token, err := a.tokenIssuer.NewSessionToken(user)
	if err != nil {
		a.log.Error("failed to sign session credential", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Session{Token: token, User: user}, nil
}

func (a *Auth) verificationLink(token string, email string) (string, error) {
	u, err := url.Parse(a.policy.VerificationURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func defaultProfilePic() string {
	return fmt.Sprintf(defaultPicPath, rand.IntN(defaultPicCount)+1)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}
