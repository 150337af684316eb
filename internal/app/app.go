package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookmarker/internal/api/mail"
	"bookmarker/internal/api/uploads"
	httpapp "bookmarker/internal/app/http"
	"bookmarker/internal/config"
	"bookmarker/internal/gateway"
	"bookmarker/internal/lib/jwt"
	"bookmarker/internal/lib/ratelimit"
	"bookmarker/internal/metrics"
	"bookmarker/internal/services/access"
	accessinterfaces "bookmarker/internal/services/access/interfaces"
	"bookmarker/internal/services/auth"
	authinterfaces "bookmarker/internal/services/auth/interfaces"
	"bookmarker/internal/services/feedback"
	feedbackinterfaces "bookmarker/internal/services/feedback/interfaces"
	"bookmarker/internal/services/library"
	libraryinterfaces "bookmarker/internal/services/library/interfaces"
	"bookmarker/internal/services/verification"
	verificationinterfaces "bookmarker/internal/services/verification/interfaces"
	"bookmarker/internal/storage"
	"bookmarker/internal/storage/inmemory"
	"bookmarker/internal/storage/mongo"
	"bookmarker/internal/storage/postgres"
	"bookmarker/internal/storage/protected"
	"bookmarker/internal/storage/redis"
)

// store is what every storage backend provides to the services
type store interface {
	authinterfaces.UserSaver
	authinterfaces.UserProvider
	authinterfaces.CredentialUpdater
	verificationinterfaces.EmailTokenStorage
	libraryinterfaces.LibraryStorage
	libraryinterfaces.SubjectStorage
	accessinterfaces.UserLister
	accessinterfaces.UserRemover
	accessinterfaces.RoleController
	feedbackinterfaces.FeedbackStorage
	storage.ExpiredTokenPurger
}

type App struct {
	HTTPSrv *httpapp.App

	log        *slog.Logger
	stopReaper context.CancelFunc
	closers    []func(ctx context.Context) error
}

// New wires storage, services and the HTTP server from cfg.
// Secrets found in Vault replace the ones in cfg before anything else is built.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	a := &App{log: log}

	if cfg.Vault.Enabled {
		vault, err := protected.NewVaultClient(ctx, log, &cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := vault.Apply(ctx, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	st, err := a.openStorage(ctx, cfg)
	if err != nil {
		return nil, a.fail(ctx, op, err)
	}

	limiter, err := a.openLimiter(ctx, cfg)
	if err != nil {
		return nil, a.fail(ctx, op, err)
	}

	issuer, err := newIssuer(&cfg.Session)
	if err != nil {
		return nil, a.fail(ctx, op, err)
	}

	m := metrics.New()

	mailer, err := mail.NewMailClient(log, &cfg.Mail)
	if err != nil {
		return nil, a.fail(ctx, op, err)
	}
	mailer.WithObserver(m)

	signer, err := uploads.New(ctx, &cfg.S3)
	if err != nil {
		return nil, a.fail(ctx, op, err)
	}

	verificationService := verification.New(log, st, cfg.Verification.TokenTTL)
	authService := auth.New(
		log,
		st,
		st,
		st,
		verificationService,
		limiter,
		mailer,
		issuer,
		auth.Policy{
			VerificationLimit:  ratelimit.Rule{Max: cfg.RateLimit.Verification.Max, Window: cfg.RateLimit.Verification.Window},
			PasswordResetLimit: ratelimit.Rule{Max: cfg.RateLimit.PasswordReset.Max, Window: cfg.RateLimit.PasswordReset.Window},
			VerificationURL:    cfg.Verification.URL,
		},
	)
	libraryService := library.New(log, st, st, st, signer)
	accessService := access.New(log, st, st, st)
	feedbackService := feedback.New(log, st)

	graphql, err := gateway.New(log, authService, libraryService, accessService, feedbackService, m).Handler()
	if err != nil {
		return nil, a.fail(ctx, op, err)
	}

	var keys httpapp.KeySet
	if issuer.Algorithm() == config.AlgRS256 {
		keys = issuer
	}

	a.HTTPSrv, err = httpapp.New(cfg.Env, log, cfg.HTTPServer, graphql, issuer, m.Handler(), keys)
	if err != nil {
		return nil, a.fail(ctx, op, err)
	}

	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config) (store, error) {
	reaperCtx, cancel := context.WithCancel(context.Background())
	a.stopReaper = cancel

	switch cfg.Storage.Backend {
	case config.StorageMongo:
		s, err := mongo.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		if err := s.EnsureIndexes(ctx, cfg.Verification.TokenTTL); err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres:
		s, err := postgres.New(ctx, cfg.Storage.Postgres.ConnString)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error {
			s.Close()
			return nil
		})
		a.startReaper(reaperCtx, cfg.Verification.ReapInterval, s)
		return s, nil
	case config.StorageMemory:
		s := inmemory.New()
		a.startReaper(reaperCtx, cfg.Verification.ReapInterval, s)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// startReaper purges expired tokens for backends without a TTL index
func (a *App) startReaper(ctx context.Context, interval time.Duration, purger storage.ExpiredTokenPurger) {
	if interval <= 0 {
		a.log.Warn("token reaper disabled", slog.Duration("interval", interval))
		return
	}
	go storage.RunReaper(ctx, a.log, interval, purger)
}

func (a *App) openLimiter(ctx context.Context, cfg *config.Config) (authinterfaces.RateLimiter, error) {
	switch cfg.RateLimit.Backend {
	case config.LimiterMemory:
		return ratelimit.NewMemory(), nil
	case config.LimiterRedis:
		cache := redis.NewCache(&cfg.Redis)
		a.closers = append(a.closers, func(context.Context) error { return cache.Close() })
		if err := cache.Ping(ctx); err != nil {
			return nil, err
		}
		return cache, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}

func newIssuer(cfg *config.SessionConfig) (*jwt.Issuer, error) {
	switch cfg.Algorithm {
	case config.AlgHS256:
		if cfg.Secret == "" {
			return nil, errors.New("session secret is empty")
		}
		return jwt.NewHMACIssuer([]byte(cfg.Secret), cfg.TTL), nil
	case config.AlgRS256:
		return jwt.NewRSAIssuerFromFile(cfg.PrivateKeyPath, cfg.KeyID, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown session algorithm %q", cfg.Algorithm)
	}
}

// fail releases whatever was opened before err
func (a *App) fail(ctx context.Context, op string, err error) error {
	a.Stop(ctx)
	return fmt.Errorf("%s: %w", op, err)
}

// Stop halts background work and closes storage connections.
// The HTTP server is stopped separately.
func (a *App) Stop(ctx context.Context) {
	const op = "app.Stop"

	if a.stopReaper != nil {
		a.stopReaper()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Error("failed to close resource", slog.String("op", op), slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
