package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lestrrat-go/jwx/jwk"

	"bookmarker/internal/app/interceptors"
	"bookmarker/internal/config"
)

// KeySet publishes the session verification key, nil when sessions are HMAC signed
type KeySet interface {
	JWKS() (jwk.Set, error)
}

type App struct {
	log        *slog.Logger
	httpServer *http.Server
	handler    http.Handler
	address    string
}

// New creates new HTTP server app
func New(
	env string,
	log *slog.Logger,
	cfg config.HTTPServerConfig,
	graphql http.Handler,
	credentials interceptors.CredentialParser,
	metrics http.Handler,
	keys KeySet,
) (*App, error) {
	const op = "httpapp.New"

	trusted, err := interceptors.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	router := chi.NewRouter()

	router.Use(
		middleware.RequestID,
		interceptors.ProxyInterceptor(trusted),
		middleware.Recoverer,
		middleware.Timeout(cfg.Timeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		interceptors.EnvInterceptor(env),
		interceptors.MetadataInterceptor(log),
	)

	router.With(interceptors.CredentialInterceptor(log, credentials)).Handle("/graphql", graphql)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		router.Handle("/metrics", metrics)
	}
	if keys != nil {
		router.Get("/.well-known/jwks.json", jwksHandler(log, keys))
	}

	return &App{
		log:     log,
		handler: router,
		address: cfg.Address,
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// MustRun runs HTTP server and panic if any occurs
func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

// Run http server
func (a *App) Run() error {
	const op = "httpapp.Run"

	log := a.log.With(slog.String("op", op), slog.String("address", a.address))

	l, err := net.Listen("tcp", a.address)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("starting HTTP server", slog.String("addr", l.Addr().String()))

	if err := a.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stop http server, waiting for in-flight requests until ctx is done
func (a *App) Stop(ctx context.Context) {
	const op = "httpapp.Stop"

	log := a.log.With(slog.String("op", op))
	log.Info("stopping HTTP server")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.Error("failed to stop HTTP server gracefully", slog.String("error", err.Error()))
	}
}

func jwksHandler(log *slog.Logger, keys KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		set, err := keys.JWKS()
		if err != nil {
			log.Error("failed to build key set", slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}
}
