package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	adapthttp "bookstore/internal/adapter/http"
	"bookstore/internal/adapter/memory"
	"bookstore/internal/adapter/postgres"
	"bookstore/internal/app"
	"bookstore/internal/config"
	"bookstore/internal/domain"
	"bookstore/internal/logging"
	"bookstore/internal/metrics"
)

const purgeInterval = time.Hour

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		// The logger is not configured yet.
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString("logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		catalog   domain.CatalogRepository
		customers domain.CustomerRepository
		sessions  domain.RefreshSessionRepository
	)
	switch cfg.Storage {
	case config.StorageMemory:
		db := memory.New()
		memory.Seed(db)
		catalog, customers, sessions = db, db, db.NewSessionRepo()
		logger.Info("using in-memory storage with seed catalog")
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		catalog, customers, sessions = db, db, postgres.NewRefreshSessionRepo(db)
	}

	tokens := app.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	catalogSvc := app.NewCatalogService(catalog)
	authSvc := app.NewAuthService(customers, sessions, tokens)
	profileSvc := app.NewProfileService(customers)

	m := metrics.New()
	srv := adapthttp.New(catalogSvc, authSvc, profileSvc, logger, cfg.WebDir).
		WithMetrics(m).
		WithCORS(cfg.CORSOrigins).
		WithLoginRate(cfg.LoginRatePerSec, 5)
	if cfg.ForwardAuth {
		srv.WithForwardAuth()
	}

	if cfg.OIDC.Enabled() {
		oc, err := oidcConfig(ctx, cfg.OIDC)
		if err != nil {
			return err
		}
		srv.WithOIDC(oc)
		logger.Info("sso enabled", zap.String("issuer", cfg.OIDC.Issuer))
	}

	go purgeSessions(ctx, authSvc, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func oidcConfig(ctx context.Context, c config.OIDC) (adapthttp.OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, c.Issuer)
	if err != nil {
		return adapthttp.OIDCConfig{}, err
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Verifier: provider.Verifier(&oidc.Config{ClientID: c.ClientID}),
		OAuth2Config: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func purgeSessions(ctx context.Context, auth *app.AuthService, logger *zap.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := auth.PurgeExpired(ctx); err != nil {
				logger.Warn("purge expired sessions", zap.Error(err))
			}
		}
	}
}
