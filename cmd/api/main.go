package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tenauth.org/internal/httpapi"
	"tenauth.org/internal/identity"
	"tenauth.org/internal/obs"
	"tenauth.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

type config struct {
	addr               string
	env                string
	dsn                string
	tokenSecret        string
	tokenTTL           time.Duration
	rateLimitPerSecond int
	rateLimitBurst     int
	bootstrapLogin     string
	bootstrapPassword  string
}

func loadConfig() config {
	cfg := config{
		addr:               envOr("TENAUTH_ADDR", ":8080"),
		env:                envOr("TENAUTH_ENV", "production"),
		dsn:                os.Getenv("TENAUTH_PG_DSN"),
		tokenSecret:        os.Getenv("TENAUTH_AUTH_SECRET"),
		tokenTTL:           15 * time.Minute,
		rateLimitPerSecond: envIntOr("TENAUTH_RATE_LIMIT_PER_SECOND", 50),
		rateLimitBurst:     envIntOr("TENAUTH_RATE_LIMIT_BURST", 100),
		bootstrapLogin:     os.Getenv("TENAUTH_BOOTSTRAP_LOGIN"),
		bootstrapPassword:  os.Getenv("TENAUTH_BOOTSTRAP_PASSWORD"),
	}
	if raw := os.Getenv("TENAUTH_TOKEN_TTL"); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil && ttl > 0 {
			cfg.tokenTTL = ttl
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	cfg := loadConfig()
	log := obs.InitLogger(cfg.env)
	defer func() { _ = log.Sync() }()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.tokenSecret == "" {
		log.Fatal("TENAUTH_AUTH_SECRET is required")
	}

	var (
		store   identity.Store
		acl     identity.ACLStore
		ready   httpapi.ReadyProbe
		pgClose func() error
	)
	if cfg.dsn != "" {
		pgStore, err := pg.Open(cfg.dsn)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		store = pgStore
		acl = pg.NewACL(pgStore.DB())
		ready = httpapi.ReadyProbe{DB: pgStore.DB()}
		pgClose = pgStore.Close
		log.Info("using postgres store")
	} else {
		store = identity.NewMemoryStore()
		acl = identity.NewMemoryACL()
		log.Warn("no TENAUTH_PG_DSN set, using in-memory store")
	}

	ctx := context.Background()
	if err := identity.EnsureAdminRole(ctx, store); err != nil {
		log.Fatal("ensure admin role", zap.Error(err))
	}
	if cfg.bootstrapLogin != "" && cfg.bootstrapPassword != "" {
		if _, err := identity.BootstrapAdmin(ctx, store, acl, cfg.bootstrapLogin, cfg.bootstrapPassword); err != nil {
			log.Fatal("bootstrap admin", zap.Error(err))
		}
		log.Info("bootstrap admin ensured", zap.String("login", cfg.bootstrapLogin))
	}

	validate := identity.NewValidator()
	authz := identity.NewAuthorizer(store.Roles(), acl)
	users := identity.NewUserService(store, acl, authz, validate)
	companies := identity.NewCompanyService(store, acl, validate)
	tokens, err := identity.NewTokenIssuer(cfg.tokenSecret, "tenauth", identity.WithTokenTTL(cfg.tokenTTL))
	if err != nil {
		log.Fatal("token issuer", zap.Error(err))
	}

	api := httpapi.New(httpapi.Config{
		Users:              users,
		Companies:          companies,
		Tokens:             tokens,
		Ready:              ready,
		Version:            version,
		RateLimitPerSecond: cfg.rateLimitPerSecond,
		RateLimitBurst:     cfg.rateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting tenauth-api", zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if pgClose != nil {
		_ = pgClose()
	}
	log.Info("stopped")
}
