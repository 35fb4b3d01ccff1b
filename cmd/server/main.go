// Command sportify runs the sports-trial management API.
//
// Usage:
//
//	sportify            # same as "sportify serve"
//	sportify serve
//	sportify migrate
//	sportify seed-admin --email admin@example.com --password '...'
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"sportify/internal/adapters/email"
	web "sportify/internal/adapters/http"
	"sportify/internal/adapters/identity"
	"sportify/internal/adapters/metrics"
	"sportify/internal/adapters/storage"
	accountStore "sportify/internal/adapters/storage/account"
	"sportify/internal/adapters/storage/docstore"
	outboxStore "sportify/internal/adapters/storage/outbox"
	"sportify/internal/application/orchestrators"
	"sportify/internal/application/projections"
	"sportify/internal/application/session"
	"sportify/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// sweepInterval is how often idle clients and revoked tokens are purged.
const sweepInterval = 5 * time.Minute

func main() {
	root := &cobra.Command{
		Use:           "sportify",
		Short:         "Sports trial management API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := serveCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, migrateCmd(), seedAdminCmd())

	if err := root.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

// openDB opens and migrates the database.
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			v, err := storage.SchemaVersion(db)
			if err != nil {
				return err
			}
			slog.Info("storage_event", "event", "migrated", "db_path", cfg.DBPath, "schema", v)
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var emailAddr, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first admin account when none exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if emailAddr == "" {
				emailAddr = cfg.AdminEmail
			}
			if password == "" {
				password = cfg.AdminPassword
			}
			if emailAddr == "" || password == "" {
				return errors.New("seed-admin needs --email and --password (or SPORTIFY_ADMIN_EMAIL / SPORTIFY_ADMIN_PASSWORD)")
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			a, err := newApp(cfg, db, nil, nil)
			if err != nil {
				return err
			}
			seeded, err := orchestrators.ExecuteSeedAdmin(cmd.Context(), orchestrators.SeedAdminDeps{
				Deps:     a.deps,
				Identity: a.identity,
				Accounts: a.accounts,
			}, emailAddr, password)
			if err != nil {
				return err
			}
			if !seeded {
				slog.Info("auth_event", "event", "admin_seed_skipped", "reason", "accounts exist")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "Admin email (default SPORTIFY_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (default SPORTIFY_ADMIN_PASSWORD)")
	return cmd
}

// app is the wired application core shared by the commands.
type app struct {
	deps     orchestrators.Deps
	identity *identity.Service
	accounts accountStore.Store
	repairs  outboxStore.Store
}

// newApp wires stores, identity and workflows over db. m and feed may be nil.
func newApp(cfg *config.Config, db *sql.DB, m *metrics.Metrics, feed docstore.Feed) (*app, error) {
	secret, err := cfg.TokenSecret()
	if err != nil {
		return nil, err
	}
	timed := storage.NewTimedDB(db, m, 0)
	accounts := accountStore.NewSQLiteStore(timed)
	ids, err := identity.New(accounts, identity.Options{
		Secret:   secret,
		Issuer:   cfg.JWTIssuer,
		TokenTTL: cfg.TokenTTL,
	})
	if err != nil {
		return nil, err
	}
	return &app{
		identity: ids,
		accounts: accounts,
		repairs:  outboxStore.NewSQLiteStore(timed),
		deps: orchestrators.Deps{
			Store:   docstore.NewSQLiteStore(timed, docstore.Options{Feed: feed, Observer: m}),
			Paths:   docstore.Paths{AppID: cfg.AppID},
			Mailer:  newMailer(cfg),
			From:    cfg.EmailFrom,
			Metrics: m,
		},
	}, nil
}

// newMailer returns the Resend sender when a key is configured. Without one
// notifications are only stored.
func newMailer(cfg *config.Config) email.Sender {
	if cfg.ResendKey != "" {
		slog.Info("email_event", "event", "sender_configured", "provider", "resend")
		return email.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
	}
	if cfg.IsProduction() {
		slog.Warn("email_event", "event", "delivery_disabled", "reason", "SPORTIFY_RESEND_KEY is not set")
	}
	return nil
}

// originHosts turns front-end origins into the host list CSRF trusts.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Changes fan out through Redis when configured so every instance's
	// live feeds refresh.
	var feed docstore.Feed
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		rf := docstore.NewRedisFeed(rdb, cfg.RedisChannel)
		go func() {
			if err := rf.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("feed_event", "event", "redis_relay_stopped", "error", err)
			}
		}()
		feed = rf
	}

	m := metrics.New()
	a, err := newApp(cfg, db, m, feed)
	if err != nil {
		return err
	}
	store := a.deps.Store
	if cfg.AdminEmail != "" {
		if _, err := orchestrators.ExecuteSeedAdmin(ctx, orchestrators.SeedAdminDeps{Deps: a.deps, Identity: a.identity, Accounts: a.accounts}, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	registry := session.NewRegistry(a.identity, projections.Profiles{Store: store, Paths: a.deps.Paths}, session.RegistryOptions{
		ToastDuration: cfg.ToastDuration(),
	})
	defer registry.Close()

	repairs := orchestrators.NewRepairProcessor(a.repairs, orchestrators.DefaultRepairExecutors(store, a.deps.Mailer), orchestrators.RepairOptions{Metrics: m})
	go repairs.Run(ctx, cfg.RepairInterval)
	go sweep(ctx, registry, a.identity)

	csrfKey, err := cfg.CSRFAuthKey()
	if err != nil {
		return err
	}
	handler := web.NewMux(web.Options{
		Workflows:      a.deps,
		Identity:       a.identity,
		Clients:        registry,
		Feeds:          projections.NewCatalog(store, a.deps.Paths),
		Repairs:        repairs,
		Metrics:        m,
		Health:         db.PingContext,
		CSRFKey:        csrfKey,
		SecureCookies:  cfg.IsProduction(),
		CORSOrigins:    cfg.Origins(),
		TrustedOrigins: originHosts(cfg.Origins()),
		RateLimit:      cfg.RateLimit,
		SlowRequest:    cfg.SlowRequest(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	schema, _ := storage.SchemaVersion(db)
	slog.Info("server_event", "event", "started", "version", version, "addr", cfg.Addr, "env", cfg.Env, "app_id", cfg.AppID, "schema", schema, "redis", cfg.RedisAddr != "")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweep periodically drops idle clients and expired token revocations.
func sweep(ctx context.Context, registry *session.Registry, ids *identity.Service) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped := registry.Sweep()
			purged, err := ids.PurgeRevoked(ctx)
			if err != nil {
				slog.Warn("auth_event", "event", "purge_revoked_failed", "error", err)
			}
			slog.Debug("session_event", "event", "swept", "clients_dropped", dropped, "revocations_purged", purged, "clients", registry.Len())
		}
	}
}
