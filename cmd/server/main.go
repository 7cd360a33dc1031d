package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/spmukhedkar/user-role-system-server/docs" // swagger docs

	"github.com/spmukhedkar/user-role-system-server/internal/auth"
	"github.com/spmukhedkar/user-role-system-server/internal/cache"
	"github.com/spmukhedkar/user-role-system-server/internal/config"
	"github.com/spmukhedkar/user-role-system-server/internal/db"
	"github.com/spmukhedkar/user-role-system-server/internal/handler"
	"github.com/spmukhedkar/user-role-system-server/internal/logger"
	"github.com/spmukhedkar/user-role-system-server/internal/observe"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
	"github.com/spmukhedkar/user-role-system-server/internal/router"
	"github.com/spmukhedkar/user-role-system-server/internal/service"
)

const (
	shutdownTimeout    = 10 * time.Second
	healthCheckTimeout = 2 * time.Second
	purgeInterval      = 15 * time.Minute
)

// @title User Role System API
// @version 2.0
// @description Signup, signin and signout with revocable session tokens, plus admin-only role and user management.
// @BasePath /api/v2
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	if cfg.UsesDevelopmentSecret() {
		log.Warn().Msg("JWT_SECRET is unset, signing tokens with the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

// stores bundles the repositories and whatever must be closed with them.
type stores struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	sessions repository.SessionRepository
	tx       repository.Transactor
	ping     handler.Pinger
	close    func() error
}

func openStores(cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.DB.Driver == config.StorageMemory {
		log.Warn().Msg("STORAGE_DRIVER=memory: accounts and sessions are lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{
			users:    mem.Users(),
			roles:    mem.Roles(),
			sessions: mem.Sessions(),
			tx:       mem,
			close:    func() error { return nil },
		}, nil
	}

	gormDB, err := db.NewMySQL(cfg.DB.DSN, db.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     cfg.DB.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if cfg.DB.Reset {
		log.Warn().Msg("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.DB.Reset); err != nil {
		_ = db.Close(gormDB)
		return nil, err
	}

	return &stores{
		users:    repository.NewUserRepository(gormDB, cfg.DB.Timeout),
		roles:    repository.NewRoleRepository(gormDB, cfg.DB.Timeout),
		sessions: repository.NewSessionRepository(gormDB, cfg.DB.Timeout),
		tx:       repository.NewTransactor(gormDB, cfg.DB.Timeout),
		ping:     handler.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, gormDB) }),
		close:    func() error { return db.Close(gormDB) },
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	st, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error().Err(err).Msg("close storage")
		}
	}()

	// an empty REDIS_ADDR leaves the role cache disabled
	var cacheClient *cache.Client
	if cfg.Redis.Addr != "" {
		cacheClient = cache.New(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "urs:",
		})
		defer cacheClient.Close()
	}

	// Initialize auth components
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	registry := auth.NewSessionRegistry(st.sessions)
	gate := auth.NewGate(jwtService, st.users, registry, cfg.Auth.AdminRole)

	// Initialize services
	roleService := service.NewRoleService(st.roles, cacheClient, cfg.Redis.RoleCacheTTL)
	userService := service.NewUserService(st.users, st.tx, roleService, hasher, jwtService, registry, cfg.Auth.PhoneRegion)

	if _, err := roleService.EnsureRole(ctx, cfg.Auth.AdminRole); err != nil {
		return err
	}

	health := handler.NewHealthHandler(healthCheckTimeout)
	if cacheClient != nil {
		health.Optional("redis", cacheClient)
	}
	if st.ping != nil {
		health.Require("mysql", st.ping)
	}

	deps := router.Deps{
		Log:    log,
		Gate:   gate,
		Users:  handler.NewUserHandler(userService),
		Roles:  handler.NewRoleHandler(roleService),
		Health: health,
	}

	var provider *observe.Provider
	if cfg.Metrics.Enabled {
		provider, err = observe.NewPrometheusProvider()
		if err != nil {
			return err
		}
		deps.Metrics = provider.Metrics
		deps.MetricsHandler = provider.Handler()
	}

	e := router.New(deps)
	addr := ":" + cfg.App.Port

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Str("swagger", swaggerURL(cfg)).Msg("server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		purgeLog := log.With(map[string]interface{}{"component": "purge"})
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				n, err := st.sessions.PurgeExpired(gctx, now)
				if err != nil {
					purgeLog.Warn().Err(err).Msg("purge expired sessions")
					continue
				}
				if n == 0 {
					purgeLog.Debug().Msg("no expired sessions")
					continue
				}
				purgeLog.Info().Int64("purged", n).Msg("expired sessions removed")
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := e.Shutdown(shutdownCtx)
		if provider != nil {
			err = errors.Join(err, provider.Shutdown(shutdownCtx))
		}
		return err
	})

	return g.Wait()
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.App.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.App.Port
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/api-docs/index.html"
}
