package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/spmukhedkar/user-role-system-server/internal/auth"
	"github.com/spmukhedkar/user-role-system-server/internal/config"
	"github.com/spmukhedkar/user-role-system-server/internal/db"
	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/logger"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
	"github.com/spmukhedkar/user-role-system-server/internal/service"
)

// seedOptions come from flags, falling back to SEED_* environment variables.
type seedOptions struct {
	AdminUserName string
	AdminPassword string
	Purge         bool
}

func parseOptions(args []string) (seedOptions, error) {
	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	fs.String("admin-username", "", "user name of the admin account to create or promote (SEED_ADMIN_USERNAME)")
	fs.String("admin-password", "", "password for a newly created admin account (SEED_ADMIN_PASSWORD)")
	fs.Bool("purge", false, "delete expired sessions and exit")
	if err := fs.Parse(args); err != nil {
		return seedOptions{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("SEED")
	v.AutomaticEnv()
	_ = v.BindEnv("admin-username", "SEED_ADMIN_USERNAME")
	_ = v.BindEnv("admin-password", "SEED_ADMIN_PASSWORD")
	if err := v.BindPFlags(fs); err != nil {
		return seedOptions{}, err
	}

	return seedOptions{
		AdminUserName: v.GetString("admin-username"),
		AdminPassword: v.GetString("admin-password"),
		Purge:         v.GetBool("purge"),
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("parse flags")
	}

	if cfg.DB.Driver != config.StorageMySQL {
		log.Fatal().Str("driver", cfg.DB.Driver).Msg("seeding needs STORAGE_DRIVER=mysql")
	}

	gormDB, err := db.NewMySQL(cfg.DB.DSN, db.Options{PingTimeout: cfg.DB.Timeout})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close(gormDB)
	log.Info().Msg("connected to database")

	if err := db.Migrate(gormDB, false); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users := repository.NewUserRepository(gormDB, cfg.DB.Timeout)
	roles := service.NewRoleService(repository.NewRoleRepository(gormDB, cfg.DB.Timeout), nil, 0)
	sessions := repository.NewSessionRepository(gormDB, cfg.DB.Timeout)

	if opts.Purge {
		n, err := sessions.PurgeExpired(ctx, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("purge expired sessions")
		}
		log.Info().Int64("purged", n).Msg("expired sessions removed")
		return
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err := seed(ctx, log, cfg.Auth.AdminRole, opts, roles, users, hasher); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().Msg("seed completed")
}

// seed makes sure the admin role exists and, when a user name is given, that the user holds it.
func seed(
	ctx context.Context,
	log *logger.Logger,
	adminRole string,
	opts seedOptions,
	roles service.RoleService,
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
) error {
	role, err := roles.EnsureRole(ctx, adminRole)
	if err != nil {
		return err
	}
	log.Info().Str("role", role.Name).Str("id", role.ID.String()).Msg("admin role ready")

	if opts.AdminUserName == "" {
		return nil
	}

	existing, err := users.FindByUserName(ctx, opts.AdminUserName)
	switch {
	case err == nil:
		if existing.RoleID != nil && *existing.RoleID == role.ID {
			log.Info().Str("user", existing.UserName).Msg("user already holds the admin role")
			return nil
		}
		if err := users.AssignRole(ctx, existing.ID, role.ID); err != nil {
			return err
		}
		log.Info().Str("user", existing.UserName).Msg("admin role assigned")
		return nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return err
	}

	if opts.AdminPassword == "" {
		return errors.New("SEED_ADMIN_PASSWORD is required to create a new admin user")
	}

	hash, err := hasher.Hash(opts.AdminPassword)
	if err != nil {
		return err
	}
	admin := &model.User{
		UserName:     opts.AdminUserName,
		PasswordHash: hash,
		RoleID:       &role.ID,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Info().Str("user", admin.UserName).Str("id", admin.ID.String()).Msg("admin user created")
	return nil
}
