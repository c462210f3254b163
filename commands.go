package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/config"
	"restaurant-ordering-api/handlers"
	"restaurant-ordering-api/logger"
	"restaurant-ordering-api/otp"
	"restaurant-ordering-api/permission"
	"restaurant-ordering-api/routes"
	"restaurant-ordering-api/services"
	"restaurant-ordering-api/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := boot()
		if err != nil {
			return err
		}
		if err := config.Migrate(db); err != nil {
			return err
		}
		fmt.Println("✅  Migrations applied")
		return nil
	},
}

var superuser services.RegisterInput

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an active owner with staff and superuser rights",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := boot()
		if err != nil {
			return err
		}
		if err := config.Migrate(db); err != nil {
			return err
		}
		superuser.Password2 = superuser.Password
		accounts := services.NewAccountService(db, auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL), auth.NewGormDenylist(db), otp.LogSender{}, cfg.OTPTTL)
		user, err := accounts.CreateSuperuser(cmd.Context(), superuser)
		if err != nil {
			return err
		}
		fmt.Printf("✅  Superuser %s created (id %d)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	f := createSuperuserCmd.Flags()
	f.StringVar(&superuser.Email, "email", "", "email address (required)")
	f.StringVar(&superuser.Password, "password", "", "password (required)")
	f.StringVar(&superuser.FirstName, "first-name", "Admin", "first name")
	f.StringVar(&superuser.LastName, "last-name", "User", "last name")
	f.StringVar(&superuser.Phone, "phone", "0000000000", "phone number")
	_ = createSuperuserCmd.MarkFlagRequired("email")
	_ = createSuperuserCmd.MarkFlagRequired("password")
}

// boot loads configuration, installs the logger and opens the database.
func boot() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Setup(cfg.Production())
	db, err := config.OpenDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, db, err := boot()
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		return err
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	denylist := newDenylist(ctx, cfg, db)
	disk, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	h := &handlers.Handler{
		Accounts:    services.NewAccountService(db, issuer, denylist, newSender(cfg), cfg.OTPTTL),
		Restaurants: services.NewRestaurantService(db),
		Catalog:     services.NewCatalogService(db, permission.NewResolver(db), disk),
		Carts:       services.NewCartService(db),
		Orders:      services.NewOrderService(db),
	}
	opts := routes.Options{Issuer: issuer, Denylist: denylist, Users: h.Accounts, CORSOrigins: cfg.CORSOrigins}
	if local, ok := disk.(*storage.LocalDisk); ok {
		opts.StorageRoot = local.Root()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(h, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("server listening", "addr", "http://localhost:"+cfg.Port, "env", cfg.AppEnv, "db", cfg.DBDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newDenylist prefers Redis and falls back to the database table when Redis
// is not configured or unreachable.
func newDenylist(ctx context.Context, cfg *config.Config, db *gorm.DB) auth.Denylist {
	if cfg.RedisAddr != "" {
		rdb, err := auth.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err == nil {
			logger.L.Info("token denylist: redis", "addr", cfg.RedisAddr)
			return auth.NewRedisDenylist(rdb)
		}
		logger.L.Warn("redis unavailable, using database denylist", "addr", cfg.RedisAddr, "error", err)
	}
	gd := auth.NewGormDenylist(db)
	if n, err := gd.Purge(ctx, time.Now()); err != nil {
		logger.L.Warn("purge revoked tokens", "error", err)
	} else if n > 0 {
		logger.L.Info("purged expired revoked tokens", slog.Int64("count", n))
	}
	return gd
}

func newSender(cfg *config.Config) otp.Sender {
	if cfg.Mail.Username == "" {
		logger.L.Warn("MAIL_USERNAME not set, OTP codes will be logged instead of mailed")
		return otp.LogSender{}
	}
	m := cfg.Mail
	return otp.NewSMTPSender(m.Host, m.Port, m.Username, m.Password, m.From)
}
