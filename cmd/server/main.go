package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/worktime-ledger/internal/account"
	"github.com/iliyamo/worktime-ledger/internal/config"
	"github.com/iliyamo/worktime-ledger/internal/database"
	"github.com/iliyamo/worktime-ledger/internal/handler"
	"github.com/iliyamo/worktime-ledger/internal/middleware"
	"github.com/iliyamo/worktime-ledger/internal/queue"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/router"
	"github.com/iliyamo/worktime-ledger/internal/service"
	"github.com/iliyamo/worktime-ledger/internal/tasks"
	"github.com/iliyamo/worktime-ledger/internal/worktime"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if env == "dev" || env == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		Driver:     cfg.DBDriver,
		User:       cfg.DBUser,
		Pass:       cfg.DBPass,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	// storage
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	permRepo := repository.NewPermissionRepo(db)
	perms := repository.NewCachedPermissions(permRepo, rdb, logger)
	shiftRepo := repository.NewShiftRepo(db)
	days := repository.NewWorkDayRepo(db)

	// outbound mail: queue first, direct delivery when the broker is down
	mailer := service.NewMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	dispatcher := service.NewDispatcher(&service.Publisher{URL: cfg.RabbitMQURL, Log: logger}, mailer, logger)
	defer dispatcher.Wait()

	accounts := &account.Lifecycle{
		Users:       users,
		Permissions: perms,
		Sessions:    tokens,
		Tokens:      account.NewTokenService(cfg.AccountTokenSecret, cfg.AccountTokenTTL),
		Sink:        dispatcher,
		Log:         logger,
		BaseURL:     cfg.PublicBaseURL,
		BcryptCost:  cfg.BcryptCost,
	}

	if cfg.AdminEmail != "" {
		u, err := account.EnsureSuperAdmin(ctx, users, perms, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			return err
		}
		logger.Info("superadmin ready", zap.String("user_id", u.ID), zap.String("email", u.Email))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	shifts := worktime.NewShiftRegistry(shiftRepo)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, accounts, logger), limiter, cfg.JWTSecret)
	router.RegisterUser(e,
		handler.NewAccountHandler(users, perms, tokens, logger, cfg.BcryptCost),
		handler.NewShiftHandler(shifts),
		handler.NewWorkDayHandler(worktime.NewLedger(days, shiftRepo), days, worktime.NewSummarizer(days), logger),
		cfg.JWTSecret,
	)
	router.RegisterAdmin(e, handler.NewPermissionHandler(permRepo, perms, users), perms, logger, cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		c := &queue.MailConsumer{URL: cfg.RabbitMQURL, Deliver: mailer, Log: logger}
		return c.Run(gctx)
	})
	g.Go(func() error {
		r := &tasks.Runner{Logger: logger, Jobs: []tasks.Job{
			tasks.InactiveAccountPurgeJob(users, logger, cfg.InactiveAccountTTL),
			tasks.RefreshTokenPurgeJob(tokens, logger, 24*time.Hour),
		}}
		return r.Start(gctx)
	})

	return g.Wait()
}
