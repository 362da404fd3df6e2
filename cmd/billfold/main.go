package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/billfold-app/billfold/internal/app"
	"github.com/billfold-app/billfold/internal/audit"
	"github.com/billfold-app/billfold/internal/auth"
	"github.com/billfold-app/billfold/internal/clients"
	"github.com/billfold-app/billfold/internal/invoices"
	"github.com/billfold-app/billfold/internal/platform/cache"
	"github.com/billfold-app/billfold/internal/platform/db"
	"github.com/billfold-app/billfold/internal/quotes"
	"github.com/billfold-app/billfold/internal/rbac"
	"github.com/billfold-app/billfold/internal/users"
	"github.com/billfold-app/billfold/jobs"
	"github.com/billfold-app/billfold/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("init token manager", slog.Any("error", err))
		os.Exit(1)
	}
	rbacMiddleware := rbac.Middleware{Logger: logger, Resolve: auth.ResolveRole}

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService, tokens, rbacMiddleware)

	clientRepo := clients.NewRepository(pool)
	clientService := clients.NewService(clientRepo)
	clientHandler := clients.NewHandler(logger, clientService, rbacMiddleware)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(quoteRepo, clientRepo, jobsClient)
	quoteHandler := quotes.NewHandler(logger, quoteService, rbacMiddleware)

	renderer := report.NewRenderer(clientRepo, quoteRepo, report.CompanyInfo{
		Name:    cfg.CompanyName,
		Address: cfg.CompanyAddress,
	})
	pdfRenderer := report.NewCachedRenderer(renderer, redisClient, 30*time.Minute)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, quoteRepo, cfg.PaymentTermDays)
	invoiceHandler := invoices.NewHandler(logger, invoiceService, rbacMiddleware, pdfRenderer)

	auditReader := audit.NewReader(pool)
	auditHandler := audit.NewHandler(logger, auditReader, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Tokens:         tokens,
		UsersHandler:   userHandler,
		ClientHandler:  clientHandler,
		QuoteHandler:   quoteHandler,
		InvoiceHandler: invoiceHandler,
		AuditHandler:   auditHandler,
		JobsHandler:    jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
