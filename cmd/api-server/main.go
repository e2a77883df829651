package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/himalai/expense-service/internal/auth"
	"github.com/himalai/expense-service/internal/cache"
	"github.com/himalai/expense-service/internal/clickhouse"
	"github.com/himalai/expense-service/internal/config"
	"github.com/himalai/expense-service/internal/database"
	"github.com/himalai/expense-service/internal/events"
	"github.com/himalai/expense-service/internal/handlers"
	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/mailer"
	"github.com/himalai/expense-service/internal/middleware"
	"github.com/himalai/expense-service/internal/redis"
	"github.com/himalai/expense-service/internal/service"
	"github.com/himalai/expense-service/internal/storage"
)

func main() {
	log := logger.New("api-server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx := context.Background()

	redisClient, err := redis.NewRedisClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	var userStore storage.UserStore
	var expenseStore storage.ExpenseStore
	var voucherStore storage.VoucherStore
	var dbManager *database.DBManager

	if cfg.Database.PrimaryDSN != "" {
		dbManager, err = database.NewDBManager(ctx, database.Config{
			PrimaryDSN:      cfg.Database.PrimaryDSN,
			ReplicaDSNs:     cfg.Database.ReplicaDSNs,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer dbManager.Close()

		if err := storage.InitSchema(ctx, dbManager); err != nil {
			log.Fatal("Failed to initialize schema: %v", err)
		}

		userStore = storage.NewPostgresUserStore(dbManager)
		expenseStore = storage.NewPostgresExpenseStore(dbManager)
		voucherStore = storage.NewPostgresVoucherStore(dbManager)
	} else {
		log.Warn("DB_PRIMARY_DSN not set, using in-memory storage")
		mem := storage.NewMemoryStore()
		userStore = mem.Users
		expenseStore = mem.Expenses
		voucherStore = mem.Vouchers
	}

	multiCache := cache.NewMultiTierCache(
		cfg.Cache.L1Capacity,
		redisClient.GetClient(),
		cfg.Cache.L2TTL,
	)

	ledgerProducer := events.NewLedgerProducer(redisClient.GetClient(), cfg.Redis.StreamName)

	var reportService *service.ReportService
	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Warn("ClickHouse unavailable, reports disabled: %v", err)
	} else {
		defer chClient.Close()
		if err := chClient.InitSchema(ctx); err != nil {
			log.Warn("Failed to initialize ClickHouse schema: %v", err)
		}
		reportService = service.NewReportService(chClient)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	sessionStore := auth.NewSessionStore(redisClient.GetClient())
	mail := mailer.New(mailer.Config{
		APIKey:      cfg.Mail.SendGridKey,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
	})

	authService := service.NewAuthService(userStore, sessionStore, jwtManager, mail, cfg.Auth.VerificationTTL)
	expenseService := service.NewExpenseService(expenseStore, userStore, ledgerProducer, multiCache, redisClient.GetClient())
	profileService := service.NewProfileService(userStore, multiCache)
	voucherService := service.NewVoucherService(voucherStore)

	authHandler := handlers.NewAuthHandler(authService)
	expenseHandler := handlers.NewExpenseHandler(expenseService)
	profileHandler := handlers.NewProfileHandler(profileService)
	voucherHandler := handlers.NewVoucherHandler(voucherService)
	reportHandler := handlers.NewReportHandler(reportService)
	healthHandler := handlers.NewHealthHandler(dbManager, redisClient)

	authMW := middleware.NewAuthMiddleware(authService)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/verify", authHandler.Verify)
	mux.HandleFunc("POST /api/v1/auth/resend", authHandler.ResendCode)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", authMW.RequireAuth(authHandler.Logout))

	mux.HandleFunc("GET /api/v1/profile", authMW.RequireAuth(profileHandler.Get))
	mux.HandleFunc("PATCH /api/v1/profile", authMW.RequireAuth(profileHandler.Update))

	mux.HandleFunc("POST /api/v1/expenses", authMW.RequireAuth(expenseHandler.Add))
	mux.HandleFunc("GET /api/v1/expenses", authMW.RequireAuth(expenseHandler.List))
	mux.HandleFunc("GET /api/v1/expenses/{id}", authMW.RequireAuth(expenseHandler.Get))
	mux.HandleFunc("DELETE /api/v1/expenses/{id}", authMW.RequireAuth(expenseHandler.Delete))
	mux.HandleFunc("POST /api/v1/expenses/import", authMW.RequireAuth(expenseHandler.Import))
	mux.HandleFunc("GET /api/v1/points/balance", authMW.RequireAuth(expenseHandler.Balance))

	mux.HandleFunc("GET /api/v1/reports/categories", authMW.RequireAuth(reportHandler.CategoryBreakdown))
	mux.HandleFunc("GET /api/v1/reports/monthly", authMW.RequireAuth(reportHandler.MonthlySeries))
	mux.HandleFunc("GET /api/v1/reports/summary", authMW.RequireAuth(reportHandler.Summary))

	mux.HandleFunc("GET /api/v1/vouchers", authMW.RequireAuth(voucherHandler.List))
	mux.HandleFunc("GET /api/v1/vouchers/{id}", authMW.RequireAuth(voucherHandler.Get))
	mux.HandleFunc("GET /api/v1/vouchers/{id}/qr", authMW.RequireAuth(voucherHandler.QR))
	mux.HandleFunc("POST /api/v1/vouchers/validate", authMW.RequireAuth(voucherHandler.Validate))
	mux.HandleFunc("POST /api/v1/vouchers/redeem", authMW.RequireAuth(voucherHandler.Redeem))
	mux.HandleFunc("POST /api/v1/vouchers", authMW.RequireAdmin(voucherHandler.Create))
	mux.HandleFunc("PATCH /api/v1/vouchers/{id}", authMW.RequireAdmin(voucherHandler.Update))
	mux.HandleFunc("DELETE /api/v1/vouchers/{id}", authMW.RequireAdmin(voucherHandler.Delete))

	mux.HandleFunc("GET /api/v1/admin/users", authMW.RequireAdmin(profileHandler.ListUsers))
	mux.HandleFunc("GET /api/v1/admin/users/{id}", authMW.RequireAdmin(profileHandler.GetUser))
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", authMW.RequireAdmin(profileHandler.DeleteUser))
	mux.HandleFunc("PATCH /api/v1/admin/users/{id}/admin", authMW.RequireAdmin(profileHandler.SetAdmin))

	rateLimiter := middleware.NewRateLimiter(
		redisClient.GetClient(),
		cfg.RateLimit.Requests,
		cfg.RateLimit.Window,
	)

	handler := middleware.Recovery(log)(mux)
	handler = rateLimiter.Middleware(handler)
	handler = middleware.CORS(cfg.Server.AllowedOrigins)(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error: %v", err)
	}
}
