package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schoolpay/payment-gateway/internal/cache"
	"github.com/schoolpay/payment-gateway/internal/config"
	gateway "github.com/schoolpay/payment-gateway/internal/gateways"
	"github.com/schoolpay/payment-gateway/internal/handlers"
	"github.com/schoolpay/payment-gateway/internal/repository"
	"github.com/schoolpay/payment-gateway/internal/services"
	xhttp "github.com/schoolpay/payment-gateway/pkg/http"
	"github.com/schoolpay/payment-gateway/pkg/logger"
	"github.com/schoolpay/payment-gateway/pkg/pg"
	"github.com/schoolpay/payment-gateway/pkg/prom"
	"github.com/schoolpay/payment-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	if config.Get().PromNamespace != "" {
		host, _ := os.Hostname()
		if err := prom.Create(host, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
			logger.Error("failed creating metrics", "error", err)
		}
		if config.Get().AppDebugMetricsAddr != "" {
			go prom.ListenAndServer(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
		}
	}

	orderRepo := repository.NewOrderRepository(db)
	statusRepo := repository.NewOrderStatusRepository(db)
	webhookRepo := repository.NewWebhookLogRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	userRepo := repository.NewUserRepository(db)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:  config.Get().GatewayBaseUrl,
		APIKey:   config.Get().GatewayAPIKey,
		PGKey:    config.Get().GatewayPGKey,
		SchoolID: config.Get().SchoolID,
		Timeout:  config.Get().GatewayTimeout,
	})

	statusCache := cache.NewStatusCache(redisAdap, config.Get().StatusCacheTTL)

	// services
	paymentService := services.NewPaymentService(services.PaymentConfig{
		SchoolID:           config.Get().SchoolID,
		GatewayName:        config.Get().GatewayName,
		DefaultTrusteeID:   config.Get().DefaultTrusteeID,
		DefaultCallbackURL: config.Get().DefaultCallbackURL,
	}, orderRepo, statusRepo, webhookRepo, gatewayClient, statusCache)
	transactionService := services.NewTransactionService(transactionRepo)
	authService := services.NewAuthService(userRepo, config.Get().JWTSecret, config.Get().JWTTokenTTL)
	healthService := services.NewHealthService(db)

	// v1 handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, paymentService)
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(healthService)
	auth := handlers.AuthMiddleware(authService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterAuthRoutes(g, authHandler)
	handlers.RegisterPaymentRoutes(g, paymentHandler, auth)
	handlers.RegisterTransactionRoutes(g, transactionHandler, auth)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	logger.Info("api started",
		"version", version,
		"commit", commit,
		"build_date", date,
		"addr", config.Get().HttpListenAddr)

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
