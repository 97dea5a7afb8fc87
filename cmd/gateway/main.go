package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PaymentStatus is the settlement outcome the mock gateway reports back.
type PaymentStatus string

const (
	StatusSuccess PaymentStatus = "success"
	StatusFailed  PaymentStatus = "failed"
	StatusPending PaymentStatus = "pending"
)

// CollectRequest is the body expected on create-collect-request.
type CollectRequest struct {
	SchoolID    string `json:"school_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	CallbackURL string `json:"callback_url"`
	Sign        string `json:"sign" binding:"required"`
}

// CollectResponse mirrors the real gateway's create response.
type CollectResponse struct {
	CollectRequestID  string `json:"collect_request_id"`
	CollectRequestURL string `json:"collect_request_url"`
	Sign              string `json:"sign"`
}

// webhookOrderInfo reproduces the gateway's notification wire format,
// misspelled field names included.
type webhookOrderInfo struct {
	OrderID           string  `json:"order_id"`
	OrderAmount       float64 `json:"order_amount"`
	TransactionAmount float64 `json:"transaction_amount"`
	Gateway           string  `json:"gateway"`
	BankReference     string  `json:"bank_reference"`
	Status            string  `json:"status"`
	PaymentMode       string  `json:"payment_mode"`
	PaymentDetails    string  `json:"payemnt_details"`
	PaymentMessage    string  `json:"Payment_message"`
	PaymentTime       string  `json:"payment_time"`
	ErrorMessage      string  `json:"error_message"`
}

type webhookPayload struct {
	Status    int              `json:"status"`
	OrderInfo webhookOrderInfo `json:"order_info"`
}

// MockGateway simulates the payment provider: it accepts signed collect
// requests and, after a random delay, fires a settlement webhook at the
// caller's callback URL.
type MockGateway struct {
	apiKey      string
	pgKey       string
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	baseURL     string
	rng         *rand.Rand
	client      *http.Client
}

func NewMockGateway(apiKey, pgKey, baseURL string, successRate float64, minDelay, maxDelay time.Duration) *MockGateway {
	return &MockGateway{
		apiKey:      apiKey,
		pgKey:       pgKey,
		successRate: successRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		baseURL:     baseURL,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// verifySign checks the HS256 assertion against the shared PG key and returns
// its claims.
func (g *MockGateway) verifySign(sign string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(sign, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(g.pgKey), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid sign")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid sign claims")
	}
	return claims, nil
}

func (g *MockGateway) signResponse(collectID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"collect_request_id": collectID,
	})
	signed, _ := token.SignedString([]byte(g.pgKey))
	return signed
}

func (g *MockGateway) randomDelay() time.Duration {
	if g.maxDelay <= g.minDelay {
		return g.minDelay
	}
	return g.minDelay + time.Duration(g.rng.Int63n(int64(g.maxDelay-g.minDelay)))
}

func (g *MockGateway) shouldSucceed() bool {
	return g.rng.Float64() < g.successRate
}

// fireWebhook settles the payment after a delay, posting the notification at
// the callback URL the collect request carried.
func (g *MockGateway) fireWebhook(orderID, callbackURL string, amount float64) {
	time.Sleep(g.randomDelay())

	status := StatusFailed
	message := "Payment declined by bank"
	errMsg := "INSUFFICIENT_FUNDS"
	if g.shouldSucceed() {
		status = StatusSuccess
		message = "Payment completed successfully"
		errMsg = ""
	}

	payload := webhookPayload{
		Status: http.StatusOK,
		OrderInfo: webhookOrderInfo{
			OrderID:           orderID,
			OrderAmount:       amount,
			TransactionAmount: amount,
			Gateway:           "MockPG",
			BankReference:     "BNK" + uuid.New().String()[:10],
			Status:            string(status),
			PaymentMode:       "upi",
			PaymentDetails:    "simulated settlement",
			PaymentMessage:    message,
			PaymentTime:       time.Now().UTC().Format(time.RFC3339),
			ErrorMessage:      errMsg,
		},
	}

	body := new(bytes.Buffer)
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode webhook payload")
		return
	}

	resp, err := g.client.Post(callbackURL, "application/json", body)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("Webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	log.Info().
		Str("order_id", orderID).
		Str("status", string(status)).
		Int("response_code", resp.StatusCode).
		Msg("Webhook delivered")
}

// Handler holds the mock gateway and its routes.
type Handler struct {
	gateway *MockGateway
}

func NewHandler(gateway *MockGateway) *Handler {
	return &Handler{gateway: gateway}
}

// CreateCollectRequest validates the API key and sign, then returns a payment
// page URL. If the sign carried a callback_url a webhook fires later.
func (h *Handler) CreateCollectRequest(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if auth != "Bearer "+h.gateway.apiKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}

	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	claims, err := h.gateway.verifySign(req.Sign)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var amount float64
	if _, err := fmt.Sscanf(req.Amount, "%f", &amount); err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	collectID := uuid.New().String()

	log.Info().
		Str("collect_request_id", collectID).
		Str("school_id", req.SchoolID).
		Str("amount", req.Amount).
		Msg("Collect request accepted")

	if callbackURL, _ := claims["callback_url"].(string); callbackURL != "" {
		if orderID, _ := claims["order_id"].(string); orderID != "" {
			go h.gateway.fireWebhook(orderID, callbackURL, amount)
		}
	}

	c.JSON(http.StatusCreated, CollectResponse{
		CollectRequestID:  collectID,
		CollectRequestURL: h.gateway.baseURL + "/pay/" + collectID,
		Sign:              h.gateway.signResponse(collectID),
	})
}

// PaymentPage is where the collect URL points. Real gateways render a payment
// form here; the mock just confirms the id is well formed.
func (h *Handler) PaymentPage(c *gin.Context) {
	id := c.Param("collect_request_id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collect request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"collect_request_id": id,
		"message":            "Simulated payment page",
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"success_rate": h.gateway.successRate,
		"timestamp":    time.Now(),
	})
}

// UpdateConfig allows changing the simulated success rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		SuccessRate *float64 `json:"success_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.SuccessRate != nil {
		if *config.SuccessRate >= 0 && *config.SuccessRate <= 1.0 {
			h.gateway.successRate = *config.SuccessRate
			log.Info().Float64("rate", *config.SuccessRate).Msg("Updated success rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"success_rate": h.gateway.successRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	router.POST("/erp/create-collect-request", handler.CreateCollectRequest)
	router.GET("/pay/:collect_request_id", handler.PaymentPage)
	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	apiKey := getEnv("GATEWAY_API_KEY", "test-api-key")
	pgKey := getEnv("GATEWAY_PG_KEY", "test-pg-key")
	baseURL := strings.TrimRight(getEnv("GATEWAY_BASE_URL", "http://localhost:"+port), "/")
	successRate := getEnvFloat("SUCCESS_RATE", 0.9)
	minDelay := getEnvDuration("MIN_DELAY", 1*time.Second)
	maxDelay := getEnvDuration("MAX_DELAY", 5*time.Second)

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Payment Gateway")

	gateway := NewMockGateway(apiKey, pgKey, baseURL, successRate, minDelay, maxDelay)
	handler := NewHandler(gateway)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
