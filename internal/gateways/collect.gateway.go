package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/schoolpay/payment-gateway/pkg/logger"
	"github.com/schoolpay/payment-gateway/pkg/prom"
	"github.com/valyala/fasthttp"
)

const collectRequestPath = "/erp/create-collect-request"

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL  string
	APIKey   string // bearer credential for the gateway API
	PGKey    string // HMAC key for the sign assertion
	SchoolID string
	Timeout  time.Duration
}

// CollectRequest is the gateway's create-collect-request body. Amount goes
// over the wire as a string, matching the gateway contract.
type CollectRequest struct {
	SchoolID    string `json:"school_id"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Sign        string `json:"sign"`
}

type CollectResponse struct {
	CollectRequestID  string `json:"collect_request_id"`
	CollectRequestURL string `json:"collect_request_url"`
	Sign              string `json:"sign"`

	// Raw keeps the gateway's response verbatim so callers can surface it
	// untouched.
	Raw json.RawMessage `json:"-"`
}

// CollectError is returned when the gateway call fails, carrying whatever
// detail the upstream produced.
type CollectError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CollectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway collect request: %v", e.Err)
	}
	return fmt.Sprintf("gateway collect request: status %d: %s", e.StatusCode, e.Body)
}

func (e *CollectError) Unwrap() error { return e.Err }

type Client struct {
	cfg    Config
	client *fasthttp.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		client: &fasthttp.Client{
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxConnsPerHost:     512,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

// CreateCollectRequest opens a collect request at the gateway and returns the
// redirect URL plus the gateway-side correlation id. The request carries a
// signed assertion binding school, amount and callback URL.
func (c *Client) CreateCollectRequest(ctx context.Context, amount float64, callbackURL string) (*CollectResponse, error) {
	amountStr := strconv.FormatFloat(amount, 'f', -1, 64)

	sign, err := c.signAssertion(amountStr, callbackURL)
	if err != nil {
		return nil, &CollectError{Err: fmt.Errorf("sign assertion: %w", err)}
	}

	body, err := json.Marshal(CollectRequest{
		SchoolID:    c.cfg.SchoolID,
		Amount:      amountStr,
		CallbackURL: callbackURL,
		Sign:        sign,
	})
	if err != nil {
		return nil, &CollectError{Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + collectRequestPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.SetBody(body)

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	start := time.Now()
	err = c.client.DoTimeout(req, resp, timeout)
	prom.ObserveGatewayCall(time.Since(start).Seconds())
	if err != nil {
		logger.Error("gateway call failed", "error", err)
		return nil, &CollectError{Err: err}
	}

	status := resp.StatusCode()
	raw := append([]byte(nil), resp.Body()...)
	if status < 200 || status > 299 {
		logger.Warn("gateway rejected collect request", "status", status)
		return nil, &CollectError{StatusCode: status, Body: string(raw)}
	}

	var out CollectResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &CollectError{StatusCode: status, Body: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}
	out.Raw = raw

	return &out, nil
}

func (c *Client) signAssertion(amount, callbackURL string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"school_id":    c.cfg.SchoolID,
		"amount":       amount,
		"callback_url": callbackURL,
	})
	return token.SignedString([]byte(c.cfg.PGKey))
}
