package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/schoolpay/payment-gateway/pkg/logger"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every configuration value the process reads. Only this struct
// is used to hold configuration, no direct access to env or any other config
// source should be made elsewhere.
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"payment_gateway"`
	AppDebug            bool   `env:"APP_DEBUG" default:"1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`
	AppBaseUrl          string `env:"APP_BASE_URL"`

	HttpListenAddr            string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`
	HttpBaseRequestUrl        string `env:"HTTP_BASE_REQUEST_URI" validation:"mustExists"`
	HttpServerReadTimeout     int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout    int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`
	HttpServerReadBufferSize  int    `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int    `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string        `env:"REDIS_ADDR"`
	RedisUsername           string        `env:"REDIS_USER"`
	RedisPassword           string        `env:"REDIS_PASS"`
	RedisDatabase           int           `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string        `env:"REDIS_UNIVERSAL_KEY_PREFIX"`
	StatusCacheTTL          time.Duration `env:"STATUS_CACHE_TTL"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	ProfilerEnable bool `env:"PROFILER_ENABLE"`
	ProfilerPort   int  `env:"PROFILER_PORT"`

	LogLevel []string `env:"LOG_LEVEL"`

	GatewayBaseUrl string        `env:"GATEWAY_BASE_URL" validation:"mustExists"`
	GatewayAPIKey  string        `env:"GATEWAY_API_KEY" validation:"mustExists"`
	GatewayPGKey   string        `env:"GATEWAY_PG_KEY" validation:"mustExists"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT"`

	SchoolID           string `env:"SCHOOL_ID" validation:"mustExists"`
	GatewayName        string `env:"GATEWAY_NAME" default:"Edviron"`
	DefaultTrusteeID   string `env:"DEFAULT_TRUSTEE_ID"`
	DefaultCallbackURL string `env:"DEFAULT_CALLBACK_URL"`

	JWTSecret   string        `env:"JWT_SECRET" validation:"mustExists"`
	JWTTokenTTL time.Duration `env:"JWT_TOKEN_TTL"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
