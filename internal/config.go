package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`
	JwtSecret      string `env:"JWT_SECRET,required=true"`

	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=15m"`
	RefreshTokenDuration time.Duration `env:"REFRESH_TOKEN_DURATION,default=720h"`
	LoginRateLimit       int           `env:"LOGIN_RATE_LIMIT,default=10"`

	// Comma separated origins allowed to open a websocket. Empty keeps the same-host check.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	RequestTimeout          time.Duration `env:"REQUEST_TIMEOUT,default=10s"`
	DeliveryTimeout         time.Duration `env:"DELIVERY_TIMEOUT,default=5s"`
	EventHandlerTimeout     time.Duration `env:"EVENT_HANDLER_TIMEOUT,default=2s"`
	MaxConcurrentDeliveries int           `env:"MAX_CONCURRENT_DELIVERIES,default=1024"`
	RegistryShards          int           `env:"REGISTRY_SHARDS,default=32"`
	ConnectionBufferSize    int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxContentLength        int           `env:"MAX_CONTENT_LENGTH,default=4000"`
	RestartInterval         time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval          time.Duration `env:"METRIC_INTERVAL,default=15s"`
	ValueLogGCInterval      time.Duration `env:"VALUE_LOG_GC_INTERVAL,default=5m"`
}

const minSecretLength = 32

// Load reads an optional .env file then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return Config{}, fmt.Errorf("loading %s: %w", strings.Join(files, ","), err)
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return config, config.Validate()
}

// Origins splits AllowedOrigins, ignoring blanks.
func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Port > 0 && c.Port < 65536, "PORT must be between 1 and 65535, got %d", c.Port)
	check(len(c.JwtSecret) >= minSecretLength, "JWT_SECRET must contain at least %d characters", minSecretLength)
	check(c.AuthTokenDuration > 0, "AUTH_TOKEN_DURATION must be positive")
	check(c.RefreshTokenDuration > c.AuthTokenDuration, "REFRESH_TOKEN_DURATION must exceed AUTH_TOKEN_DURATION")
	check(c.RequestTimeout > 0, "REQUEST_TIMEOUT must be positive")
	check(c.DeliveryTimeout > 0, "DELIVERY_TIMEOUT must be positive")
	check(c.EventHandlerTimeout > 0, "EVENT_HANDLER_TIMEOUT must be positive")
	check(c.MaxConcurrentDeliveries > 0, "MAX_CONCURRENT_DELIVERIES must be positive")
	check(c.RegistryShards > 0, "REGISTRY_SHARDS must be positive")
	check(c.ConnectionBufferSize > 0, "CONNECTION_BUFFER_SIZE must be positive")
	check(c.MaxContentLength > 0, "MAX_CONTENT_LENGTH must be positive")
	check(c.LoginRateLimit > 0, "LOGIN_RATE_LIMIT must be positive")
	if c.LimitMessages != nil {
		check(*c.LimitMessages > 0, "LIMIT_MESSAGES must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
