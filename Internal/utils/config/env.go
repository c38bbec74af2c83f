package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Env holds secrets and endpoints that never belong in config.yaml.
// Loaded from the environment (godotenv fills the environment in main).
type Env struct {
	TradeMode string `envconfig:"TRADE_MODE" default:"paper"`

	AlpacaAPIKey    string `envconfig:"ALPACA_API_KEY"`
	AlpacaAPISecret string `envconfig:"ALPACA_API_SECRET"`
	AlpacaBaseURL   string `envconfig:"ALPACA_BASE_URL" default:"https://paper-api.alpaca.markets"`

	FeedURL      string `envconfig:"FEED_URL" default:"ws://localhost:8765/stream"`
	SentimentURL string `envconfig:"SENTIMENT_URL"`
	HolidayURL   string `envconfig:"HOLIDAY_URL"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"daytrader"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	APIListenAddr string `envconfig:"API_LISTEN_ADDR" default:":8080"`
	JWTSecretKey  string `envconfig:"JWT_SECRET_KEY"`
}

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}
	return &env, nil
}
