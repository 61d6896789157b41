package config

import (
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database Database `envPrefix:"DB_"`
	Payment  Payment  `envPrefix:"PAYMENT_"`
	ESign    ESign    `envPrefix:"ESIGN_"`
	Email    Email    `envPrefix:"EMAIL_"`
	Session  Session  `envPrefix:"SESSION_"`
	Admin    Admin    `envPrefix:"ADMIN_"`
}

type Database struct {
	Driver       string        `env:"DRIVER" envDefault:"mysql"` // mysql, postgres, sqlite
	URL          string        `env:"URL"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type Payment struct {
	BaseApiURL     string          `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	SecretKey      string          `env:"SECRET_KEY"`
	WebhookSecret  string          `env:"WEBHOOK_SECRET"`
	Currency       string          `env:"CURRENCY" envDefault:"usd"`
	TaxRate        decimal.Decimal `env:"TAX_RATE" envDefault:"0.08"`
	ShippingCost   decimal.Decimal `env:"SHIPPING_COST" envDefault:"9.99"`
	ProcessTimeout time.Duration   `env:"PROCESS_TIMEOUT" envDefault:"60s"`
}

type ESign struct {
	BaseApiURL    string `env:"BASE_API_URL"`
	APIKey        string `env:"API_KEY"`
	TemplateID    int64  `env:"TEMPLATE_ID"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Email struct {
	BaseApiURL       string `env:"BASE_API_URL"`
	APIKey           string `env:"API_KEY"`
	From             string `env:"FROM" envDefault:"orders@pharmacy.local"`
	ModeratorAddress string `env:"MODERATOR_ADDRESS" envDefault:"intake@pharmacy.local"`
}

type Session struct {
	JWTSecret  string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	CookieName string `env:"COOKIE_NAME" envDefault:"session"`
}

type Admin struct {
	GateCookie string `env:"GATE_COOKIE" envDefault:"admin_gate"`
	GateValue  string `env:"GATE_VALUE" envDefault:"ok"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
