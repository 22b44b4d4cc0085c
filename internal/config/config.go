package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	TBank    TBankConfig
	Billing  BillingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	WebhookLogFilePath string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type TBankConfig struct {
	TerminalKey  string
	SecretKey    string
	APIURL       string
	ReceiptEmail string
	Taxation     string
}

type BillingConfig struct {
	// RecurringAmount is the monthly charge in major currency units (rubles).
	RecurringAmount int64
	WebhookTopic    string
	// PaymentIDScanLimit bounds the fallback order scan when routing by payment id.
	PaymentIDScanLimit int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WebhookLogFilePath: getEnv("WEBHOOK_LOG_FILE_PATH", "logs/webhook.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		TBank: TBankConfig{
			TerminalKey:  getEnv("TBANK_TERMINAL_KEY", ""),
			SecretKey:    getEnv("TBANK_SECRET_KEY", ""),
			APIURL:       getEnv("TBANK_API_URL", "https://securepay.tinkoff.ru/v2"),
			ReceiptEmail: getEnv("TBANK_RECEIPT_FALLBACK_EMAIL", "user@example.com"),
			Taxation:     getEnv("TBANK_TAXATION", "osn"),
		},
		Billing: BillingConfig{
			RecurringAmount:    int64(getEnvAsInt("BILLING_RECURRING_AMOUNT", 390)),
			WebhookTopic:       getEnv("WEBHOOK_NOTIFICATION_TOPIC_NAME", "GATEWAY_NOTIFICATION"),
			PaymentIDScanLimit: getEnvAsInt("BILLING_PAYMENT_ID_SCAN_LIMIT", 200),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
