package mail

import (
	"fmt"
	"os"
	"time"
)

// Supported providers.
const (
	ProviderLog  = "log"
	ProviderHTTP = "http"
	ProviderSMTP = "smtp"
)

// Config selects and configures the mail provider.
type Config struct {
	Provider string
	From     string

	// HTTP provider.
	APIURL string
	APIKey string

	// Timeout bounds a single send.
	Timeout time.Duration

	// SMTP provider.
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
}

// ConfigFromEnv builds Config from MAIL_* and SMTP_* environment variables.
func ConfigFromEnv() (Config, error) {
	timeout, err := time.ParseDuration(envOrDefault("MAIL_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing MAIL_TIMEOUT: %w", err)
	}

	return Config{
		Provider:     envOrDefault("MAIL_PROVIDER", ProviderLog),
		From:         envOrDefault("MAIL_FROM", "santa@localhost"),
		APIURL:       os.Getenv("MAIL_API_URL"),
		APIKey:       os.Getenv("MAIL_API_KEY"),
		Timeout:      timeout,
		SMTPAddr:     envOrDefault("SMTP_ADDR", "localhost:25"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
