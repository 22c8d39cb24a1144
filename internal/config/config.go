package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ServicePort string `env:"SERVICE_PORT" envDefault:"8086"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Base URL used when building signing and attachment links in emails.
	PublicBaseURL string `env:"ESIGN_PUBLIC_BASE_URL" envDefault:"http://localhost:8086"`

	// Bearer token guarding the internal invite/audit endpoints. Empty
	// keeps them closed.
	AdminToken string `env:"ESIGN_ADMIN_TOKEN"`

	// both_signers or any_signer.
	ExecutionPolicy string `env:"ESIGN_EXECUTION_POLICY" envDefault:"both_signers"`

	InviteTTLHours  int `env:"ESIGN_INVITE_TTL_HOURS" envDefault:"168"`
	OTPTTLMinutes   int `env:"ESIGN_OTP_TTL_MINUTES" envDefault:"15"`
	FinalizeTimeout int `env:"ESIGN_FINALIZE_TIMEOUT_SECONDS" envDefault:"30"`

	OTPIPRatePerMinute    int `env:"ESIGN_OTP_IP_RATE_PER_MINUTE" envDefault:"60"`
	OTPTokenRatePerMinute int `env:"ESIGN_OTP_TOKEN_RATE_PER_MINUTE" envDefault:"10"`
	SignIPRatePerMinute   int `env:"ESIGN_SIGN_IP_RATE_PER_MINUTE" envDefault:"30"`

	AWSRegion string `env:"AWS_REGION" envDefault:"us-east-1"`
	FromEmail string `env:"ESIGN_FROM_EMAIL"`
	FromName  string `env:"ESIGN_FROM_NAME" envDefault:"Harbor Contracts"`

	// Exposes plaintext OTP codes in issue-invite responses for
	// integration tests. Never enable in production.
	DevExposeOTP bool `env:"ESIGN_DEV_EXPOSE_OTP" envDefault:"false"`
}

// Load parses configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ExecutionPolicy != "both_signers" && cfg.ExecutionPolicy != "any_signer" {
		return Config{}, fmt.Errorf("invalid ESIGN_EXECUTION_POLICY %q", cfg.ExecutionPolicy)
	}
	return cfg, nil
}
