// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the fully-resolved configuration for the orchestrator.
// Every field enumerated in spec.md §6 has a home here, plus the additions
// the expanded scope needs (CRM, notifier, token cache, recovery sweep).
type AppConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"required"`

	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`

	DBPath string `mapstructure:"db_path" validate:"required"`

	PublicURL   string `mapstructure:"public_url" validate:"required"`
	RoutePrefix string `mapstructure:"route_prefix"`

	MaxActiveCalls        int           `mapstructure:"max_active_calls" validate:"required,min=1"`
	QueueIntervalMs       int           `mapstructure:"queue_interval_ms" validate:"required,min=5000"`
	MaxAttempts           int           `mapstructure:"max_attempts" validate:"required,min=1"`
	CivilTimezone         string        `mapstructure:"civil_timezone" validate:"required"`
	StaleInFlightMinutes  int           `mapstructure:"stale_inflight_minutes" validate:"min=0"`
	RingTimeout           time.Duration `mapstructure:"-"`
	CallTimeLimit         time.Duration `mapstructure:"-"`

	SourcePhone string `mapstructure:"source_phone" validate:"required"`

	CarrierProvider  string `mapstructure:"carrier_provider" validate:"required,oneof=twilio vonage"`
	CarrierAccountID string `mapstructure:"carrier_account_id"`
	CarrierAuthToken string `mapstructure:"carrier_auth_token"`

	AgentID         string `mapstructure:"agent_id"`
	AgentAPIKey     string `mapstructure:"agent_api_key"`
	AgentSignedURL  string `mapstructure:"agent_signed_url"`

	CRMBaseURL     string `mapstructure:"crm_base_url"`
	CRMClientID    string `mapstructure:"crm_client_id"`
	CRMClientSecret string `mapstructure:"crm_client_secret"`

	NotifierWebhookURL string `mapstructure:"notifier_webhook_url"`

	RedisAddr string `mapstructure:"redis_addr"`

	JWTSigningSecret string `mapstructure:"jwt_signing_secret" validate:"required"`
}

// InitConfig loads configuration the way the platform's other services do:
// viper over a dotenv-style file (overridable with ENV_PATH), automatic env
// var binding, and a defaults pass before the final read.
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)

	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("reading configuration from environment variables only: %v", err)
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PATH", "outbound-dialer.db")
	v.SetDefault("ROUTE_PREFIX", "/outgoing")

	v.SetDefault("MAX_ACTIVE_CALLS", 3)
	v.SetDefault("QUEUE_INTERVAL_MS", 10000)
	v.SetDefault("MAX_ATTEMPTS", 10)
	v.SetDefault("CIVIL_TIMEZONE", "Europe/Rome")
	v.SetDefault("STALE_INFLIGHT_MINUTES", 5)

	v.SetDefault("CARRIER_PROVIDER", "twilio")
}

// GetApplicationConfig unmarshals and validates the resolved config.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.QueueIntervalMs < 5000 {
		cfg.QueueIntervalMs = 5000 // §4.4: minimum enforced 5s
	}
	cfg.RingTimeout = 25 * time.Second
	cfg.CallTimeLimit = 900 * time.Second

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// QueueInterval returns the scheduler tick interval as a time.Duration.
func (c *AppConfig) QueueInterval() time.Duration {
	return time.Duration(c.QueueIntervalMs) * time.Millisecond
}

// StaleInFlightThreshold returns how long a row may sit `in-flight` before
// the startup sweep reclaims it.
func (c *AppConfig) StaleInFlightThreshold() time.Duration {
	if c.StaleInFlightMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.StaleInFlightMinutes) * time.Minute
}
