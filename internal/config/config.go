package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "JISC"
	defaultEnvironment     = "development"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "jisc.db"
	defaultLogLevel        = "info"
	defaultFrontendURL     = "http://localhost:3000"
	defaultMagicTTLMinutes = 15
	defaultSessionTTLHours = 168
	defaultSMTPPort        = 587
	defaultMailFromName    = "JISC"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	Environment        string
	HTTPAddress        string
	DatabasePath       string
	LogLevel           string
	SigningSecret      string
	FrontendURL        string
	MagicTokenTTL      time.Duration
	SessionTokenTTL    time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	MailFrom           string
	MailFromName       string
	SMTPTLS            bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("environment", defaultEnvironment)
	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("frontend.url", defaultFrontendURL)
	configViper.SetDefault("auth.magic_ttl_minutes", defaultMagicTTLMinutes)
	configViper.SetDefault("auth.session_ttl_hours", defaultSessionTTLHours)
	configViper.SetDefault("smtp.port", defaultSMTPPort)
	configViper.SetDefault("smtp.tls", true)
	configViper.SetDefault("mail.from_name", defaultMailFromName)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		Environment:        configViper.GetString("environment"),
		HTTPAddress:        configViper.GetString("http.address"),
		DatabasePath:       configViper.GetString("database.path"),
		LogLevel:           configViper.GetString("log.level"),
		SigningSecret:      configViper.GetString("auth.signing_secret"),
		FrontendURL:        configViper.GetString("frontend.url"),
		MagicTokenTTL:      time.Duration(configViper.GetInt("auth.magic_ttl_minutes")) * time.Minute,
		SessionTokenTTL:    time.Duration(configViper.GetInt("auth.session_ttl_hours")) * time.Hour,
		GoogleClientID:     configViper.GetString("google.client_id"),
		GoogleClientSecret: configViper.GetString("google.client_secret"),
		GoogleRedirectURL:  configViper.GetString("google.redirect_url"),
		SMTPHost:           configViper.GetString("smtp.host"),
		SMTPPort:           configViper.GetInt("smtp.port"),
		SMTPUsername:       configViper.GetString("smtp.username"),
		SMTPPassword:       configViper.GetString("smtp.password"),
		MailFrom:           configViper.GetString("mail.from"),
		MailFromName:       configViper.GetString("mail.from_name"),
		SMTPTLS:            configViper.GetBool("smtp.tls"),
	}

	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = strings.TrimSuffix(cfg.FrontendURL, "/") + "/auth/google/callback"
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.FrontendURL) == "" {
		return fmt.Errorf("frontend.url is required")
	}
	if c.MagicTokenTTL <= 0 {
		return fmt.Errorf("auth.magic_ttl_minutes must be positive")
	}
	if c.SessionTokenTTL <= 0 {
		return fmt.Errorf("auth.session_ttl_hours must be positive")
	}
	return nil
}
