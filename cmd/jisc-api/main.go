package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jisc/backend/internal/athletes"
	"github.com/jisc/backend/internal/auth"
	"github.com/jisc/backend/internal/config"
	"github.com/jisc/backend/internal/database"
	"github.com/jisc/backend/internal/logging"
	"github.com/jisc/backend/internal/mailer"
	"github.com/jisc/backend/internal/server"
	"github.com/jisc/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jisc-api",
		Short: "JISC backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("frontend-url", defaults.GetString("frontend.url"), "Front-end base URL for auth redirects and magic links")
	cmd.PersistentFlags().String("google-client-id", defaults.GetString("google.client_id"), "Google OAuth client ID")
	cmd.PersistentFlags().String("google-client-secret", "", "Google OAuth client secret (overrides env)")
	cmd.PersistentFlags().String("google-redirect-url", defaults.GetString("google.redirect_url"), "Google OAuth redirect URL")
	cmd.PersistentFlags().Int("magic-ttl-minutes", defaults.GetInt("auth.magic_ttl_minutes"), "Magic link token TTL in minutes")
	cmd.PersistentFlags().Int("session-ttl-hours", defaults.GetInt("auth.session_ttl_hours"), "Session token TTL in hours")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")
	cmd.PersistentFlags().String("smtp-host", defaults.GetString("smtp.host"), "SMTP relay host")
	cmd.PersistentFlags().Int("smtp-port", defaults.GetInt("smtp.port"), "SMTP relay port")
	cmd.PersistentFlags().String("mail-from", defaults.GetString("mail.from"), "From address for outbound mail")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "frontend.url", "frontend-url")
	bindFlag(cmd, "google.client_id", "google-client-id")
	bindFlag(cmd, "google.client_secret", "google-client-secret")
	bindFlag(cmd, "google.redirect_url", "google-redirect-url")
	bindFlag(cmd, "auth.magic_ttl_minutes", "magic-ttl-minutes")
	bindFlag(cmd, "auth.session_ttl_hours", "session-ttl-hours")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "smtp.host", "smtp-host")
	bindFlag(cmd, "smtp.port", "smtp-port")
	bindFlag(cmd, "mail.from", "mail-from")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	userStore, err := users.NewStore(db)
	if err != nil {
		return err
	}
	resolver, err := users.NewResolver(userStore)
	if err != nil {
		return err
	}
	athleteService, err := athletes.NewService(db)
	if err != nil {
		return err
	}

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "jisc-api",
		MagicTTL:      appConfig.MagicTokenTTL,
		SessionTTL:    appConfig.SessionTokenTTL,
	})
	if err != nil {
		return err
	}

	smtpMailer, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     appConfig.SMTPHost,
		Port:     appConfig.SMTPPort,
		Username: appConfig.SMTPUsername,
		Password: appConfig.SMTPPassword,
		From:     appConfig.MailFrom,
		FromName: appConfig.MailFromName,
		TLS:      appConfig.SMTPTLS,
	})
	if err != nil {
		return err
	}

	magicLink, err := auth.NewMagicLinkService(auth.MagicLinkConfig{
		Tokens:      tokenIssuer,
		Resolver:    resolver,
		Store:       userStore,
		Mailer:      smtpMailer,
		FrontendURL: appConfig.FrontendURL,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	googleFlow, err := auth.NewGoogleService(auth.GoogleConfig{
		ClientID:     appConfig.GoogleClientID,
		ClientSecret: appConfig.GoogleClientSecret,
		RedirectURL:  appConfig.GoogleRedirectURL,
		Resolver:     resolver,
		Tokens:       tokenIssuer,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		MagicLink:   magicLink,
		Google:      googleFlow,
		Sessions:    tokenIssuer,
		Users:       userStore,
		Athletes:    athleteService,
		FrontendURL: appConfig.FrontendURL,
		Environment: appConfig.Environment,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
