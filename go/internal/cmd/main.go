package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	settings, err := loadSettings()
	if settings != nil {
		setupLogging(settings.LogLevel, settings.LogFormat)
	} else {
		setupLogging(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "console"))
	}
	if envErr != nil {
		log.Warn().Err(envErr).Msg("could not load .env file")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	services, err := setupServices(settings)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go services.Connections.Start(ctx)
	go services.Games.Run(ctx)

	server := setupServer(services, settings.Port)
	go func() {
		log.Info().
			Str("port", settings.Port).
			Str("client_url", settings.ClientURL).
			Dur("tick_interval", settings.Config.Game.TickInterval).
			Msg("cardclash server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// setupLogging configures the global zerolog logger. Anything but
// format "json" gets the console writer.
func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
