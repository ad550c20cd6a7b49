package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"darksky-relay/internal/api"
	"darksky-relay/internal/climacell"
	"darksky-relay/internal/httputil"
	"darksky-relay/internal/noaa"
	"darksky-relay/internal/relay"
	"darksky-relay/internal/store"
)

type cli struct {
	DB           string `help:"Path to the SQLite snapshot database." default:"data/darksky-relay.db" env:"RELAY_DB"`
	Port         string `help:"HTTP listen port." default:"8080" env:"RELAY_PORT"`
	UserAgent    string `help:"Contact string sent to NOAA in the User-Agent header." default:"darksky-relay (https://github.com/darksky-relay)" env:"RELAY_USER_AGENT"`
	NOAAURL      string `help:"NOAA API base URL." name:"noaa-url" default:"https://api.weather.gov" env:"RELAY_NOAA_URL"`
	ClimacellURL string `help:"ClimaCell API base URL." default:"https://api.climacell.co/v3/weather" env:"RELAY_CLIMACELL_URL"`
	LogLevel     string `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"RELAY_LOG_LEVEL"`
}

func main() {
	var flags cli
	kong.Parse(&flags,
		kong.Name("darksky-relay"),
		kong.Description("DarkSky-compatible forecast API backed by NOAA and ClimaCell."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	logger := newLogger(flags.LogLevel)

	db, err := sql.Open("sqlite", flags.DB)
	if err != nil {
		logger.Error("open database", "path", flags.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	snapshots := store.New(db)
	if err := snapshots.Migrate(); err != nil {
		logger.Error("migrate database", "error", err)
		os.Exit(1)
	}

	httpClient := httputil.NewClient()
	primary := noaa.NewAdapter(noaa.NewClient(flags.NOAAURL, flags.UserAgent, httpClient), logger)
	secondary := climacell.NewAdapter(climacell.NewClient(flags.ClimacellURL, httpClient), logger)
	service := relay.NewService(primary, secondary, snapshots, logger)
	server := api.NewServer(service, logger, flags.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx); err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
