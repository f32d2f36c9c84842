package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"randobot/cogs"
	"randobot/utils"
	"randobot/zsr"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var botStatus = "starting"

func main() {
	godotenv.Load()

	config, err := utils.LoadConfig(os.Getenv("RANDOBOT_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(config.Log.Level)

	// Start HTTP server for health checks
	go startHealthServer(config.Health.Port)

	apiKey := os.Getenv("OOTR_API_KEY")
	if apiKey == "" {
		log.Error().Msg("OOTR_API_KEY not set - cannot roll seeds")
		botStatus = "no_key"
		// Keep HTTP server running
		select {}
	}

	client := zsr.New(apiKey)
	warmBranches(client)

	manager := cogs.NewManager(
		client,
		nil, // delegation authority is attached by the room host integration
		time.Duration(config.Poll.Interval)*time.Second,
		config.Poll.MaxChecks,
		log.Logger,
	)
	defer manager.Close()

	log.Info().Int("branches", len(client.Branches())).Msg("RandoBot is now running. Press CTRL+C to exit.")
	botStatus = "running"

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Info().Msg("Gracefully shutting down...")
	botStatus = "shutting_down"
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// warmBranches preloads every branch's preset catalog and build version.
// Failures are tolerated; the catalogs refresh lazily on the next roll.
func warmBranches(client *zsr.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, branch := range client.Branches() {
		if err := client.LoadPresets(ctx, branch); err != nil {
			log.Warn().Err(err).Str("branch", branch.Key).Msg("Preset preload failed; will retry on demand")
			continue
		}
		if _, _, err := client.RefreshVersion(ctx, branch); err != nil {
			log.Warn().Err(err).Str("branch", branch.Key).Msg("Version preload failed; will retry on demand")
			continue
		}
		log.Info().
			Str("branch", branch.Key).
			Str("version", branch.Version()).
			Int("presets", len(branch.Presets())).
			Msg("Branch loaded")
	}
}

func startHealthServer(port string) {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf("RandoBot Status: %s", botStatus)))
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		response := fmt.Sprintf(`{"status":"healthy","service":"randobot","bot_status":"%s"}`, botStatus)
		w.Write([]byte(response))
	})

	log.Info().Str("port", port).Msg("Health server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server error")
	}
}
