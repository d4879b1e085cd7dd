// Music Gateway
//
// This is the main entry point for the music gateway. It speaks the
// legacy audio-server protocol to a building controller over HTTP and
// WebSocket, and translates each command into calls against a modern
// music-control REST backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/music-gateway/internal/api"
	"github.com/nerrad567/music-gateway/internal/audit"
	"github.com/nerrad567/music-gateway/internal/discovery"
	"github.com/nerrad567/music-gateway/internal/gateway"
	"github.com/nerrad567/music-gateway/internal/infrastructure/config"
	"github.com/nerrad567/music-gateway/internal/infrastructure/database"
	"github.com/nerrad567/music-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/music-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/music-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/music-gateway/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the components together and blocks until ctx is cancelled.
// Deferred closes run in reverse order of opening.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting music gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"gateway", cfg.Gateway.URL,
		"zones", cfg.Zones.Count,
	)

	backend := gateway.New(cfg.Gateway)
	backend.SetLogger(log.With("component", "gateway"))

	deps := api.Deps{
		Config:  cfg,
		Logger:  log,
		Gateway: backend,
		Version: version,
	}

	// Command journal (optional)
	if cfg.Database.Enabled {
		db, dbErr := openJournal(ctx, cfg.Database)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		deps.Journal = audit.NewSQLiteRepository(db.DB)
		log.Info("command journal enabled", "path", db.Path())
	}

	// MQTT state mirror (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.With("component", "mqtt"))
		defer func() {
			log.Info("closing MQTT connection")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		deps.Mirror = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", cfg.MQTT.TopicPrefix,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB playback telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		deps.Telemetry = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing server", "error", closeErr)
		}
	}()

	// A backend that is down at startup is not fatal: zones keep their
	// defaults and pick up state with the first command.
	if syncErr := srv.Zones().SyncAll(ctx, cfg.Zones.SyncConcurrency); syncErr != nil {
		log.Warn("initial zone sync incomplete", "error", syncErr)
	} else {
		log.Info("zones synchronised", "count", srv.Zones().Count())
	}

	if mqttClient != nil {
		if err := mqttClient.SubscribeZoneCommands(srv.HandleMQTTCommand); err != nil {
			return fmt.Errorf("subscribing to zone commands: %w", err)
		}
	}

	// mDNS announcement (optional)
	if cfg.Discovery.Enabled {
		announcer, annErr := discovery.Announce(cfg.Discovery.Instance, cfg.Server.Port)
		if annErr != nil {
			log.Warn("mDNS announcement failed", "error", annErr)
		} else {
			defer func() {
				log.Info("withdrawing mDNS announcement")
				announcer.Close()
			}()
			log.Info("announced via mDNS", "instance", announcer.Instance(), "port", announcer.Port())
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("music gateway stopped")
	return nil
}

// getConfigPath returns MUSICGATEWAY_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("MUSICGATEWAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openJournal opens the SQLite database and brings its schema up to date.
func openJournal(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}
