package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/growwiz/growwiz-core/internal/api"
	"github.com/growwiz/growwiz-core/internal/audit"
	"github.com/growwiz/growwiz-core/internal/auth"
	"github.com/growwiz/growwiz-core/internal/automation"
	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
	"github.com/growwiz/growwiz-core/internal/infrastructure/database"
	"github.com/growwiz/growwiz-core/internal/infrastructure/influxdb"
	"github.com/growwiz/growwiz-core/internal/infrastructure/logging"
	"github.com/growwiz/growwiz-core/internal/infrastructure/mqtt"
	"github.com/growwiz/growwiz-core/internal/reading"
	"github.com/growwiz/growwiz-core/migrations"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GrowWiz service",
	Long: `Start the automation controller, sensor sampling, schedules and the
HTTP/WebSocket API. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return run(cmd.Context(), getConfigPath())
}

// run is the actual application logic, separated from main for testability.
// It blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // linear start-up sequence
	log := logging.Default()
	log.Info("starting GrowWiz",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	healthChecks := map[string]api.HealthChecker{"database": db}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		healthChecks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err, "failed_writes", influxClient.FailedWrites())
		})
		healthChecks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device registry
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	if mqttClient != nil && !cfg.Automation.SimulateActuators {
		registry.SetActuator(device.NewMQTTActuator(mqttClient, mqttClient.Topics(), mqttClient.QoS()))
		log.Info("device commands published over MQTT")
	} else {
		registry.SetActuator(device.NewSimulatedActuator(log))
		log.Info("device commands simulated")
	}
	if mqttClient != nil {
		registry.OnChange(device.NewStatePublisher(mqttClient, mqttClient.Topics(), mqttClient.QoS(), log).Publish)
	}
	if influxClient != nil {
		registry.OnChange(func(d device.Device) {
			at := time.Now()
			if d.LastChanged != nil {
				at = *d.LastChanged
			}
			influxClient.WriteDeviceState(string(d.ID), d.On, d.LastChangedBy, at)
		})
	}

	// Rules
	rules := automation.NewStore(automation.NewSQLiteRepository(db.DB))
	rules.SetLogger(log)
	if refreshErr := rules.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading rules: %w", refreshErr)
	}
	if cfg.Automation.SeedDefaultRules {
		seeded, seedErr := automation.SeedDefaults(ctx, rules, cfg.Automation.Thresholds)
		if seedErr != nil {
			return fmt.Errorf("seeding default rules: %w", seedErr)
		}
		if seeded > 0 {
			log.Info("default rules seeded", "count", seeded)
		}
	}
	total, enabled := rules.Count()
	log.Info("rule store initialised", "rules", total, "enabled", enabled)

	activity := audit.NewLog(audit.NewSQLiteRepository(db.DB))
	activity.SetLogger(log)

	hub := api.NewHub(cfg.WebSocket, log)

	// Sensor readings
	var mqttSource *reading.MQTTSource
	var provider reading.Provider
	switch cfg.Sensors.Source {
	case config.SensorSourceMQTT:
		mqttSource = reading.NewMQTTSource(cfg.GetReadingMaxAge())
		if startErr := mqttSource.Start(mqttClient, mqttClient.Topics().SensorReading(), mqttClient.QoS()); startErr != nil {
			return fmt.Errorf("starting sensor subscription: %w", startErr)
		}
		provider = mqttSource
		log.Info("sensor readings from MQTT", "topic", mqttClient.Topics().SensorReading())
	default:
		provider = reading.NewSimulator(cfg.Sensors.Simulation)
		log.Info("sensor readings simulated")
	}

	history := reading.NewSQLiteRepository(db.DB)
	recorder := reading.NewRecorder(provider, history, activity, log)
	recorder.SetBroadcaster(hub)
	recorder.SetTimeout(cfg.GetReadingTimeout())
	if influxClient != nil {
		recorder.SetTelemetry(influxClient)
	}

	// Automation
	controller := automation.NewController(registry, rules, provider, activity, hub, log)
	controller.SetReadingTimeout(cfg.GetReadingTimeout())

	scheduler := automation.NewScheduler(controller, log)
	if schedErr := configureSchedules(cfg, scheduler, recorder, db, activity, history); schedErr != nil {
		return schedErr
	}
	if mqttSource != nil && cfg.Automation.TriggerOnReading {
		mqttSource.OnReading(func(reading.Reading) { scheduler.Trigger() })
	}

	// Operator auth
	var authenticator *auth.Authenticator
	if cfg.Security.Auth.Enabled {
		authenticator = auth.NewAuthenticator(
			cfg.Security.Auth.Username,
			cfg.Security.Auth.PasswordHash,
			auth.NewTokenIssuer(cfg.Security.JWT.Secret, cfg.GetAccessTokenTTL()),
		)
		log.Info("operator authentication enabled", "username", cfg.Security.Auth.Username)
	} else {
		log.Warn("operator authentication disabled; mutating API routes are open")
	}

	server, err := api.New(api.Deps{
		Config:         cfg.API,
		WS:             cfg.WebSocket,
		Security:       cfg.Security,
		Logger:         log,
		Registry:       registry,
		Controller:     controller,
		Rules:          rules,
		Activity:       activity,
		Readings:       provider,
		History:        history,
		Auth:           authenticator,
		Hub:            hub,
		HealthChecks:   healthChecks,
		SimulationMode: cfg.SimulationMode(),
		Site:           cfg.Site.Name,
		Version:        version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	mode := "hardware"
	if cfg.SimulationMode() {
		mode = "simulation"
	}
	activity.Record(ctx, audit.TypeSystem, fmt.Sprintf("GrowWiz %s started in %s mode", version, mode), "", "")
	log.Info("initialisation complete, waiting for shutdown signal", "mode", mode)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	activity.Record(context.WithoutCancel(ctx), audit.TypeSystem, "GrowWiz stopped", "", "")

	// Deferred calls run in reverse order: scheduler, API server,
	// InfluxDB, MQTT, database.
	log.Info("GrowWiz stopped")
	return nil
}

// configureSchedules registers the cycle, sampling, light and retention jobs.
func configureSchedules(cfg *config.Config, scheduler *automation.Scheduler, sampler automation.Sampler,
	db *database.DB, pruners ...automation.Pruner,
) error {
	if err := scheduler.ScheduleCycles(cfg.Automation.Schedule); err != nil {
		return fmt.Errorf("scheduling automation cycles: %w", err)
	}
	if err := scheduler.ScheduleSampling(cfg.Sensors.SampleSchedule, sampler); err != nil {
		return fmt.Errorf("scheduling sensor sampling: %w", err)
	}
	if cfg.Automation.Lights.On != "" {
		if err := scheduler.ScheduleLights(cfg.Automation.Lights.On, cfg.Automation.Lights.Off); err != nil {
			return fmt.Errorf("scheduling lights: %w", err)
		}
	}
	if cfg.Retention.Days > 0 && cfg.Retention.Schedule != "" {
		keep := time.Duration(cfg.Retention.Days) * 24 * time.Hour
		if err := scheduler.ScheduleRetention(cfg.Retention.Schedule, keep, db.Optimize, pruners...); err != nil {
			return fmt.Errorf("scheduling retention: %w", err)
		}
	}
	return nil
}
