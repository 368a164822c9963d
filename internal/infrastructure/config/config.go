package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Sensor sources understood by the reading layer.
const (
	SensorSourceSimulated = "simulated"
	SensorSourceMQTT      = "mqtt"
)

// Config is the root configuration structure for GrowWiz.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
	Automation AutomationConfig `yaml:"automation"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Retention  RetentionConfig  `yaml:"retention"`
}

// SiteConfig identifies the grow room this instance controls.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// When disabled, readings must come from the simulator and device
// commands are only logged.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is stdout, stderr, or file (written to FilePath).
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// AccessTokenTTL is in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// AuthConfig describes the single operator account. PasswordHash is an
// argon2id PHC string produced by `growwiz hash-password`.
type AuthConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// RateLimitConfig contains rate limiting settings for control and login routes.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// AutomationConfig controls the evaluation loop.
type AutomationConfig struct {
	// Schedule is a cron spec for periodic cycles, e.g. "@every 30s".
	Schedule string `yaml:"schedule"`
	// ReadingTimeout bounds the reading fetch, in seconds.
	ReadingTimeout int `yaml:"reading_timeout"`
	// TriggerOnReading runs an extra cycle whenever a fresh reading arrives.
	TriggerOnReading bool `yaml:"trigger_on_reading"`
	// SimulateActuators logs device commands instead of publishing them.
	SimulateActuators bool                `yaml:"simulate_actuators"`
	SeedDefaultRules  bool                `yaml:"seed_default_rules"`
	Thresholds        ThresholdsConfig    `yaml:"thresholds"`
	Lights            LightScheduleConfig `yaml:"lights"`
}

// Band is an inclusive numeric range.
type Band struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ThresholdsConfig holds the target band per metric used to seed default rules.
type ThresholdsConfig struct {
	Temperature  Band `yaml:"temperature"`
	Humidity     Band `yaml:"humidity"`
	SoilMoisture Band `yaml:"soil_moisture"`
	CO2          Band `yaml:"co2"`
}

// LightScheduleConfig switches the lights on cron specs. Empty specs disable it.
type LightScheduleConfig struct {
	On  string `yaml:"on"`
	Off string `yaml:"off"`
}

// SensorsConfig selects and tunes the reading source.
type SensorsConfig struct {
	Source         string `yaml:"source"`
	SampleSchedule string `yaml:"sample_schedule"`
	// MaxAge is how long, in seconds, an MQTT reading stays current.
	MaxAge     int              `yaml:"max_age"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// SimulationConfig holds the value ranges produced by the simulator.
type SimulationConfig struct {
	Temperature  Band `yaml:"temperature"`
	Humidity     Band `yaml:"humidity"`
	SoilMoisture Band `yaml:"soil_moisture"`
	CO2          Band `yaml:"co2"`
}

// RetentionConfig controls pruning of readings history and activity.
type RetentionConfig struct {
	Days     int    `yaml:"days"`
	Schedule string `yaml:"schedule"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GROWWIZ_SECTION_KEY
// For example: GROWWIZ_DATABASE_PATH, GROWWIZ_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from flag/env, operator controlled
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration. Used by commands that can
// run without a config file and by tests.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "growroom-1",
			Name:     "GrowWiz",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/growwiz.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "growwiz-core",
			},
			QoS:         1,
			TopicPrefix: "growwiz",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "growwiz",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
			Auth: AuthConfig{
				Username: "admin",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             10,
			},
		},
		Automation: AutomationConfig{
			Schedule:          "@every 30s",
			ReadingTimeout:    5,
			TriggerOnReading:  true,
			SimulateActuators: true,
			SeedDefaultRules:  true,
			Thresholds: ThresholdsConfig{
				Temperature:  Band{Min: 18, Max: 28},
				Humidity:     Band{Min: 40, Max: 60},
				SoilMoisture: Band{Min: 30, Max: 80},
				CO2:          Band{Min: 400, Max: 1200},
			},
		},
		Sensors: SensorsConfig{
			Source:         SensorSourceSimulated,
			SampleSchedule: "@every 60s",
			MaxAge:         300,
			Simulation: SimulationConfig{
				Temperature:  Band{Min: 20, Max: 28},
				Humidity:     Band{Min: 40, Max: 65},
				SoilMoisture: Band{Min: 30, Max: 80},
				CO2:          Band{Min: 400, Max: 1200},
			},
		},
		Retention: RetentionConfig{
			Days:     30,
			Schedule: "@daily",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GROWWIZ_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GROWWIZ_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GROWWIZ_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GROWWIZ_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GROWWIZ_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GROWWIZ_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("GROWWIZ_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GROWWIZ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("GROWWIZ_SENSORS_SOURCE"); v != "" {
		cfg.Sensors.Source = v
	}

	// Secrets belong in the environment (or .env), not in the YAML file.
	if v := os.Getenv("GROWWIZ_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("GROWWIZ_AUTH_PASSWORD_HASH"); v != "" {
		cfg.Security.Auth.PasswordHash = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent checks
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Operator auth: a forged token could switch heaters and pumps, so
	// the secret must be long enough to resist brute force.
	const minJWTSecretLength = 32
	if c.Security.Auth.Enabled {
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required when auth is enabled (set GROWWIZ_JWT_SECRET)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
		if c.Security.Auth.Username == "" {
			errs = append(errs, "security.auth.username is required when auth is enabled")
		}
		if c.Security.Auth.PasswordHash == "" {
			errs = append(errs, "security.auth.password_hash is required when auth is enabled")
		}
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be positive")
	}

	errs = append(errs, validateSchedule("automation.schedule", c.Automation.Schedule, true)...)
	errs = append(errs, validateSchedule("automation.lights.on", c.Automation.Lights.On, false)...)
	errs = append(errs, validateSchedule("automation.lights.off", c.Automation.Lights.Off, false)...)
	errs = append(errs, validateSchedule("sensors.sample_schedule", c.Sensors.SampleSchedule, true)...)
	errs = append(errs, validateSchedule("retention.schedule", c.Retention.Schedule, false)...)

	if (c.Automation.Lights.On == "") != (c.Automation.Lights.Off == "") {
		errs = append(errs, "automation.lights.on and automation.lights.off must be set together")
	}

	if c.Automation.ReadingTimeout <= 0 {
		errs = append(errs, "automation.reading_timeout must be positive")
	}

	errs = append(errs, validateBand("automation.thresholds.temperature", c.Automation.Thresholds.Temperature)...)
	errs = append(errs, validateBand("automation.thresholds.humidity", c.Automation.Thresholds.Humidity)...)
	errs = append(errs, validateBand("automation.thresholds.soil_moisture", c.Automation.Thresholds.SoilMoisture)...)
	errs = append(errs, validateBand("automation.thresholds.co2", c.Automation.Thresholds.CO2)...)

	switch c.Sensors.Source {
	case SensorSourceSimulated:
		errs = append(errs, validateBand("sensors.simulation.temperature", c.Sensors.Simulation.Temperature)...)
		errs = append(errs, validateBand("sensors.simulation.humidity", c.Sensors.Simulation.Humidity)...)
		errs = append(errs, validateBand("sensors.simulation.soil_moisture", c.Sensors.Simulation.SoilMoisture)...)
		errs = append(errs, validateBand("sensors.simulation.co2", c.Sensors.Simulation.CO2)...)
	case SensorSourceMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "sensors.source mqtt requires mqtt.enabled")
		}
		if c.Sensors.MaxAge <= 0 {
			errs = append(errs, "sensors.max_age must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("sensors.source must be %q or %q", SensorSourceSimulated, SensorSourceMQTT))
	}

	if c.Retention.Days < 0 {
		errs = append(errs, "retention.days must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validateSchedule(field, spec string, required bool) []string {
	if spec == "" {
		if required {
			return []string{field + " is required"}
		}
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return []string{fmt.Sprintf("%s: invalid schedule %q: %v", field, spec, err)}
	}
	return nil
}

func validateBand(field string, b Band) []string {
	if b.Min >= b.Max {
		return []string{field + ": min must be less than max"}
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetReadingTimeout returns the bound on a single reading fetch.
func (c *Config) GetReadingTimeout() time.Duration {
	return time.Duration(c.Automation.ReadingTimeout) * time.Second
}

// GetReadingMaxAge returns how long an ingested reading remains current.
func (c *Config) GetReadingMaxAge() time.Duration {
	return time.Duration(c.Sensors.MaxAge) * time.Second
}

// GetAccessTokenTTL returns the operator token lifetime.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}

// SimulationMode reports whether the controller runs without real hardware:
// simulated readings or logged-only actuators.
func (c *Config) SimulationMode() bool {
	return c.Sensors.Source == SensorSourceSimulated || c.Automation.SimulateActuators || !c.MQTT.Enabled
}
