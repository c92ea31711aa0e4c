package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mr1hm/go-quake-alerts/internal/models"
)

type Config struct {
	Server   ServerConfig
	MQTT     MQTTConfig
	Snapshot SnapshotConfig
	Store    StoreConfig
	Worker   WorkerConfig
	Alerts   AlertsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int // requests per second, global
}

type MQTTConfig struct {
	BrokerURL      string
	Topic          string
	ClientIDPrefix string
	ConnectTimeout time.Duration
}

type SnapshotConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Limit    int
	Fallback bool // serve the built-in placeholder event when the seed fetch fails
}

type StoreConfig struct {
	Capacity int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

// AlertsConfig seeds the notification settings; the settings API mutates
// them afterwards.
type AlertsConfig struct {
	Enabled          bool
	MinimumMagnitude float64
	MaxDistanceKm    float64
	EnableSound      bool
	EnableVibration  bool
	QuietHours       bool
	QuietStartHour   int
	QuietEndHour     int
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("API_RATE_LIMIT", 5),
		},
		MQTT: MQTTConfig{
			BrokerURL:      getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
			Topic:          getEnv("MQTT_TOPIC", "earthquakes/alerts"),
			ClientIDPrefix: getEnv("MQTT_CLIENT_ID_PREFIX", "quake-alert"),
			ConnectTimeout: getEnvDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second),
		},
		Snapshot: SnapshotConfig{
			BaseURL:  getEnv("SNAPSHOT_BASE_URL", "http://localhost:51763/api"),
			Timeout:  getEnvDuration("SNAPSHOT_TIMEOUT", 10*time.Second),
			Limit:    getEnvInt("SNAPSHOT_LIMIT", 30),
			Fallback: getEnvBool("SNAPSHOT_FALLBACK", false),
		},
		Store: StoreConfig{
			Capacity: getEnvInt("STORE_CAPACITY", 100),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 1),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 64),
		},
		Alerts: AlertsConfig{
			Enabled:          getEnvBool("ALERTS_ENABLED", true),
			MinimumMagnitude: getEnvFloat("ALERTS_MIN_MAGNITUDE", 4.0),
			MaxDistanceKm:    getEnvFloat("ALERTS_MAX_DISTANCE_KM", 500),
			EnableSound:      getEnvBool("ALERTS_SOUND", true),
			EnableVibration:  getEnvBool("ALERTS_VIBRATION", true),
			QuietHours:       getEnvBool("ALERTS_QUIET_HOURS", false),
			QuietStartHour:   getEnvInt("ALERTS_QUIET_START_HOUR", 22),
			QuietEndHour:     getEnvInt("ALERTS_QUIET_END_HOUR", 7),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NotificationSettings builds the initial settings from the alert defaults.
func (c *Config) NotificationSettings() models.NotificationSettings {
	return models.NotificationSettings{
		Enabled:          c.Alerts.Enabled,
		MinimumMagnitude: c.Alerts.MinimumMagnitude,
		MaxDistance:      c.Alerts.MaxDistanceKm,
		EnableSound:      c.Alerts.EnableSound,
		EnableVibration:  c.Alerts.EnableVibration,
		QuietHours: models.QuietHours{
			Enabled:   c.Alerts.QuietHours,
			StartHour: c.Alerts.QuietStartHour,
			EndHour:   c.Alerts.QuietEndHour,
		},
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Store.Capacity < 1 {
		return fmt.Errorf("store capacity must be at least 1, got %d", c.Store.Capacity)
	}
	if c.Snapshot.Limit < 1 || c.Snapshot.Limit > 500 {
		return fmt.Errorf("snapshot limit must be in [1, 500], got %d", c.Snapshot.Limit)
	}

	if h := c.Alerts.QuietStartHour; h < 0 || h > 23 {
		return fmt.Errorf("quiet start hour must be in [0, 23], got %d", h)
	}
	if h := c.Alerts.QuietEndHour; h < 0 || h > 23 {
		return fmt.Errorf("quiet end hour must be in [0, 23], got %d", h)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
