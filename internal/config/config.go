package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for whatsup.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	LogLevel  string          `toml:"log_level"` // "debug", "info" (default), "warn", "error"
	Database  DatabaseConfig  `toml:"database"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Fetch     FetchConfig     `toml:"fetch"`
	Notifier  NotifierConfig  `toml:"notifier"`
	InFlight  InFlightConfig  `toml:"inflight"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// DatabaseConfig represents configuration for the watch database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// SchedulerConfig controls the check cycle.
type SchedulerConfig struct {
	Tick          Duration `toml:"tick"`           // how often a cycle starts
	CheckInterval Duration `toml:"check_interval"` // minimum time between checks of one watch
	BatchSize     int      `toml:"batch_size"`     // max watches per cycle
	Concurrency   int      `toml:"concurrency"`    // max fetches in flight
	FetchTimeout  Duration `toml:"fetch_timeout"`
}

// FetchConfig controls the HTTP fetcher.
type FetchConfig struct {
	UserAgent    string `toml:"user_agent"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// NotifierConfig selects where notifications go.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type NotifierConfig struct {
	Type string `toml:"type"` // "log" (default) or "mqtt"

	// MQTT-specific fields (only used when Type == "mqtt")
	MQTTBroker      string `toml:"mqtt_broker,omitempty"`
	MQTTClientID    string `toml:"mqtt_client_id,omitempty"`
	MQTTUsername    string `toml:"mqtt_username,omitempty"`
	MQTTPassword    string `toml:"mqtt_password,omitempty"`
	MQTTTopicPrefix string `toml:"mqtt_topic_prefix,omitempty"`
	MQTTQoS         byte   `toml:"mqtt_qos,omitempty"`
}

// InFlightConfig selects how watches being checked are tracked.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type InFlightConfig struct {
	Type     string   `toml:"type"` // "memory" (default) or "redis"
	LeaseTTL Duration `toml:"lease_ttl"`

	// Redis-specific fields (only used when Type == "redis")
	RedisAddr      string `toml:"redis_addr,omitempty"`
	RedisPassword  string `toml:"redis_password,omitempty"`
	RedisDB        int    `toml:"redis_db,omitempty"`
	RedisKeyPrefix string `toml:"redis_key_prefix,omitempty"`
}

// MetricsConfig controls the metrics endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// Duration is a time.Duration that reads and writes as a string like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig creates a new Config rooted at baseDir with every default filled in.
func NewConfig(baseDir string) *Config {
	cfg := &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	setDuration(&c.Scheduler.Tick, time.Minute)
	setDuration(&c.Scheduler.CheckInterval, 10*time.Minute)
	setDuration(&c.Scheduler.FetchTimeout, 10*time.Second)
	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = 50
	}
	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = 5
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "whatsup/1.0"
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		c.Fetch.MaxBodyBytes = 4 << 20
	}
	if c.Notifier.Type == "" {
		c.Notifier.Type = "log"
	}
	if c.InFlight.Type == "" {
		c.InFlight.Type = "memory"
	}
	// Leases are renewed when a fetch gets its slot; the default also spans
	// the queue wait of a full batch so queued watches rarely lose theirs.
	setDuration(&c.InFlight.LeaseTTL, c.queueWait()+time.Minute)
}

// queueWait is the longest a watch of one full batch can wait for a fetch
// slot and then fetch: ceil(batch/concurrency) fetch timeouts.
func (c *Config) queueWait() time.Duration {
	rounds := (c.Scheduler.BatchSize + c.Scheduler.Concurrency - 1) / c.Scheduler.Concurrency
	return time.Duration(rounds) * c.Scheduler.FetchTimeout.Duration
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level: %s", c.LogLevel)
	}
	if c.Scheduler.Tick.Duration <= 0 {
		return fmt.Errorf("scheduler.tick must be positive")
	}
	if c.InFlight.LeaseTTL.Duration <= c.Scheduler.FetchTimeout.Duration {
		return fmt.Errorf("inflight.lease_ttl (%s) must exceed scheduler.fetch_timeout (%s)",
			c.InFlight.LeaseTTL, c.Scheduler.FetchTimeout)
	}
	if c.Notifier.Type == "mqtt" && c.Notifier.MQTTBroker == "" {
		return fmt.Errorf("mqtt notifier requires mqtt_broker to be set")
	}
	if c.InFlight.Type == "redis" && c.InFlight.RedisAddr == "" {
		return fmt.Errorf("redis in-flight tracker requires redis_addr to be set")
	}
	return nil
}

func setDuration(d *Duration, def time.Duration) {
	if d.Duration <= 0 {
		d.Duration = def
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and applies defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
