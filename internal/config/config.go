package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "battlegrid.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings.
// An empty Path keeps the database in memory and dumps it to DumpPath after
// every battle, every DumpInterval and on close. A zero interval disables the
// periodic dump.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds connection settings for the postgres backend.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// InfluxConfig holds InfluxDB v2 settings.
type InfluxConfig struct {
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// URL returns the server URL built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string
	Memory   MemoryConfig
	SQLite   SQLiteConfig
	Postgres PostgresConfig
	Influx   InfluxConfig
}

// BattleConfig holds the parameters of a generated battle.
type BattleConfig struct {
	Name        string
	MaxPoints   int
	Seed        int64
	MaxRounds   int
	CatalogPath string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled         bool
	ServiceName     string
	BatchTimeout    time.Duration
	Endpoint        string
	Insecure        bool
	MetricsInterval time.Duration
}

// SetDefaults registers every default value. Load calls it before reading the
// file, so defaults apply even when no config file exists.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("battle.name", "Skirmish")
	viper.SetDefault("battle.maxPoints", 1500)
	viper.SetDefault("battle.seed", 0)
	viper.SetDefault("battle.maxRounds", 0)
	viper.SetDefault("catalog.path", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./battles")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "battlegrid")

	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "battlegrid")
	viper.SetDefault("influx.bucket", "battles")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "battlegrid")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metricsInterval", "15s")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		Influx: InfluxConfig{
			Host:     viper.GetString("influx.host"),
			Port:     viper.GetString("influx.port"),
			Protocol: viper.GetString("influx.protocol"),
			Token:    viper.GetString("influx.token"),
			Org:      viper.GetString("influx.org"),
			Bucket:   viper.GetString("influx.bucket"),
		},
	}
}

// GetBattleConfig returns the battle and catalog sections.
func GetBattleConfig() BattleConfig {
	return BattleConfig{
		Name:        viper.GetString("battle.name"),
		MaxPoints:   viper.GetInt("battle.maxPoints"),
		Seed:        viper.GetInt64("battle.seed"),
		MaxRounds:   viper.GetInt("battle.maxRounds"),
		CatalogPath: viper.GetString("catalog.path"),
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:         viper.GetBool("otel.enabled"),
		ServiceName:     viper.GetString("otel.serviceName"),
		BatchTimeout:    viper.GetDuration("otel.batchTimeout"),
		Endpoint:        viper.GetString("otel.endpoint"),
		Insecure:        viper.GetBool("otel.insecure"),
		MetricsInterval: viper.GetDuration("otel.metricsInterval"),
	}
}
