package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the file Load looks for in the config directory.
const ConfigFileName = "shipcore.cfg.json"

// ShipConfig holds the energy model tuning shared by all vessels.
type ShipConfig struct {
	ShieldRegenRate      float64 `json:"shieldRegenRate" mapstructure:"shieldRegenRate"`
	WeaponRegenRate      float64 `json:"weaponRegenRate" mapstructure:"weaponRegenRate"`
	AfterburnerRegenRate float64 `json:"afterburnerRegenRate" mapstructure:"afterburnerRegenRate"`
	AfterburnerBurnRate  float64 `json:"afterburnerBurnRate" mapstructure:"afterburnerBurnRate"`
}

// LifecycleConfig holds the arrival/departure/destruction stage durations.
type LifecycleConfig struct {
	ArrivalStage   time.Duration
	DepartureStage time.Duration
	Death          time.Duration
	Cleanup        time.Duration
}

// CombatConfig holds the combat sub-state countdowns.
type CombatConfig struct {
	DeathRoll    time.Duration
	PreExplosion time.Duration
	Exploding    time.Duration
}

// TeamConfig holds registry behaviour and the faction → team defaults.
type TeamConfig struct {
	FriendlyFireAvoidance bool
	Factions              map[string]string
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// PostgresConfig holds postgres connection settings
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	Postgres  PostgresConfig
	WebSocket WebSocketConfig
}

// WebSocketConfig holds the live streaming backend settings
type WebSocketConfig struct {
	URL        string
	Secret     string
	QueueSize  int
	AckTimeout time.Duration
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// InfluxConfig holds InfluxDB telemetry settings
type InfluxConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// MonitorConfig controls periodic status sampling
type MonitorConfig struct {
	Enabled  bool
	Interval int // ticks between samples
	CSVDir   string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./shiplogs")
	viper.SetDefault("missionName", "Untitled")

	viper.SetDefault("ship.shieldRegenRate", 12.0)
	viper.SetDefault("ship.weaponRegenRate", 20.0)
	viper.SetDefault("ship.afterburnerRegenRate", 6.0)
	viper.SetDefault("ship.afterburnerBurnRate", 25.0)

	viper.SetDefault("lifecycle.arrivalStage", "2.5s")
	viper.SetDefault("lifecycle.departureStage", "2.5s")
	viper.SetDefault("lifecycle.death", "3s")
	viper.SetDefault("lifecycle.cleanup", "2s")

	viper.SetDefault("combat.deathRoll", "3s")
	viper.SetDefault("combat.preExplosion", "1s")
	viper.SetDefault("combat.exploding", "1s")

	viper.SetDefault("teams.friendlyFireAvoidance", true)
	viper.SetDefault("teams.factions", map[string]any{
		"Terran":   "friendly",
		"Vasudan":  "friendly",
		"Shivan":   "hostile",
		"Civilian": "neutral",
	})

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./saves")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.websocket.queueSize", 4096)
	viper.SetDefault("storage.websocket.ackTimeout", "10s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "shipcore")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "shipcore")
	viper.SetDefault("influx.bucket", "ship_telemetry")
	viper.SetDefault("influx.backupPath", "./shiplogs/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "shipcore")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.interval", 60)
	viper.SetDefault("monitor.csvDir", "")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults registers default values without reading a file.
func LoadDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetShipConfig returns the vessel energy tuning.
func GetShipConfig() ShipConfig {
	return ShipConfig{
		ShieldRegenRate:      viper.GetFloat64("ship.shieldRegenRate"),
		WeaponRegenRate:      viper.GetFloat64("ship.weaponRegenRate"),
		AfterburnerRegenRate: viper.GetFloat64("ship.afterburnerRegenRate"),
		AfterburnerBurnRate:  viper.GetFloat64("ship.afterburnerBurnRate"),
	}
}

// GetLifecycleConfig returns the lifecycle stage durations.
func GetLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		ArrivalStage:   viper.GetDuration("lifecycle.arrivalStage"),
		DepartureStage: viper.GetDuration("lifecycle.departureStage"),
		Death:          viper.GetDuration("lifecycle.death"),
		Cleanup:        viper.GetDuration("lifecycle.cleanup"),
	}
}

// GetCombatConfig returns the combat sub-state countdowns.
func GetCombatConfig() CombatConfig {
	return CombatConfig{
		DeathRoll:    viper.GetDuration("combat.deathRoll"),
		PreExplosion: viper.GetDuration("combat.preExplosion"),
		Exploding:    viper.GetDuration("combat.exploding"),
	}
}

// GetTeamConfig returns the registry settings.
func GetTeamConfig() TeamConfig {
	return TeamConfig{
		FriendlyFireAvoidance: viper.GetBool("teams.friendlyFireAvoidance"),
		Factions:              viper.GetStringMapString("teams.factions"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		WebSocket: WebSocketConfig{
			URL:        viper.GetString("storage.websocket.url"),
			Secret:     viper.GetString("storage.websocket.secret"),
			QueueSize:  viper.GetInt("storage.websocket.queueSize"),
			AckTimeout: viper.GetDuration("storage.websocket.ackTimeout"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB telemetry configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetInt("monitor.interval"),
		CSVDir:   viper.GetString("monitor.csvDir"),
	}
}

// DefaultShipConfig returns the built-in energy tuning.
func DefaultShipConfig() ShipConfig {
	return ShipConfig{
		ShieldRegenRate:      12,
		WeaponRegenRate:      20,
		AfterburnerRegenRate: 6,
		AfterburnerBurnRate:  25,
	}
}

// DefaultLifecycleConfig returns the built-in stage durations.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		ArrivalStage:   2500 * time.Millisecond,
		DepartureStage: 2500 * time.Millisecond,
		Death:          3 * time.Second,
		Cleanup:        2 * time.Second,
	}
}

// DefaultCombatConfig returns the built-in combat countdowns.
func DefaultCombatConfig() CombatConfig {
	return CombatConfig{
		DeathRoll:    3 * time.Second,
		PreExplosion: 1 * time.Second,
		Exploding:    1 * time.Second,
	}
}

// DefaultTeamConfig returns the built-in faction table with friendly fire
// avoidance on.
func DefaultTeamConfig() TeamConfig {
	return TeamConfig{
		FriendlyFireAvoidance: true,
		Factions: map[string]string{
			"terran":   "friendly",
			"vasudan":  "friendly",
			"shivan":   "hostile",
			"civilian": "neutral",
		},
	}
}
