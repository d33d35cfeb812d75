package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CrashConfig sets the reset protocol timings
type CrashConfig struct {
	ResetDelay         time.Duration `mapstructure:"resetDelay"`
	AttackRestartDelay time.Duration `mapstructure:"attackRestartDelay"`
}

// ThemesConfig selects the starting theme
type ThemesConfig struct {
	Start string `mapstructure:"start"`
}

// AuthConfig sets token lifetime
type AuthConfig struct {
	JWTExpiry time.Duration `mapstructure:"jwtExpiry"`
}

// Config is the full server configuration
type Config struct {
	Addr          string        `mapstructure:"addr"`
	LogLevel      string        `mapstructure:"logLevel"`
	LogFormat     string        `mapstructure:"logFormat"`
	DBPath        string        `mapstructure:"dbPath"`
	TickRate      int           `mapstructure:"tickRate"`
	BroadcastRate int           `mapstructure:"broadcastRate"`
	MaxSessions   int           `mapstructure:"maxSessions"`
	Grid          GridConfig    `mapstructure:"grid"`
	Vehicle       VehicleConfig `mapstructure:"vehicle"`
	Crash         CrashConfig   `mapstructure:"crash"`
	Themes        ThemesConfig  `mapstructure:"themes"`
	Auth          AuthConfig    `mapstructure:"auth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "console")
	v.SetDefault("dbPath", "breakneck.db")
	v.SetDefault("tickRate", 60)
	v.SetDefault("broadcastRate", 30)
	v.SetDefault("maxSessions", 100)

	v.SetDefault("grid.columns", 3)
	v.SetDefault("grid.rows", 2)
	v.SetDefault("grid.rowsPerDifficulty", 2)
	v.SetDefault("grid.initialSpawnOffset", 500.0)
	v.SetDefault("grid.rowJitter", 0.9)

	v.SetDefault("vehicle.forwardSpeed", 48.0)
	v.SetDefault("vehicle.maxLateral", 48.0)
	v.SetDefault("vehicle.turnRate", 0.02)
	v.SetDefault("vehicle.friction", 0.96)

	v.SetDefault("crash.resetDelay", "500ms")
	v.SetDefault("crash.attackRestartDelay", "3s")

	v.SetDefault("themes.start", "pillarScape")
	v.SetDefault("auth.jwtExpiry", "168h")
}

// LoadConfig reads defaults, an optional config file and BREAKNECK_* env overrides.
// An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BREAKNECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.Validate()
	return cfg, nil
}

// DefaultConfig returns the configuration with every default applied
func DefaultConfig() Config {
	cfg, _ := LoadConfig("")
	return cfg
}

// Validate clamps non-positive values back to their defaults
func (c *Config) Validate() {
	if c.TickRate <= 0 {
		c.TickRate = 60
	}
	if c.BroadcastRate <= 0 || c.BroadcastRate > c.TickRate {
		c.BroadcastRate = c.TickRate
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 100
	}
	if c.Grid.Columns <= 0 {
		c.Grid.Columns = 3
	}
	if c.Grid.Rows <= 0 {
		c.Grid.Rows = 2
	}
	if c.Grid.RowsPerDifficulty <= 0 {
		c.Grid.RowsPerDifficulty = 2
	}
	if c.Grid.InitialSpawnOffset < 0 {
		c.Grid.InitialSpawnOffset = 0
	}
	if c.Grid.RowJitter < 0 || c.Grid.RowJitter > 1 {
		c.Grid.RowJitter = 0.9
	}
	if c.Vehicle.ForwardSpeed <= 0 {
		c.Vehicle.ForwardSpeed = 48
	}
	if c.Vehicle.MaxLateral <= 0 {
		c.Vehicle.MaxLateral = 48
	}
	if c.Vehicle.TurnRate <= 0 || c.Vehicle.TurnRate > 1 {
		c.Vehicle.TurnRate = 0.02
	}
	if c.Vehicle.Friction <= 0 || c.Vehicle.Friction > 1 {
		c.Vehicle.Friction = 0.96
	}
	if c.Crash.ResetDelay < 0 {
		c.Crash.ResetDelay = 500 * time.Millisecond
	}
	if c.Crash.AttackRestartDelay < 0 {
		c.Crash.AttackRestartDelay = 3 * time.Second
	}
	if _, ok := Themes[c.Themes.Start]; !ok {
		c.Themes.Start = "pillarScape"
	}
	if c.Auth.JWTExpiry <= 0 {
		c.Auth.JWTExpiry = 7 * 24 * time.Hour
	}
}

// SimConfig derives the simulation settings
func (c Config) SimConfig() SimConfig {
	return SimConfig{
		Grid:               c.Grid,
		Vehicle:            c.Vehicle,
		ResetDelay:         c.Crash.ResetDelay.Seconds(),
		AttackRestartDelay: c.Crash.AttackRestartDelay.Seconds(),
		StartTheme:         c.Themes.Start,
	}
}
