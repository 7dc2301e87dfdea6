package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/Scrimzay/livebattle/internal/world"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Sim     SimConfig     `toml:"sim"`
	Arena   ArenaConfig   `toml:"arena"`
	Rules   RulesConfig   `toml:"rules"`
	Teams   TeamsConfig   `toml:"teams"`
	Live    LiveConfig    `toml:"live"`
}

type ServerConfig struct {
	Port            string        `toml:"port"`
	ClientOrigin    string        `toml:"client_origin"` // CORS allow-origin, "*" for any
	StaticDir       string        `toml:"static_dir"`    // empty disables /static
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	AutoStart       bool          `toml:"auto_start"` // start the first round on boot
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type SimConfig struct {
	TickRate      int           `toml:"tick_rate"`      // frames per second at 1x
	BroadcastRate int           `toml:"broadcast_rate"` // snapshots per second
	MaxStep       time.Duration `toml:"max_step"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	Seed          int64         `toml:"seed"` // 0 seeds from the clock
}

type ArenaConfig struct {
	Width          float64 `toml:"width"`
	Height         float64 `toml:"height"`
	EndZoneWidth   float64 `toml:"end_zone_width"`
	SpawnZoneWidth float64 `toml:"spawn_zone_width"`
}

type RulesConfig struct {
	RoundSeconds    float64 `toml:"round_seconds"`
	CountdownFrom   int     `toml:"countdown_from"`
	AutoSpawnEvery  float64 `toml:"auto_spawn_every"`
	MegaDuration    float64 `toml:"mega_duration"`
	FrenzyChance    float64 `toml:"frenzy_chance"`
	WinResetAfter   int     `toml:"win_reset_after"`
	MaxQueuedSpawns int     `toml:"max_queued_spawns"`
}

type TeamsConfig struct {
	A TeamConfig `toml:"a"`
	B TeamConfig `toml:"b"`
}

type TeamConfig struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

type LiveConfig struct {
	Username      string `toml:"username"`   // platform account the connector follows
	GiftTable     string `toml:"gift_table"` // YAML file, empty uses the built-in table
	LikesPerSpawn int    `toml:"likes_per_spawn"`
}

// DefaultPath is read when LIVEBATTLE_CONFIG is unset
const DefaultPath = "config/server.toml"

// Load reads the TOML file over the defaults. A missing file is not an
// error; environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only

	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)

	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv pulls a .env file into the process environment when present
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Path resolves the config file location from the environment
func Path() string {
	if p := os.Getenv("LIVEBATTLE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("CLIENT_ORIGIN"); v != "" {
		c.Server.ClientOrigin = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LIVE_USERNAME"); v != "" {
		c.Live.Username = v
	}
}

func (c *Config) validate() error {
	switch {
	case c.Arena.Width <= 2*c.Arena.EndZoneWidth:
		return fmt.Errorf("arena width %.0f leaves no field between end zones", c.Arena.Width)

	case c.Arena.Height <= 0:
		return fmt.Errorf("arena height must be positive")

	case c.Sim.TickRate <= 0 || c.Sim.BroadcastRate <= 0:
		return fmt.Errorf("tick and broadcast rates must be positive")

	case c.Teams.A.Name == "" || c.Teams.B.Name == "":
		return fmt.Errorf("both teams need a name")

	case c.Teams.A.Name == c.Teams.B.Name:
		return fmt.Errorf("team names must differ")
	}
	return nil
}

// WorldRules overlays the configured values on the engine defaults
func (c *Config) WorldRules() world.Rules {
	r := world.DefaultRules()

	r.Width = c.Arena.Width
	r.Height = c.Arena.Height
	r.EndZoneWidth = c.Arena.EndZoneWidth
	r.SpawnZoneWidth = c.Arena.SpawnZoneWidth

	r.RoundSeconds = c.Rules.RoundSeconds
	r.CountdownFrom = c.Rules.CountdownFrom
	r.AutoSpawnEvery = c.Rules.AutoSpawnEvery
	r.MegaDuration = c.Rules.MegaDuration
	r.FrenzyChance = c.Rules.FrenzyChance
	r.WinResetAfter = c.Rules.WinResetAfter
	r.MaxQueuedSpawns = c.Rules.MaxQueuedSpawns

	r.TeamNames = [2]string{c.Teams.A.Name, c.Teams.B.Name}
	return r
}

func defaults() *Config {
	r := world.DefaultRules()

	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ClientOrigin:    "*",
			ShutdownTimeout: 10 * time.Second,
			AutoStart:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Sim: SimConfig{
			TickRate:      60,
			BroadcastRate: 20,
			MaxStep:       250 * time.Millisecond,
			WriteTimeout:  5 * time.Second,
		},
		Arena: ArenaConfig{
			Width:          r.Width,
			Height:         r.Height,
			EndZoneWidth:   r.EndZoneWidth,
			SpawnZoneWidth: r.SpawnZoneWidth,
		},
		Rules: RulesConfig{
			RoundSeconds:    r.RoundSeconds,
			CountdownFrom:   r.CountdownFrom,
			AutoSpawnEvery:  r.AutoSpawnEvery,
			MegaDuration:    r.MegaDuration,
			FrenzyChance:    r.FrenzyChance,
			WinResetAfter:   r.WinResetAfter,
			MaxQueuedSpawns: r.MaxQueuedSpawns,
		},
		Teams: TeamsConfig{
			A: TeamConfig{Name: r.TeamNames[0], Keywords: []string{"pumpkin", "p"}},
			B: TeamConfig{Name: r.TeamNames[1], Keywords: []string{"bat", "bats", "b"}},
		},
		Live: LiveConfig{
			LikesPerSpawn: 10,
		},
	}
}
