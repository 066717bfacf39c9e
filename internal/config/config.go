package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Inventory InventoryConfig `yaml:"inventory"`
	Items     []ItemConfig    `yaml:"items"`
	Chests    []ChestConfig   `yaml:"chests"`
	Machines  []MachineConfig `yaml:"machines"`
	Recipes   []RecipeConfig  `yaml:"recipes"`
	Hoppers   []HopperConfig  `yaml:"hoppers"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TickRate int    `yaml:"tick_rate"` // Hz
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// SessionConfig holds game session settings
type SessionConfig struct {
	MaxPlayers int `yaml:"max_players"`
}

// LoggingConfig selects the log level and encoding
type LoggingConfig struct {
	Level       string `yaml:"level"`  // debug, info, warn, error
	Format      string `yaml:"format"` // json or console
	Development bool   `yaml:"development"`
}

// StorageConfig selects where player inventories are persisted
type StorageConfig struct {
	Driver      string `yaml:"driver"`      // memory, redis or sqlite
	Path        string `yaml:"path"`        // sqlite database file
	KeyPrefix   string `yaml:"key_prefix"`  // redis key prefix
	Compression string `yaml:"compression"` // none, zstd or snappy
}

// InventoryConfig holds player inventory defaults
type InventoryConfig struct {
	PlayerSlots int `yaml:"player_slots"`
	SlotLimit   int `yaml:"slot_limit"`
}

// ItemConfig describes one item kind
type ItemConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	MaxStack int    `yaml:"max_stack"`
}

// ChestConfig places a shared storage block in the world
type ChestConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	Z    int    `yaml:"z"`
}

// MachineConfig places a production block running one recipe
type MachineConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Recipe string `yaml:"recipe"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Z      int    `yaml:"z"`
}

// RecipeConfig describes a machine recipe
type RecipeConfig struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Inputs   []IngredientSpec `yaml:"inputs"`
	Outputs  []IngredientSpec `yaml:"outputs"`
	Duration time.Duration    `yaml:"duration"`
}

// HopperConfig links two blocks with an automated item feed
type HopperConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Rate int    `yaml:"rate"` // items per tick
}

// IngredientSpec is one item and quantity of a recipe
type IngredientSpec struct {
	Item     string `yaml:"item"`
	Quantity int    `yaml:"quantity"`
	Tool     bool   `yaml:"tool"` // checked but not consumed
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.TickRate == 0 {
		cfg.Server.TickRate = 20
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "jwt:blacklist:"
	}
	if cfg.Session.MaxPlayers == 0 {
		cfg.Session.MaxPlayers = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/inventories.db"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "inventory:"
	}
	if cfg.Storage.Compression == "" {
		cfg.Storage.Compression = "none"
	}
	if cfg.Inventory.PlayerSlots == 0 {
		cfg.Inventory.PlayerSlots = 36
	}
	if cfg.Inventory.SlotLimit == 0 {
		cfg.Inventory.SlotLimit = 64
	}
	for i := range cfg.Chests {
		if cfg.Chests[i].Size == 0 {
			cfg.Chests[i].Size = 27
		}
	}
	for i := range cfg.Hoppers {
		if cfg.Hoppers[i].Rate == 0 {
			cfg.Hoppers[i].Rate = 1
		}
	}
}

func (cfg *Config) validate() error {
	switch cfg.Storage.Driver {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	switch cfg.Storage.Compression {
	case "none", "zstd", "snappy":
	default:
		return fmt.Errorf("unknown storage compression %q", cfg.Storage.Compression)
	}
	if cfg.Inventory.PlayerSlots < 9 {
		return fmt.Errorf("inventory.player_slots must be at least 9, got %d", cfg.Inventory.PlayerSlots)
	}
	seen := make(map[string]bool)
	for _, c := range cfg.Chests {
		if c.ID == "" || seen[c.ID] {
			return fmt.Errorf("chest id %q is empty or duplicated", c.ID)
		}
		seen[c.ID] = true
	}
	for _, m := range cfg.Machines {
		if m.ID == "" || seen[m.ID] {
			return fmt.Errorf("machine id %q is empty or duplicated", m.ID)
		}
		seen[m.ID] = true
	}
	for _, h := range cfg.Hoppers {
		if !seen[h.From] || !seen[h.To] {
			return fmt.Errorf("hopper %s -> %s references an unknown block", h.From, h.To)
		}
	}
	return nil
}
