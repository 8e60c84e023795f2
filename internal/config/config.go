package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultTimezone       = "Asia/Taipei"
	DefaultMaxTokens      = 120
	DefaultTemperature    = 0.9
	DefaultTimeoutSec     = 20
	DefaultBufSize        = 100
	DefaultShortTermCap   = 15
	DefaultRetentionDays  = 3
	DefaultPromoteRepeats = 3
	DefaultHistoryDepth   = 6
	DefaultTickSeconds    = 15
	DefaultWindowStart    = 9
	DefaultWindowEnd      = 22
	DefaultRandomSlotsMin = 2
	DefaultRandomSlotsMax = 4
	DefaultBackupAt       = "03:00"
	DefaultDecayAt        = "04:30"
	DefaultResetAt        = "04:00"
	DefaultPushPerMinute  = 10
)

// DefaultFixedSlots are the two anchored proactive slots (morning and night).
var DefaultFixedSlots = []string{"07:00", "23:00"}

type Config struct {
	Persona   PersonaConfig   `json:"persona"`
	Provider  ProviderConfig  `json:"provider"`
	Memory    MemoryConfig    `json:"memory"`
	Mood      MoodConfig      `json:"mood"`
	Search    SearchConfig    `json:"search"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Transport TransportConfig `json:"transport"`
	Backup    BackupConfig    `json:"backup"`
}

type PersonaConfig struct {
	CardPath   string `json:"cardPath,omitempty"` // YAML or JSON persona card; empty = built-in card
	MatureMode bool   `json:"matureMode"`
}

type ProviderConfig struct {
	APIKey      string  `json:"apiKey,omitempty"`
	BaseURL     string  `json:"baseUrl,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	TimeoutSec  int     `json:"timeoutSec"`
}

type MemoryConfig struct {
	DBPath          string   `json:"dbPath,omitempty"`
	ShortTermCap    int      `json:"shortTermCap"`
	RetentionDays   int      `json:"retentionDays"`
	PromoteRepeats  int      `json:"promoteRepeats"`
	CaptureTriggers []string `json:"captureTriggers,omitempty"` // empty = built-in set
}

type MoodConfig struct {
	RulesPath string `json:"rulesPath,omitempty"` // YAML/JSON ordered rule table; empty = built-in table
}

type SearchConfig struct {
	Triggers []string `json:"triggers,omitempty"` // empty = built-in set
}

type SchedulerConfig struct {
	Enabled        bool     `json:"enabled"`
	Timezone       string   `json:"timezone"`
	FixedSlots     []string `json:"fixedSlots"` // "HH:MM"
	RandomSlotsMin int      `json:"randomSlotsMin"`
	RandomSlotsMax int      `json:"randomSlotsMax"`
	WindowStart    int      `json:"windowStart"` // first hour eligible for random slots
	WindowEnd      int      `json:"windowEnd"`   // last hour (exclusive)
	TickSeconds    int      `json:"tickSeconds"`
}

type TransportConfig struct {
	Channel       string `json:"channel"`   // channel name proactive pushes go out on
	Recipient     string `json:"recipient"` // owner chat/user id for pushes
	PushPerMinute int    `json:"pushPerMinute"`
}

type BackupConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`
	At      string `json:"at"` // "HH:MM" daily snapshot
	DecayAt string `json:"decayAt"`
	ResetAt string `json:"resetAt,omitempty"` // empty disables the daily short-term reset
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			TimeoutSec:  DefaultTimeoutSec,
		},
		Memory: MemoryConfig{
			ShortTermCap:   DefaultShortTermCap,
			RetentionDays:  DefaultRetentionDays,
			PromoteRepeats: DefaultPromoteRepeats,
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			Timezone:       DefaultTimezone,
			FixedSlots:     append([]string(nil), DefaultFixedSlots...),
			RandomSlotsMin: DefaultRandomSlotsMin,
			RandomSlotsMax: DefaultRandomSlotsMax,
			WindowStart:    DefaultWindowStart,
			WindowEnd:      DefaultWindowEnd,
			TickSeconds:    DefaultTickSeconds,
		},
		Transport: TransportConfig{
			PushPerMinute: DefaultPushPerMinute,
		},
		Backup: BackupConfig{
			Enabled: true,
			At:      DefaultBackupAt,
			DecayAt: DefaultDecayAt,
			ResetAt: DefaultResetAt,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".xiuxiu")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads the config file, fills unset fields with defaults and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	normalize(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func normalize(cfg *Config) {
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = DefaultMaxTokens
	}
	if cfg.Provider.Temperature <= 0 {
		cfg.Provider.Temperature = DefaultTemperature
	}
	if cfg.Provider.TimeoutSec <= 0 {
		cfg.Provider.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.Memory.ShortTermCap <= 0 {
		cfg.Memory.ShortTermCap = DefaultShortTermCap
	}
	if cfg.Memory.RetentionDays <= 0 {
		cfg.Memory.RetentionDays = DefaultRetentionDays
	}
	if cfg.Memory.PromoteRepeats <= 0 {
		cfg.Memory.PromoteRepeats = DefaultPromoteRepeats
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = DefaultTimezone
	}
	if len(cfg.Scheduler.FixedSlots) == 0 {
		cfg.Scheduler.FixedSlots = append([]string(nil), DefaultFixedSlots...)
	}
	if cfg.Scheduler.RandomSlotsMin <= 0 {
		cfg.Scheduler.RandomSlotsMin = DefaultRandomSlotsMin
	}
	if cfg.Scheduler.RandomSlotsMax < cfg.Scheduler.RandomSlotsMin {
		cfg.Scheduler.RandomSlotsMax = cfg.Scheduler.RandomSlotsMin
	}
	if cfg.Scheduler.WindowEnd <= cfg.Scheduler.WindowStart {
		cfg.Scheduler.WindowStart = DefaultWindowStart
		cfg.Scheduler.WindowEnd = DefaultWindowEnd
	}
	if cfg.Scheduler.TickSeconds <= 0 {
		cfg.Scheduler.TickSeconds = DefaultTickSeconds
	}
	if cfg.Transport.PushPerMinute <= 0 {
		cfg.Transport.PushPerMinute = DefaultPushPerMinute
	}
	if cfg.Backup.At == "" {
		cfg.Backup.At = DefaultBackupAt
	}
	if cfg.Backup.DecayAt == "" {
		cfg.Backup.DecayAt = DefaultDecayAt
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("XIUXIU_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("XIUXIU_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("XIUXIU_OWNER_ID"); v != "" {
		cfg.Transport.Recipient = v
	}
	if v := os.Getenv("XIUXIU_MATURE_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Persona.MatureMode = b
		}
	}
}
