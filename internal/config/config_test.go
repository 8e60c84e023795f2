package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Memory.ShortTermCap != DefaultShortTermCap {
		t.Errorf("ShortTermCap = %d, want %d", cfg.Memory.ShortTermCap, DefaultShortTermCap)
	}
	if cfg.Provider.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", cfg.Provider.Temperature, DefaultTemperature)
	}
	if cfg.Scheduler.Timezone != DefaultTimezone {
		t.Errorf("Timezone = %q, want %q", cfg.Scheduler.Timezone, DefaultTimezone)
	}
	if len(cfg.Scheduler.FixedSlots) != 2 {
		t.Errorf("FixedSlots = %v, want two default slots", cfg.Scheduler.FixedSlots)
	}
}

func TestLoadCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for corrupt config")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	cfg.Persona.MatureMode = true
	cfg.Memory.ShortTermCap = 20
	cfg.Scheduler.FixedSlots = []string{"08:30"}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !got.Persona.MatureMode {
		t.Error("MatureMode not persisted")
	}
	if got.Memory.ShortTermCap != 20 {
		t.Errorf("ShortTermCap = %d, want 20", got.Memory.ShortTermCap)
	}
	if len(got.Scheduler.FixedSlots) != 1 || got.Scheduler.FixedSlots[0] != "08:30" {
		t.Errorf("FixedSlots = %v, want [08:30]", got.Scheduler.FixedSlots)
	}
}

func TestNormalizeRepairsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"memory":{"shortTermCap":-1},"scheduler":{"windowStart":12,"windowEnd":5,"randomSlotsMin":3,"randomSlotsMax":1}}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Memory.ShortTermCap != DefaultShortTermCap {
		t.Errorf("ShortTermCap = %d, want default", cfg.Memory.ShortTermCap)
	}
	if cfg.Scheduler.WindowEnd <= cfg.Scheduler.WindowStart {
		t.Errorf("window not repaired: [%d,%d)", cfg.Scheduler.WindowStart, cfg.Scheduler.WindowEnd)
	}
	if cfg.Scheduler.RandomSlotsMax < cfg.Scheduler.RandomSlotsMin {
		t.Errorf("random slot range not repaired: [%d,%d]", cfg.Scheduler.RandomSlotsMin, cfg.Scheduler.RandomSlotsMax)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XIUXIU_API_KEY", "sk-test")
	t.Setenv("XIUXIU_MATURE_MODE", "true")
	t.Setenv("XIUXIU_OWNER_ID", "U12345")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Provider.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Provider.APIKey)
	}
	if !cfg.Persona.MatureMode {
		t.Error("MatureMode override not applied")
	}
	if cfg.Transport.Recipient != "U12345" {
		t.Errorf("Recipient = %q", cfg.Transport.Recipient)
	}
}
