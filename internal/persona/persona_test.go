package persona

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func TestDefaultCardValid(t *testing.T) {
	c := DefaultCard()
	if err := c.validate(); err != nil {
		t.Fatalf("default card invalid: %v", err)
	}
	for _, tag := range []string{"tired", "sad", "angry", "happy", "bored", "love", "care", "greet_morning", "greet_night"} {
		if _, ok := c.MoodLine(testRand(), tag); !ok {
			t.Errorf("default card has no pool for %q", tag)
		}
	}
}

func TestLoadCardYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.yaml")
	content := `
name: 咻咻
description: 測試用角色
traits: [黏人]
styleRules:
  - 回覆要短
pools:
  mood:
    tired: ["休息一下嘛"]
  fallback: ["咻咻斷線了"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCard(path)
	if err != nil {
		t.Fatalf("LoadCard error: %v", err)
	}
	if c.Name != "咻咻" {
		t.Errorf("Name = %q", c.Name)
	}
	line, ok := c.MoodLine(testRand(), "tired")
	if !ok || line != "休息一下嘛" {
		t.Errorf("MoodLine = %q, %v", line, ok)
	}
}

func TestLoadCardJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.json")
	content := `{"name":"咻咻","description":"d","pools":{"fallback":["line"]}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCard(path)
	if err != nil {
		t.Fatalf("LoadCard error: %v", err)
	}
	if got := c.FallbackLine(testRand(), false); got != "line" {
		t.Errorf("FallbackLine = %q", got)
	}
}

func TestLoadCardRejectsMissingFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.yaml")
	if err := os.WriteFile(path, []byte("name: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCard(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFallbackLineMatureToggle(t *testing.T) {
	c := DefaultCard()
	rng := testRand()

	matureSeen := false
	for i := 0; i < 20; i++ {
		line := c.FallbackLine(rng, true)
		for _, m := range c.Pools.MatureFallback {
			if line == m {
				matureSeen = true
			}
		}
		for _, p := range c.Pools.Fallback {
			if line == p {
				t.Fatalf("mature mode sampled plain pool line %q", line)
			}
		}
	}
	if !matureSeen {
		t.Fatal("mature pool never sampled")
	}

	// Mature toggle with an empty mature pool degrades to the plain pool.
	c2 := &Card{Name: "x", Pools: Pools{Fallback: []string{"only"}}}
	if got := c2.FallbackLine(rng, true); got != "only" {
		t.Errorf("FallbackLine = %q, want plain pool line", got)
	}
}

func TestMoodLineUnknownTag(t *testing.T) {
	c := DefaultCard()
	if _, ok := c.MoodLine(testRand(), "nonexistent"); ok {
		t.Fatal("expected no line for unknown tag")
	}
}

func TestSlotLine(t *testing.T) {
	c := DefaultCard()
	rng := testRand()
	if _, ok := c.SlotLine(rng, "morning"); !ok {
		t.Error("no morning line")
	}
	if _, ok := c.SlotLine(rng, "night"); !ok {
		t.Error("no night line")
	}
	if _, ok := c.SlotLine(rng, "random"); ok {
		t.Error("random slots must not use canned pools")
	}
}

func TestSystemPromptContainsRules(t *testing.T) {
	c := DefaultCard()
	p := c.SystemPrompt()
	if !strings.Contains(p, c.Description) {
		t.Error("system prompt missing description")
	}
	for _, rule := range c.StyleRules {
		if !strings.Contains(p, rule) {
			t.Errorf("system prompt missing style rule %q", rule)
		}
	}
}
