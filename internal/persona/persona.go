// Package persona holds the static character profile: identity, style
// rules and the phrase pools canned replies and fallbacks are drawn from.
// A card is immutable once loaded.
package persona

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Card struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Traits      []string `yaml:"traits" json:"traits"`
	StyleRules  []string `yaml:"styleRules" json:"styleRules"`
	Pools       Pools    `yaml:"pools" json:"pools"`
}

// Pools are the fixed phrase pools. Mood is keyed by mood tag name;
// Fallback/MatureFallback answer provider failures (which one is eligible
// depends on the session's mature-mode toggle); Short supplies sub-budget
// lines when sentence packing comes up empty; Morning/Night feed the two
// fixed proactive slots.
type Pools struct {
	Mood           map[string][]string `yaml:"mood" json:"mood"`
	Fallback       []string            `yaml:"fallback" json:"fallback"`
	MatureFallback []string            `yaml:"matureFallback" json:"matureFallback"`
	Short          []string            `yaml:"short" json:"short"`
	Morning        []string            `yaml:"morning" json:"morning"`
	Night          []string            `yaml:"night" json:"night"`
}

// LoadCard reads a persona card from a YAML or JSON file. YAML is a
// superset of JSON so one decoder covers both.
func LoadCard(path string) (*Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona card: %w", err)
	}
	var c Card
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse persona card %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("persona card %s: %w", path, err)
	}
	return &c, nil
}

func (c *Card) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(c.Pools.Fallback) == 0 {
		return fmt.Errorf("pools.fallback must have at least one line")
	}
	return nil
}

// SystemPrompt renders the card into the completion provider's system
// prompt: description first, then traits and style rules as constraints.
func (c *Card) SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(c.Description)
	if len(c.Traits) > 0 {
		sb.WriteString("\n個性：")
		sb.WriteString(strings.Join(c.Traits, "、"))
	}
	for _, rule := range c.StyleRules {
		sb.WriteString("\n- ")
		sb.WriteString(rule)
	}
	return sb.String()
}

// MoodLine samples one line from the pool for the given mood tag.
// Returns false when the card has no pool for that tag.
func (c *Card) MoodLine(rng *rand.Rand, tag string) (string, bool) {
	pool := c.Pools.Mood[tag]
	if len(pool) == 0 {
		return "", false
	}
	return pool[rng.Intn(len(pool))], true
}

// FallbackLine samples the provider-failure pool. Mature mode switches
// which pool is eligible; an empty mature pool falls back to the plain one.
func (c *Card) FallbackLine(rng *rand.Rand, mature bool) string {
	pool := c.Pools.Fallback
	if mature && len(c.Pools.MatureFallback) > 0 {
		pool = c.Pools.MatureFallback
	}
	return pool[rng.Intn(len(pool))]
}

// ShortLine samples the short fallback pool, degrading to the plain
// fallback pool when the card ships none.
func (c *Card) ShortLine(rng *rand.Rand) string {
	if len(c.Pools.Short) > 0 {
		return c.Pools.Short[rng.Intn(len(c.Pools.Short))]
	}
	return c.FallbackLine(rng, false)
}

// SlotLine samples the canned pool for a fixed proactive slot ("morning"
// or "night"). Returns false for unknown kinds or empty pools.
func (c *Card) SlotLine(rng *rand.Rand, kind string) (string, bool) {
	var pool []string
	switch kind {
	case "morning":
		pool = c.Pools.Morning
	case "night":
		pool = c.Pools.Night
	}
	if len(pool) == 0 {
		return "", false
	}
	return pool[rng.Intn(len(pool))], true
}
