package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/j903311/xiu-xiu-linebot/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Memory.DBPath = filepath.Join(t.TempDir(), "memory.db")
	return cfg
}

func TestChatRepliesAndExits(t *testing.T) {
	cfg := testConfig(t)

	stdin := strings.NewReader("今天好累喔\nexit\n")
	var stdout strings.Builder
	if err := runChatWithIO(cfg, stdin, &stdout); err != nil {
		t.Fatalf("runChatWithIO: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "咻咻") {
		t.Fatalf("expected the persona banner in output, got %q", out)
	}
	// Everything after the prompt for the first input is the reply;
	// silence is never acceptable.
	lines := strings.Split(out, "\n")
	var reply []string
	for _, line := range lines[1:] {
		line = strings.TrimPrefix(strings.TrimSpace(line), "> ")
		if line != "" {
			reply = append(reply, line)
		}
	}
	if len(reply) == 0 {
		t.Fatalf("chat produced no reply: %q", out)
	}
}

func TestChatSkipsBlankInput(t *testing.T) {
	cfg := testConfig(t)

	stdin := strings.NewReader("\n\nexit\n")
	var stdout strings.Builder
	if err := runChatWithIO(cfg, stdin, &stdout); err != nil {
		t.Fatalf("runChatWithIO: %v", err)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	old := configPathFlag
	configPathFlag = filepath.Join(t.TempDir(), "config.json")
	defer func() { configPathFlag = old }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Memory.ShortTermCap != config.DefaultShortTermCap {
		t.Fatalf("expected default short-term cap, got %d", cfg.Memory.ShortTermCap)
	}
}
