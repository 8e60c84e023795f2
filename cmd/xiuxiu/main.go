package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/j903311/xiu-xiu-linebot/internal/composer"
	"github.com/j903311/xiu-xiu-linebot/internal/config"
	"github.com/j903311/xiu-xiu-linebot/internal/gateway"
	"github.com/j903311/xiu-xiu-linebot/internal/memory"
	"github.com/j903311/xiu-xiu-linebot/internal/mood"
	"github.com/j903311/xiu-xiu-linebot/internal/persona"
	"github.com/j903311/xiu-xiu-linebot/internal/provider"
)

var rootCmd = &cobra.Command{
	Use:   "xiuxiu",
	Short: "xiuxiu - persona chat companion",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot (transports + proactive scheduler + maintenance)",
	RunE:  runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to XiuXiu in a local REPL",
	RunE:  runChat,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and persona card",
	RunE:  runConfigInit,
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect long-term memory",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered facts",
	RunE:  runMemoryList,
}

var memoryForgetCmd = &cobra.Command{
	Use:   "forget <key>",
	Short: "Delete the oldest fact matching the key",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryForget,
}

var configPathFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "config file path (default ~/.xiuxiu/config.json)")
	configCmd.AddCommand(configInitCmd)
	memoryCmd.AddCommand(memoryListCmd, memoryForgetCmd)
	rootCmd.AddCommand(serveCmd, chatCmd, configCmd, memoryCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPathFlag
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*memory.Store, error) {
	dbPath := strings.TrimSpace(cfg.Memory.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "data", "memory.db")
	}
	return memory.NewStore(dbPath, memory.Options{
		ShortTermCap:     cfg.Memory.ShortTermCap,
		Retention:        time.Duration(cfg.Memory.RetentionDays) * 24 * time.Hour,
		PromoteThreshold: cfg.Memory.PromoteRepeats,
		CaptureTriggers:  cfg.Memory.CaptureTriggers,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(context.Background())
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runChatWithIO(cfg, os.Stdin, os.Stdout)
}

// runChatWithIO drives the reply pipeline from a terminal. The offline
// collaborator set keeps it usable with no provider configured.
func runChatWithIO(cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	card := persona.DefaultCard()
	if strings.TrimSpace(cfg.Persona.CardPath) != "" {
		card, err = persona.LoadCard(cfg.Persona.CardPath)
		if err != nil {
			return fmt.Errorf("load persona card: %w", err)
		}
	}

	comp := composer.New(card, mood.NewEngine(mood.DefaultRules()), mood.NewAffect(mood.DefaultAffectRules()),
		store, provider.Offline{}, provider.Offline{}, composer.Options{
			Temperature: cfg.Provider.Temperature,
			MaxTokens:   cfg.Provider.MaxTokens,
			Timeout:     time.Duration(cfg.Provider.TimeoutSec) * time.Second,
			MatureMode:  cfg.Persona.MatureMode,
		})

	fmt.Fprintf(stdout, "%s (type 'exit' to quit)\n", card.Name)
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		for _, line := range comp.Compose(context.Background(), input) {
			fmt.Fprintln(stdout, line)
		}
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfgPath := configPathFlag
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.Save(config.DefaultConfig(), cfgPath); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cardPath := filepath.Join(cfgDir, "persona.yaml")
	if _, err := os.Stat(cardPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(persona.DefaultCard())
		if err != nil {
			return fmt.Errorf("marshal persona card: %w", err)
		}
		if err := os.WriteFile(cardPath, data, 0644); err != nil {
			return fmt.Errorf("write persona card: %w", err)
		}
		fmt.Printf("Created persona card: %s\n", cardPath)
	} else {
		fmt.Printf("Persona card already exists: %s\n", cardPath)
	}
	return nil
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	facts, err := store.Facts()
	if err != nil {
		return fmt.Errorf("list facts: %w", err)
	}
	if len(facts) == 0 {
		fmt.Println("(no long-term facts)")
		return nil
	}
	for _, f := range facts {
		fmt.Printf("%s  %s\n", f.At.Format("2006-01-02 15:04"), f.Text)
	}
	return nil
}

func runMemoryForget(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	fact, err := store.DeleteFact(args[0])
	if err != nil {
		if err == memory.ErrNotFound {
			fmt.Println(memory.NotRememberedLine)
			return nil
		}
		return fmt.Errorf("forget: %w", err)
	}
	fmt.Printf("Forgot: %s\n", fact.Text)
	return nil
}
