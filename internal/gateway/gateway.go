package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/j903311/xiu-xiu-linebot/internal/bus"
	"github.com/j903311/xiu-xiu-linebot/internal/channel"
	"github.com/j903311/xiu-xiu-linebot/internal/composer"
	"github.com/j903311/xiu-xiu-linebot/internal/config"
	"github.com/j903311/xiu-xiu-linebot/internal/cron"
	"github.com/j903311/xiu-xiu-linebot/internal/memory"
	"github.com/j903311/xiu-xiu-linebot/internal/mood"
	"github.com/j903311/xiu-xiu-linebot/internal/persona"
	"github.com/j903311/xiu-xiu-linebot/internal/provider"
	"github.com/j903311/xiu-xiu-linebot/internal/scheduler"
)

// Options injects collaborators, mainly for testing. Zero-value fields
// fall back to the offline set so the bot runs with nothing configured.
type Options struct {
	Completer  provider.Completer
	Searcher   provider.Searcher
	Backup     provider.Backup
	Transports []channel.Transport
	SignalChan chan os.Signal // for testing
}

// Gateway wires the persona bot together: inbound messages flow through
// the composer, slot schedules fire proactive pushes, and the daily
// maintenance jobs keep memory tidy.
type Gateway struct {
	cfg *config.Config

	bus         *bus.MessageBus
	store       *memory.Store
	card        *persona.Card
	composer    *composer.Composer
	scheduler   *scheduler.Scheduler
	maintenance *cron.Service
	channels    *channel.Manager
	backup      provider.Backup

	signalChan chan os.Signal
}

// New creates a Gateway with the offline collaborator set.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg, signalChan: opts.SignalChan}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	dbPath := strings.TrimSpace(cfg.Memory.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "data", "memory.db")
	}
	store, err := memory.NewStore(dbPath, memory.Options{
		ShortTermCap:     cfg.Memory.ShortTermCap,
		Retention:        time.Duration(cfg.Memory.RetentionDays) * 24 * time.Hour,
		PromoteThreshold: cfg.Memory.PromoteRepeats,
		CaptureTriggers:  cfg.Memory.CaptureTriggers,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory store: %w", err)
	}
	g.store = store

	card, err := loadCard(cfg.Persona.CardPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	g.card = card
	if raw, err := json.Marshal(card); err == nil {
		if err := store.SetPersonaCard(card.Name, raw); err != nil {
			log.Printf("[gateway] persist persona card warning: %v", err)
		}
	}

	rules, err := loadMoodRules(cfg.Mood.RulesPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	moods := mood.NewEngine(rules)
	affect := mood.NewAffect(mood.DefaultAffectRules())

	completer := opts.Completer
	if completer == nil {
		completer = provider.Offline{}
	}
	searcher := opts.Searcher
	if searcher == nil {
		searcher = provider.Offline{}
	}
	g.backup = opts.Backup
	if g.backup == nil {
		if cfg.Backup.Enabled {
			dir := strings.TrimSpace(cfg.Backup.Dir)
			if dir == "" {
				dir = filepath.Join(config.ConfigDir(), "backups")
			}
			g.backup = &provider.FileBackup{Dir: dir}
		} else {
			g.backup = provider.Offline{}
		}
	}

	g.composer = composer.New(card, moods, affect, store, completer, searcher, composer.Options{
		Temperature:    cfg.Provider.Temperature,
		MaxTokens:      cfg.Provider.MaxTokens,
		Timeout:        time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		MatureMode:     cfg.Persona.MatureMode,
		SearchTriggers: cfg.Search.Triggers,
		HistoryDepth:   config.DefaultHistoryDepth,
	})

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(scheduler.Options{
			Timezone:       cfg.Scheduler.Timezone,
			FixedSlots:     cfg.Scheduler.FixedSlots,
			RandomSlotsMin: cfg.Scheduler.RandomSlotsMin,
			RandomSlotsMax: cfg.Scheduler.RandomSlotsMax,
			WindowStart:    cfg.Scheduler.WindowStart,
			WindowEnd:      cfg.Scheduler.WindowEnd,
			Tick:           time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
		}, g.dispatchSlot)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create scheduler: %w", err)
		}
		g.scheduler = sched
	}

	maint, err := cron.NewService(cfg.Scheduler.Timezone)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create maintenance service: %w", err)
	}
	g.maintenance = maint
	if err := g.registerMaintenanceJobs(); err != nil {
		_ = store.Close()
		return nil, err
	}

	transports := opts.Transports
	if len(transports) == 0 {
		transports = []channel.Transport{channel.ConsoleTransport{}}
	}
	g.channels = channel.NewManager(cfg.Transport, g.bus, transports...)

	return g, nil
}

func loadCard(path string) (*persona.Card, error) {
	if strings.TrimSpace(path) == "" {
		return persona.DefaultCard(), nil
	}
	card, err := persona.LoadCard(path)
	if err != nil {
		return nil, fmt.Errorf("load persona card: %w", err)
	}
	return card, nil
}

func loadMoodRules(path string) ([]mood.Rule, error) {
	if strings.TrimSpace(path) == "" {
		return mood.DefaultRules(), nil
	}
	rules, err := mood.LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("load mood rules: %w", err)
	}
	return rules, nil
}

func (g *Gateway) registerMaintenanceJobs() error {
	if err := g.maintenance.AddDaily("decay", g.cfg.Backup.DecayAt, func() error {
		n, err := g.store.Decay(time.Now())
		if err != nil {
			return err
		}
		log.Printf("[gateway] decayed %d expired fact(s)", n)
		return nil
	}); err != nil {
		return err
	}
	if at := strings.TrimSpace(g.cfg.Backup.ResetAt); at != "" {
		if err := g.maintenance.AddDaily("reset", at, g.store.Reset); err != nil {
			return err
		}
	}
	if g.cfg.Backup.Enabled {
		if err := g.maintenance.AddDaily("backup", g.cfg.Backup.At, func() error {
			g.backupNow()
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// dispatchSlot turns a due schedule slot into a proactive push on the
// configured transport.
func (g *Gateway) dispatchSlot(slot scheduler.Slot) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(g.cfg.Provider.TimeoutSec)*time.Second)
	defer cancel()

	msgs := g.composer.ComposeProactive(ctx, slot.Kind)
	if len(msgs) == 0 {
		return
	}
	ch := strings.TrimSpace(g.cfg.Transport.Channel)
	if ch == "" {
		ch = "console"
	}
	g.bus.Outbound <- bus.OutboundMessage{
		Channel:  ch,
		ChatID:   g.cfg.Transport.Recipient,
		Messages: msgs,
	}
}

// backupNow snapshots memory and hands it to the backup collaborator.
// Failures are logged, never fatal.
func (g *Gateway) backupNow() {
	snap, err := g.store.Snapshot()
	if err != nil {
		log.Printf("[gateway] snapshot warning: %v", err)
		return
	}
	data, err := snap.Marshal()
	if err != nil {
		log.Printf("[gateway] snapshot marshal warning: %v", err)
		return
	}
	g.backup.Persist(data)
}

// Run starts all services and blocks until SIGINT/SIGTERM.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)
	log.Printf("[gateway] transports ready: %v", g.channels.Names())

	g.maintenance.Start()
	if g.scheduler != nil {
		go g.scheduler.Run(ctx)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] %s is awake", g.card.Name)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

// processLoop is the single consumer of inbound messages. Serializing
// here keeps compose/memory updates ordered per session.
func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			msgs := g.composer.Compose(ctx, msg.Content)
			g.bus.Outbound <- bus.OutboundMessage{
				Channel:    msg.Channel,
				ChatID:     msg.ChatID,
				ReplyToken: msg.ReplyToken,
				Messages:   msgs,
			}

			go g.backupNow()
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	g.maintenance.Stop()
	if err := g.store.Close(); err != nil {
		log.Printf("[gateway] close memory store warning: %v", err)
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
