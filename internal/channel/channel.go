package channel

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/j903311/xiu-xiu-linebot/internal/bus"
	"github.com/j903311/xiu-xiu-linebot/internal/config"
)

// MaxPerCall is the hard cap on messages a transport accepts in one
// Reply or Push call. Longer batches are chunked.
const MaxPerCall = 5

const deliverTimeout = 30 * time.Second

// Transport delivers composed messages to one chat surface.
//
// Reply consumes a one-shot reply token; Push addresses the recipient
// directly and is used for proactive sends and reply overflow.
type Transport interface {
	Name() string
	Reply(ctx context.Context, replyToken string, messages []string) error
	Push(ctx context.Context, recipient string, messages []string) error
}

// Manager routes outbound bus messages to registered transports,
// enforcing the per-call cap and the outbound push rate limit.
type Manager struct {
	transports map[string]Transport
	bus        *bus.MessageBus
	limiter    *rate.Limiter
}

func NewManager(cfg config.TransportConfig, b *bus.MessageBus, transports ...Transport) *Manager {
	perMin := cfg.PushPerMinute
	if perMin <= 0 {
		perMin = config.DefaultPushPerMinute
	}
	m := &Manager{
		transports: make(map[string]Transport),
		bus:        b,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
	}
	for _, t := range transports {
		m.Register(t)
	}
	return m
}

// Register adds a transport and subscribes it to outbound bus traffic
// under its own name.
func (m *Manager) Register(t Transport) {
	m.transports[t.Name()] = t
	m.bus.SubscribeOutbound(t.Name(), func(msg bus.OutboundMessage) {
		if err := m.deliver(t, msg); err != nil {
			log.Printf("[channel] deliver via %s failed: %v", t.Name(), err)
		}
	})
}

func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.transports))
	for name := range m.transports {
		names = append(names, name)
	}
	return names
}

// deliver sends msg.Messages through t. The first chunk rides the reply
// token when one is present; everything past the per-call cap, and all
// token-less sends, go out as pushes under the rate limiter.
func (m *Manager) deliver(t Transport, msg bus.OutboundMessage) error {
	msgs := msg.Messages
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if msg.ReplyToken != "" {
		head := msgs
		if len(head) > MaxPerCall {
			head = msgs[:MaxPerCall]
		}
		if err := t.Reply(ctx, msg.ReplyToken, head); err != nil {
			return fmt.Errorf("reply: %w", err)
		}
		msgs = msgs[len(head):]
	}

	for len(msgs) > 0 {
		chunk := msgs
		if len(chunk) > MaxPerCall {
			chunk = msgs[:MaxPerCall]
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("push rate limit: %w", err)
		}
		if err := t.Push(ctx, msg.ChatID, chunk); err != nil {
			return fmt.Errorf("push: %w", err)
		}
		msgs = msgs[len(chunk):]
	}
	return nil
}

// ConsoleTransport prints messages to the process log. It stands in for
// a real messaging surface during local runs and keeps proactive pushes
// visible when no transport is configured.
type ConsoleTransport struct{}

func (ConsoleTransport) Name() string { return "console" }

func (ConsoleTransport) Reply(_ context.Context, _ string, messages []string) error {
	log.Printf("[console] reply: %s", strings.Join(messages, " / "))
	return nil
}

func (ConsoleTransport) Push(_ context.Context, recipient string, messages []string) error {
	log.Printf("[console] push to %s: %s", recipient, strings.Join(messages, " / "))
	return nil
}
