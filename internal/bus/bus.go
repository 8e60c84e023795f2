package bus

import (
	"context"
	"log"
	"sync"
	"time"
)

// InboundMessage is one user message received by a transport.
type InboundMessage struct {
	Channel    string
	SenderID   string
	ChatID     string
	ReplyToken string // single-use correlation token; empty for sourceless input
	Content    string
	Timestamp  time.Time
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// OutboundMessage carries a composed reply (1..n text messages) back to a
// transport. A non-empty ReplyToken means the transport should answer the
// originating event; otherwise the messages are pushed to ChatID.
type OutboundMessage struct {
	Channel    string
	ChatID     string
	ReplyToken string
	Messages   []string
}

type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	mu   sync.RWMutex
	subs map[string]func(OutboundMessage)
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufSize),
		Outbound: make(chan OutboundMessage, bufSize),
		subs:     make(map[string]func(OutboundMessage)),
	}
}

// SubscribeOutbound registers a handler for outbound messages addressed to
// the named channel. The last registration for a name wins.
func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[channel] = fn
}

// DispatchOutbound drains the outbound queue until ctx is cancelled,
// routing each message to its channel subscriber.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-b.Outbound:
			b.mu.RLock()
			fn, ok := b.subs[msg.Channel]
			b.mu.RUnlock()
			if !ok {
				log.Printf("[bus] no subscriber for channel %q, dropping %d message(s)", msg.Channel, len(msg.Messages))
				continue
			}
			fn(msg)
		case <-ctx.Done():
			return
		}
	}
}
