// Package composer turns one inbound message into a bounded set of
// outbound messages: mood routing, memory commands, search lookups,
// provider completion with fallback, sentence packing and dedupe.
package composer

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/j903311/xiu-xiu-linebot/internal/memory"
	"github.com/j903311/xiu-xiu-linebot/internal/mood"
	"github.com/j903311/xiu-xiu-linebot/internal/persona"
	"github.com/j903311/xiu-xiu-linebot/internal/provider"
)

// MaxMessages is the transport's hard cap per reply call.
const MaxMessages = 5

const (
	forgetPrefix   = "忘記"
	recallPrefix   = "你記得"
	capturedAck    = "咻咻記住了喔！"
	replySeparator = "\n"
)

// DefaultSearchTriggers route input through the search collaborator.
var DefaultSearchTriggers = []string{"天氣", "新聞", "餐廳", "地址", "附近", "地圖", "怎麼去"}

type Options struct {
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	MatureMode     bool
	SearchTriggers []string
	HistoryDepth   int
	// ModePicker overrides the random packing-mode choice; tests use it.
	ModePicker func() int
	// Seed fixes the phrase-pool sampling sequence; 0 means wall clock.
	Seed int64
}

type Composer struct {
	card      *persona.Card
	moods     *mood.Engine
	affect    *mood.Affect
	store     *memory.Store
	completer provider.Completer
	searcher  provider.Searcher
	opts      Options
	rng       *rand.Rand

	lastMu    sync.Mutex
	lastReply map[string]struct{} // normalized sentences of the prior reply
}

func New(card *persona.Card, moods *mood.Engine, affect *mood.Affect, store *memory.Store,
	completer provider.Completer, searcher provider.Searcher, opts Options) *Composer {

	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 6
	}
	if len(opts.SearchTriggers) == 0 {
		opts.SearchTriggers = DefaultSearchTriggers
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Composer{
		card:      card,
		moods:     moods,
		affect:    affect,
		store:     store,
		completer: completer,
		searcher:  searcher,
		opts:      opts,
		rng:       rand.New(&lockedSource{src: rand.NewSource(seed)}),
		lastReply: make(map[string]struct{}),
	}
}

// Compose runs the reply pipeline for one inbound message. It always
// returns at least one message; silence is never an acceptable outcome.
func (c *Composer) Compose(ctx context.Context, userText string) []string {
	if msgs, ok := c.commandStage(userText); ok {
		return c.finalize(userText, msgs)
	}

	tag := c.moods.Classify(userText)
	c.affect.Observe(userText)

	// Canned fast path: cheap emotional acknowledgments skip the provider.
	if mood.CannedEligible(tag) {
		if line, ok := c.card.MoodLine(c.rng, string(tag)); ok {
			return c.finalize(userText, []string{line})
		}
	}

	// A search hit answers the lookup verbatim, replacing the persona
	// voice entirely.
	if msgs, ok := c.searchStage(ctx, userText); ok {
		return c.finalize(userText, msgs)
	}

	raw, err := c.completeStage(ctx, userText, tag)
	var msgs []string
	if err != nil {
		log.Printf("[composer] completion failed, using fallback pool: %v", err)
		msgs = []string{c.card.FallbackLine(c.rng, c.opts.MatureMode)}
	} else {
		msgs = c.dedupeStage(c.packStage(raw))
	}
	return c.finalize(userText, msgs)
}

// ComposeProactive builds an unsolicited message for a scheduler slot.
// Fixed slots ("morning", "night") draw from canned pools; random slots go
// through the provider with the same fallback guarantees as replies.
func (c *Composer) ComposeProactive(ctx context.Context, slotKind string) []string {
	if line, ok := c.card.SlotLine(c.rng, slotKind); ok {
		c.appendAssistant([]string{line})
		return []string{line}
	}

	prompt := "現在" + time.Now().Format("15:04") + "，主動傳一則短訊息給大叔，自然一點，不要提到這是排程。"
	raw, err := c.completeStage(ctx, prompt, mood.TagNone)
	var msgs []string
	if err != nil {
		log.Printf("[composer] proactive completion failed, using fallback pool: %v", err)
		msgs = []string{c.card.FallbackLine(c.rng, c.opts.MatureMode)}
	} else {
		msgs = c.dedupeStage(c.packStage(raw))
	}
	c.appendAssistant(msgs)
	return msgs
}

// commandStage handles explicit memory commands: 忘記 <key> deletes a
// fact (exact then substring match), 你記得 <keyword> recalls facts.
func (c *Composer) commandStage(userText string) ([]string, bool) {
	text := strings.TrimSpace(userText)
	switch {
	case strings.HasPrefix(text, forgetPrefix):
		key := strings.TrimSpace(strings.TrimPrefix(text, forgetPrefix))
		if key == "" {
			return nil, false
		}
		fact, err := c.store.DeleteFact(key)
		if err != nil {
			return []string{"咻咻本來就不記得「" + key + "」啦"}, true
		}
		return []string{"咻咻把「" + fact.Text + "」忘掉了喔"}, true
	case strings.HasPrefix(text, recallPrefix):
		keyword := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, recallPrefix), "嗎？"))
		keyword = strings.TrimSuffix(keyword, "？")
		if keyword == "" {
			return nil, false
		}
		lines := c.store.Remembered(keyword)
		if len(lines) > MaxMessages {
			lines = lines[:MaxMessages]
		}
		return lines, true
	}
	return nil, false
}

func (c *Composer) searchStage(ctx context.Context, userText string) ([]string, bool) {
	if c.searcher == nil {
		return nil, false
	}
	hit := false
	for _, trig := range c.opts.SearchTriggers {
		if strings.Contains(userText, trig) {
			hit = true
			break
		}
	}
	if !hit {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	result, err := c.searcher.Search(ctx, userText)
	if err != nil {
		log.Printf("[composer] search failed, composing without it: %v", err)
		return nil, false
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return nil, false
	}
	return []string{result}, true
}

func (c *Composer) completeStage(ctx context.Context, userText string, tag mood.Tag) (string, error) {
	tone := mood.ToneFor(tag)
	if tone == "" {
		tone = c.affect.Tone()
	}
	system := []string{c.card.SystemPrompt(), tone}

	if facts, err := c.store.Facts(); err != nil {
		log.Printf("[composer] fact digest warning: %v", err)
	} else if len(facts) > 0 {
		var sb strings.Builder
		sb.WriteString("已知關於大叔的事：")
		for _, f := range facts {
			sb.WriteString("\n- ")
			sb.WriteString(f.Text)
		}
		system = append(system, sb.String())
	}

	var history []provider.Message
	if turns, err := c.store.Recent(c.opts.HistoryDepth); err != nil {
		log.Printf("[composer] history warning: %v", err)
	} else {
		for _, t := range turns {
			history = append(history, provider.Message{Role: t.Role, Content: t.Content})
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.completer.Complete(ctx, system, history, userText, provider.CompleteOptions{
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
}

func (c *Composer) packStage(raw string) []string {
	candidates := splitSentences(raw)
	mode := c.pickMode()
	if mode <= 1 {
		return []string{packSingle(candidates, c.card.ShortLine(c.rng))}
	}
	msgs := packMulti(candidates, mode)
	if len(msgs) == 0 {
		msgs = []string{c.card.ShortLine(c.rng)}
	}
	return msgs
}

func (c *Composer) pickMode() int {
	if c.opts.ModePicker != nil {
		return c.opts.ModePicker()
	}
	if c.rng.Intn(2) == 0 {
		return 1
	}
	return 2 + c.rng.Intn(2)
}

// dedupeStage drops sentences that normalize identically to one already
// emitted in this turn or in the immediately preceding reply.
func (c *Composer) dedupeStage(msgs []string) []string {
	c.lastMu.Lock()
	prior := c.lastReply
	c.lastMu.Unlock()

	seen := make(map[string]struct{}, len(msgs))
	var out []string
	for _, m := range msgs {
		n := normalizeSentence(m)
		if _, dup := seen[n]; dup {
			continue
		}
		if _, dup := prior[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, m)
	}
	if len(out) == 0 {
		out = []string{c.card.ShortLine(c.rng)}
	}
	return out
}

// finalize appends the exchange to short-term history (only after the
// reply text is final, so a crash mid-generation never persists a
// half-formed turn), acknowledges captures, and runs repeat promotion.
func (c *Composer) finalize(userText string, msgs []string) []string {
	if len(msgs) > MaxMessages {
		msgs = msgs[:MaxMessages]
	}

	now := time.Now()
	captured, err := c.store.CaptureIfTriggered(userText, now)
	if err != nil {
		log.Printf("[composer] capture warning: %v", err)
	}
	if captured && len(msgs) < MaxMessages {
		msgs = append(msgs, capturedAck)
	}

	if err := c.store.AppendTurn(memory.Turn{Role: memory.RoleUser, Content: userText, At: now}); err != nil {
		log.Printf("[composer] append user turn warning: %v", err)
	}
	c.appendAssistant(msgs)

	if _, err := c.store.PromoteRepeats(); err != nil {
		log.Printf("[composer] promote warning: %v", err)
	}
	return msgs
}

func (c *Composer) appendAssistant(msgs []string) {
	if len(msgs) == 0 {
		return
	}
	err := c.store.AppendTurn(memory.Turn{
		Role:    memory.RoleAssistant,
		Content: strings.Join(msgs, replySeparator),
		At:      time.Now(),
	})
	if err != nil {
		log.Printf("[composer] append assistant turn warning: %v", err)
	}
	c.recordReply(msgs)
}

func (c *Composer) recordReply(msgs []string) {
	last := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		last[normalizeSentence(m)] = struct{}{}
	}
	c.lastMu.Lock()
	c.lastReply = last
	c.lastMu.Unlock()
}

// lockedSource makes one rand.Rand safe for the gateway loop and the
// scheduler goroutines that share this composer.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}
