// Package scheduler maintains the daily proactive-message plan and fires
// time-boxed slots exactly once per slot per day.
package scheduler

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	SlotMorning = "morning"
	SlotNight   = "night"
	SlotRandom  = "random"
)

// Slot is one scheduled firing time for the current date.
type Slot struct {
	ID   string
	At   string // "HH:MM" in the target timezone
	Kind string
}

// Plan is one calendar day's dispatch schedule. Regenerated whole on date
// rollover; never merged with the previous day's plan.
type Plan struct {
	Date  string // "2006-01-02"
	Slots []Slot
}

type Options struct {
	Timezone       string
	FixedSlots     []string // first is the morning slot, last the night slot
	RandomSlotsMin int
	RandomSlotsMax int
	WindowStart    int // hour, inclusive
	WindowEnd      int // hour, exclusive
	Tick           time.Duration
	// Now overrides the clock; tests use it.
	Now func() time.Time
	// Seed fixes slot randomization; 0 means wall clock.
	Seed int64
}

// Dispatch delivers the proactive content for one due slot. It runs on
// its own goroutine so a slow transport never blocks the next tick, and
// the slot is marked sent before it is called: mark on attempt, not on
// confirmed delivery, bounding duplicate risk at the cost of the
// occasional missed message.
type Dispatch func(slot Slot)

type Scheduler struct {
	mu   sync.Mutex
	plan Plan
	sent map[string]struct{} // slot-id; cleared with each new plan

	loc      *time.Location
	opts     Options
	rng      *rand.Rand
	dispatch Dispatch
	now      func() time.Time
}

func New(opts Options, dispatch Dispatch) (*Scheduler, error) {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, err
	}
	if opts.Tick <= 0 {
		opts.Tick = 15 * time.Second
	}
	if opts.RandomSlotsMin <= 0 {
		opts.RandomSlotsMin = 2
	}
	if opts.RandomSlotsMax < opts.RandomSlotsMin {
		opts.RandomSlotsMax = opts.RandomSlotsMin
	}
	if opts.WindowEnd <= opts.WindowStart {
		opts.WindowStart, opts.WindowEnd = 9, 22
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		sent:     make(map[string]struct{}),
		loc:      loc,
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
		dispatch: dispatch,
		now:      now,
	}, nil
}

// Run ticks until ctx is cancelled. Each tick rolls the plan over on a
// new date and fires any due, unfired slots.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	s.Tick()
	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// Tick is one scheduling step. Exported so tests can drive the clock.
func (s *Scheduler) Tick() {
	now := s.now().In(s.loc)
	date := now.Format("2006-01-02")
	hhmm := now.Format("15:04")

	s.mu.Lock()
	if s.plan.Date != date {
		s.installPlan(date)
	}
	var due []Slot
	for _, slot := range s.plan.Slots {
		if slot.At != hhmm {
			continue
		}
		if _, fired := s.sent[slot.ID]; fired {
			continue
		}
		// Mark before dispatch: at most once per slot per date, no matter
		// how many ticks land on this minute or whether the send fails.
		s.sent[slot.ID] = struct{}{}
		due = append(due, slot)
	}
	s.mu.Unlock()

	for _, slot := range due {
		log.Printf("[scheduler] slot %s (%s %s) due, dispatching", slot.ID, slot.Kind, slot.At)
		go s.dispatch(slot)
	}
}

// installPlan atomically replaces the plan and discards the old date's
// send marks. Caller holds s.mu.
func (s *Scheduler) installPlan(date string) {
	plan := Plan{Date: date}
	for i, at := range s.opts.FixedSlots {
		kind := SlotMorning
		if i == len(s.opts.FixedSlots)-1 && len(s.opts.FixedSlots) > 1 {
			kind = SlotNight
		}
		plan.Slots = append(plan.Slots, Slot{ID: uuid.NewString(), At: at, Kind: kind})
	}

	n := s.opts.RandomSlotsMin
	if spread := s.opts.RandomSlotsMax - s.opts.RandomSlotsMin; spread > 0 {
		n += s.rng.Intn(spread + 1)
	}
	used := make(map[string]struct{}, len(plan.Slots))
	for _, slot := range plan.Slots {
		used[slot.At] = struct{}{}
	}
	target := len(used) + n
	for len(used) < target {
		hour := s.opts.WindowStart + s.rng.Intn(s.opts.WindowEnd-s.opts.WindowStart)
		at := time.Date(2000, 1, 1, hour, s.rng.Intn(60), 0, 0, time.UTC).Format("15:04")
		if _, dup := used[at]; dup {
			continue
		}
		used[at] = struct{}{}
		plan.Slots = append(plan.Slots, Slot{ID: uuid.NewString(), At: at, Kind: SlotRandom})
	}
	sort.Slice(plan.Slots, func(i, j int) bool { return plan.Slots[i].At < plan.Slots[j].At })

	s.plan = plan
	s.sent = make(map[string]struct{})
	log.Printf("[scheduler] plan for %s: %d slots", date, len(plan.Slots))
}

// PlanSnapshot returns a copy of the current plan.
func (s *Scheduler) PlanSnapshot() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Plan{Date: s.plan.Date, Slots: make([]Slot, len(s.plan.Slots))}
	copy(out.Slots, s.plan.Slots)
	return out
}
