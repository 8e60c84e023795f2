package cron

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Result records the most recent run of a maintenance job.
type Result struct {
	At  time.Time
	Err string
}

// Service runs the daily maintenance jobs: memory decay, the short-term
// reset, and the snapshot backup. Jobs are wall-clock daily at "HH:MM"
// in the configured timezone.
type Service struct {
	loc  *time.Location
	cron *rcron.Cron

	mu   sync.Mutex
	last map[string]Result
}

func NewService(timezone string) (*Service, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Service{
		loc:  loc,
		cron: rcron.New(rcron.WithSeconds(), rcron.WithLocation(loc)),
		last: make(map[string]Result),
	}, nil
}

// AddDaily registers fn to run every day at the given "HH:MM".
func (s *Service) AddDaily(name, at string, fn func() error) error {
	spec, err := cronSpec(at)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.runJob(name, fn) }); err != nil {
		return fmt.Errorf("register job %s (%s): %w", name, spec, err)
	}
	return nil
}

func (s *Service) runJob(name string, fn func() error) {
	log.Printf("[cron] executing job %s", name)
	res := Result{At: time.Now().In(s.loc)}
	if err := fn(); err != nil {
		res.Err = err.Error()
		log.Printf("[cron] job %s error: %v", name, err)
	} else {
		log.Printf("[cron] job %s done", name)
	}
	s.mu.Lock()
	s.last[name] = res
	s.mu.Unlock()
}

func (s *Service) Start() {
	s.cron.Start()
	log.Printf("[cron] started with %d jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// LastResult reports the outcome of the named job's most recent run.
func (s *Service) LastResult(name string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.last[name]
	return res, ok
}

// cronSpec converts "HH:MM" into a six-field daily cron expression.
func cronSpec(at string) (string, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, want HH:MM", at)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return "", fmt.Errorf("invalid hour in %q", at)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return "", fmt.Errorf("invalid minute in %q", at)
	}
	return fmt.Sprintf("0 %d %d * * *", mm, hh), nil
}
