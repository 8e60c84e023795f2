// Package memory owns the two-tier conversation memory: a bounded
// short-term window of recent turns and a long-term fact log. All access
// is serialized through one mutex and sqlite transactions, so interleaved
// webhook handling and scheduler ticks cannot lose updates.
package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NotRememberedLine is the sentinel answer for queries that match nothing.
const NotRememberedLine = "咻咻還沒記住那件事耶～"

// ErrNotFound is returned by DeleteFact when no fact matches the key.
var ErrNotFound = errors.New("fact not found")

// Turn is one exchanged message. Never mutated after creation.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// Fact is one remembered statement about the user.
type Fact struct {
	Text string
	At   time.Time
}

// DefaultCaptureTriggers mark input worth remembering verbatim.
var DefaultCaptureTriggers = []string{"記住", "我喜歡", "我最喜歡", "我討厭", "我最愛", "生日", "紀念日"}

type Options struct {
	ShortTermCap     int
	Retention        time.Duration
	PromoteThreshold int
	CaptureTriggers  []string
}

type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	opts Options
}

// NewStore opens (or creates) the store at dbPath. A corrupt database is
// treated as empty: the file is discarded and recreated once, never fatal.
func NewStore(dbPath string, opts Options) (*Store, error) {
	if opts.ShortTermCap <= 0 {
		opts.ShortTermCap = 15
	}
	if opts.Retention <= 0 {
		opts.Retention = 3 * 24 * time.Hour
	}
	if opts.PromoteThreshold <= 0 {
		opts.PromoteThreshold = 3
	}
	if len(opts.CaptureTriggers) == 0 {
		opts.CaptureTriggers = DefaultCaptureTriggers
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := open(dbPath)
	if err != nil {
		log.Printf("[memory] store at %s unusable (%v), starting empty", dbPath, err)
		_ = os.Remove(dbPath)
		db, err = open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("recreate store: %w", err)
		}
	}
	return &Store{db: db, opts: opts}, nil
}

func open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS short_term (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS long_term (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS persona_cards (
			name TEXT PRIMARY KEY,
			card TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_short_term_created ON short_term(created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return db, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendTurn pushes a turn onto the short-term window and evicts the
// oldest entries past capacity. Always succeeds short of I/O failure.
func (s *Store) AppendTurn(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.At.IsZero() {
		t.At = time.Now()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO short_term (role, content, created_at) VALUES (?, ?, ?)`,
		t.Role, t.Content, t.At.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM short_term WHERE id NOT IN (SELECT id FROM short_term ORDER BY id DESC LIMIT ?)`,
		s.opts.ShortTermCap,
	); err != nil {
		return fmt.Errorf("evict short term: %w", err)
	}
	return tx.Commit()
}

// Recent returns the most recent n turns in chronological order.
func (s *Store) Recent(n int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at FROM short_term ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// History returns the whole short-term window, oldest first.
func (s *Store) History() ([]Turn, error) {
	return s.Recent(s.opts.ShortTermCap)
}

// CaptureIfTriggered stores text as a long-term fact when it contains a
// capture trigger and is not already present verbatim. Reports whether a
// capture actually occurred, so callers can acknowledge it to the user.
func (s *Store) CaptureIfTriggered(text string, at time.Time) (bool, error) {
	triggered := false
	for _, trig := range s.opts.CaptureTriggers {
		if strings.Contains(text, trig) {
			triggered = true
			break
		}
	}
	if !triggered {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO long_term (content, created_at) VALUES (?, ?)`,
		text, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("capture fact: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// PromoteRepeats promotes any text repeated at least the threshold number
// of times in the short-term window into the long-term log. Returns the
// newly promoted texts.
func (s *Store) PromoteRepeats() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT content FROM short_term GROUP BY content HAVING COUNT(*) >= ?`,
		s.opts.PromoteThreshold)
	if err != nil {
		return nil, fmt.Errorf("scan repeats: %w", err)
	}
	var candidates []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, text)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var promoted []string
	for _, text := range candidates {
		res, err := s.db.Exec(
			`INSERT OR IGNORE INTO long_term (content, created_at) VALUES (?, ?)`, text, now)
		if err != nil {
			return promoted, fmt.Errorf("promote %q: %w", text, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			promoted = append(promoted, text)
		}
	}
	return promoted, nil
}

// Decay prunes short-term entries older than the retention window.
// Long-term facts are never touched. Returns the number removed.
func (s *Store) Decay(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.opts.Retention).UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(`DELETE FROM short_term WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("decay: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Reset clears the short-term window wholesale (the daily reset).
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM short_term`); err != nil {
		return fmt.Errorf("reset short term: %w", err)
	}
	return nil
}

// DeleteFact removes the first fact whose text equals key, falling back to
// the first substring match. Returns the removed fact or ErrNotFound.
func (s *Store) DeleteFact(key string) (Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fact, id, err := s.findFact(`content = ?`, key)
	if errors.Is(err, ErrNotFound) {
		fact, id, err = s.findFact(`instr(content, ?) > 0`, key)
	}
	if err != nil {
		return Fact{}, err
	}
	if _, err := s.db.Exec(`DELETE FROM long_term WHERE id = ?`, id); err != nil {
		return Fact{}, fmt.Errorf("delete fact: %w", err)
	}
	return fact, nil
}

func (s *Store) findFact(cond, key string) (Fact, int64, error) {
	row := s.db.QueryRow(
		`SELECT id, content, created_at FROM long_term WHERE `+cond+` ORDER BY id LIMIT 1`, key)
	var (
		id      int64
		text    string
		created string
	)
	if err := row.Scan(&id, &text, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Fact{}, 0, ErrNotFound
		}
		return Fact{}, 0, fmt.Errorf("find fact: %w", err)
	}
	at, _ := time.Parse(time.RFC3339Nano, created)
	return Fact{Text: text, At: at}, id, nil
}

// Query returns all long-term facts containing keyword, oldest first.
func (s *Store) Query(keyword string) ([]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT content, created_at FROM long_term WHERE instr(content, ?) > 0 ORDER BY id`, keyword)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// Remembered formats a query as user-facing lines, substituting the
// sentinel when nothing matches.
func (s *Store) Remembered(keyword string) []string {
	facts, err := s.Query(keyword)
	if err != nil {
		log.Printf("[memory] query warning: %v", err)
	}
	if len(facts) == 0 {
		return []string{NotRememberedLine}
	}
	lines := make([]string, len(facts))
	for i, f := range facts {
		lines[i] = f.Text
	}
	return lines
}

// Facts returns the whole long-term log, oldest first.
func (s *Store) Facts() ([]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT content, created_at FROM long_term ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// SetPersonaCard stores the serialized card alongside the fact log so
// snapshots carry the full persisted shape.
func (s *Store) SetPersonaCard(name string, card json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		`INSERT INTO persona_cards (name, card) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET card = excluded.card`, name, string(card)); err != nil {
		return fmt.Errorf("set persona card: %w", err)
	}
	return nil
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var turns []Turn
	for rows.Next() {
		var (
			t       Turn
			created string
		)
		if err := rows.Scan(&t.Role, &t.Content, &created); err != nil {
			return nil, err
		}
		t.At, _ = time.Parse(time.RFC3339Nano, created)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func scanFacts(rows *sql.Rows) ([]Fact, error) {
	var facts []Fact
	for rows.Next() {
		var (
			f       Fact
			created string
		)
		if err := rows.Scan(&f.Text, &created); err != nil {
			return nil, err
		}
		f.At, _ = time.Parse(time.RFC3339Nano, created)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
