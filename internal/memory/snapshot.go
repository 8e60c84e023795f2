package memory

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the JSON shape handed to the backup collaborator after
// store mutations: the long-term log with persona cards, plus the bounded
// short-term window (role/content pairs, most-recent-last).
type Snapshot struct {
	Logs         []SnapshotLog              `json:"logs"`
	PersonaCards map[string]json.RawMessage `json:"personaCards"`
	ShortTerm    []SnapshotTurn             `json:"shortTerm"`
}

type SnapshotLog struct {
	Text string `json:"text"`
	Time string `json:"time"`
}

type SnapshotTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Snapshot assembles the current persisted state. Each read runs under
// the store mutex, so it never observes a half-applied mutation.
func (s *Store) Snapshot() (*Snapshot, error) {
	facts, err := s.Facts()
	if err != nil {
		return nil, err
	}
	turns, err := s.History()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Logs:         make([]SnapshotLog, 0, len(facts)),
		PersonaCards: make(map[string]json.RawMessage),
		ShortTerm:    make([]SnapshotTurn, 0, len(turns)),
	}
	for _, f := range facts {
		snap.Logs = append(snap.Logs, SnapshotLog{Text: f.Text, Time: f.At.UTC().Format(time.RFC3339)})
	}
	for _, t := range turns {
		snap.ShortTerm = append(snap.ShortTerm, SnapshotTurn{Role: t.Role, Content: t.Content})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT name, card FROM persona_cards`)
	if err != nil {
		return nil, fmt.Errorf("snapshot persona cards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, card string
		if err := rows.Scan(&name, &card); err != nil {
			return nil, err
		}
		snap.PersonaCards[name] = json.RawMessage(card)
	}
	return snap, rows.Err()
}

// Marshal renders the snapshot for the backup collaborator.
func (sn *Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(sn, "", "  ")
}
