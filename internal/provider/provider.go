// Package provider declares the external collaborator contracts the
// engine depends on. Implementations (LLM backends, web search, remote
// backup stores) live outside this repository and are injected through
// gateway options, the same way tests inject fakes.
package provider

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Message is one prior exchange handed to the completion provider.
type Message struct {
	Role    string
	Content string
}

type CompleteOptions struct {
	Temperature float64
	MaxTokens   int
}

// Completer produces a raw completion for the assembled context.
// Implementations must honor ctx cancellation; the composer calls with a
// bounded timeout and falls back to phrase pools on error.
type Completer interface {
	Complete(ctx context.Context, system []string, history []Message, userMessage string, opts CompleteOptions) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system []string, history []Message, userMessage string, opts CompleteOptions) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system []string, history []Message, userMessage string, opts CompleteOptions) (string, error) {
	return f(ctx, system, history, userMessage, opts)
}

// Searcher answers a lookup query with a short text summary, or empty
// when nothing useful was found. Errors are treated as empty results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type SearcherFunc func(ctx context.Context, query string) (string, error)

func (f SearcherFunc) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// Backup receives a serialized memory snapshot. Fire-and-forget: callers
// never block on it and failures are only logged.
type Backup interface {
	Persist(snapshot []byte)
}

// ErrNoProvider is what the offline completer always returns, driving the
// composer down its fallback path.
var ErrNoProvider = errors.New("no completion provider configured")

// Offline is the collaborator set used when nothing real is wired: the
// completer always errors (so replies come from persona pools) and search
// finds nothing. The bot stays responsive either way.
type Offline struct{}

func (Offline) Complete(ctx context.Context, system []string, history []Message, userMessage string, opts CompleteOptions) (string, error) {
	return "", ErrNoProvider
}

func (Offline) Search(ctx context.Context, query string) (string, error) {
	return "", nil
}

func (Offline) Persist(snapshot []byte) {}

// FileBackup writes snapshots under a local directory: a rolling latest
// copy plus one dated file per day, mirroring the remote store's layout.
type FileBackup struct {
	Dir string
}

func (b *FileBackup) Persist(snapshot []byte) {
	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		log.Printf("[backup] create dir: %v", err)
		return
	}
	latest := filepath.Join(b.Dir, "xiu_xiu_memory_backup.json")
	if err := os.WriteFile(latest, snapshot, 0644); err != nil {
		log.Printf("[backup] write latest: %v", err)
	}
	dated := filepath.Join(b.Dir, "memory_"+time.Now().Format("2006-01-02")+".json")
	if err := os.WriteFile(dated, snapshot, 0644); err != nil {
		log.Printf("[backup] write daily: %v", err)
	}
}
