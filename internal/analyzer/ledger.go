package analyzer

import (
	"sync"
	"time"
	"unicode/utf8"
)

// UsageEntry records one completed inference call.
type UsageEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Kind           string    `json:"kind"`
	Model          string    `json:"model"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
	TotalTokens    int       `json:"total_tokens"`
}

// TokenStats is a snapshot of the ledger.
type TokenStats struct {
	TotalTokens   int          `json:"total_tokens"`
	RequestsCount int          `json:"requests_count"`
	Entries       []UsageEntry `json:"entries"`
}

// Ledger accumulates estimated token usage. Safe for concurrent use.
type Ledger struct {
	mu    sync.Mutex
	stats TokenStats
}

// EstimateTokens approximates tokens as four characters each.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

func (l *Ledger) add(entry UsageEntry) UsageEntry {
	entry.TotalTokens = entry.PromptTokens + entry.ResponseTokens

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.TotalTokens += entry.TotalTokens
	l.stats.RequestsCount++
	l.stats.Entries = append(l.stats.Entries, entry)
	return entry
}

// Snapshot returns a copy that later calls will not modify.
func (l *Ledger) Snapshot() TokenStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.stats
	out.Entries = append([]UsageEntry(nil), l.stats.Entries...)
	return out
}
