// Package memory implements the cross-run store of corrective prompt
// snippets. The store is logically an append-only log: records are never
// edited or deleted by the evaluation pipeline, and concurrent appenders
// each get a distinct durable position.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/agentmentor/agentqa-go/pkg/core"
)

// DefaultRetrievalLimit caps retrieved snippets to bound rewriter prompt size.
const DefaultRetrievalLimit = 5

// Store is the append-only memory of (issue codes, helpful snippets) pairs.
// Implementations must be safe for concurrent Append and Retrieve: a
// retrieve running alongside an append sees either the pre- or post-append
// state, never a partially written record.
type Store interface {
	// Append adds a record and returns it with its assigned sequence.
	Append(ctx context.Context, rec core.MemoryRecord) (core.MemoryRecord, error)

	// Retrieve returns snippets from records whose issue codes intersect
	// the query, ranked by intersection size with most-recent-first
	// tiebreak, de-duplicated, capped at limit. For a fixed store state
	// and query the result is identical on every call.
	Retrieve(ctx context.Context, codes []core.IssueCode, limit int) ([]string, error)

	// Recent returns the most recently appended snippets, newest first,
	// de-duplicated, capped at limit. Used as a fallback when no record
	// overlaps the query.
	Recent(ctx context.Context, limit int) ([]string, error)

	// Len reports the number of stored records.
	Len(ctx context.Context) (int, error)
}

// ranked pairs a record with its query overlap for deterministic ordering.
type rankedRecord struct {
	rec     core.MemoryRecord
	overlap int
}

// rankAndCollect applies the shared retrieval policy over a snapshot of
// records ordered by ascending sequence.
func rankAndCollect(records []core.MemoryRecord, codes []core.IssueCode, limit int) []string {
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	query := make(map[core.IssueCode]bool, len(codes))
	for _, c := range codes {
		query[c] = true
	}
	if len(query) == 0 {
		return nil
	}

	var ranked []rankedRecord
	for _, rec := range records {
		overlap := 0
		seen := make(map[core.IssueCode]bool, len(rec.IssueCodes))
		for _, c := range rec.IssueCodes {
			if query[c] && !seen[c] {
				seen[c] = true
				overlap++
			}
		}
		if overlap > 0 {
			ranked = append(ranked, rankedRecord{rec: rec, overlap: overlap})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].overlap != ranked[j].overlap {
			return ranked[i].overlap > ranked[j].overlap
		}
		return ranked[i].rec.Sequence > ranked[j].rec.Sequence
	})

	return collectSnippets(ranked, limit)
}

func collectSnippets(ranked []rankedRecord, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range ranked {
		for _, s := range r.rec.Snippets {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// recentSnippets implements the fallback policy over an ascending snapshot.
func recentSnippets(records []core.MemoryRecord, limit int) []string {
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	var out []string
	seen := make(map[string]bool)
	for i := len(records) - 1; i >= 0; i-- {
		for _, s := range records[i].Snippets {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// InMemoryStore keeps records in process memory. Used by tests and
// ephemeral runs; the durable implementation is SQLiteStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []core.MemoryRecord
	nextSeq int64
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextSeq: 1}
}

func (s *InMemoryStore) Append(ctx context.Context, rec core.MemoryRecord) (core.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Sequence = s.nextSeq
	s.nextSeq++
	// Copy slices so callers cannot mutate stored state.
	rec.IssueCodes = append([]core.IssueCode(nil), rec.IssueCodes...)
	rec.Snippets = append([]string(nil), rec.Snippets...)
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *InMemoryStore) Retrieve(ctx context.Context, codes []core.IssueCode, limit int) ([]string, error) {
	s.mu.RLock()
	snapshot := append([]core.MemoryRecord(nil), s.records...)
	s.mu.RUnlock()
	return rankAndCollect(snapshot, codes, limit), nil
}

func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	snapshot := append([]core.MemoryRecord(nil), s.records...)
	s.mu.RUnlock()
	return recentSnippets(snapshot, limit), nil
}

func (s *InMemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
