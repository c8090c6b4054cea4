package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// MemoryRepository keeps runs in process. Used by tests and dry runs.
type MemoryRepository struct {
	mu   sync.RWMutex
	runs map[string]*contracts.Run
}

// NewMemoryRepository creates an empty store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[string]*contracts.Run)}
}

func (r *MemoryRepository) SaveRun(_ context.Context, run *contracts.Run) error {
	cp := *run
	cp.Rows = slices.Clone(run.Rows)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetLatest(_ context.Context, keyword string) (*contracts.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *contracts.Run
	for _, run := range r.runs {
		if !strings.EqualFold(run.Keyword, strings.TrimSpace(keyword)) {
			continue
		}
		if latest == nil || run.CreatedAt.After(latest.CreatedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, contracts.ErrNotFound
	}
	cp := *latest
	cp.Rows = slices.Clone(latest.Rows)
	return &cp, nil
}

func (r *MemoryRepository) ListRuns(_ context.Context, keyword string, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	keyword = strings.TrimSpace(keyword)

	r.mu.RLock()
	var out []contracts.RunSummary
	for _, run := range r.runs {
		if keyword != "" && !strings.EqualFold(run.Keyword, keyword) {
			continue
		}
		out = append(out, contracts.RunSummary{
			ID:        run.ID,
			Keyword:   run.Keyword,
			Mode:      run.Mode,
			Start:     run.Start,
			End:       run.End,
			Partial:   run.Partial,
			RowCount:  len(run.Rows),
			CreatedAt: run.CreatedAt,
		})
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b contracts.RunSummary) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Close() error { return nil }
