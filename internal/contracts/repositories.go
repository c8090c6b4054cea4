package contracts

import (
	"context"
	"errors"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ErrNotFound is returned when no stored run matches
var ErrNotFound = errors.New("not found")

// Row is one finalized day of a stitched series
type Row struct {
	Time    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Overlap bool      `json:"overlap"`
}

// Run is a persisted stitching result
type Run struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	Mode      string    `json:"mode"` // overlapped, original, reference
	Geo       string    `json:"geo"`
	Category  int       `json:"category"`
	Property  string    `json:"property"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Partial   bool      `json:"partial"`
	Failure   string    `json:"failure,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Rows      []Row     `json:"rows,omitempty"`
}

// RunSummary is a Run without its rows
type RunSummary struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	Mode      string    `json:"mode"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Partial   bool      `json:"partial"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// SeriesRepository stores stitched runs
type SeriesRepository interface {
	SaveRun(ctx context.Context, run *Run) error
	GetLatest(ctx context.Context, keyword string) (*Run, error)
	ListRuns(ctx context.Context, keyword string, limit int) ([]RunSummary, error)
	Close() error
}
