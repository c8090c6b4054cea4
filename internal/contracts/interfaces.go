package contracts

import (
	"context"
	"strings"
	"time"
)

// Query is one interest-over-time request
type Query struct {
	Keywords  []string
	Timeframe string
	Category  int
	Geo       string
	Property  string // "", "images", "news", "youtube", "froogle"
}

// Column is one named value column of a Frame
type Column struct {
	Name   string
	Values []float64
}

// Frame is the tabular interest-over-time answer of the source.
// Partial carries the source's per-row partial-period flag and may be nil.
type Frame struct {
	Index   []time.Time
	Columns []Column
	Partial []bool
}

// Len returns the number of rows
func (f *Frame) Len() int { return len(f.Index) }

// Column finds a column by exact name, falling back to a case-insensitive match
func (f *Frame) Column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range f.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// TrendsFetcher retrieves interest-over-time frames from the remote source
// ⭐ SSOT: 외부 소스 경계 인터페이스
type TrendsFetcher interface {
	InterestOverTime(ctx context.Context, q Query) (*Frame, error)
}
