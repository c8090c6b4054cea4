package stitch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// Kind classifies a stitching failure
type Kind int

const (
	KindFetch Kind = iota + 1
	KindEmptyOverlap
	KindZeroDenominator
	KindZeroMaximum
	KindInvalidPlan
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindEmptyOverlap:
		return "empty_overlap"
	case KindZeroDenominator:
		return "zero_denominator"
	case KindZeroMaximum:
		return "zero_maximum"
	case KindInvalidPlan:
		return "invalid_plan"
	case KindShape:
		return "shape"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StitchError reports which window (and which predecessor) a run failed on
type StitchError struct {
	Kind     Kind
	Keyword  string
	Window   *contracts.Window
	Previous *contracts.Window
	Err      error
}

func (e *StitchError) Error() string {
	var b strings.Builder
	b.WriteString("stitch ")
	b.WriteString(e.Kind.String())
	if e.Keyword != "" {
		fmt.Fprintf(&b, " keyword=%q", e.Keyword)
	}
	if e.Window != nil {
		fmt.Fprintf(&b, " window=%s", e.Window.Timeframe())
	}
	if e.Previous != nil {
		fmt.Fprintf(&b, " previous=%s", e.Previous.Timeframe())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StitchError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err
func KindOf(err error) (Kind, bool) {
	var se *StitchError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

func newError(kind Kind, format string, args ...interface{}) *StitchError {
	return &StitchError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// annotate fills in the run context the pure helpers do not know about
func annotate(err error, keyword string, w, prev *contracts.Window) error {
	var se *StitchError
	if !errors.As(err, &se) {
		return &StitchError{Kind: KindFetch, Keyword: keyword, Window: w, Previous: prev, Err: err}
	}
	out := *se
	if out.Keyword == "" {
		out.Keyword = keyword
	}
	if out.Window == nil {
		out.Window = w
	}
	if out.Previous == nil {
		out.Previous = prev
	}
	return &out
}
