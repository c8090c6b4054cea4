package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// Format is an output encoding
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// TimestampLayout is the execution timestamp embedded in file names
const TimestampLayout = "02-01-2006 15-04"

// rowLayout renders row times; shifted rows keep their clock time
const rowLayout = "2006-01-02 15:04:05"

// ParseFormat accepts csv, parquet or json (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatParquet, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Ext is the file extension including the dot
func (f Format) Ext() string { return "." + string(f) }

// Record is the Parquet schema of one exported day
type Record struct {
	Keyword string  `parquet:"keyword"`
	Date    int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Value   float64 `parquet:"value"`
	Overlap bool    `parquet:"overlap"`
}

// Document is the JSON shape of an export
type Document struct {
	RunID   string          `json:"run_id"`
	Keyword string          `json:"keyword"`
	Mode    string          `json:"mode"`
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Partial bool            `json:"partial"`
	Failure string          `json:"failure,omitempty"`
	Rows    []contracts.Row `json:"rows"`
}

// Write encodes run to w
func Write(w io.Writer, f Format, run *contracts.Run) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, run)
	case FormatParquet:
		return parquet.Write(w, Records(run))
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Document{
			RunID:   run.ID,
			Keyword: run.Keyword,
			Mode:    run.Mode,
			Start:   run.Start.Format(contracts.DateLayout),
			End:     run.End.Format(contracts.DateLayout),
			Partial: run.Partial,
			Failure: run.Failure,
			Rows:    run.Rows,
		})
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// Filename is "<ticker> <dd-mm-yyyy HH-MM><ext>"
func Filename(ticker string, at time.Time, f Format) string {
	return ticker + " " + at.Format(TimestampLayout) + f.Ext()
}

// WriteFile writes run into dir under Filename and returns the path
func WriteFile(dir, ticker string, at time.Time, f Format, run *contracts.Run) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, Filename(ticker, at, f))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := Write(file, f, run); err != nil {
		file.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Records converts rows to the Parquet schema
func Records(run *contracts.Run) []Record {
	out := make([]Record, len(run.Rows))
	for i, r := range run.Rows {
		out[i] = Record{Keyword: run.Keyword, Date: r.Time.UnixMilli(), Value: r.Value, Overlap: r.Overlap}
	}
	return out
}

// writeCSV writes "date,<keyword>,overlap"
func writeCSV(w io.Writer, run *contracts.Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", run.Keyword, "overlap"}); err != nil {
		return err
	}
	for _, r := range run.Rows {
		date := r.Time.Format(contracts.DateLayout)
		if !r.Time.Equal(contracts.Day(r.Time)) {
			date = r.Time.UTC().Format(rowLayout)
		}
		if err := cw.Write([]string{
			date,
			strconv.FormatFloat(r.Value, 'f', -1, 64),
			strconv.FormatBool(r.Overlap),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
