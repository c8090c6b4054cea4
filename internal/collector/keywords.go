package collector

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keyword is one entry of a batch. Ticker names the output file.
type Keyword struct {
	Ticker  string `yaml:"ticker" json:"ticker"`
	Keyword string `yaml:"keyword" json:"keyword"`
}

// keywordFile is the YAML layout: either a bare list or {keywords: [...]}
type keywordFile struct {
	Keywords []Keyword `yaml:"keywords"`
}

// LoadKeywords reads a keyword list. ".csv" files carry "ticker,keyword"
// columns (header optional); ".yaml"/".yml" files hold a list of
// {ticker, keyword} objects, optionally under a "keywords" key.
func LoadKeywords(path string) ([]Keyword, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyword list: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadKeywordsCSV(f)
	case ".yaml", ".yml":
		return ReadKeywordsYAML(f)
	default:
		return nil, fmt.Errorf("unsupported keyword list %q (want .csv, .yaml or .yml)", path)
	}
}

// ReadKeywordsCSV parses "ticker,keyword" records. A single column is
// used as both ticker and keyword.
func ReadKeywordsCSV(r io.Reader) ([]Keyword, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Keyword
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("keyword csv line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "ticker") {
			continue // header
		}

		var k Keyword
		switch len(rec) {
		case 1:
			k = Keyword{Ticker: rec[0], Keyword: rec[0]}
		default:
			k = Keyword{Ticker: rec[0], Keyword: rec[1]}
		}
		if k, ok := normalize(k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// ReadKeywordsYAML parses a YAML keyword list
func ReadKeywordsYAML(r io.Reader) ([]Keyword, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var list []Keyword
	if err := yaml.Unmarshal(data, &list); err != nil {
		var file keywordFile
		if err2 := yaml.Unmarshal(data, &file); err2 != nil {
			return nil, fmt.Errorf("parse keyword yaml: %w", err)
		}
		list = file.Keywords
	}

	out := make([]Keyword, 0, len(list))
	for _, k := range list {
		if k, ok := normalize(k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// ParseKeywords turns CLI arguments into keywords. "TICKER=keyword" sets
// the ticker explicitly.
func ParseKeywords(args []string) []Keyword {
	out := make([]Keyword, 0, len(args))
	for _, arg := range args {
		k := Keyword{Ticker: arg, Keyword: arg}
		if ticker, kw, ok := strings.Cut(arg, "="); ok {
			k = Keyword{Ticker: ticker, Keyword: kw}
		}
		if k, ok := normalize(k); ok {
			out = append(out, k)
		}
	}
	return out
}

func normalize(k Keyword) (Keyword, bool) {
	k.Ticker = strings.TrimSpace(k.Ticker)
	k.Keyword = strings.TrimSpace(k.Keyword)
	if k.Keyword == "" {
		return k, false
	}
	if k.Ticker == "" {
		k.Ticker = k.Keyword
	}
	return k, true
}
