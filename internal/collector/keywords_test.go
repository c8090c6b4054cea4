package collector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadKeywordsCSV(t *testing.T) {
	in := "ticker,keyword\nAAPL,iphone\n  TSLA , tesla model 3\nnvidia\n,\n"
	got, err := ReadKeywordsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Keyword{
		{Ticker: "AAPL", Keyword: "iphone"},
		{Ticker: "TSLA", Keyword: "tesla model 3"},
		{Ticker: "nvidia", Keyword: "nvidia"},
	}, got)
}

func TestReadKeywordsYAML(t *testing.T) {
	t.Run("bare list", func(t *testing.T) {
		in := "- ticker: AAPL\n  keyword: iphone\n- keyword: pixel\n"
		got, err := ReadKeywordsYAML(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []Keyword{{Ticker: "AAPL", Keyword: "iphone"}, {Ticker: "pixel", Keyword: "pixel"}}, got)
	})

	t.Run("keywords key", func(t *testing.T) {
		in := "keywords:\n  - ticker: GOOG\n    keyword: android\n"
		got, err := ReadKeywordsYAML(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []Keyword{{Ticker: "GOOG", Keyword: "android"}}, got)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ReadKeywordsYAML(strings.NewReader("keywords: [unterminated"))
		assert.Error(t, err)
	})
}

func TestLoadKeywords(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "search_df.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("ticker,keyword\nAAPL,iphone\n"), 0o644))
	got, err := LoadKeywords(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []Keyword{{Ticker: "AAPL", Keyword: "iphone"}}, got)

	txtPath := filepath.Join(dir, "keywords.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("iphone"), 0o644))
	_, err = LoadKeywords(txtPath)
	assert.Error(t, err)

	_, err = LoadKeywords(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseKeywords(t *testing.T) {
	got := ParseKeywords([]string{"iphone", "AAPL=ipad", " ", "=orphan"})
	assert.Equal(t, []Keyword{
		{Ticker: "iphone", Keyword: "iphone"},
		{Ticker: "AAPL", Keyword: "ipad"},
		{Ticker: "orphan", Keyword: "orphan"},
	}, got)
}
