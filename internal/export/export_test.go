package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

func testRun() *contracts.Run {
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	return &contracts.Run{
		ID:      "run-1",
		Keyword: "iphone",
		Mode:    "overlapped",
		Start:   start,
		End:     start.AddDate(0, 0, 2),
		Rows: []contracts.Row{
			{Time: start, Value: 42},
			{Time: start.AddDate(0, 0, 1), Value: 100, Overlap: true},
			{Time: start.AddDate(0, 0, 2), Value: 12.5},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" parquet ", FormatParquet, false},
		{"json", FormatJSON, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, testRun()))

	want := "date,iphone,overlap\n" +
		"2017-01-01,42,false\n" +
		"2017-01-02,100,true\n" +
		"2017-01-03,12.5,false\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_ShiftedTimes(t *testing.T) {
	run := testRun()
	for i := range run.Rows {
		run.Rows[i].Time = run.Rows[i].Time.Add(8 * time.Hour)
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, run))
	assert.Contains(t, buf.String(), "2017-01-01 08:00:00,42,false\n")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, testRun()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "iphone", doc.Keyword)
	assert.Equal(t, "2017-01-01", doc.Start)
	assert.Equal(t, "2017-01-03", doc.End)
	require.Len(t, doc.Rows, 3)
	assert.True(t, doc.Rows[1].Overlap)
	assert.Contains(t, buf.String(), `"date": "2017-01-02T00:00:00Z"`)
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatParquet, testRun()))

	records, err := parquet.Read[Record](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "iphone", records[0].Keyword)
	assert.Equal(t, time.Date(2017, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), records[1].Date)
	assert.Equal(t, 100.0, records[1].Value)
	assert.True(t, records[1].Overlap)
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	at := time.Date(2019, 11, 23, 14, 5, 0, 0, time.UTC)

	path, err := WriteFile(dir, "AAPL", at, FormatCSV, testRun())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AAPL 23-11-2019 14-05.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("date,iphone,overlap\n")))
}
