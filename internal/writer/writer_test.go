package writer

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"csvsplit/pkg/records"
)

const marker = "start"

func newWriter(t *testing.T, h *records.HeaderMap, limit int) (*ChunkWriter, string) {
	t.Helper()
	base := filepath.Join(t.TempDir(), "out.csv")
	w, err := New(h, Options{
		BasePath:    base,
		Limit:       limit,
		Encoding:    unicode.UTF8,
		QuoteAll:    false,
		TableMarker: marker,
		TableStart:  "*",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return w, base
}

// readLines returns the lines of a chunk file without the trailing newline.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
}

func chunkFiles(t *testing.T, base string) []string {
	t.Helper()
	matches, err := filepath.Glob(strings.TrimSuffix(base, ".csv") + "_*.csv")
	require.NoError(t, err)
	return matches
}

func simpleHeader() *records.HeaderMap {
	return records.NewHeaderMap([]records.Column{{Key: "id", Name: "id"}, {Key: "v[0]", Name: "v"}, {Key: "v[1]", Name: "v"}})
}

func TestModeFor(t *testing.T) {
	t.Parallel()

	h := records.NewHeaderMap([]records.Column{{Key: marker, Name: marker}})
	assert.Equal(t, ModeTable, ModeFor(h, marker))
	assert.Equal(t, ModeSimple, ModeFor(h, "other"))
	assert.Equal(t, ModeSimple, ModeFor(h, ""))
	assert.Equal(t, "table", ModeTable.String())
	assert.Equal(t, "simple", ModeSimple.String())
}

func TestNew_RejectsBadOptions(t *testing.T) {
	t.Parallel()

	h := simpleHeader()
	_, err := New(h, Options{BasePath: "out.csv", Limit: 0, Encoding: unicode.UTF8})
	assert.Error(t, err)
	_, err = New(h, Options{BasePath: "out.csv", Limit: 1})
	assert.Error(t, err)
	_, err = New(h, Options{BasePath: "out.tsv", Limit: 1, Encoding: unicode.UTF8})
	assert.ErrorIs(t, err, ErrBadOutputPath)
}

func TestChunkWriter_SimpleMode(t *testing.T) {
	t.Parallel()

	w, base := newWriter(t, simpleHeader(), 3)
	require.Equal(t, ModeSimple, w.Mode())

	for i := 1; i <= 7; i++ {
		n := strconv.Itoa(i)
		require.NoError(t, w.WriteRow(records.Row{"id": n, "v[0]": "a" + n, "v[1]": "b" + n}))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Equal(t, 7, w.Count())
	assert.Equal(t, 7, w.RowsWritten())

	chunks := w.Chunks()
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i+1, c.Block)
	}
	assert.Equal(t, []int{3, 3, 1}, []int{chunks[0].Rows, chunks[1].Rows, chunks[2].Rows})

	assert.Equal(t, []string{"id,v,v", "1,a1,b1", "2,a2,b2", "3,a3,b3"}, readLines(t, strings.TrimSuffix(base, ".csv")+"_1.csv"))
	assert.Equal(t, []string{"id,v,v", "4,a4,b4", "5,a5,b5", "6,a6,b6"}, readLines(t, strings.TrimSuffix(base, ".csv")+"_2.csv"))
	assert.Equal(t, []string{"id,v,v", "7,a7,b7"}, readLines(t, strings.TrimSuffix(base, ".csv")+"_3.csv"))
}

func TestChunkWriter_SimpleMode_ExactMultiple(t *testing.T) {
	t.Parallel()

	w, base := newWriter(t, simpleHeader(), 2)
	for i := 0; i < 4; i++ {
		require.NoError(t, w.WriteRow(records.Row{"id": strconv.Itoa(i)}))
	}
	require.NoError(t, w.Close())

	assert.Len(t, w.Chunks(), 2)
	assert.Len(t, chunkFiles(t, base), 2, "no empty trailing chunk")
	// Absent keys are written as empty fields.
	assert.Equal(t, []string{"id,v,v", "0,,", "1,,"}, readLines(t, w.Chunks()[0].Path))
}

func TestChunkWriter_NoRows(t *testing.T) {
	t.Parallel()

	w, base := newWriter(t, simpleHeader(), 2)
	require.NoError(t, w.Close())
	assert.Empty(t, w.Chunks())
	assert.Empty(t, chunkFiles(t, base))
	assert.Error(t, w.WriteRow(records.Row{}))
}

func tableHeader() *records.HeaderMap {
	return records.NewHeaderMap([]records.Column{{Key: marker, Name: marker}, {Key: "table", Name: "table"}, {Key: "line", Name: "line"}})
}

// tableRows builds n tables; table i has i%3+1 rows, the first marked "*".
func tableRows(n int) []records.Row {
	var rows []records.Row
	for i := 1; i <= n; i++ {
		for j := 0; j <= i%3; j++ {
			m := ""
			if j == 0 {
				m = "*"
			}
			rows = append(rows, records.Row{marker: m, "table": strconv.Itoa(i), "line": strconv.Itoa(j)})
		}
	}
	return rows
}

func TestChunkWriter_TableMode_NeverSplitsTables(t *testing.T) {
	t.Parallel()

	w, _ := newWriter(t, tableHeader(), 2)
	require.Equal(t, ModeTable, w.Mode())

	rows := tableRows(5)
	for _, r := range rows {
		require.NoError(t, w.WriteRow(r))
	}
	require.NoError(t, w.Close())

	assert.Equal(t, 5, w.Count(), "counts table starts")
	assert.Equal(t, len(rows), w.RowsWritten())

	chunks := w.Chunks()
	require.Len(t, chunks, 3)

	tablesIn := func(path string) map[string]int {
		seen := map[string]int{}
		for _, line := range readLines(t, path)[1:] {
			seen[strings.Split(line, ",")[1]]++
		}
		return seen
	}
	// Table i has i%3+1 rows.
	assert.Equal(t, map[string]int{"1": 2, "2": 3}, tablesIn(chunks[0].Path))
	assert.Equal(t, map[string]int{"3": 1, "4": 2}, tablesIn(chunks[1].Path))
	assert.Equal(t, map[string]int{"5": 3}, tablesIn(chunks[2].Path))

	for _, c := range chunks {
		lines := readLines(t, c.Path)
		assert.Equal(t, "start,table,line", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "*,"), "chunk %s starts with a table start", c.Path)
	}
}

func TestChunkWriter_TableMode_RowsBeforeFirstTable(t *testing.T) {
	t.Parallel()

	w, _ := newWriter(t, tableHeader(), 1)
	for _, r := range []records.Row{
		{marker: "", "table": "0"},
		{marker: "*", "table": "1"},
		{marker: "", "table": "1"},
		{marker: "*", "table": "2"},
	} {
		require.NoError(t, w.WriteRow(r))
	}
	require.NoError(t, w.Close())

	chunks := w.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"start,table,line", ",0,", "*,1,", ",1,"}, readLines(t, chunks[0].Path))
	assert.Equal(t, []string{"start,table,line", "*,2,"}, readLines(t, chunks[1].Path))
	// Blocks stay consecutive even at limit 1.
	assert.Equal(t, []int{1, 2}, []int{chunks[0].Block, chunks[1].Block})
	assert.True(t, strings.HasSuffix(chunks[1].Path, "out_2.csv"), chunks[1].Path)
}

// TestChunkWriter_ReferenceLimits drives both policies at the production
// limit of 10000.
func TestChunkWriter_ReferenceLimits(t *testing.T) {
	if testing.Short() {
		t.Skip("writes ~45k rows")
	}
	t.Parallel()

	t.Run("simple_25000_rows", func(t *testing.T) {
		t.Parallel()
		w, _ := newWriter(t, simpleHeader(), 10000)
		for i := 0; i < 25000; i++ {
			require.NoError(t, w.WriteRow(records.Row{"id": strconv.Itoa(i)}))
		}
		require.NoError(t, w.Close())
		chunks := w.Chunks()
		require.Len(t, chunks, 3)
		assert.Equal(t, []int{10000, 10000, 5000}, []int{chunks[0].Rows, chunks[1].Rows, chunks[2].Rows})
	})

	t.Run("table_10001_tables", func(t *testing.T) {
		t.Parallel()
		w, _ := newWriter(t, tableHeader(), 10000)
		for i := 1; i <= 10001; i++ {
			n := strconv.Itoa(i)
			require.NoError(t, w.WriteRow(records.Row{marker: "*", "table": n, "line": "0"}))
			require.NoError(t, w.WriteRow(records.Row{marker: "", "table": n, "line": "1"}))
		}
		require.NoError(t, w.Close())
		chunks := w.Chunks()
		require.Len(t, chunks, 2)
		assert.Equal(t, 20000, chunks[0].Rows)
		assert.Equal(t, []string{"start,table,line", "*,10001,0", ",10001,1"}, readLines(t, chunks[1].Path))
		assert.True(t, strings.HasSuffix(chunks[1].Path, "out_2.csv"))
	})
}
