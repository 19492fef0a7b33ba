package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
)

func rec(title string) movie.Record {
	r := movie.NewRecord()
	r.MovieTitle = title
	r.MovieURL = "https://m.the-numbers.com/movie/" + title
	return r
}

func readAll(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriterHeaderAndRow(t *testing.T) {
	t.Parallel()

	r := rec("Avatar")
	r.OpeningWeekend = "$77,025,481"
	r.Synopsis = "Pandora, \"quoted\", with commas"
	r.LeadEnsembleMembers = []movie.CastMember{{Actor: "Sam Worthington", Role: "Jake Sully"}}
	r.ProductionTechnicalCredits = movie.Credits{"Director": {"James Cameron"}}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Write(r))
	require.NoError(t, w.Flush())

	rows := readAll(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, movie.Columns, rows[0])

	got := map[string]string{}
	for i, col := range rows[0] {
		got[col] = rows[1][i]
	}
	assert.Equal(t, "Avatar", got["movie_title"])
	assert.Equal(t, "$77,025,481", got["opening_weekend"])
	assert.Equal(t, r.Synopsis, got["synopsis"])
	assert.Equal(t, `[{"actor":"Sam Worthington","role":"Jake Sully"}]`, got["lead_ensemble_members"])
	assert.Equal(t, `{"Director":["James Cameron"]}`, got["production_technical_credits"])
	assert.Equal(t, "", got["genre"])
}

func TestWriterEmptyCollections(t *testing.T) {
	t.Parallel()

	row, err := Row(movie.Record{MovieTitle: "Bare"})
	require.NoError(t, err)
	require.Len(t, row, len(movie.Columns))
	assert.Equal(t, "[]", row[14])
	assert.Equal(t, "{}", row[15])
}

func TestWriterDedupe(t *testing.T) {
	t.Parallel()

	first := rec("Up")
	first.Genre = "Adventure"
	dup := rec("Up")
	dup.Genre = "Changed"

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{Dedupe: true})
	require.NoError(t, err)
	require.NoError(t, w.Write(first, rec("Cars"), dup))
	require.NoError(t, w.Flush())

	assert.Equal(t, 2, w.Written())
	assert.Equal(t, 1, w.Skipped())
	out := buf.String()
	assert.Contains(t, out, "Adventure")
	assert.NotContains(t, out, "Changed")
}

func TestWriterWithoutDedupeKeepsAll(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Write(rec("Up"), rec("Up")))
	require.NoError(t, w.Flush())
	assert.Len(t, readAll(t, buf.Bytes()), 3)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "movies.csv")
	stats, err := WriteFile(path, []movie.Record{rec("A"), rec("B"), rec("A")}, Options{Dedupe: true})
	require.NoError(t, err)
	assert.Equal(t, Stats{Path: path, Rows: 2, Skipped: 1}, stats)

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(movie.Columns, ",")+"\n"))
	assert.Len(t, readAll(t, data), 3)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := WriteFile("", nil, Options{})
	require.Error(t, err)
}
