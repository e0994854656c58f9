package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.now = func() time.Time { return now }
	return s
}

func TestSaveAndLookup(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC))

	rec, err := s.Save(ctx, Image{Name: "sales.png", Data: []byte("png-bytes"), ChartType: "bar", Prompt: "sales by month", Code: "new Chart(ctx, {})"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", rec.Day)
	assert.Equal(t, int64(9), rec.Size)
	assert.Equal(t, Hash([]byte("png-bytes")), rec.Hash)
	assert.Len(t, rec.Hash, 64)
	assert.NotEmpty(t, rec.ID)

	b, err := os.ReadFile(filepath.Join(s.Root(), "archive", "2024-03-01", "sales.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	got, err := s.Lookup(ctx, "sales.png", "")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "bar", got.ChartType)
	assert.Equal(t, "sales by month", got.Prompt)
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))

	// same name on the same day replaces the image
	again, err := s.Save(ctx, Image{Name: "sales.png", Data: []byte("v2"), ChartType: "line"})
	require.NoError(t, err)
	got, err = s.Lookup(ctx, "sales.png", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, again.ID, got.ID)
	assert.Equal(t, int64(2), got.Size)

	_, err = s.Lookup(ctx, "missing.png", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsBadNames(t *testing.T) {
	s := openStore(t, time.Now())
	for _, name := range []string{"../x.png", "a b.png", "x.gif", "", "dir/x.png"} {
		_, err := s.Save(context.Background(), Image{Name: name, Data: []byte("x")})
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestListNewestDayFirst(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := openStore(t, day)

	_, err := s.Save(ctx, Image{Name: "a.png", Data: []byte("aaa"), ChartType: "pie"})
	require.NoError(t, err)
	day = day.AddDate(0, 0, 2)
	s.now = func() time.Time { return day }
	_, err = s.Save(ctx, Image{Name: "b.svg", Data: []byte("<svg/>")})
	require.NoError(t, err)

	// files that are not images are ignored
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "archive", "2024-03-03", "notes.txt"), []byte("x"), 0o644))

	days, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-03", days[0].Date)
	assert.Equal(t, []File{{Name: "b.svg", Path: "/get_image?path=b.svg&date=2024-03-03", Size: 6}}, days[0].Files)
	assert.Equal(t, "2024-03-01", days[1].Date)
	assert.Equal(t, "pie", days[1].Files[0].ChartType)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := openStore(t, day)
	_, err := s.Save(ctx, Image{Name: "old.png", Data: []byte("old")})
	require.NoError(t, err)

	// a later day still finds the file through the index
	s.now = func() time.Time { return day.AddDate(0, 0, 5) }
	f, err := s.Open(ctx, "old.png", "")
	require.NoError(t, err)
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "old", string(b))

	f, err = s.Open(ctx, "old.png", "2024-03-01")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = s.Open(ctx, "old.png", "2024-03-02")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Open(ctx, "../../etc/passwd", "")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = s.Open(ctx, "old.png", "../x")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSaveBackup(t *testing.T) {
	s := openStore(t, time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC))
	dataPath, summaryPath, err := s.SaveBackup("uploads/sales.csv", []byte("a,b\n1,2\n"), `{"rows": 1}`)
	require.NoError(t, err)
	assert.Equal(t, "sales_20240301_101530.csv", filepath.Base(dataPath))
	assert.Equal(t, "sales_20240301_101530_summary.json", filepath.Base(summaryPath))

	b, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Equal(t, `{"rows": 1}`, string(b))
}

func TestNewImageName(t *testing.T) {
	s := openStore(t, time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC))
	name := s.NewImageName("", "PNG")
	assert.True(t, strings.HasPrefix(name, "chart_20240301_101500_"), name)
	assert.True(t, strings.HasSuffix(name, ".png"), name)
	assert.True(t, ValidName(name), name)
	assert.NotEqual(t, name, s.NewImageName("", ".png"))
}
