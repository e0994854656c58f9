// Package archive stores rendered chart images in per-day directories, indexes
// them in SQLite and keeps timestamped backups of uploaded datasets.
package archive

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/vizloom-cli/internal/utils"
)

const (
	archiveDirName = "archive"
	backupDirName  = "backups"
	indexFileName  = "index.db"
	dayLayout      = "2006-01-02"
	stampLayout    = "20060102_150405"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("image not found")
)

var validName = regexp.MustCompile(`(?i)^[\w-]+\.(png|jpg|jpeg|svg)$`)

// ValidName reports whether name is a bare image file name the archive serves.
func ValidName(name string) bool { return validName.MatchString(name) }

// Store is an image archive rooted at a data directory.
type Store struct {
	root string
	db   *sql.DB
	now  func() time.Time
}

// Image is a rendered chart to archive.
type Image struct {
	Name      string
	Data      []byte
	ChartType string
	Prompt    string
	Code      string
}

// Record is the index row of an archived image.
type Record struct {
	ID        string    `json:"id"`
	Day       string    `json:"day"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	ChartType string    `json:"chart_type,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Day groups the archived files of one date.
type Day struct {
	Date  string `json:"date"`
	Files []File `json:"files"`
}

// File is one archived image as listed to clients.
type File struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	ChartType string `json:"chart_type,omitempty"`
}

// Open prepares dataDir and opens (or creates) the SQLite index inside it.
func Open(ctx context.Context, dataDir string) (*Store, error) {
	for _, d := range []string{filepath.Join(dataDir, archiveDirName), filepath.Join(dataDir, backupDirName)} {
		if err := utils.EnsureDir(d); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// set WAL mode
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure index: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return &Store{root: dataDir, db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS images (
  id TEXT PRIMARY KEY,
  day TEXT NOT NULL,
  name TEXT NOT NULL,
  size INTEGER NOT NULL,
  hash TEXT NOT NULL,
  chart_type TEXT NOT NULL DEFAULT '',
  prompt TEXT NOT NULL DEFAULT '',
  code TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  UNIQUE(day, name)
);
CREATE INDEX IF NOT EXISTS idx_images_name_created ON images(name, created_at DESC);
`)
	return err
}

// Close closes the index.
func (s *Store) Close() error { return s.db.Close() }

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

// NewImageName returns a unique archive file name such as chart_20240301_101500_1a2b3c4d.png.
func (s *Store) NewImageName(prefix, ext string) string {
	if prefix == "" {
		prefix = "chart"
	}
	ext = "." + strings.TrimPrefix(strings.ToLower(ext), ".")
	return fmt.Sprintf("%s_%s_%s%s", prefix, s.now().Format(stampLayout), uuid.NewString()[:8], ext)
}

// Save writes img under today's directory and records it in the index.
// Saving a name twice on the same day replaces the earlier image.
func (s *Store) Save(ctx context.Context, img Image) (Record, error) {
	if !ValidName(img.Name) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidName, img.Name)
	}
	now := s.now()
	rec := Record{
		ID:        uuid.NewString(),
		Day:       now.Format(dayLayout),
		Name:      img.Name,
		Size:      int64(len(img.Data)),
		Hash:      Hash(img.Data),
		ChartType: img.ChartType,
		Prompt:    img.Prompt,
		Code:      img.Code,
		CreatedAt: now.UTC(),
	}
	dir := filepath.Join(s.root, archiveDirName, rec.Day)
	if err := utils.EnsureDir(dir); err != nil {
		return Record{}, fmt.Errorf("create day dir: %w", err)
	}
	rec.Path = filepath.Join(dir, rec.Name)
	if err := utils.SafeWriteFile(rec.Path, img.Data); err != nil {
		return Record{}, err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO images(id, day, name, size, hash, chart_type, prompt, code, created_at) VALUES(?,?,?,?,?,?,?,?,?)
ON CONFLICT(day, name) DO UPDATE SET id=excluded.id, size=excluded.size, hash=excluded.hash, chart_type=excluded.chart_type, prompt=excluded.prompt, code=excluded.code, created_at=excluded.created_at`,
		rec.ID, rec.Day, rec.Name, rec.Size, rec.Hash, rec.ChartType, rec.Prompt, rec.Code, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, fmt.Errorf("index image: %w", err)
	}
	return rec, nil
}

// Lookup returns the index row for name. An empty day picks the newest entry.
func (s *Store) Lookup(ctx context.Context, name, day string) (Record, error) {
	q := `SELECT id, day, name, size, hash, chart_type, prompt, code, created_at FROM images WHERE name=?`
	args := []any{name}
	if day != "" {
		q += ` AND day=?`
		args = append(args, day)
	}
	q += ` ORDER BY created_at DESC LIMIT 1`
	var rec Record
	var created string
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&rec.ID, &rec.Day, &rec.Name, &rec.Size, &rec.Hash, &rec.ChartType, &rec.Prompt, &rec.Code, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("lookup image: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	rec.Path = filepath.Join(s.root, archiveDirName, rec.Day, rec.Name)
	return rec, nil
}

// List returns the archived images grouped by day, newest day first.
// It reads the directory tree, so files copied in by hand are listed too.
func (s *Store) List(ctx context.Context) ([]Day, error) {
	base := filepath.Join(s.root, archiveDirName)
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}
	types, err := s.chartTypes(ctx)
	if err != nil {
		return nil, err
	}
	var days []Day
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(base, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read archive day %s: %w", e.Name(), err)
		}
		day := Day{Date: e.Name()}
		for _, f := range files {
			if f.IsDir() || !ValidName(f.Name()) {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			day.Files = append(day.Files, File{
				Name:      f.Name(),
				Path:      ImageURL(f.Name(), e.Name()),
				Size:      info.Size(),
				ChartType: types[e.Name()+"/"+f.Name()],
			})
		}
		if len(day.Files) > 0 {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days, nil
}

func (s *Store) chartTypes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, name, chart_type FROM images`)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var day, name, typ string
		if err := rows.Scan(&day, &name, &typ); err != nil {
			return nil, err
		}
		out[day+"/"+name] = typ
	}
	return out, rows.Err()
}

// Open returns the archived file called name. With an empty day it looks in
// today's directory first and then at the newest indexed copy.
func (s *Store) Open(ctx context.Context, name, day string) (*os.File, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if day != "" {
		if _, err := time.Parse(dayLayout, day); err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrInvalidName, day)
		}
	}
	candidates := []string{}
	if day != "" {
		candidates = append(candidates, day)
	} else {
		candidates = append(candidates, s.now().Format(dayLayout))
		if rec, err := s.Lookup(ctx, name, ""); err == nil {
			candidates = append(candidates, rec.Day)
		}
	}
	for _, d := range candidates {
		f, err := os.Open(filepath.Join(s.root, archiveDirName, d, name))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// SaveBackup writes timestamped copies of an uploaded dataset and its summary
// to the backups directory and returns their paths.
func (s *Store) SaveBackup(name string, raw []byte, summaryJSON string) (dataPath, summaryPath string, err error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." {
		stem = "dataset"
	}
	if ext == "" {
		ext = ".csv"
	}
	stamp := s.now().Format(stampLayout)
	dir := filepath.Join(s.root, backupDirName)
	if err := utils.EnsureDir(dir); err != nil {
		return "", "", fmt.Errorf("create backup dir: %w", err)
	}
	dataPath = filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	if err := utils.SafeWriteFile(dataPath, raw); err != nil {
		return "", "", fmt.Errorf("backup dataset: %w", err)
	}
	summaryPath = filepath.Join(dir, fmt.Sprintf("%s_%s_summary.json", stem, stamp))
	if err := utils.SafeWriteFile(summaryPath, []byte(summaryJSON)); err != nil {
		return "", "", fmt.Errorf("backup summary: %w", err)
	}
	return dataPath, summaryPath, nil
}

// Hash returns the hex BLAKE3 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ImageURL is the HTTP path serving an archived image.
func ImageURL(name, day string) string {
	u := "/get_image?path=" + name
	if day != "" {
		u += "&date=" + day
	}
	return u
}
