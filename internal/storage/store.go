// Package storage persists uploaded files into a flat local directory and
// lists them back. Names are sanitized and made unique on write.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// scratchPrefix names the entries created by CheckWritable.
const scratchPrefix = ".filedrop-check-"

// TimestampLayout formats the collision suffix to second granularity.
const TimestampLayout = "20060102_150405"

// maxCandidates bounds the collision loop.
const maxCandidates = 10000

var tracer = otel.Tracer("filedrop/storage")

// File describes one stored file as seen by a directory listing.
type File struct {
	Name     string
	Size     int64
	Modified time.Time
}

// SaveResult describes the outcome of a successful Save.
type SaveResult struct {
	DisplayName string // sanitized client name
	StoredName  string // name on disk
	Size        int64
	Path        string // absolute path on disk
}

// Renamed reports whether collision resolution changed the name.
func (r *SaveResult) Renamed() bool {
	return r.StoredName != r.DisplayName
}

// Store writes files into a single directory.
type Store struct {
	dir          string
	maxFileBytes int64
	now          func() time.Time
}

// New creates the directory if needed and returns a Store rooted at its
// absolute path. maxFileBytes <= 0 means no per-file limit.
func New(dir string, maxFileBytes int64) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: abs, maxFileBytes: maxFileBytes, now: time.Now}, nil
}

// Dir returns the absolute storage directory.
func (s *Store) Dir() string { return s.dir }

// MaxFileBytes returns the per-file limit.
func (s *Store) MaxFileBytes() int64 { return s.maxFileBytes }

// Save sanitizes clientName, claims a unique name in the directory and
// streams r into it. On any failure the partially written file is removed.
func (s *Store) Save(ctx context.Context, clientName string, r io.Reader) (*SaveResult, error) {
	_, span := tracer.Start(ctx, "upload.save")
	defer span.End()

	if strings.TrimSpace(clientName) == "" {
		return nil, ErrEmptyFilename
	}
	display := SanitizeFilename(clientName)
	if display == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, clientName)
	}

	f, stored, err := s.create(display)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	path := f.Name()

	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	src := r
	if s.maxFileBytes > 0 {
		src = io.LimitReader(r, s.maxFileBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return nil, fmt.Errorf("write %s: %w", stored, err)
	}
	if s.maxFileBytes > 0 && n > s.maxFileBytes {
		span.SetStatus(codes.Error, "too large")
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.maxFileBytes)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", stored, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", stored, err)
	}
	ok = true

	span.SetAttributes(
		attribute.String("file.display_name", display),
		attribute.String("file.stored_name", stored),
		attribute.Int64("file.size", info.Size()),
	)

	return &SaveResult{
		DisplayName: display,
		StoredName:  stored,
		Size:        info.Size(),
		Path:        path,
	}, nil
}

// create claims a name with an exclusive create. When the name is taken it
// moves on to base_<timestamp>_<counter>ext, regenerating the timestamp and
// incrementing the counter each time.
func (s *Store) create(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for counter := 1; counter <= maxCandidates; counter++ {
		f, err := os.OpenFile(filepath.Join(s.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = collisionName(base, s.now().Format(TimestampLayout), counter, ext)
	}
	return nil, "", fmt.Errorf("%w for %s", ErrNoFreeName, name)
}

// collisionName formats base_<stamp>_<counter>ext, shortening base so the
// result stays within maxNameLen. Sanitized names are ASCII, so byte
// truncation is safe.
func collisionName(base, stamp string, counter int, ext string) string {
	suffix := fmt.Sprintf("_%s_%d", stamp, counter)
	if len(suffix)+len(ext) > maxNameLen {
		ext = ""
	}
	if over := len(base) + len(suffix) + len(ext) - maxNameLen; over > 0 {
		base = base[:len(base)-over]
	}
	return base + suffix + ext
}

// List returns the regular files directly inside the directory, sorted by
// name. Symlinks are followed; subdirectories are skipped.
func (s *Store) List(ctx context.Context) ([]File, error) {
	_, span := tracer.Start(ctx, "files.list")
	defer span.End()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read dir failed")
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), scratchPrefix) {
			continue
		}
		info, err := os.Stat(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// Removed between ReadDir and Stat, or a dangling link.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, File{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	span.SetAttributes(attribute.Int("files.count", len(files)))
	return files, nil
}

// CheckWritable verifies an entry can be created in the directory. The
// scratch entry is a directory so a concurrent List never reports it.
func (s *Store) CheckWritable() error {
	name, err := os.MkdirTemp(s.dir, scratchPrefix+"*")
	if err != nil {
		return fmt.Errorf("upload dir not writable: %w", err)
	}
	return os.Remove(name)
}
