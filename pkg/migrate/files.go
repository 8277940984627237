package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9_]+`)
)

// File is one goose SQL migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ListDir returns the migrations in dir ordered by version. It fails on a
// badly named file, a reused version or a file missing either goose section.
func ListDir(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []File
	byVersion := map[int64]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		f, err := parseFile(dir, e.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := byVersion[f.Version]; ok {
			return nil, fmt.Errorf("migrations %q and %q share version %d", prev, e.Name(), f.Version)
		}
		byVersion[f.Version] = e.Name()
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir is ListDir for callers that only need the count.
func ValidateDir(dir string) (int, error) {
	files, err := ListDir(dir)
	return len(files), err
}

func parseFile(dir, name string) (File, error) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return File{}, fmt.Errorf("migration %q must be named YYYYMMDDHHMMSS_name.sql", name)
	}
	version, err := parseVersion(m[1])
	if err != nil {
		return File{}, fmt.Errorf("migration %q: %w", name, err)
	}
	path := filepath.Join(dir, name)
	body, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %q: %w", path, err)
	}
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(string(body), marker) {
			return File{}, fmt.Errorf("migration %q has no %q section", name, marker)
		}
	}
	return File{Version: version, Name: m[2], Path: path}, nil
}

// CreateSQLMigration writes an empty goose migration stamped with the current
// UTC time and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	return createSQLMigrationAt(dir, name, time.Now())
}

func createSQLMigrationAt(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.UTC().Format(versionLayout), slug))
	body := fmt.Sprintf("-- +goose Up\n-- +goose StatementBegin\n-- %[1]s\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- undo %[1]s\n-- +goose StatementEnd\n", slug)

	// Never overwrite an existing migration.
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("migration already exists: %s", path)
		}
		return "", fmt.Errorf("create %q: %w", path, err)
	}
	if _, err := fh.WriteString(body); err != nil {
		fh.Close()
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, fh.Close()
}
