package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9]+(?:_[a-z0-9]+)*)\.sql$`)
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)

	// ErrMigrationExists is returned when create would overwrite a file.
	ErrMigrationExists = errors.New("migration already exists")
)

// File is a goose SQL migration identified by its timestamp version.
type File struct {
	Version int64
	Slug    string
	Name    string
}

// ParseFileName splits <YYYYMMDDHHMMSS>_<slug>.sql into its parts.
func ParseFileName(name string) (File, error) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return File{}, fmt.Errorf("invalid migration filename %q (want YYYYMMDDHHMMSS_slug.sql)", name)
	}
	if _, err := time.Parse(versionLayout, m[1]); err != nil {
		return File{}, fmt.Errorf("migration %q: version is not a timestamp", name)
	}
	version, _ := strconv.ParseInt(m[1], 10, 64)
	return File{Version: version, Slug: m[2], Name: name}, nil
}

// Slugify lower-cases a free-form title into an underscore slug.
func Slugify(title string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(title), "_"), "_")
}

// CreateSQLMigration writes an empty Up/Down template stamped with now.
func CreateSQLMigration(dir, title string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("migration title %q has no usable characters", title)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	full := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.UTC().Format(versionLayout), slug))
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrMigrationExists, full)
		}
		return "", fmt.Errorf("create %q: %w", full, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "-- +goose Up\n-- %s\n\n-- +goose Down\n", slug); err != nil {
		return "", fmt.Errorf("write %q: %w", full, err)
	}
	return full, nil
}

// ValidateDir checks an on-disk migrations directory.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	_, err := ValidateFS(os.DirFS(dir), ".")
	return err
}

// ValidateFS checks filenames, version uniqueness and goose annotations and
// returns the migrations in apply order.
func ValidateFS(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []File
	seen := map[int64]string{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		file, err := ParseFileName(e.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[file.Version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", file.Version, prev, file.Name)
		}
		seen[file.Version] = file.Name

		body, err := fs.ReadFile(fsys, path.Join(dir, file.Name))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", file.Name, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return nil, fmt.Errorf("migration %q: %w", file.Name, err)
		}
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

func checkAnnotations(body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return errors.New(`missing "-- +goose Up"`)
	case down < 0:
		return errors.New(`missing "-- +goose Down"`)
	case down < up:
		return errors.New("Down section precedes Up")
	}
	if strings.Count(body, "-- +goose StatementBegin") != strings.Count(body, "-- +goose StatementEnd") {
		return errors.New("unbalanced StatementBegin/StatementEnd")
	}
	return nil
}
