// Package cube provides the cube file model and project discovery.
// A cube file is a declarative schema definition describing one table,
// seeder, or trigger.
package cube

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Category identifies what a cube file defines.
type Category string

// File categories, detected from the filename suffix.
const (
	CategoryTable   Category = "table"
	CategorySeeder  Category = "seeder"
	CategoryTrigger Category = "trigger"
)

// Filename suffixes per category.
const (
	TableSuffix   = ".table.cube"
	SeederSuffix  = ".seeder.cube"
	TriggerSuffix = ".trigger.cube"
)

// File represents a single cube file. Content is re-read on every pass;
// nothing is cached between runs.
type File struct {
	// Path is the absolute file path (the file's identity).
	Path string
	// Content is the raw text content.
	Content string
	// Name is the declared table/seeder/trigger name, empty until extracted.
	Name string
	// Database is the declared owning database name, empty until extracted.
	Database string
	// Category is derived from the filename suffix.
	Category Category
}

var (
	tablePattern    = regexp.MustCompile(`@table\s*\(\s*["']([^"']+)["']\s*\)`)
	databasePattern = regexp.MustCompile(`@database\s*\(\s*["']([^"']+)["']\s*\)`)
	numPrefix       = regexp.MustCompile(`^(\d+)`)
)

// Read loads a cube file from disk and extracts its declared names.
func Read(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cube file: %w", err)
	}

	f := &File{
		Path:     path,
		Content:  string(content),
		Category: CategoryOf(path),
	}

	if name, ok := DeclaredName(f.Content); ok {
		f.Name = name
	} else {
		f.Name = FallbackName(path)
	}
	if m := databasePattern.FindStringSubmatch(f.Content); len(m) > 1 {
		f.Database = m[1]
	}

	return f, nil
}

// DeclaredName extracts the name declared by the first @table annotation.
func DeclaredName(content string) (string, bool) {
	if m := tablePattern.FindStringSubmatch(content); len(m) > 1 {
		return m[1], true
	}
	return "", false
}

// CategoryOf returns the category for a path based on its suffix.
// Unrecognized paths default to the table category.
func CategoryOf(path string) Category {
	name := filepath.Base(path)
	switch {
	case strings.HasSuffix(name, SeederSuffix):
		return CategorySeeder
	case strings.HasSuffix(name, TriggerSuffix):
		return CategoryTrigger
	default:
		return CategoryTable
	}
}

// IsCubeFile reports whether the path names a cube file of any category.
func IsCubeFile(path string) bool {
	return strings.HasSuffix(path, ".cube")
}

// FallbackName derives a table name from the filename when no @table
// annotation can be extracted: the base name stripped of its category
// suffix and any ordering prefix such as "01_".
func FallbackName(path string) string {
	name := filepath.Base(path)
	for _, suffix := range []string{TableSuffix, SeederSuffix, TriggerSuffix, ".cube"} {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	if m := numPrefix.FindString(name); m != "" {
		name = strings.TrimPrefix(name, m)
		name = strings.TrimPrefix(name, "_")
		name = strings.TrimPrefix(name, "-")
	}
	return name
}

// sortKey returns the numeric ordering prefix of a filename.
// Names without a numeric prefix sort as zero.
func sortKey(path string) int {
	m := numPrefix.FindString(filepath.Base(path))
	if m == "" {
		return 0
	}
	key := 0
	for _, r := range m {
		key = key*10 + int(r-'0')
	}
	return key
}

// SortPaths orders cube file paths by their numeric filename prefix,
// keeping the original relative order for equal keys.
func SortPaths(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return sortKey(paths[i]) < sortKey(paths[j])
	})
}

// Discover recursively collects cube files of the given category under dir
// and returns them sorted by the numeric-prefix comparator. An empty
// category collects every cube file.
func Discover(dir string, category Category) ([]string, error) {
	var paths []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Skip hidden directories such as .cubist
			if strings.HasPrefix(info.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsCubeFile(path) {
			return nil
		}
		if category != "" && CategoryOf(path) != category {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	SortPaths(paths)
	return paths, nil
}
