// Package deps extracts cross-table references from cube files.
// It scans for foreign key blocks and pulls out the referenced table
// names. The scan is best-effort: nesting is handled by brace counting,
// not block semantics, and it is fully independent of validation.
package deps

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	foreignOpen = regexp.MustCompile(`foreign:\s*\{`)
	tableRef    = regexp.MustCompile(`table:\s*["']([^"']+)["']`)
)

// ExtractFile reads a cube file and extracts its referenced table names.
func ExtractFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cube file: %w", err)
	}
	return Extract(string(content)), nil
}

// Extract scans content line by line and returns the table names
// referenced inside foreign key blocks, in order of appearance.
// Duplicates are preserved.
func Extract(content string) []string {
	var refs []string
	inForeign := false
	braces := 0

	for _, line := range strings.Split(content, "\n") {
		if !inForeign {
			if !foreignOpen.MatchString(line) {
				continue
			}
			// Reference declared on the opening line itself
			if m := tableRef.FindStringSubmatch(line); len(m) > 1 {
				refs = append(refs, m[1])
				continue
			}
			inForeign = true
			braces = 1
			continue
		}

		braces += strings.Count(line, "{")
		braces -= strings.Count(line, "}")

		if m := tableRef.FindStringSubmatch(line); len(m) > 1 {
			refs = append(refs, m[1])
		}

		if braces <= 0 {
			inForeign = false
			braces = 0
		}
	}

	return refs
}

// FindReferenceLine re-scans content for the line declaring a reference to
// the given table, for diagnostics. Returns the 1-based line number, or 1
// if the declaration cannot be located.
func FindReferenceLine(content, table string) int {
	needleD := fmt.Sprintf("table: %q", table)
	needleS := fmt.Sprintf("table: '%s'", table)
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(line, needleD) || strings.Contains(line, needleS) {
			return i + 1
		}
	}
	return 1
}
