// Package validate checks cube files against the annotation and property
// rules of the cube schema language. It is a line-oriented scanner: every
// non-empty, non-comment line runs through a fixed sequence of checks, and
// all findings are collected into an ordered error list. Nothing here
// panics or aborts a batch; an unreadable file becomes a single error.
package validate

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/cubestack/cubist/internal/cube"
)

// Error is a single validation finding, attributed to a line.
type Error struct {
	// Item is the name of the table/seeder/trigger the file declares.
	Item string `json:"item"`
	// Message describes the finding.
	Message string `json:"message"`
	// File is the path of the offending file.
	File string `json:"file"`
	// Line is the 1-based line number, 1 when unknown.
	Line int `json:"line"`
}

func (e Error) String() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// Result is the outcome of validating one file.
type Result struct {
	Errors []Error `json:"errors"`
}

// IsValid reports whether no errors were found.
func (r Result) IsValid() bool { return len(r.Errors) == 0 }

// Validator validates cube files.
type Validator struct{}

// New creates a new validator.
func New() *Validator { return &Validator{} }

// Line-classification patterns. The language is line-oriented, so each
// rule matches against a single trimmed line.
var (
	annotationToken = regexp.MustCompile(`@([A-Za-z]\w*)`)
	typeAssign      = regexp.MustCompile(`type:\s*["']([^"']*)["']`)
	lengthProp      = regexp.MustCompile(`length:\s*\S`)
	optionsList     = regexp.MustCompile(`options:\s*\[([^\]]*)\]`)
	propertyLine    = regexp.MustCompile(`^(\w+):\s*(.*)$`)
	blockOpen       = regexp.MustCompile(`^(\w+):\s*\{\s*$`)
	annotationCall  = regexp.MustCompile(`^@(database|table)\("[^"]+"\);?$`)
)

// ValidateFile reads and validates a single cube file. A read failure
// yields a single error carrying the underlying message; it is reported
// like any other validation failure rather than aborting the run.
func (v *Validator) ValidateFile(path string) Result {
	content, err := os.ReadFile(path)
	if err != nil {
		return Result{Errors: []Error{{
			Item:    cube.FallbackName(path),
			Message: err.Error(),
			File:    path,
			Line:    1,
		}}}
	}
	return v.Validate(path, string(content))
}

// Validate validates cube file content. Lines are processed top to bottom;
// each line runs through the checks in a fixed order and every check may
// append errors independently.
func (v *Validator) Validate(path, content string) Result {
	s := &scan{
		path:  path,
		item:  itemName(path, content),
		lines: strings.Split(content, "\n"),
	}

	for i, raw := range s.lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		s.checkAnnotations(i, line)
		s.checkType(i, line)
		s.checkOptions(i, line)
		s.checkProperty(i, line)
		s.checkRequiredType(i, line)
		s.checkSyntax(i, line)

		s.track(line)
	}

	s.checkStructure(content)

	return Result{Errors: s.errors}
}

// scan holds per-file state while lines are processed.
type scan struct {
	path   string
	item   string
	lines  []string
	errors []Error

	// blocks is the stack of enclosing block names ("foreign",
	// "@columns", ...), maintained by track.
	blocks []string
}

func (s *scan) addError(line int, format string, args ...any) {
	s.errors = append(s.errors, Error{
		Item:    s.item,
		Message: fmt.Sprintf(format, args...),
		File:    s.path,
		Line:    line + 1,
	})
}

// track updates the block stack after a line's checks have run.
func (s *scan) track(line string) {
	opens := strings.Count(line, "{")
	closes := strings.Count(line, "}")

	if opens > closes {
		name := "{"
		if m := blockOpen.FindStringSubmatch(line); len(m) > 1 {
			name = m[1]
		} else if m := annotationToken.FindStringSubmatch(line); len(m) > 1 {
			name = "@" + m[1]
		}
		s.blocks = append(s.blocks, name)
		return
	}
	for i := 0; i < closes-opens && len(s.blocks) > 0; i++ {
		s.blocks = s.blocks[:len(s.blocks)-1]
	}
}

func (s *scan) inBlock(name string) bool {
	for _, b := range s.blocks {
		if b == name {
			return true
		}
	}
	return false
}

func (s *scan) innermost() string {
	if len(s.blocks) == 0 {
		return ""
	}
	return s.blocks[len(s.blocks)-1]
}

// checkAnnotations verifies that every @token belongs to the annotation
// whitelist.
func (s *scan) checkAnnotations(i int, line string) {
	for _, m := range annotationToken.FindAllStringSubmatch(line, -1) {
		if !inList(validAnnotations, m[1]) {
			s.addError(i, "Unknown annotation '@%s'. Valid annotations are: @%s",
				m[1], strings.Join(validAnnotations, ", @"))
		}
	}
}

// checkType verifies type assignments against the type whitelist and
// enforces the length requirement for varchar columns: a length property
// must appear within the five-line window starting at the declaring line.
func (s *scan) checkType(i int, line string) {
	m := typeAssign.FindStringSubmatch(line)
	if m == nil {
		return
	}
	typ := m[1]
	if !inList(validTypes, typ) {
		s.addError(i, "Unknown data type \"%s\". Valid types are: %s",
			typ, strings.Join(validTypes, ", "))
	}
	if typ != "varchar" {
		return
	}
	for j := i; j < len(s.lines) && j <= i+4; j++ {
		if lengthProp.MatchString(s.lines[j]) {
			return
		}
	}
	s.addError(i, "Column of type \"varchar\" is missing a length specification")
}

// checkOptions parses an options array, requiring every entry to be a
// quoted, non-empty, whitelisted option that is compatible with the
// column's declared type. An unquoted entry is a syntax error that
// short-circuits the remaining option checks for the line.
func (s *scan) checkOptions(i int, line string) {
	m := optionsList.FindStringSubmatch(line)
	if m == nil {
		return
	}
	body := strings.TrimSpace(m[1])
	if body == "" {
		return
	}

	for _, entry := range strings.Split(body, ",") {
		entry = strings.TrimSpace(entry)
		opt, quoted := unquote(entry)
		if !quoted {
			s.addError(i, "Invalid syntax in options: %s is not a quoted string", entry)
			return
		}
		if opt == "" {
			s.addError(i, "Empty option in options array")
			continue
		}
		if !inList(validOptions, opt) {
			s.addError(i, "Unknown option \"%s\". Valid options are: %s",
				opt, strings.Join(validOptions, ", "))
			continue
		}
		s.checkOptionCompat(i, opt)
	}
}

// checkOptionCompat verifies an option against the column's declared type.
// The type is discovered by scanning upward from the options line until a
// type property or a new column-opening brace is found.
func (s *scan) checkOptionCompat(i int, opt string) {
	allowed, restricted := optionCompat[opt]
	if !restricted {
		return
	}
	for j := i - 1; j >= 0; j-- {
		prev := strings.TrimSpace(s.lines[j])
		if m := typeAssign.FindStringSubmatch(prev); m != nil {
			if inList(validTypes, m[1]) && !inList(allowed, m[1]) {
				s.addError(i, "Option \"%s\" is not valid for type \"%s\"", opt, m[1])
			}
			return
		}
		if blockOpen.MatchString(prev) {
			return
		}
	}
}

// checkProperty validates name: value lines contextually. Inside a foreign
// block only table and column are allowed; inside @columns the property
// name must belong to the column property whitelist. A property without a
// value is always an error.
func (s *scan) checkProperty(i int, line string) {
	if strings.HasSuffix(line, "{") {
		// Block-opening lines are not properties
		return
	}
	if strings.HasPrefix(line, "@") || strings.HasPrefix(line, "}") {
		return
	}
	m := propertyLine.FindStringSubmatch(line)
	if m == nil {
		return
	}
	name := m[1]
	value := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[2]), ";"))

	if value == "" {
		s.addError(i, "Property \"%s\" has no value", name)
	}

	switch {
	case s.innermost() == "foreign":
		if !inList(validForeignProps, name) {
			s.addError(i, "Invalid property \"%s\" in foreign key block. Valid properties are: %s",
				name, strings.Join(validForeignProps, ", "))
		}
	case s.inBlock("@columns"):
		if !inList(validColumnProps, name) {
			s.addError(i, "Invalid column property \"%s\". Valid properties are: %s",
				name, strings.Join(validColumnProps, ", "))
		}
	}
}

// checkRequiredType triggers on bare closing braces. It walks backward to
// find the matching column-opening line by brace balance and verifies the
// block declares a type, unless the block is one that does not require it.
func (s *scan) checkRequiredType(i int, line string) {
	if line != "}" && line != "};" {
		return
	}

	for j := i - 1; j >= 0; j-- {
		m := blockOpen.FindStringSubmatch(strings.TrimSpace(s.lines[j]))
		if m == nil {
			continue
		}
		if !s.bracesBalance(j, i) {
			continue
		}

		name := m[1]
		if inList(typeOptionalBlocks, name) {
			return
		}
		for k := j + 1; k < i; k++ {
			if typeAssign.MatchString(s.lines[k]) || strings.Contains(s.lines[k], "type:") {
				return
			}
		}
		s.addError(j, "Column \"%s\" is missing required property \"type\"", name)
		return
	}
}

// bracesBalance reports whether the braces between the opening line and
// the closing line (inclusive) balance to zero.
func (s *scan) bracesBalance(open, close int) bool {
	balance := 0
	for j := open; j <= close; j++ {
		balance += strings.Count(s.lines[j], "{")
		balance -= strings.Count(s.lines[j], "}")
	}
	return balance == 0
}

// checkSyntax applies general per-line syntax rules: quote parity and the
// exact call forms for @database, @table, and @meta.
func (s *scan) checkSyntax(i int, line string) {
	if strings.Count(line, `"`)%2 != 0 || strings.Count(line, "'")%2 != 0 {
		s.addError(i, "Mismatched quotes")
	}
	if strings.Contains(line, "@database") || strings.Contains(line, "@table") {
		if !annotationCall.MatchString(line) {
			s.addError(i, "Malformed annotation call, expected @annotation(\"value\")")
		}
	}
	if strings.Contains(line, "@meta") && !strings.Contains(line, "@meta({") {
		s.addError(i, "Malformed @meta annotation, expected @meta({")
	}
}

// checkStructure runs the file-level requirements once line scanning is
// done: every cube file declares a database, and table files additionally
// declare a columns section. Structural errors attribute to line 1.
func (s *scan) checkStructure(content string) {
	if !strings.Contains(content, "@database") {
		s.errors = append(s.errors, Error{
			Item:    s.item,
			Message: "Missing required @database annotation",
			File:    s.path,
			Line:    1,
		})
	}
	if strings.HasSuffix(s.path, cube.TableSuffix) {
		if !strings.Contains(content, "@columns") {
			s.errors = append(s.errors, Error{
				Item:    s.item,
				Message: "Missing required @columns annotation",
				File:    s.path,
				Line:    1,
			})
		}
	}
}

// unquote strips a matching pair of single or double quotes.
// The second return value reports whether the entry was quoted at all.
func unquote(entry string) (string, bool) {
	if len(entry) < 2 {
		return entry, false
	}
	first, last := entry[0], entry[len(entry)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return entry[1 : len(entry)-1], true
	}
	return entry, false
}

// itemName resolves the name errors are attributed to: the declared
// @table name when present, otherwise a name derived from the filename.
func itemName(path, content string) string {
	if name, ok := cube.DeclaredName(content); ok {
		return name
	}
	return cube.FallbackName(path)
}
