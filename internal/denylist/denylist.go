// Package denylist holds the sensitive keywords and critical file paths that
// force a change through the full governance process.
package denylist

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Patterns holds the raw keyword and path patterns organized by category.
type Patterns struct {
	Database      []string `yaml:"database"`
	Security      []string `yaml:"security"`
	Financial     []string `yaml:"financial"`
	Privacy       []string `yaml:"privacy"`
	CriticalPaths []string `yaml:"critical_paths"`
}

type keyword struct {
	category string
	term     string
	re       *regexp.Regexp
}

type pathPattern struct {
	raw string
	re  *regexp.Regexp
}

// Denylist holds compiled patterns for fast matching.
type Denylist struct {
	keywords []keyword
	paths    []pathPattern
	raw      Patterns
}

// New creates a Denylist from raw patterns, compiling regexes.
func New(p Patterns) *Denylist {
	d := &Denylist{}
	for _, kw := range p.Database {
		d.AddPattern("database", kw)
	}
	for _, kw := range p.Security {
		d.AddPattern("security", kw)
	}
	for _, kw := range p.Financial {
		d.AddPattern("financial", kw)
	}
	for _, kw := range p.Privacy {
		d.AddPattern("privacy", kw)
	}
	for _, cp := range p.CriticalPaths {
		d.AddPattern("critical_paths", cp)
	}
	return d
}

// NewDefault creates a Denylist with the built-in patterns.
func NewDefault() *Denylist {
	return New(DefaultPatterns)
}

// Load reads a denylist from a YAML file. Falls back to defaults if file doesn't exist.
func Load(path string) (*Denylist, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return NewDefault(), nil
		}
		path = filepath.Join(home, ".leoscore", "denylist.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, err
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return New(p), nil
}

// ContainsSensitive reports whether any word in text starts with a sensitive
// keyword, so inflected forms ("tokens", "encrypted") also match.
// Returns (found, reason).
func (d *Denylist) ContainsSensitive(text string) (bool, string) {
	if text == "" {
		return false, ""
	}
	for _, kw := range d.keywords {
		if kw.re.MatchString(text) {
			return true, "sensitive " + kw.category + " keyword: " + kw.term
		}
	}
	return false, ""
}

// IsCriticalPath reports whether file matches a critical path pattern.
// Returns (critical, matched pattern).
func (d *Denylist) IsCriticalPath(file string) (bool, string) {
	normalized := strings.ToLower(filepath.ToSlash(strings.TrimSpace(file)))
	if normalized == "" {
		return false, ""
	}
	for _, p := range d.paths {
		if p.re.MatchString(normalized) {
			return true, p.raw
		}
	}
	return false, ""
}

// CriticalFiles returns the files that match a critical path pattern.
func (d *Denylist) CriticalFiles(files []string) []string {
	var out []string
	for _, f := range files {
		if ok, _ := d.IsCriticalPath(f); ok {
			out = append(out, f)
		}
	}
	return out
}

// AddPattern adds a keyword or critical path at runtime.
// Category is one of database, security, financial, privacy or critical_paths.
func (d *Denylist) AddPattern(category, pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return
	}
	if category == "critical_paths" {
		re, err := regexp.Compile("(?i)" + pathToRegex(pattern))
		if err != nil {
			return
		}
		d.raw.CriticalPaths = append(d.raw.CriticalPaths, pattern)
		d.paths = append(d.paths, pathPattern{raw: pattern, re: re})
		return
	}

	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(pattern))
	if err != nil {
		return
	}
	switch category {
	case "database":
		d.raw.Database = append(d.raw.Database, pattern)
	case "security":
		d.raw.Security = append(d.raw.Security, pattern)
	case "financial":
		d.raw.Financial = append(d.raw.Financial, pattern)
	case "privacy":
		d.raw.Privacy = append(d.raw.Privacy, pattern)
	default:
		return
	}
	d.keywords = append(d.keywords, keyword{category: category, term: pattern, re: re})
}

// ToMap returns the raw patterns as a map for serialization.
func (d *Denylist) ToMap() map[string]any {
	return map[string]any{
		"database":       d.raw.Database,
		"security":       d.raw.Security,
		"financial":      d.raw.Financial,
		"privacy":        d.raw.Privacy,
		"critical_paths": d.raw.CriticalPaths,
	}
}

// pathToRegex converts a glob-like path pattern to a regex matching whole
// path segments. ** spans directories, * stays within one segment.
func pathToRegex(pattern string) string {
	pattern = strings.ToLower(filepath.ToSlash(pattern))
	escaped := regexp.QuoteMeta(strings.Trim(pattern, "/"))
	escaped = strings.ReplaceAll(escaped, `\*\*/`, "(.*/)?")
	escaped = strings.ReplaceAll(escaped, `\*\*`, ".*")
	escaped = strings.ReplaceAll(escaped, `\*`, "[^/]*")
	return `(^|/)` + escaped + `($|/)`
}
