// Package export writes Confluence pages and metadata reports to disk.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Sternrassler/swrangler/pkg/pagination"
)

// DateFormat is the report date layout (MM/DD/YYYY).
const DateFormat = "01/02/2006"

var (
	cyrillic       = regexp.MustCompile(`[\x{0400}-\x{04FF}]`)
	unlicensedName = regexp.MustCompile(`\((Unlicensed|Deleted)\)$`)
	epoch          = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
)

// ParseDate parses a Confluence timestamp such as 2024-05-01T09:30:00.000Z.
// The fractional seconds are optional.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate converts a Confluence timestamp to MM/DD/YYYY.
func FormatDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(DateFormat), nil
}

// ContainsCyrillic reports whether text has any Cyrillic letter.
func ContainsCyrillic(text string) bool {
	return cyrillic.MatchString(text)
}

// UnlicensedFlag returns "TRUE" for display names ending in (Unlicensed)
// or (Deleted), else "FALSE".
func UnlicensedFlag(displayName string) string {
	if unlicensedName.MatchString(displayName) {
		return "TRUE"
	}
	return "FALSE"
}

// PeopleURL returns the profile link of an account.
func PeopleURL(baseURL, accountID string) string {
	return strings.TrimSuffix(baseURL, "/") + "/people/" + accountID
}

// SafeTitle replaces path separators in a title.
func SafeTitle(title string) string {
	return strings.ReplaceAll(title, "/", "-")
}

// StructuredTitle returns "/Ancestor/.../Title".
func StructuredTitle(page pagination.Item) string {
	var b strings.Builder
	for _, parent := range page.Items("ancestors") {
		b.WriteString("/")
		b.WriteString(SafeTitle(parent.String("title")))
	}
	b.WriteString("/")
	b.WriteString(SafeTitle(page.String("title")))
	return b.String()
}

// Dir returns <outDir>/<spaceKey>/<kind> and creates it.
func Dir(outDir, spaceKey, kind string) (string, error) {
	dir := filepath.Join(outDir, spaceKey, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// PagePath returns <outDir>/<spaceKey>/<kind>/<ancestors...>/<title>
// without extension and creates its parent directory.
func PagePath(outDir, spaceKey, kind string, page pagination.Item) (string, error) {
	parts := []string{outDir, spaceKey, kind}
	for _, parent := range page.Items("ancestors") {
		parts = append(parts, SafeTitle(parent.String("title")))
	}
	parts = append(parts, SafeTitle(page.String("title")))

	path := filepath.Join(parts...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return path, nil
}
