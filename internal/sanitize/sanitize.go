// Package sanitize cleans user-supplied filenames before they are used as
// output names or archive entries. Sanitization runs twice on every path into
// an archive: once when the name is first attached to an image and again
// immediately before the entry is written, so no code path can smuggle an
// unsanitized name into archive construction.
package sanitize

import (
	"fmt"
	"path"
	"strings"
)

// fallbackName is used when sanitization leaves nothing usable.
const fallbackName = "image"

// unsafeChars are stripped beyond path separators: characters that are
// reserved on common filesystems or meaningful to archive extractors.
const unsafeChars = "<>:\"|?*"

// Name reduces a user-supplied filename to a safe basename. It strips
// directory components (both slash styles), NUL and control bytes, and
// filesystem-reserved characters. Empty or dot-only results collapse to
// "image". Name is idempotent: Name(Name(x)) == Name(x).
func Name(filename string) string {
	// NUL bytes can truncate names in downstream C APIs.
	filename = strings.ReplaceAll(filename, "\x00", "")

	// Keep the basename only, treating backslashes as separators too so a
	// Windows-style "..\..\evil" cannot survive on other platforms.
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = path.Base(path.Clean("/" + filename))

	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		// path.Base can itself return "/" (for empty or dot-only input),
		// so separators are stripped here as well.
		if r < 0x20 || r == '/' || strings.ContainsRune(unsafeChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	filename = b.String()

	if filename == "" || strings.Trim(filename, ".") == "" {
		return fallbackName
	}
	return filename
}

// Stem returns the sanitized name without its extension. A hidden-file style
// name (".hidden") has an empty stem and collapses to "image", matching Name's
// fallback behavior.
func Stem(filename string) string {
	name := Name(filename)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" || strings.Trim(name, ".") == "" {
		return fallbackName
	}
	return name
}

// Dedupe resolves collisions deterministically: the first occurrence keeps its
// name, later ones get " (n)" counters before the extension, skipping counters
// already taken by other inputs. Inputs must already be sanitized; names are
// never silently overwritten.
func Dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		candidate := name
		for n := 1; seen[candidate]; n++ {
			stem, ext := splitExt(name)
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}

func splitExt(name string) (string, string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
