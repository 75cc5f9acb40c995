// Package archive packages processed images into a single in-memory zip.
// Entry names are re-sanitized at write time regardless of what upstream did,
// so an unsanitized name can never reach archive construction (zip-slip
// defense in depth).
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/domain"
	"github.com/avolkoff/pixbatch/internal/sanitize"
)

// Entry is one (name, payload) pair destined for the archive.
type Entry struct {
	Name string
	Data []byte
}

// Build produces a zip containing every entry in input order. Duplicate names
// after sanitization are disambiguated deterministically. Unlike per-image
// processing, packaging has no partial-success state: any entry failure
// fails the whole archive rather than silently truncating it.
func Build(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: nothing to package", domain.ErrPackagingFailed)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		// Never trust the upstream-sanitized value alone.
		names[i] = sanitize.Name(e.Name)
	}
	names = sanitize.Dedupe(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, e := range entries {
		w, err := zw.Create(names[i])
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("%w: create entry %q: %v", domain.ErrPackagingFailed, names[i], err)
		}
		if _, err := w.Write(e.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("%w: write entry %q: %v", domain.ErrPackagingFailed, names[i], err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize: %v", domain.ErrPackagingFailed, err)
	}

	zlog.Logger.Info().
		Int("entries", len(entries)).
		Int("archive_size", buf.Len()).
		Msg("archive built")
	return buf.Bytes(), nil
}
