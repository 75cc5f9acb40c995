package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/domain"
)

// Format describes one entry in the codec registry. Encode is nil for
// decode-only formats, which lets optional format support degrade to a clear
// per-image error instead of a crash.
type Format struct {
	Key       string
	Extension string
	MimeType  string
	// Alpha reports whether the encoded container can carry transparency.
	Alpha bool
	// Lossy reports whether the quality knob affects output size.
	Lossy bool

	encode func(w io.Writer, img image.Image, quality int) error
}

// CanEncode reports whether this format has a registered encoder.
func (f Format) CanEncode() bool {
	return f.encode != nil
}

var formatRegistry = map[string]Format{
	"jpeg": {
		Key: "jpeg", Extension: ".jpg", MimeType: "image/jpeg", Lossy: true,
		encode: func(w io.Writer, img image.Image, quality int) error {
			return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
		},
	},
	"png": {
		Key: "png", Extension: ".png", MimeType: "image/png", Alpha: true,
		encode: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
		},
	},
	"gif": {
		Key: "gif", Extension: ".gif", MimeType: "image/gif",
		encode: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.GIF)
		},
	},
	"bmp": {
		Key: "bmp", Extension: ".bmp", MimeType: "image/bmp",
		encode: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.BMP)
		},
	},
	"tiff": {
		Key: "tiff", Extension: ".tiff", MimeType: "image/tiff", Alpha: true,
		encode: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.TIFF)
		},
	},
	// WebP decoding comes from golang.org/x/image/webp; there is no encoder
	// in the ecosystem's pure-Go toolkit, so the entry stays decode-only.
	"webp": {
		Key: "webp", Extension: ".webp", MimeType: "image/webp", Alpha: true, Lossy: true,
	},
}

var formatAliases = map[string]string{
	"jpg": "jpeg",
	"tif": "tiff",
}

// LookupFormat resolves a format name (case-insensitive, aliases allowed) to
// a registry entry with an encoder.
func LookupFormat(name string) (Format, error) {
	return lookupFormat(name)
}

// EncodableFormats lists the registry keys that can be requested as output.
func EncodableFormats() []string {
	keys := make([]string, 0, len(formatRegistry))
	for key, f := range formatRegistry {
		if f.CanEncode() {
			keys = append(keys, key)
		}
	}
	return keys
}

func lookupFormat(name string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := formatAliases[key]; ok {
		key = canonical
	}
	f, ok := formatRegistry[key]
	if !ok {
		return Format{}, fmt.Errorf("%w: unknown output format %q", domain.ErrUnsupportedFormat, name)
	}
	if !f.CanEncode() {
		return Format{}, fmt.Errorf("%w: %q is decode-only", domain.ErrUnsupportedFormat, key)
	}
	return f, nil
}

// encode flattens transparency when the target container cannot carry it,
// then encodes — either at the requested quality or, when a target size is
// set for a lossy format, at the best quality that fits under the ceiling.
func (e *Engine) encode(img *image.NRGBA, format Format, output domain.OutputSpec) ([]byte, error) {
	var flat image.Image = img
	if !format.Alpha && hasTransparency(img) {
		flat = flattenOnWhite(img)
	}

	quality := output.Quality
	if quality <= 0 {
		quality = 80
	}
	if output.Lossless {
		// No registered encoder has a dual lossy/lossless mode today; the
		// flag pins quality and disables the size search.
		quality = 100
	}

	if output.TargetSize > 0 && format.Lossy && !output.Lossless {
		return e.encodeToTargetSize(flat, format, quality, output.TargetSize)
	}

	var buf bytes.Buffer
	if err := format.encode(&buf, flat, quality); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format.Key, err)
	}
	return buf.Bytes(), nil
}

// encodeToTargetSize binary-searches the quality range for the largest
// quality whose output fits under targetSize. If even the floor quality is
// too big, the floor encoding is returned — the ceiling is a goal, not a
// guarantee.
func (e *Engine) encodeToTargetSize(img image.Image, format Format, maxQuality int, targetSize int64) ([]byte, error) {
	lo, hi := e.minQuality, maxQuality
	if lo > hi {
		lo = hi
	}

	var best []byte
	bestQuality := 0

	for lo <= hi {
		mid := (lo + hi) / 2
		var buf bytes.Buffer
		if err := format.encode(&buf, img, mid); err != nil {
			return nil, fmt.Errorf("encode %s at quality %d: %w", format.Key, mid, err)
		}
		if int64(buf.Len()) <= targetSize {
			best = append([]byte(nil), buf.Bytes()...)
			bestQuality = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best == nil {
		// Quality floor hit and still over target.
		var buf bytes.Buffer
		if err := format.encode(&buf, img, e.minQuality); err != nil {
			return nil, fmt.Errorf("encode %s at floor quality %d: %w", format.Key, e.minQuality, err)
		}
		zlog.Logger.Warn().
			Str("format", format.Key).
			Int("floor_quality", e.minQuality).
			Int64("target_size", targetSize).
			Int("actual_size", buf.Len()).
			Msg("target size unreachable, returning floor-quality output")
		return buf.Bytes(), nil
	}

	zlog.Logger.Debug().
		Str("format", format.Key).
		Int("quality", bestQuality).
		Int64("target_size", targetSize).
		Int("actual_size", len(best)).
		Msg("target size search finished")
	return best, nil
}

// hasTransparency reports whether any pixel has a non-opaque alpha value.
func hasTransparency(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xFF {
			return true
		}
	}
	return false
}

// flattenOnWhite composites the image over an opaque white background.
func flattenOnWhite(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
	return out
}
