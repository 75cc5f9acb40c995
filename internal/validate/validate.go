// Package validate enforces batch-level upload ceilings before any pixel work
// begins. Dimension checks read only the image header (image.DecodeConfig),
// keeping validation O(header) rather than O(image) per file.
package validate

import (
	"bytes"
	"fmt"
	"image"

	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/config"
	"github.com/avolkoff/pixbatch/internal/domain"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type BatchValidator struct {
	maxFileCount    int
	maxTotalSize    int64
	maxPixelPerAxis int
}

func NewBatchValidator(cfg *config.LimitsConfig) *BatchValidator {
	return &BatchValidator{
		maxFileCount:    cfg.MaxFileCount,
		maxTotalSize:    int64(cfg.MaxTotalSizeMB) * 1024 * 1024,
		maxPixelPerAxis: cfg.MaxPixelPerAxis,
	}
}

// ValidateBatch rejects the run wholesale when any configured ceiling is
// exceeded, naming the specific limit. Files whose header cannot be parsed
// are let through: decode failures are per-image errors handled by the
// engine, not batch-fatal ones.
func (v *BatchValidator) ValidateBatch(images []*domain.SourceImage) error {
	if len(images) == 0 {
		return domain.ErrEmptyBatch
	}
	if len(images) > v.maxFileCount {
		return fmt.Errorf("%w: %d files, maximum is %d", domain.ErrTooManyFiles, len(images), v.maxFileCount)
	}

	var total int64
	for _, img := range images {
		total += img.Size
	}
	if total > v.maxTotalSize {
		return fmt.Errorf("%w: %.1f MB, maximum is %d MB",
			domain.ErrBatchTooLarge, float64(total)/(1024*1024), v.maxTotalSize/(1024*1024))
	}

	for _, img := range images {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
		if err != nil {
			zlog.Logger.Warn().
				Str("filename", img.Filename).
				Err(err).
				Msg("header probe failed, deferring to per-image decode")
			continue
		}
		if cfg.Width > v.maxPixelPerAxis || cfg.Height > v.maxPixelPerAxis {
			return fmt.Errorf("%w: %q is %dx%d px, maximum is %d px per axis",
				domain.ErrImageTooLarge, img.Filename, cfg.Width, cfg.Height, v.maxPixelPerAxis)
		}
	}

	return nil
}
