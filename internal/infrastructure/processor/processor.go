// Package processor implements the per-image transform engine: decode,
// enhance, transform, filter, color-key, crop, resize, encode. Process is
// pure — it never mutates the input buffer and carries no state between
// calls, so results are safe to compute concurrently across a batch.
package processor

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/config"
	"github.com/avolkoff/pixbatch/internal/domain"
)

type Engine struct {
	maxPixelPerAxis int
	minQuality      int
}

func NewEngine(processing *config.ProcessingConfig, limits *config.LimitsConfig) *Engine {
	minQuality := processing.MinQuality
	if minQuality <= 0 {
		minQuality = 20
	}
	zlog.Logger.Info().
		Int("max_pixel_per_axis", limits.MaxPixelPerAxis).
		Int("min_quality", minQuality).
		Msg("Transform engine initialized")
	return &Engine{
		maxPixelPerAxis: limits.MaxPixelPerAxis,
		minQuality:      minQuality,
	}
}

// Process runs the full edit pipeline over one image and returns the encoded
// output bytes plus final pixel dimensions. Edits apply in a fixed order —
// enhancements, rotate/flip, filter, color-key, crop, resize — so that
// quality-affecting work happens before downsampling. Every failure is
// returned as an error for this image only; nothing here may panic across
// the dispatcher boundary.
func (e *Engine) Process(src []byte, edit domain.EditSpec, resize domain.ResizeSpec, output domain.OutputSpec) ([]byte, int, int, error) {
	if err := edit.Validate(); err != nil {
		return nil, 0, 0, err
	}
	if err := resize.Validate(); err != nil {
		return nil, 0, 0, err
	}
	if err := output.Validate(); err != nil {
		return nil, 0, 0, err
	}

	format, err := lookupFormat(output.Format)
	if err != nil {
		return nil, 0, 0, err
	}

	// Header-only dimension guard before committing to a full decode, in
	// case the container lied its way past upload validation.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidImageData, err)
	}
	if cfg.Width > e.maxPixelPerAxis || cfg.Height > e.maxPixelPerAxis {
		return nil, 0, 0, fmt.Errorf("%w: %dx%d px, maximum is %d px per axis",
			domain.ErrImageTooLarge, cfg.Width, cfg.Height, e.maxPixelPerAxis)
	}

	// Decoding applies EXIF auto-orientation so the pixels match what the
	// user saw; re-encoding never writes a metadata block, which is what
	// makes OutputSpec.StripMetadata hold for every registered encoder.
	decoded, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", domain.ErrInvalidImageData, err)
	}
	if decoded.Bounds().Dx() == 0 || decoded.Bounds().Dy() == 0 {
		return nil, 0, 0, fmt.Errorf("%w: decoded image is empty", domain.ErrInvalidImageData)
	}

	img := imaging.Clone(decoded)

	img = applyEnhancements(img, edit)
	img = applyTransforms(img, edit)
	img = applyFilter(img, edit.Filter)

	// Color-key is skipped without error when the output format cannot
	// carry the resulting alpha channel anyway.
	if edit.ColorKey != nil && format.Alpha {
		img = applyColorKey(img, *edit.ColorKey)
	}

	img, err = applyCrop(img, edit.Crop)
	if err != nil {
		return nil, 0, 0, err
	}

	img, err = applyResize(img, resize)
	if err != nil {
		return nil, 0, 0, err
	}

	data, err := e.encode(img, format, output)
	if err != nil {
		return nil, 0, 0, err
	}

	return data, img.Bounds().Dx(), img.Bounds().Dy(), nil
}

func applyEnhancements(img *image.NRGBA, edit domain.EditSpec) *image.NRGBA {
	// Factors are multiplicative scalars around 1.0; imaging expresses the
	// same adjustments as percentages around 0.
	if edit.Brightness != 1.0 {
		img = imaging.AdjustBrightness(img, clampPercent((edit.Brightness-1)*100))
	}
	if edit.Contrast != 1.0 {
		img = imaging.AdjustContrast(img, clampPercent((edit.Contrast-1)*100))
	}
	if edit.Saturation != 1.0 {
		img = imaging.AdjustSaturation(img, clampPercent((edit.Saturation-1)*100))
	}
	if edit.Sharpness != 1.0 {
		if edit.Sharpness > 1.0 {
			img = imaging.Sharpen(img, edit.Sharpness-1.0)
		} else {
			// Below identity the sharpness factor smooths, as in classic
			// photo editors.
			img = imaging.Blur(img, (1.0-edit.Sharpness)+0.1)
		}
	}
	return img
}

func applyTransforms(img *image.NRGBA, edit domain.EditSpec) *image.NRGBA {
	switch ((edit.Rotate % 360) + 360) % 360 {
	case 90:
		img = imaging.Rotate90(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate270(img)
	}
	if edit.FlipH {
		img = imaging.FlipH(img)
	}
	if edit.FlipV {
		img = imaging.FlipV(img)
	}
	return img
}

func applyCrop(img *image.NRGBA, crop domain.CropSpec) (*image.NRGBA, error) {
	switch crop.Mode {
	case domain.CropNone, "":
		return img, nil
	case domain.CropBox:
		return cropBox(img, crop), nil
	case domain.CropAspect:
		return cropCenterAspect(img, crop.AspectW, crop.AspectH), nil
	default:
		return nil, fmt.Errorf("%w: unknown crop mode %q", domain.ErrInvalidParameter, crop.Mode)
	}
}

// cropBox clamps the requested box to the image bounds. A right or bottom of
// zero extends to the image edge; the box always keeps at least one pixel per
// axis.
func cropBox(img *image.NRGBA, crop domain.CropSpec) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	left := clampInt(crop.Left, 0, w)
	top := clampInt(crop.Top, 0, h)

	right := crop.Right
	if right <= 0 {
		right = w
	}
	bottom := crop.Bottom
	if bottom <= 0 {
		bottom = h
	}

	right = max(left+1, min(w, right))
	bottom = max(top+1, min(h, bottom))

	return imaging.Crop(img, image.Rect(left, top, right, bottom))
}

// cropCenterAspect cuts the largest centered box matching targetW:targetH.
func cropCenterAspect(img *image.NRGBA, targetW, targetH int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if targetW <= 0 || targetH <= 0 {
		return img
	}

	targetRatio := float64(targetW) / float64(targetH)
	currentRatio := float64(w) / float64(h)

	cropW, cropH := w, h
	if currentRatio > targetRatio {
		cropW = int(float64(h) * targetRatio)
	} else {
		cropH = int(float64(w) / targetRatio)
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}

	return imaging.CropCenter(img, cropW, cropH)
}

func applyResize(img *image.NRGBA, resize domain.ResizeSpec) (*image.NRGBA, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	switch resize.Mode {
	case domain.ResizeNone, "":
		return img, nil

	case domain.ResizePercentage:
		scale := float64(resize.Percentage) / 100
		dstW := roundDim(float64(w) * scale)
		dstH := roundDim(float64(h) * scale)
		return imaging.Resize(img, dstW, dstH, imaging.Lanczos), nil

	case domain.ResizeFixed:
		switch {
		case resize.Width > 0 && resize.Height > 0:
			if resize.KeepAspect {
				// Fit inside the box without upscaling, thumbnail-style.
				return imaging.Fit(img, resize.Width, resize.Height, imaging.Lanczos), nil
			}
			return imaging.Resize(img, resize.Width, resize.Height, imaging.Lanczos), nil
		case resize.Width > 0:
			dstH := h
			if resize.KeepAspect {
				dstH = roundDim(float64(h) * float64(resize.Width) / float64(w))
			}
			return imaging.Resize(img, resize.Width, dstH, imaging.Lanczos), nil
		case resize.Height > 0:
			dstW := w
			if resize.KeepAspect {
				dstW = roundDim(float64(w) * float64(resize.Height) / float64(h))
			}
			return imaging.Resize(img, dstW, resize.Height, imaging.Lanczos), nil
		default:
			return nil, fmt.Errorf("%w: fixed resize requires a positive width or height", domain.ErrInvalidParameter)
		}

	default:
		return nil, fmt.Errorf("%w: unknown resize mode %q", domain.ErrInvalidParameter, resize.Mode)
	}
}

// roundDim rounds a derived dimension to the nearest pixel, minimum 1.
func roundDim(v float64) int {
	d := int(math.Round(v))
	if d < 1 {
		d = 1
	}
	return d
}

func clampPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
