package domain

import (
	"fmt"
)

// CropMode selects the cropping strategy.
type CropMode string

const (
	CropNone   CropMode = "none"
	CropBox    CropMode = "box"
	CropAspect CropMode = "aspect"
)

// ResizeMode selects how target geometry is interpreted.
type ResizeMode string

const (
	ResizeNone       ResizeMode = "none"
	ResizePercentage ResizeMode = "percentage"
	ResizeFixed      ResizeMode = "fixed"
)

// FilterPreset names a single post-enhancement filter pass.
type FilterPreset string

const (
	FilterNone      FilterPreset = ""
	FilterGrayscale FilterPreset = "grayscale"
	FilterSepia     FilterPreset = "sepia"
	FilterInvert    FilterPreset = "invert"
	FilterBlur      FilterPreset = "blur"
	FilterPixelate  FilterPreset = "pixelate"
	FilterContour   FilterPreset = "contour"
)

// ColorKeySpec replaces pixels near a target color with full transparency.
// A pixel matches when every RGB channel is within Tolerance of the target
// (inclusive).
type ColorKeySpec struct {
	R, G, B   uint8
	Tolerance int
}

// CropSpec describes either an explicit box or a centered aspect-ratio crop.
// For box mode, a Right or Bottom of 0 means "to the image edge"; left/top are
// clamped to bounds and the box always keeps at least one pixel per axis.
type CropSpec struct {
	Mode    CropMode
	Left    int
	Top     int
	Right   int
	Bottom  int
	AspectW int
	AspectH int
}

// EditSpec is the ordered set of edits shared by every image in a batch.
// Application order is fixed: enhancements, rotate/flip, filter preset,
// color-key, crop. Resizing and encoding are configured separately so that
// quality-affecting edits happen before downsampling.
type EditSpec struct {
	// Multiplicative scalars, 1.0 = identity.
	Brightness float64
	Contrast   float64
	Saturation float64
	Sharpness  float64

	// Rotation in degrees counter-clockwise, 90-degree steps only.
	Rotate int
	FlipH  bool
	FlipV  bool

	Filter   FilterPreset
	ColorKey *ColorKeySpec
	Crop     CropSpec
}

// DefaultEditSpec returns an identity edit: no geometry change, all
// enhancement factors 1.0, no filter.
func DefaultEditSpec() EditSpec {
	return EditSpec{
		Brightness: 1.0,
		Contrast:   1.0,
		Saturation: 1.0,
		Sharpness:  1.0,
		Crop:       CropSpec{Mode: CropNone},
	}
}

func (e *EditSpec) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"brightness", e.Brightness},
		{"contrast", e.Contrast},
		{"saturation", e.Saturation},
		{"sharpness", e.Sharpness},
	} {
		if f.value < 0 {
			return fmt.Errorf("%w: %s factor %.2f is negative", ErrInvalidParameter, f.name, f.value)
		}
	}

	if e.Rotate%90 != 0 {
		return fmt.Errorf("%w: rotation %d is not a multiple of 90", ErrInvalidParameter, e.Rotate)
	}

	switch e.Filter {
	case FilterNone, FilterGrayscale, FilterSepia, FilterInvert, FilterBlur, FilterPixelate, FilterContour:
	default:
		return fmt.Errorf("%w: unknown filter %q", ErrInvalidParameter, e.Filter)
	}

	if e.ColorKey != nil && e.ColorKey.Tolerance < 0 {
		return fmt.Errorf("%w: color-key tolerance %d is negative", ErrInvalidParameter, e.ColorKey.Tolerance)
	}

	switch e.Crop.Mode {
	case CropNone, CropBox:
	case CropAspect:
		if e.Crop.AspectW <= 0 || e.Crop.AspectH <= 0 {
			return fmt.Errorf("%w: aspect crop ratio %d:%d", ErrInvalidParameter, e.Crop.AspectW, e.Crop.AspectH)
		}
	default:
		return fmt.Errorf("%w: unknown crop mode %q", ErrInvalidParameter, e.Crop.Mode)
	}

	return nil
}

// ResizeSpec describes the final geometry step.
type ResizeSpec struct {
	Mode       ResizeMode
	Percentage int
	Width      int
	Height     int
	// KeepAspect makes one declared axis authoritative in fixed mode; the
	// other is derived with math.Round, minimum 1 pixel.
	KeepAspect bool
}

func (r *ResizeSpec) Validate() error {
	switch r.Mode {
	case ResizeNone, "":
		return nil
	case ResizePercentage:
		if r.Percentage <= 0 {
			return fmt.Errorf("%w: resize percentage %d must be positive", ErrInvalidParameter, r.Percentage)
		}
		return nil
	case ResizeFixed:
		if r.Width <= 0 && r.Height <= 0 {
			return fmt.Errorf("%w: fixed resize requires a positive width or height", ErrInvalidParameter)
		}
		if r.Width < 0 || r.Height < 0 {
			return fmt.Errorf("%w: resize dimensions %dx%d", ErrInvalidParameter, r.Width, r.Height)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown resize mode %q", ErrInvalidParameter, r.Mode)
	}
}

// OutputSpec describes the target encoding.
type OutputSpec struct {
	// Format is a registry key, e.g. "jpeg", "png", "webp".
	Format string
	// Quality 0-100, meaningful for lossy formats only.
	Quality int
	// Lossless applies only to formats that support a lossless mode.
	Lossless bool
	// StripMetadata drops any embedded EXIF-equivalent block.
	StripMetadata bool
	// TargetSize, when positive, iteratively reduces quality until the
	// encoded output fits under this many bytes or the quality floor is hit.
	TargetSize int64
}

// DefaultOutputSpec mirrors the web-friendly defaults of the upload form.
func DefaultOutputSpec() OutputSpec {
	return OutputSpec{
		Format:        "jpeg",
		Quality:       80,
		StripMetadata: true,
	}
}

func (o *OutputSpec) Validate() error {
	if o.Format == "" {
		return fmt.Errorf("%w: output format is required", ErrInvalidParameter)
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("%w: quality %d out of range 0-100", ErrInvalidParameter, o.Quality)
	}
	if o.TargetSize < 0 {
		return fmt.Errorf("%w: target size %d is negative", ErrInvalidParameter, o.TargetSize)
	}
	return nil
}
