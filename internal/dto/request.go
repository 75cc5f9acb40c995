package dto

import (
	"fmt"
	"strings"

	"github.com/avolkoff/pixbatch/internal/config"
	"github.com/avolkoff/pixbatch/internal/domain"
)

// ProcessBatchRequest carries the form-encoded edit, resize and output
// parameters of a multipart upload. Pointer fields distinguish "absent, use
// the default" from an explicit zero.
type ProcessBatchRequest struct {
	OutputFormat  string `form:"output_format"`
	Quality       *int   `form:"quality"`
	Lossless      bool   `form:"lossless"`
	StripMetadata *bool  `form:"strip_metadata"`
	// WebOptimize turns on the size-target search using the configured
	// ceiling; TargetSizeKB overrides the ceiling explicitly.
	WebOptimize  bool `form:"web_optimize"`
	TargetSizeKB int  `form:"target_size_kb"`

	ResizeMode string `form:"resize_mode"`
	Percentage int    `form:"percentage"`
	Width      int    `form:"width"`
	Height     int    `form:"height"`
	KeepAspect *bool  `form:"keep_aspect"`

	Brightness *float64 `form:"brightness"`
	Contrast   *float64 `form:"contrast"`
	Saturation *float64 `form:"saturation"`
	Sharpness  *float64 `form:"sharpness"`

	Rotate int    `form:"rotate"`
	FlipH  bool   `form:"flip_h"`
	FlipV  bool   `form:"flip_v"`
	Filter string `form:"filter"`

	// ColorKey is a hex color like "#RRGGBB"; empty disables keying.
	ColorKey          string `form:"color_key"`
	ColorKeyTolerance int    `form:"color_key_tolerance"`

	CropMode    string `form:"crop_mode"`
	CropLeft    int    `form:"crop_left"`
	CropTop     int    `form:"crop_top"`
	CropRight   int    `form:"crop_right"`
	CropBottom  int    `form:"crop_bottom"`
	CropAspectW int    `form:"crop_aspect_w"`
	CropAspectH int    `form:"crop_aspect_h"`
}

// ToSpecs maps the request onto domain value types, filling defaults from
// the processing config. Validation proper happens in the specs themselves.
func (r *ProcessBatchRequest) ToSpecs(cfg *config.ProcessingConfig) (domain.EditSpec, domain.ResizeSpec, domain.OutputSpec, error) {
	edit := domain.DefaultEditSpec()
	if r.Brightness != nil {
		edit.Brightness = *r.Brightness
	}
	if r.Contrast != nil {
		edit.Contrast = *r.Contrast
	}
	if r.Saturation != nil {
		edit.Saturation = *r.Saturation
	}
	if r.Sharpness != nil {
		edit.Sharpness = *r.Sharpness
	}
	edit.Rotate = r.Rotate
	edit.FlipH = r.FlipH
	edit.FlipV = r.FlipV
	edit.Filter = domain.FilterPreset(strings.ToLower(strings.TrimSpace(r.Filter)))

	if r.ColorKey != "" {
		red, green, blue, err := parseHexColor(r.ColorKey)
		if err != nil {
			return edit, domain.ResizeSpec{}, domain.OutputSpec{}, err
		}
		tolerance := r.ColorKeyTolerance
		if tolerance == 0 {
			tolerance = 10
		}
		edit.ColorKey = &domain.ColorKeySpec{R: red, G: green, B: blue, Tolerance: tolerance}
	}

	switch strings.ToLower(r.CropMode) {
	case "", "none":
		edit.Crop = domain.CropSpec{Mode: domain.CropNone}
	case "box":
		edit.Crop = domain.CropSpec{
			Mode:   domain.CropBox,
			Left:   r.CropLeft,
			Top:    r.CropTop,
			Right:  r.CropRight,
			Bottom: r.CropBottom,
		}
	case "aspect":
		edit.Crop = domain.CropSpec{
			Mode:    domain.CropAspect,
			AspectW: r.CropAspectW,
			AspectH: r.CropAspectH,
		}
	default:
		return edit, domain.ResizeSpec{}, domain.OutputSpec{},
			fmt.Errorf("%w: unknown crop mode %q", domain.ErrInvalidParameter, r.CropMode)
	}

	resize := domain.ResizeSpec{
		Mode:       domain.ResizeMode(strings.ToLower(r.ResizeMode)),
		Percentage: r.Percentage,
		Width:      r.Width,
		Height:     r.Height,
		KeepAspect: true,
	}
	if resize.Mode == "" {
		resize.Mode = domain.ResizeNone
	}
	if r.KeepAspect != nil {
		resize.KeepAspect = *r.KeepAspect
	}

	output := domain.DefaultOutputSpec()
	if r.OutputFormat != "" {
		output.Format = strings.ToLower(r.OutputFormat)
	}
	output.Quality = cfg.DefaultQuality
	if r.Quality != nil {
		output.Quality = *r.Quality
	}
	output.Lossless = r.Lossless
	if r.StripMetadata != nil {
		output.StripMetadata = *r.StripMetadata
	}
	if r.WebOptimize {
		output.TargetSize = int64(cfg.WebTargetSizeKB) * 1024
	}
	if r.TargetSizeKB > 0 {
		output.TargetSize = int64(r.TargetSizeKB) * 1024
	}

	return edit, resize, output, nil
}

func parseHexColor(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("%w: color %q must be #RRGGBB", domain.ErrInvalidParameter, s)
	}
	var rv, gv, bv int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: color %q must be #RRGGBB", domain.ErrInvalidParameter, s)
	}
	return uint8(rv), uint8(gv), uint8(bv), nil
}
