package processor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/avolkoff/pixbatch/internal/domain"
)

// pixelateBlock is the cell size of the pixelate preset.
const pixelateBlock = 8

// filterFuncs maps each preset to a single pass over the image. Presets are
// channel-math or convolution operations; per-pixel work goes through
// imaging.AdjustFunc rather than hand-rolled loops.
var filterFuncs = map[domain.FilterPreset]func(*image.NRGBA) *image.NRGBA{
	domain.FilterGrayscale: func(img *image.NRGBA) *image.NRGBA { return imaging.Grayscale(img) },
	domain.FilterInvert:    func(img *image.NRGBA) *image.NRGBA { return imaging.Invert(img) },
	domain.FilterSepia:     sepia,
	domain.FilterBlur:      func(img *image.NRGBA) *image.NRGBA { return imaging.Blur(img, 2.0) },
	domain.FilterPixelate:  pixelate,
	domain.FilterContour:   contour,
}

func applyFilter(img *image.NRGBA, preset domain.FilterPreset) *image.NRGBA {
	fn, ok := filterFuncs[preset]
	if !ok {
		return img
	}
	return fn(img)
}

// sepia applies the classic sepia tone matrix.
func sepia(img *image.NRGBA) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		r := float64(c.R)
		g := float64(c.G)
		b := float64(c.B)
		return color.NRGBA{
			R: clamp8(0.393*r + 0.769*g + 0.189*b),
			G: clamp8(0.349*r + 0.686*g + 0.168*b),
			B: clamp8(0.272*r + 0.534*g + 0.131*b),
			A: c.A,
		}
	})
}

// pixelate shrinks with box averaging then scales back with nearest-neighbor,
// producing uniform blocks.
func pixelate(img *image.NRGBA) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	smallW := max(1, w/pixelateBlock)
	smallH := max(1, h/pixelateBlock)

	small := imaging.Resize(img, smallW, smallH, imaging.Box)
	return imaging.Resize(small, w, h, imaging.NearestNeighbor)
}

// contour is an edge-detection convolution (8-neighbor Laplacian).
func contour(img *image.NRGBA) *image.NRGBA {
	return imaging.Convolve3x3(img, [9]float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}, nil)
}

func clamp8(v float64) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v + 0.5)
}
