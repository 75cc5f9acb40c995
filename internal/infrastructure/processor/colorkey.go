package processor

import (
	"image"

	"github.com/avolkoff/pixbatch/internal/domain"
)

// applyColorKey sets alpha to zero for every pixel whose RGB channels are all
// within the tolerance radius of the target color, inclusive: a pixel at
// per-channel distance equal to the tolerance matches, one channel past it
// does not. The cut is hard — no graduated alpha at the tolerance edge.
func applyColorKey(img *image.NRGBA, key domain.ColorKeySpec) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)

	tol := key.Tolerance
	for i := 0; i < len(out.Pix); i += 4 {
		if within(out.Pix[i], key.R, tol) &&
			within(out.Pix[i+1], key.G, tol) &&
			within(out.Pix[i+2], key.B, tol) {
			out.Pix[i+3] = 0
		}
	}
	return out
}

func within(value, target uint8, tolerance int) bool {
	d := int(value) - int(target)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
