package validate

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkoff/pixbatch/internal/config"
	"github.com/avolkoff/pixbatch/internal/domain"
)

func testLimits() *config.LimitsConfig {
	return &config.LimitsConfig{
		MaxFileCount:    50,
		MaxTotalSizeMB:  200,
		MaxPixelPerAxis: 10000,
	}
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func source(name string, data []byte) *domain.SourceImage {
	return &domain.SourceImage{Filename: name, Size: int64(len(data)), Data: data}
}

func TestValidateBatchAccepts(t *testing.T) {
	v := NewBatchValidator(testLimits())
	data := pngImage(t, 20, 10)

	err := v.ValidateBatch([]*domain.SourceImage{
		source("a.png", data),
		source("b.png", data),
	})
	assert.NoError(t, err)
}

func TestValidateBatchEmpty(t *testing.T) {
	v := NewBatchValidator(testLimits())
	assert.ErrorIs(t, v.ValidateBatch(nil), domain.ErrEmptyBatch)
}

func TestValidateBatchFileCount(t *testing.T) {
	v := NewBatchValidator(testLimits())
	data := pngImage(t, 2, 2)

	images := make([]*domain.SourceImage, 51)
	for i := range images {
		images[i] = source("x.png", data)
	}

	err := v.ValidateBatch(images)
	assert.ErrorIs(t, err, domain.ErrTooManyFiles)
	assert.Contains(t, err.Error(), "50")
}

func TestValidateBatchTotalSize(t *testing.T) {
	limits := testLimits()
	limits.MaxTotalSizeMB = 1
	v := NewBatchValidator(limits)

	big := source("big.png", pngImage(t, 4, 4))
	big.Size = 2 * 1024 * 1024 // declared size is what the ceiling sees

	err := v.ValidateBatch([]*domain.SourceImage{big})
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)
}

func TestValidateBatchPixelDimensions(t *testing.T) {
	limits := testLimits()
	limits.MaxPixelPerAxis = 100
	v := NewBatchValidator(limits)

	err := v.ValidateBatch([]*domain.SourceImage{
		source("ok.png", pngImage(t, 50, 50)),
		source("wide.png", pngImage(t, 101, 2)),
	})
	assert.ErrorIs(t, err, domain.ErrImageTooLarge)
	assert.Contains(t, err.Error(), "wide.png")
}

func TestValidateBatchUnreadableHeaderPasses(t *testing.T) {
	// Corrupt data is a per-image concern for the engine, not batch-fatal.
	v := NewBatchValidator(testLimits())
	err := v.ValidateBatch([]*domain.SourceImage{
		source("junk.png", []byte("this is not an image")),
	})
	assert.NoError(t, err)
}
