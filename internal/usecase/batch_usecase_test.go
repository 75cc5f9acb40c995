package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkoff/pixbatch/internal/config"
	"github.com/avolkoff/pixbatch/internal/domain"
	"github.com/avolkoff/pixbatch/internal/infrastructure/processor"
	"github.com/avolkoff/pixbatch/internal/validate"
	"github.com/avolkoff/pixbatch/internal/worker"
)

func newTestUsecase(t *testing.T) *BatchUsecase {
	t.Helper()
	processing := &config.ProcessingConfig{Workers: 2, DefaultQuality: 80, MinQuality: 20, WebTargetSizeKB: 500, BatchTTLMin: 30}
	limits := &config.LimitsConfig{MaxFileCount: 50, MaxTotalSizeMB: 200, MaxPixelPerAxis: 10000}

	return NewBatchUsecase(
		validate.NewBatchValidator(limits),
		processor.NewEngine(processing, limits),
		worker.NewPool(processing.Workers),
		NewBatchStore(30*time.Minute),
	)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(i % 256)
		img.Pix[i+3] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(name string, data []byte) *domain.SourceImage {
	return &domain.SourceImage{Filename: name, MimeType: "image/png", Size: int64(len(data)), Data: data}
}

func defaultSpecs() (domain.EditSpec, domain.ResizeSpec, domain.OutputSpec) {
	return domain.DefaultEditSpec(), domain.ResizeSpec{Mode: domain.ResizeNone}, domain.OutputSpec{Format: "png", Quality: 80, StripMetadata: true}
}

func TestProcessBatchEndToEnd(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()

	batch, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("cat.png", pngBytes(t, 20, 10)),
		upload("dog.png", pngBytes(t, 8, 8)),
	}, edit, resize, output)
	require.NoError(t, err)
	require.NotEmpty(t, batch.ID)
	require.Len(t, batch.Results, 2)

	assert.Equal(t, 2, batch.SucceededCount())
	assert.Equal(t, "processed_cat.png", batch.Results[0].OutputFilename)
	assert.Equal(t, "processed_dog.png", batch.Results[1].OutputFilename)
	assert.Equal(t, 20, batch.Results[0].Width)
	assert.Equal(t, 10, batch.Results[0].Height)

	stored, err := u.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Same(t, batch, stored)
}

func TestProcessBatchPerImageFailure(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()

	batch, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("good.png", pngBytes(t, 4, 4)),
		upload("broken.png", []byte("not an image at all")),
		upload("fine.png", pngBytes(t, 4, 4)),
	}, edit, resize, output)
	require.NoError(t, err, "a corrupt image must not fail the batch")

	require.Len(t, batch.Results, 3)
	assert.True(t, batch.Results[0].Succeeded())
	assert.False(t, batch.Results[1].Succeeded())
	assert.True(t, batch.Results[2].Succeeded())
	assert.Equal(t, 2, batch.SucceededCount())

	// Failed slots still receive a stable output name.
	assert.Equal(t, "processed_broken.png", batch.Results[1].OutputFilename)
}

func TestProcessBatchOutputNameCollisions(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()
	data := pngBytes(t, 4, 4)

	batch, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("photo.png", data),
		upload("photo.jpg", data), // same stem, different upload extension
		upload("photo.png", data),
	}, edit, resize, output)
	require.NoError(t, err)

	assert.Equal(t, "processed_photo.png", batch.Results[0].OutputFilename)
	assert.Equal(t, "processed_photo (1).png", batch.Results[1].OutputFilename)
	assert.Equal(t, "processed_photo (2).png", batch.Results[2].OutputFilename)
}

// countingTransformer verifies that rejection happens before any pixel work.
type countingTransformer struct {
	calls atomic.Int32
}

func (c *countingTransformer) Process([]byte, domain.EditSpec, domain.ResizeSpec, domain.OutputSpec) ([]byte, int, int, error) {
	c.calls.Add(1)
	return []byte("x"), 1, 1, nil
}

func TestProcessBatchRejectsOverLimitBeforeProcessing(t *testing.T) {
	transformer := &countingTransformer{}
	limits := &config.LimitsConfig{MaxFileCount: 50, MaxTotalSizeMB: 200, MaxPixelPerAxis: 10000}
	u := NewBatchUsecase(
		validate.NewBatchValidator(limits),
		transformer,
		worker.NewPool(2),
		NewBatchStore(time.Minute),
	)

	data := pngBytes(t, 2, 2)
	images := make([]*domain.SourceImage, 51)
	for i := range images {
		images[i] = upload("x.png", data)
	}

	edit, resize, output := defaultSpecs()
	_, err := u.ProcessBatch(context.Background(), images, edit, resize, output)
	assert.ErrorIs(t, err, domain.ErrTooManyFiles)
	assert.Equal(t, int32(0), transformer.calls.Load(), "no image may be processed on rejection")
}

func TestProcessBatchRejectsUnknownOutputFormat(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()
	output.Format = "avif"

	_, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("a.png", pngBytes(t, 2, 2)),
	}, edit, resize, output)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestGetResult(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()

	batch, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("a.png", pngBytes(t, 4, 4)),
	}, edit, resize, output)
	require.NoError(t, err)

	res, err := u.GetResult(context.Background(), batch.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "a.png", res.OriginalFilename)

	_, err = u.GetResult(context.Background(), batch.ID, 1)
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
	_, err = u.GetResult(context.Background(), batch.ID, -1)
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
	_, err = u.GetResult(context.Background(), "no-such-batch", 0)
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestBuildArchive(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()

	batch, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("a.png", pngBytes(t, 4, 4)),
		upload("broken.png", []byte("junk")),
		upload("b.png", pngBytes(t, 4, 4)),
	}, edit, resize, output)
	require.NoError(t, err)

	data, err := u.BuildArchive(context.Background(), batch.ID)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2, "failed images stay out of the archive")
	assert.Equal(t, "processed_a.png", zr.File[0].Name)
	assert.Equal(t, "processed_b.png", zr.File[1].Name)
}

func TestBuildArchiveAllFailed(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()

	batch, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("broken.png", []byte("junk")),
	}, edit, resize, output)
	require.NoError(t, err)

	_, err = u.BuildArchive(context.Background(), batch.ID)
	assert.ErrorIs(t, err, domain.ErrPackagingFailed)
}

func TestDeleteBatch(t *testing.T) {
	u := newTestUsecase(t)
	edit, resize, output := defaultSpecs()

	batch, err := u.ProcessBatch(context.Background(), []*domain.SourceImage{
		upload("a.png", pngBytes(t, 4, 4)),
	}, edit, resize, output)
	require.NoError(t, err)

	require.NoError(t, u.DeleteBatch(context.Background(), batch.ID))
	_, err = u.GetBatch(context.Background(), batch.ID)
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)

	assert.ErrorIs(t, u.DeleteBatch(context.Background(), batch.ID), domain.ErrBatchNotFound)
}

func TestBatchStoreEviction(t *testing.T) {
	store := NewBatchStore(10 * time.Minute)

	fresh := &domain.Batch{ID: "fresh", CreatedAt: time.Now()}
	stale := &domain.Batch{ID: "stale", CreatedAt: time.Now().Add(-time.Hour)}
	store.Put(fresh)
	store.Put(stale)

	store.evictExpired()

	_, ok := store.Get("fresh")
	assert.True(t, ok)
	_, ok = store.Get("stale")
	assert.False(t, ok)
}
