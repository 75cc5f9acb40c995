package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/domain"
	"github.com/avolkoff/pixbatch/internal/infrastructure/archive"
	"github.com/avolkoff/pixbatch/internal/infrastructure/processor"
	"github.com/avolkoff/pixbatch/internal/sanitize"
	"github.com/avolkoff/pixbatch/internal/worker"
)

// BatchUsecase wires the pipeline: validate, dispatch to the engine through
// the worker pool, name the outputs, keep the batch for download.
type BatchUsecase struct {
	validator domain.Validator
	engine    domain.Transformer
	pool      *worker.Pool
	store     *BatchStore
}

func NewBatchUsecase(
	validator domain.Validator,
	engine domain.Transformer,
	pool *worker.Pool,
	store *BatchStore,
) *BatchUsecase {
	return &BatchUsecase{
		validator: validator,
		engine:    engine,
		pool:      pool,
		store:     store,
	}
}

func (u *BatchUsecase) ProcessBatch(
	ctx context.Context,
	images []*domain.SourceImage,
	edit domain.EditSpec,
	resize domain.ResizeSpec,
	output domain.OutputSpec,
) (*domain.Batch, error) {
	if err := u.validator.ValidateBatch(images); err != nil {
		zlog.Logger.Warn().Err(err).Int("files", len(images)).Msg("batch rejected by validator")
		return nil, err
	}

	format, err := processor.LookupFormat(output.Format)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	results := u.pool.Run(ctx, images, u.engine, edit, resize, output)
	assignOutputNames(results, format.Extension)

	batch := &domain.Batch{
		ID:        uuid.New().String(),
		Results:   results,
		Edit:      edit,
		Resize:    resize,
		Output:    output,
		CreatedAt: time.Now(),
	}
	u.store.Put(batch)

	zlog.Logger.Info().
		Str("batch_id", batch.ID).
		Int("total", len(results)).
		Int("succeeded", batch.SucceededCount()).
		Dur("duration", time.Since(started)).
		Msg("batch processed")

	return batch, nil
}

// assignOutputNames derives "processed_<stem><ext>" names from the sanitized
// upload names and disambiguates collisions deterministically across the
// whole batch, including failed slots so retry naming stays stable.
func assignOutputNames(results []*domain.ProcessResult, ext string) {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = "processed_" + sanitize.Stem(r.OriginalFilename) + ext
	}
	names = sanitize.Dedupe(names)
	for i, r := range results {
		r.OutputFilename = names[i]
	}
}

func (u *BatchUsecase) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	batch, ok := u.store.Get(id)
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	return batch, nil
}

func (u *BatchUsecase) GetResult(ctx context.Context, batchID string, index int) (*domain.ProcessResult, error) {
	batch, err := u.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(batch.Results) {
		return nil, fmt.Errorf("%w: result index %d out of range", domain.ErrBatchNotFound, index)
	}
	return batch.Results[index], nil
}

// BuildArchive packages every successful result of the batch. Per-image
// failures are excluded; a packaging failure invalidates only the archive
// request, never the already-computed results.
func (u *BatchUsecase) BuildArchive(ctx context.Context, batchID string) ([]byte, error) {
	batch, err := u.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	entries := make([]archive.Entry, 0, len(batch.Results))
	for _, r := range batch.Results {
		if !r.Succeeded() {
			continue
		}
		entries = append(entries, archive.Entry{Name: r.OutputFilename, Data: r.Data})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: batch has no successful results", domain.ErrPackagingFailed)
	}

	return archive.Build(entries)
}

func (u *BatchUsecase) DeleteBatch(_ context.Context, id string) error {
	if !u.store.Delete(id) {
		return domain.ErrBatchNotFound
	}
	zlog.Logger.Info().Str("batch_id", id).Msg("batch deleted")
	return nil
}
