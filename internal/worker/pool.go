// Package worker runs the transform engine concurrently across a batch.
// Each task owns exactly one result slot, so collection order always matches
// input order no matter when workers finish, and no slot is written twice.
package worker

import (
	"context"
	"fmt"
	"runtime"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/avolkoff/pixbatch/internal/domain"
)

type Pool struct {
	workers int
}

// NewPool builds a dispatcher with the given concurrency limit.
// workers <= 0 means one worker per CPU core — each in-flight task holds a
// fully decoded image, so the bound is what keeps memory use flat.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Run processes every image through the transformer and returns one result
// per input, in input order. A failed image is recorded in its own slot and
// never cancels or corrupts siblings; workers receive only the read-only
// source buffer and value-typed specs, so there is no cross-worker aliasing.
// Cancelling ctx stops new tasks from starting; in-flight tasks finish.
func (p *Pool) Run(
	ctx context.Context,
	images []*domain.SourceImage,
	transformer domain.Transformer,
	edit domain.EditSpec,
	resize domain.ResizeSpec,
	output domain.OutputSpec,
) []*domain.ProcessResult {
	results := make([]*domain.ProcessResult, len(images))

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, img := range images {
		select {
		case <-ctx.Done():
			results[i] = &domain.ProcessResult{
				Index:            i,
				OriginalFilename: img.Filename,
				OriginalSize:     img.Size,
				Error:            ctx.Err().Error(),
			}
			continue
		default:
		}

		i, img := i, img
		g.Go(func() error {
			results[i] = p.processOne(i, img, transformer, edit, resize, output)
			return nil
		})
	}

	// Task errors live in result slots, never in the group.
	_ = g.Wait()
	return results
}

func (p *Pool) processOne(
	index int,
	img *domain.SourceImage,
	transformer domain.Transformer,
	edit domain.EditSpec,
	resize domain.ResizeSpec,
	output domain.OutputSpec,
) (result *domain.ProcessResult) {
	result = &domain.ProcessResult{
		Index:            index,
		OriginalFilename: img.Filename,
		OriginalSize:     img.Size,
	}

	// A panic inside a codec must stay confined to this image.
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().
				Int("index", index).
				Str("filename", img.Filename).
				Interface("panic", r).
				Msg("panic during image processing")
			result.Error = fmt.Sprintf("internal processing failure: %v", r)
			result.Data = nil
		}
	}()

	data, width, height, err := transformer.Process(img.Data, edit, resize, output)
	if err != nil {
		zlog.Logger.Warn().
			Int("index", index).
			Str("filename", img.Filename).
			Err(err).
			Msg("image processing failed")
		result.Error = err.Error()
		return result
	}

	result.Data = data
	result.ProcessedSize = int64(len(data))
	result.Width = width
	result.Height = height

	zlog.Logger.Info().
		Int("index", index).
		Str("filename", img.Filename).
		Int64("original_size", result.OriginalSize).
		Int64("processed_size", result.ProcessedSize).
		Msg("image processed")
	return result
}
