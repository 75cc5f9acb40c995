package domain

import (
	"context"
)

// BatchService runs the full pipeline for a set of uploads and keeps the
// outcome available for download until the session expires.
type BatchService interface {
	ProcessBatch(ctx context.Context, images []*SourceImage, edit EditSpec, resize ResizeSpec, output OutputSpec) (*Batch, error)
	GetBatch(ctx context.Context, id string) (*Batch, error)
	GetResult(ctx context.Context, batchID string, index int) (*ProcessResult, error)
	BuildArchive(ctx context.Context, batchID string) ([]byte, error)
	DeleteBatch(ctx context.Context, id string) error
}

// Validator checks batch-level ceilings before any processing starts.
type Validator interface {
	ValidateBatch(images []*SourceImage) error
}

// Transformer is the pure per-image engine: raw bytes plus value-typed specs
// in, encoded bytes out. Implementations must not mutate the input buffer and
// must carry no state between calls.
type Transformer interface {
	Process(src []byte, edit EditSpec, resize ResizeSpec, output OutputSpec) ([]byte, int, int, error)
}
