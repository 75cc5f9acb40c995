package domain

import "errors"

var (
	// Batch-level validation failures (reject the whole run before any pixel work).
	ErrTooManyFiles  = errors.New("file count exceeds maximum allowed")
	ErrBatchTooLarge = errors.New("cumulative upload size exceeds maximum allowed")
	ErrEmptyBatch    = errors.New("batch contains no files")

	// Per-image failures (recorded in the result, siblings proceed).
	ErrImageTooLarge     = errors.New("image dimensions exceed maximum allowed")
	ErrInvalidImageData  = errors.New("invalid or undecodable image data")
	ErrInvalidParameter  = errors.New("invalid processing parameter")
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// Archive construction (fatal to the archive request only).
	ErrPackagingFailed = errors.New("archive construction failed")

	ErrBatchNotFound = errors.New("batch not found")
)
