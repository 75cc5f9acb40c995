package domain

import (
	"time"
)

// SourceImage is one uploaded file. The byte buffer is immutable once
// received: the pipeline only ever reads it.
type SourceImage struct {
	Filename string
	MimeType string
	Size     int64
	Data     []byte
}

// ProcessResult is the per-image outcome of one pipeline run. Exactly one of
// the success payload (Data + OutputFilename) or Error is set.
type ProcessResult struct {
	Index            int    `json:"index"`
	OriginalFilename string `json:"original_filename"`
	OutputFilename   string `json:"output_filename,omitempty"`
	OriginalSize     int64  `json:"original_size"`
	ProcessedSize    int64  `json:"processed_size,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
	Error            string `json:"error,omitempty"`

	Data []byte `json:"-"`
}

func (r *ProcessResult) Succeeded() bool {
	return r.Error == ""
}

// SavingsPercent reports the size reduction relative to the original upload.
// Negative values mean the output grew.
func (r *ProcessResult) SavingsPercent() float64 {
	if !r.Succeeded() || r.OriginalSize <= 0 {
		return 0
	}
	return (1 - float64(r.ProcessedSize)/float64(r.OriginalSize)) * 100
}

// Batch is a completed processing run held in memory for the lifetime of one
// user session. Results are ordered by input position.
type Batch struct {
	ID        string
	Results   []*ProcessResult
	Edit      EditSpec
	Resize    ResizeSpec
	Output    OutputSpec
	CreatedAt time.Time
}

func (b *Batch) SucceededCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

func (b *Batch) TotalOriginalSize() int64 {
	var total int64
	for _, r := range b.Results {
		total += r.OriginalSize
	}
	return total
}

func (b *Batch) TotalProcessedSize() int64 {
	var total int64
	for _, r := range b.Results {
		if r.Succeeded() {
			total += r.ProcessedSize
		}
	}
	return total
}
