package dto

import (
	"fmt"
	"time"

	"github.com/avolkoff/pixbatch/internal/domain"
	"github.com/avolkoff/pixbatch/internal/helpers"
)

type ResultResponse struct {
	Index            int    `json:"index"`
	OriginalFilename string `json:"original_filename"`
	OutputFilename   string `json:"output_filename,omitempty"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`

	OriginalSize           int64   `json:"original_size"`
	OriginalSizeFormatted  string  `json:"original_size_formatted"`
	ProcessedSize          int64   `json:"processed_size,omitempty"`
	ProcessedSizeFormatted string  `json:"processed_size_formatted,omitempty"`
	SavingsPercent         float64 `json:"savings_percent"`
	Width                  int     `json:"width,omitempty"`
	Height                 int     `json:"height,omitempty"`

	DownloadURL string `json:"download_url,omitempty"`
}

type BatchResponse struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []*ResultResponse `json:"results"`

	TotalOriginalSize           int64   `json:"total_original_size"`
	TotalOriginalSizeFormatted  string  `json:"total_original_size_formatted"`
	TotalProcessedSize          int64   `json:"total_processed_size"`
	TotalProcessedSizeFormatted string  `json:"total_processed_size_formatted"`
	SpaceSavingsPercent         float64 `json:"space_savings_percent"`

	ArchiveURL string `json:"archive_url,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func MapResultToResponse(r *domain.ProcessResult, batchID, baseURL string) *ResultResponse {
	resp := &ResultResponse{
		Index:                 r.Index,
		OriginalFilename:      r.OriginalFilename,
		OriginalSize:          r.OriginalSize,
		OriginalSizeFormatted: helpers.FormatBytes(r.OriginalSize),
	}

	if !r.Succeeded() {
		resp.Status = "failed"
		resp.Error = r.Error
		return resp
	}

	resp.Status = "completed"
	resp.OutputFilename = r.OutputFilename
	resp.ProcessedSize = r.ProcessedSize
	resp.ProcessedSizeFormatted = helpers.FormatBytes(r.ProcessedSize)
	resp.SavingsPercent = r.SavingsPercent()
	resp.Width = r.Width
	resp.Height = r.Height
	resp.DownloadURL = fmt.Sprintf("%s/batch/%s/image/%d", baseURL, batchID, r.Index)
	return resp
}

func MapBatchToResponse(batch *domain.Batch, baseURL string) *BatchResponse {
	if batch == nil {
		return nil
	}

	results := make([]*ResultResponse, 0, len(batch.Results))
	for _, r := range batch.Results {
		results = append(results, MapResultToResponse(r, batch.ID, baseURL))
	}

	totalOriginal := batch.TotalOriginalSize()
	totalProcessed := batch.TotalProcessedSize()
	savings := 0.0
	if totalOriginal > 0 && batch.SucceededCount() > 0 {
		savings = (1 - float64(totalProcessed)/float64(totalOriginal)) * 100
	}

	resp := &BatchResponse{
		ID:                          batch.ID,
		CreatedAt:                   batch.CreatedAt,
		Total:                       len(batch.Results),
		Succeeded:                   batch.SucceededCount(),
		Failed:                      len(batch.Results) - batch.SucceededCount(),
		Results:                     results,
		TotalOriginalSize:           totalOriginal,
		TotalOriginalSizeFormatted:  helpers.FormatBytes(totalOriginal),
		TotalProcessedSize:          totalProcessed,
		TotalProcessedSizeFormatted: helpers.FormatBytes(totalProcessed),
		SpaceSavingsPercent:         savings,
	}

	if batch.SucceededCount() > 0 {
		resp.ArchiveURL = fmt.Sprintf("%s/batch/%s/archive", baseURL, batch.ID)
	}
	return resp
}
