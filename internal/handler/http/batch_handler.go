package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/avolkoff/pixbatch/internal/config"
	"github.com/avolkoff/pixbatch/internal/domain"
	"github.com/avolkoff/pixbatch/internal/dto"
	"github.com/avolkoff/pixbatch/internal/infrastructure/processor"
	"github.com/avolkoff/pixbatch/internal/sanitize"
)

type BatchHandler struct {
	service        domain.BatchService
	processing     *config.ProcessingConfig
	allowedFormats []string
}

func NewBatchHandler(service domain.BatchService, processing *config.ProcessingConfig) *BatchHandler {
	return &BatchHandler{
		service:        service,
		processing:     processing,
		allowedFormats: processing.SupportedFormats,
	}
}

func (h *BatchHandler) RegisterRoutes(engine *ginext.Engine) {
	engine.POST("/batch", h.ProcessBatch)
	engine.GET("/batch/:id", h.GetBatch)
	engine.GET("/batch/:id/image/:index", h.DownloadImage)
	engine.GET("/batch/:id/archive", h.DownloadArchive)
	engine.DELETE("/batch/:id", h.DeleteBatch)
}

// ProcessBatch POST /batch
func (h *BatchHandler) ProcessBatch(c *ginext.Context) {
	var req dto.ProcessBatchRequest
	if err := c.ShouldBind(&req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to bind batch request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "Malformed processing parameters",
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to parse multipart form")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "Multipart form with an 'images' field is required",
		})
		return
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "No image files provided",
		})
		return
	}

	images := make([]*domain.SourceImage, 0, len(headers))
	for _, header := range headers {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !h.isAllowedFormat(ext) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "invalid_format",
				Message: fmt.Sprintf("Unsupported upload format for %q. Allowed: %v", header.Filename, h.allowedFormats),
			})
			return
		}

		file, err := header.Open()
		if err != nil {
			zlog.Logger.Error().Err(err).Str("filename", header.Filename).Msg("failed to open uploaded file")
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "invalid_request",
				Message: fmt.Sprintf("Cannot read uploaded file %q", header.Filename),
			})
			return
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			zlog.Logger.Error().Err(err).Str("filename", header.Filename).Msg("failed to read uploaded file")
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "invalid_request",
				Message: fmt.Sprintf("Cannot read uploaded file %q", header.Filename),
			})
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		// First sanitization point: names are safe from the moment they
		// enter the pipeline.
		images = append(images, &domain.SourceImage{
			Filename: sanitize.Name(header.Filename),
			MimeType: mimeType,
			Size:     int64(len(data)),
			Data:     data,
		})
	}

	edit, resize, output, err := req.ToSpecs(h.processing)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_parameter",
			Message: err.Error(),
		})
		return
	}

	batch, err := h.service.ProcessBatch(c.Request.Context(), images, edit, resize, output)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MapBatchToResponse(batch, h.getBaseURL(c)))
}

// GetBatch GET /batch/:id
func (h *BatchHandler) GetBatch(c *ginext.Context) {
	batch, err := h.service.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapBatchToResponse(batch, h.getBaseURL(c)))
}

// DownloadImage GET /batch/:id/image/:index
func (h *BatchHandler) DownloadImage(c *ginext.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "Image index must be an integer",
		})
		return
	}

	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if !result.Succeeded() {
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "processing_failed",
			Message: fmt.Sprintf("%s: %s", result.OriginalFilename, result.Error),
		})
		return
	}

	contentType := "application/octet-stream"
	if format, err := processor.LookupFormat(strings.TrimPrefix(filepath.Ext(result.OutputFilename), ".")); err == nil {
		contentType = format.MimeType
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.OutputFilename))
	c.Data(http.StatusOK, contentType, result.Data)
}

// DownloadArchive GET /batch/:id/archive
func (h *BatchHandler) DownloadArchive(c *ginext.Context) {
	id := c.Param("id")
	data, err := h.service.BuildArchive(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "processed_images.zip"))
	c.Data(http.StatusOK, "application/zip", data)
}

// DeleteBatch DELETE /batch/:id
func (h *BatchHandler) DeleteBatch(c *ginext.Context) {
	if err := h.service.DeleteBatch(c.Request.Context(), c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BatchHandler) writeServiceError(c *ginext.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBatchNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: "Batch not found",
		})
	case errors.Is(err, domain.ErrTooManyFiles),
		errors.Is(err, domain.ErrBatchTooLarge),
		errors.Is(err, domain.ErrImageTooLarge),
		errors.Is(err, domain.ErrEmptyBatch):
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
			Error:   "limit_exceeded",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_parameter",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrPackagingFailed):
		zlog.Logger.Error().Err(err).Msg("archive construction failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "packaging_failed",
			Message: err.Error(),
		})
	default:
		zlog.Logger.Error().Err(err).Msg("batch request failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "server_error",
			Message: "Internal error",
		})
	}
}

func (h *BatchHandler) isAllowedFormat(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	for _, allowed := range h.allowedFormats {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

func (h *BatchHandler) getBaseURL(c *ginext.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}
