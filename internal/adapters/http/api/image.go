package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/pkg/logger"
)

const (
	imageField = "image"
	// Parts larger than this are spooled to disk while parsing.
	multipartMemory = 8 << 20
)

// Accepted upload types, as sniffed from the file content.
var imageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// ImageDependencies defines the photo analysis operation.
type ImageDependencies interface {
	AnalyzeImage(ctx context.Context, image []byte, contentType string) (*model.Analysis, error)
}

// ImageHandler serves photo uploads.
type ImageHandler struct {
	deps           ImageDependencies
	maxUploadBytes int64
	logger         logger.Logger
}

// NewImageHandler creates a new image handler.
func NewImageHandler(deps ImageDependencies, maxUploadBytes int64, log logger.Logger) *ImageHandler {
	return &ImageHandler{deps: deps, maxUploadBytes: maxUploadBytes, logger: log}
}

// HandleAnalyze handles POST /analyze_image requests with a multipart
// "image" field.
func (h *ImageHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_image"
	data, err := h.readImage(w, r)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	contentType := http.DetectContentType(data)
	if _, ok := imageTypes[contentType]; !ok {
		writeError(r.Context(), w, h.logger, NewKind(op, ErrNotImage), nutritionUpstream)
		return
	}

	a, err := h.deps.AnalyzeImage(r.Context(), data, contentType)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *ImageHandler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	const op = "api.read_image"
	if r.ContentLength > h.maxUploadBytes {
		return nil, NewKind(op, ErrTooLarge)
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind(op, ErrTooLarge, err)
		}
		return nil, WrapKind(op, ErrNoImage, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile(imageField)
	if err != nil {
		// A part sent with an empty filename is parsed as a plain value.
		if _, ok := r.MultipartForm.Value[imageField]; ok {
			return nil, WrapKind(op, ErrEmptyFilename, err)
		}
		return nil, WrapKind(op, ErrNoImage, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	if len(data) == 0 {
		return nil, NewKind(op, ErrNotImage)
	}
	return data, nil
}
