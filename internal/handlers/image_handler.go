package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shutterverse/backend/internal/middleware"
	"github.com/shutterverse/backend/internal/models"
	"github.com/shutterverse/backend/internal/services"
)

// ImageHandler deals with image bytes. Uploads are two-phase: request a
// handle, push the bytes to the handle's URL, then attach the ref to a photo.
// The multipart route remains as a one-step convenience in local mode.
type ImageHandler struct {
	images    services.ObjectStorage
	local     *services.LocalImageStore // nil when a bucket is configured
	maxSizeMB int64
}

func NewImageHandler(images services.ObjectStorage, local *services.LocalImageStore, maxSizeMB int64) *ImageHandler {
	return &ImageHandler{
		images:    images,
		local:     local,
		maxSizeMB: maxSizeMB,
	}
}

type uploadHandleRequest struct {
	ContentType string `json:"content_type"`
}

// IssueHandle hands out somewhere to put image bytes: a signed bucket URL in
// production, a local PUT route in dev mode.
func (h *ImageHandler) IssueHandle(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req uploadHandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if !isValidImageType(req.ContentType) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image type. Allowed: JPEG, PNG, GIF, WebP"))
		return
	}

	handle, err := h.images.IssueUploadHandle(r.Context(), req.ContentType)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to issue upload handle"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(handle))
}

// Upload accepts a multipart image directly and returns its handle.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	if h.local == nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Direct upload not supported; request an upload handle"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSizeMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxSizeMB * 1024 * 1024); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("File too large or invalid form data"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("No image file provided"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image type. Allowed: JPEG, PNG, GIF, WebP"))
		return
	}

	handle, err := h.local.Store(header.Filename, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upload image"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(handle))
}

// Put receives the bytes for a previously issued local handle.
func (h *ImageHandler) Put(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUserID(r.Context()) == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	if h.local == nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Direct upload not supported; request an upload handle"))
		return
	}

	ref := chi.URLParam(r, "ref")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSizeMB*1024*1024)
	defer r.Body.Close()

	if err := h.local.Put(ref, r.Body); err != nil {
		if err == services.ErrInvalidImage {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image reference"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to store image"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.UploadHandle{
		Ref: ref,
		URL: h.local.ResolveURL(ref),
	}))
}

func isValidImageType(contentType string) bool {
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	return validTypes[contentType]
}
