package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shutterverse/backend/internal/models"
	"github.com/shutterverse/backend/internal/services"
)

type PhotoHandler struct {
	photos     services.PhotoService
	profiles   services.ProfileService
	images     services.ObjectStorage
	moderation *services.ModerationService // nil in local mode
}

func NewPhotoHandler(photos services.PhotoService, profiles services.ProfileService, images services.ObjectStorage, moderation *services.ModerationService) *PhotoHandler {
	return &PhotoHandler{
		photos:     photos,
		profiles:   profiles,
		images:     images,
		moderation: moderation,
	}
}

func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := models.PhotoListFilter{
		Category:  q.Get("category"),
		ContestID: q.Get("contest_id"),
		UserID:    q.Get("user_id"),
		Limit:     queryLimit(r),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	photos, err := h.photos.List(ctx, filter, caller.ID)
	if err != nil {
		log.Printf("[ListPhotos] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load photos"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(projectPhotos(ctx, photos, h.profiles, h.images)))
}

func (h *PhotoHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	if _, ok := resolveProfile(w, r, h.profiles); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	photos, err := h.photos.TopRated(ctx, queryLimit(r))
	if err != nil {
		log.Printf("[TopRated] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load photos"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(projectPhotos(ctx, photos, h.profiles, h.images)))
}

func (h *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoId")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	photo, err := h.photos.GetByID(ctx, photoID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Photo not found"))
		return
	}
	// Private photos read as missing to everyone but their owner.
	if !photo.IsPublic && photo.UploadedBy != caller.ID {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Photo not found"))
		return
	}

	details := projectPhotos(ctx, []*models.Photo{photo}, h.profiles, h.images)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(details[0]))
}

func (h *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	var req models.UploadPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := moderateImageRef(ctx, h.moderation, &req); err != nil {
		if err == services.ErrImageRejected {
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Image violates community guidelines"))
			return
		}
		log.Printf("[UploadPhoto] user=%s moderation error=%v", caller.ID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to process image"))
		return
	}

	photo, err := h.photos.Upload(ctx, caller.ID, &req)
	if err != nil {
		log.Printf("[UploadPhoto] user=%s error=%v", caller.ID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upload photo"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(photo))
}

func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoId")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	photo, err := h.photos.GetByID(ctx, photoID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Photo not found"))
		return
	}

	if err := h.photos.Delete(ctx, caller.ID, photoID); err != nil {
		switch err {
		case services.ErrPhotoNotFound:
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Photo not found"))
		case services.ErrNotPhotoOwner:
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("You can only delete your own photos"))
		default:
			log.Printf("[DeletePhoto] user=%s photo=%s error=%v", caller.ID, photoID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete photo"))
		}
		return
	}

	// Stored bytes go too; a leftover object is not worth failing the request.
	if err := h.images.Remove(ctx, photo.ImageRef); err != nil {
		log.Printf("[DeletePhoto] failed to remove image ref=%s error=%v", photo.ImageRef, err)
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Photo deleted successfully"}))
}

func (h *PhotoHandler) RatePhoto(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoId")

	var req models.RatePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.photos.RatePhoto(ctx, photoID, caller.ID, &req)
	if err != nil {
		switch err {
		case services.ErrDuplicateRating:
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("You have already rated this photo"))
		case services.ErrPhotoNotFound:
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Photo not found"))
		case services.ErrSelfRating:
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("You cannot rate your own photo"))
		default:
			log.Printf("[RatePhoto] user=%s photo=%s error=%v", caller.ID, photoID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to rate photo"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(result))
}

func (h *PhotoHandler) GetRatings(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoId")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := h.photos.GetByID(ctx, photoID); err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Photo not found"))
		return
	}

	summary, err := h.photos.GetRatings(ctx, photoID, caller.ID)
	if err != nil {
		log.Printf("[GetRatings] photo=%s error=%v", photoID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load ratings"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(summary))
}

// ListCategories returns the category names upload forms offer.
func (h *PhotoHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.PhotoCategories))
}
