package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shutterverse/backend/internal/middleware"
	"github.com/shutterverse/backend/internal/models"
	"github.com/shutterverse/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// resolveProfile maps the authenticated identity to its member profile,
// creating one on first contact. Writes the error response itself; callers
// bail out when ok is false.
func resolveProfile(w http.ResponseWriter, r *http.Request, profiles services.ProfileService) (*models.Profile, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return nil, false
	}
	email := middleware.GetUserEmail(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := profiles.GetOrCreate(ctx, userID, email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return nil, false
	}
	return prof, true
}

// requireAdmin resolves the caller's profile and rejects non-admins.
func requireAdmin(w http.ResponseWriter, r *http.Request, profiles services.ProfileService) (*models.Profile, bool) {
	prof, ok := resolveProfile(w, r, profiles)
	if !ok {
		return nil, false
	}
	if !prof.IsAdmin {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Admin access required"))
		return nil, false
	}
	return prof, true
}

// queryLimit parses ?limit, returning 0 (service default) when absent or bad.
func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// moderateImageRef runs the uploaded ref through moderation when a moderator
// is configured, replacing it with the promoted ref. No-op in local mode.
func moderateImageRef(ctx context.Context, moderation *services.ModerationService, req *models.UploadPhotoRequest) error {
	if moderation == nil {
		return nil
	}
	finalRef, err := moderation.ModerateAndPromote(ctx, req.ImageRef)
	if err != nil {
		return err
	}
	req.ImageRef = finalRef
	return nil
}

// projectPhotos annotates stored photos with resolved image URLs and uploader
// public profiles for the read path. Uploaders are resolved once each.
func projectPhotos(ctx context.Context, photos []*models.Photo, profiles services.ProfileService, images services.ObjectStorage) []models.PhotoDetails {
	uploaders := make(map[string]*models.PublicProfile)
	details := make([]models.PhotoDetails, 0, len(photos))

	for _, photo := range photos {
		uploader, seen := uploaders[photo.UploadedBy]
		if !seen {
			if prof, err := profiles.GetByID(ctx, photo.UploadedBy); err == nil {
				pub := prof.Public()
				uploader = &pub
			}
			uploaders[photo.UploadedBy] = uploader
		}
		details = append(details, models.PhotoDetails{
			Photo:    *photo,
			ImageURL: images.ResolveURL(photo.ImageRef),
			Uploader: uploader,
		})
	}
	return details
}
