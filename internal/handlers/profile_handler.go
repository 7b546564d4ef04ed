package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shutterverse/backend/internal/models"
	"github.com/shutterverse/backend/internal/services"
)

// topPhotoCount limits the top rated work shown on a member page.
const topPhotoCount = 3

type ProfileHandler struct {
	profiles services.ProfileService
	photos   services.PhotoService
	images   services.ObjectStorage
}

func NewProfileHandler(profiles services.ProfileService, photos services.PhotoService, images services.ObjectStorage) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, photos: photos, images: images}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	prof, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	prof, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	var req models.UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	updated, err := h.profiles.Upsert(ctx, prof.UserID, prof.Email, &req)
	if err != nil {
		log.Printf("[UpsertProfile] user=%s error=%v", prof.UserID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(updated))
}

// GetUserDetails returns another member's public page: profile, public
// photos, awards and their top rated work.
func (h *ProfileHandler) GetUserDetails(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	target, err := h.profiles.GetByID(ctx, targetID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
		return
	}

	photos, err := h.photos.List(ctx, models.PhotoListFilter{UserID: target.ID}, caller.ID)
	if err != nil {
		log.Printf("[GetUserDetails] target=%s error=%v", targetID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load photos"))
		return
	}

	awards, err := h.profiles.ListAwards(ctx, target.ID)
	if err != nil {
		log.Printf("[GetUserDetails] target=%s error=%v", targetID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load awards"))
		return
	}

	details := models.ProfileDetails{
		PublicProfile: target.Public(),
		JoinedAt:      target.JoinedAt,
		Photos:        projectPhotos(ctx, photos, h.profiles, h.images),
		Awards:        awards,
		TopPhotos:     projectPhotos(ctx, topRatedOf(photos), h.profiles, h.images),
		PhotoCount:    len(photos),
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(details))
}

func (h *ProfileHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := resolveProfile(w, r, h.profiles); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ranked, err := h.profiles.Leaderboard(ctx, queryLimit(r))
	if err != nil {
		log.Printf("[Leaderboard] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load leaderboard"))
		return
	}

	public := make([]models.PublicProfile, 0, len(ranked))
	for _, p := range ranked {
		public = append(public, p.Public())
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(public))
}

// AddXP applies a manual experience adjustment. Admin only.
func (h *ProfileHandler) AddXP(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.profiles); !ok {
		return
	}

	targetID := chi.URLParam(r, "userId")

	var req models.AddXPRequest
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

	result, err := h.profiles.AddXP(ctx, targetID, req.Amount, req.Reason, req.RelatedID)
	if err != nil {
		if err == services.ErrProfileNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		log.Printf("[AddXP] target=%s error=%v", targetID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to adjust XP"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}

// GrantAward hands a trophy, medal or badge to a member. Admin only.
func (h *ProfileHandler) GrantAward(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.profiles); !ok {
		return
	}

	targetID := chi.URLParam(r, "userId")

	var req models.GrantAwardRequest
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

	award, err := h.profiles.GrantAward(ctx, targetID, &req)
	if err != nil {
		if err == services.ErrProfileNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		log.Printf("[GrantAward] target=%s error=%v", targetID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to grant award"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(award))
}

// topRatedOf picks the member's highest rated photos out of an already
// filtered list.
func topRatedOf(photos []*models.Photo) []*models.Photo {
	rated := make([]*models.Photo, 0)
	for _, p := range photos {
		if p.AverageRating != nil {
			rated = append(rated, p)
		}
	}
	sort.Slice(rated, func(i, j int) bool {
		return *rated[i].AverageRating > *rated[j].AverageRating
	})
	if len(rated) > topPhotoCount {
		rated = rated[:topPhotoCount]
	}
	return rated
}
