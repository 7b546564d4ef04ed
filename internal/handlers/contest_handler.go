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

type ContestHandler struct {
	contests   services.ContestService
	photos     services.PhotoService
	profiles   services.ProfileService
	images     services.ObjectStorage
	moderation *services.ModerationService // nil in local mode
}

func NewContestHandler(contests services.ContestService, photos services.PhotoService, profiles services.ProfileService, images services.ObjectStorage, moderation *services.ModerationService) *ContestHandler {
	return &ContestHandler{
		contests:   contests,
		photos:     photos,
		profiles:   profiles,
		images:     images,
		moderation: moderation,
	}
}

func (h *ContestHandler) ListContests(w http.ResponseWriter, r *http.Request) {
	if _, ok := resolveProfile(w, r, h.profiles); !ok {
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !models.ValidContestStatus(status) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid contest status"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	contests, err := h.contests.List(ctx, status)
	if err != nil {
		log.Printf("[ListContests] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load contests"))
		return
	}

	summaries := make([]models.ContestSummary, 0, len(contests))
	for _, contest := range contests {
		summaries = append(summaries, h.summarize(ctx, contest))
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(summaries))
}

// CreateContest opens a new contest. Admin only.
func (h *ContestHandler) CreateContest(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireAdmin(w, r, h.profiles)
	if !ok {
		return
	}

	var req models.CreateContestRequest
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

	contest, err := h.contests.Create(ctx, caller.ID, &req)
	if err != nil {
		log.Printf("[CreateContest] user=%s error=%v", caller.ID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create contest"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(contest))
}

func (h *ContestHandler) GetContest(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	contestID := chi.URLParam(r, "contestId")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	contest, err := h.contests.GetByID(ctx, contestID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Contest not found"))
		return
	}

	entries, err := h.photos.List(ctx, models.PhotoListFilter{ContestID: contestID}, caller.ID)
	if err != nil {
		log.Printf("[GetContest] contest=%s error=%v", contestID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load entries"))
		return
	}

	details := models.ContestDetails{
		ContestSummary: h.summarize(ctx, contest),
		Entries:        projectPhotos(ctx, entries, h.profiles, h.images),
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(details))
}

// UpdateStatus moves a contest along its lifecycle. Admin only; contests
// never move backwards.
func (h *ContestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.profiles); !ok {
		return
	}

	contestID := chi.URLParam(r, "contestId")

	var req models.UpdateContestStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if !models.ValidContestStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid contest status"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	contest, err := h.contests.SetStatus(ctx, contestID, req.Status)
	if err != nil {
		switch err {
		case services.ErrContestNotFound:
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Contest not found"))
		case services.ErrInvalidTransition:
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Invalid contest status transition"))
		default:
			log.Printf("[UpdateStatus] contest=%s error=%v", contestID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update contest"))
		}
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(contest))
}

// SubmitEntry uploads a photo as the caller's contest entry.
func (h *ContestHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	caller, ok := resolveProfile(w, r, h.profiles)
	if !ok {
		return
	}

	contestID := chi.URLParam(r, "contestId")

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
		log.Printf("[SubmitEntry] user=%s moderation error=%v", caller.ID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to process image"))
		return
	}

	photo, err := h.photos.SubmitToContest(ctx, caller.ID, contestID, &req)
	if err != nil {
		switch err {
		case services.ErrDuplicateEntry:
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("You have already submitted a photo to this contest"))
		case services.ErrContestNotFound:
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Contest not found"))
		case services.ErrContestClosed:
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("This contest is not currently accepting submissions"))
		case services.ErrDeadlinePassed:
			writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("The submission deadline for this contest has passed"))
		default:
			log.Printf("[SubmitEntry] user=%s contest=%s error=%v", caller.ID, contestID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to submit entry"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(photo))
}

// summarize annotates a contest with its live entry count and creator name.
func (h *ContestHandler) summarize(ctx context.Context, contest *models.Contest) models.ContestSummary {
	summary := models.ContestSummary{Contest: *contest}

	if count, err := h.photos.CountByContest(ctx, contest.ID); err == nil {
		summary.EntryCount = count
	}
	if creator, err := h.profiles.GetByID(ctx, contest.CreatedBy); err == nil {
		summary.Creator = creator.Public().Name
	}
	return summary
}
