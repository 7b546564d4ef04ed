package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shutterverse/backend/internal/models"
	"github.com/shutterverse/backend/internal/storage"
)

var (
	ErrPhotoNotFound   = errors.New("photo not found")
	ErrNotPhotoOwner   = errors.New("you can only delete your own photos")
	ErrDuplicateRating = errors.New("you have already rated this photo")
	ErrSelfRating      = errors.New("you cannot rate your own photo")
	ErrDuplicateEntry  = errors.New("you have already submitted a photo to this contest")
	ErrContestClosed   = errors.New("this contest is not currently accepting submissions")
	ErrDeadlinePassed  = errors.New("the submission deadline for this contest has passed")
)

// Experience grants. Contest submissions use contestEntryXP instead of a
// flat amount.
const (
	xpPhotoUpload = 10
	xpRatingPhoto = 5
)

// contestEntryXP pays a tenth of the contest's declared reward for entering,
// never less than the plain upload grant.
func contestEntryXP(reward int) int {
	xp := reward / 10
	if xp < xpPhotoUpload {
		xp = xpPhotoUpload
	}
	return xp
}

// PhotoService owns photos and their ratings: upload, contest submission
// (with eligibility checks), listing, deletion and rating aggregation.
type PhotoService interface {
	// Upload inserts the photo unconditionally and grants the uploader XP.
	Upload(ctx context.Context, uploaderID string, req *models.UploadPhotoRequest) (*models.Photo, error)
	// SubmitToContest runs the eligibility checks in order (one entry per
	// member, contest exists, contest active, deadline not passed) and on
	// success inserts the photo and grants the contest reward XP.
	SubmitToContest(ctx context.Context, uploaderID, contestID string, req *models.UploadPhotoRequest) (*models.Photo, error)
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	// List applies at most one filter and always restricts results to photos
	// that are public or owned by the caller.
	List(ctx context.Context, filter models.PhotoListFilter, callerID string) ([]*models.Photo, error)
	TopRated(ctx context.Context, limit int) ([]*models.Photo, error)
	// Delete removes the photo and all its ratings, then reverses the upload
	// XP grant. Ownership is checked against the caller's profile ID.
	Delete(ctx context.Context, callerID, photoID string) error
	// RatePhoto checks duplicate, existence and self-rating in that order,
	// then inserts the rating and recomputes the photo's average from the
	// full rating set.
	RatePhoto(ctx context.Context, photoID, raterID string, req *models.RatePhotoRequest) (*models.RateResult, error)
	GetRatings(ctx context.Context, photoID, callerID string) (*models.RatingSummary, error)
	CountByContest(ctx context.Context, contestID string) (int, error)
}

type InMemoryPhotoService struct {
	mu       sync.RWMutex
	photos   map[string]*models.Photo
	ratings  map[string]map[string]*models.Rating // photoID -> raterID -> rating
	profiles ProfileService
	contests ContestService
	store    *storage.JSONStore
}

type photoSnapshot struct {
	Photos  []*models.Photo `json:"photos"`
	Ratings []models.Rating `json:"ratings"`
}

func NewInMemoryPhotoService(profiles ProfileService, contests ContestService, store *storage.JSONStore) *InMemoryPhotoService {
	s := &InMemoryPhotoService{
		photos:   make(map[string]*models.Photo),
		ratings:  make(map[string]map[string]*models.Rating),
		profiles: profiles,
		contests: contests,
		store:    store,
	}

	if store != nil {
		var snap photoSnapshot
		if err := store.Load(&snap); err != nil {
			log.Printf("[photos] failed to load snapshot: %v", err)
		}
		for _, p := range snap.Photos {
			s.photos[p.ID] = p
		}
		for i := range snap.Ratings {
			r := snap.Ratings[i]
			if s.ratings[r.PhotoID] == nil {
				s.ratings[r.PhotoID] = make(map[string]*models.Rating)
			}
			s.ratings[r.PhotoID][r.UserID] = &r
		}
	}

	return s
}

func (s *InMemoryPhotoService) persist() {
	if s.store == nil {
		return
	}
	snap := photoSnapshot{}
	for _, p := range s.photos {
		snap.Photos = append(snap.Photos, p)
	}
	for _, byRater := range s.ratings {
		for _, r := range byRater {
			snap.Ratings = append(snap.Ratings, *r)
		}
	}
	if err := s.store.Save(&snap); err != nil {
		log.Printf("[photos] failed to save snapshot: %v", err)
	}
}

func newPhoto(uploaderID, contestID string, req *models.UploadPhotoRequest) *models.Photo {
	return &models.Photo{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Description:  req.Description,
		ImageRef:     req.ImageRef,
		Category:     req.Category,
		Tags:         []string{},
		UploadedBy:   uploaderID,
		ContestID:    contestID,
		IsPublic:     req.IsPublic,
		TotalRatings: 0,
		UploadedAt:   time.Now().UTC(),
	}
}

func (s *InMemoryPhotoService) Upload(ctx context.Context, uploaderID string, req *models.UploadPhotoRequest) (*models.Photo, error) {
	photo := newPhoto(uploaderID, "", req)

	s.mu.Lock()
	s.photos[photo.ID] = photo
	s.persist()
	s.mu.Unlock()

	if _, err := s.profiles.AddXP(ctx, uploaderID, xpPhotoUpload, XPReasonPhotoUpload, photo.ID); err != nil {
		return nil, err
	}

	p := *photo
	return &p, nil
}

func (s *InMemoryPhotoService) SubmitToContest(ctx context.Context, uploaderID, contestID string, req *models.UploadPhotoRequest) (*models.Photo, error) {
	// One entry per member per contest. Checked before contest existence to
	// keep the failure order stable.
	s.mu.RLock()
	for _, p := range s.photos {
		if p.ContestID == contestID && p.UploadedBy == uploaderID {
			s.mu.RUnlock()
			return nil, ErrDuplicateEntry
		}
	}
	s.mu.RUnlock()

	contest, err := s.contests.GetByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != models.ContestStatusActive {
		return nil, ErrContestClosed
	}
	if contest.Deadline.Before(time.Now()) {
		return nil, ErrDeadlinePassed
	}

	photo := newPhoto(uploaderID, contestID, req)

	s.mu.Lock()
	s.photos[photo.ID] = photo
	s.persist()
	s.mu.Unlock()

	if _, err := s.profiles.AddXP(ctx, uploaderID, contestEntryXP(contest.XPReward), XPReasonContestSubmission, photo.ID); err != nil {
		return nil, err
	}

	p := *photo
	return &p, nil
}

func (s *InMemoryPhotoService) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	photo, ok := s.photos[id]
	if !ok {
		return nil, ErrPhotoNotFound
	}
	p := *photo
	return &p, nil
}

func (s *InMemoryPhotoService) List(ctx context.Context, filter models.PhotoListFilter, callerID string) ([]*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	results := make([]*models.Photo, 0)
	for _, photo := range s.photos {
		switch {
		case filter.Category != "" && photo.Category != filter.Category:
			continue
		case filter.ContestID != "" && photo.ContestID != filter.ContestID:
			continue
		case filter.UserID != "" && photo.UploadedBy != filter.UserID:
			continue
		}
		if !photo.IsPublic && photo.UploadedBy != callerID {
			continue
		}
		p := *photo
		results = append(results, &p)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].UploadedAt.After(results[j].UploadedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *InMemoryPhotoService) TopRated(ctx context.Context, limit int) ([]*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	results := make([]*models.Photo, 0)
	for _, photo := range s.photos {
		if photo.AverageRating == nil || !photo.IsPublic {
			continue
		}
		p := *photo
		results = append(results, &p)
	}

	sort.Slice(results, func(i, j int) bool {
		return *results[i].AverageRating > *results[j].AverageRating
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *InMemoryPhotoService) Delete(ctx context.Context, callerID, photoID string) error {
	s.mu.Lock()

	photo, ok := s.photos[photoID]
	if !ok {
		s.mu.Unlock()
		return ErrPhotoNotFound
	}
	if photo.UploadedBy != callerID {
		s.mu.Unlock()
		return ErrNotPhotoOwner
	}

	delete(s.ratings, photoID)
	delete(s.photos, photoID)
	s.persist()
	s.mu.Unlock()

	// Reverse the upload grant; the ledger gets a compensating entry.
	_, err := s.profiles.AddXP(ctx, callerID, -xpPhotoUpload, XPReasonPhotoDeleted, photoID)
	return err
}

func (s *InMemoryPhotoService) RatePhoto(ctx context.Context, photoID, raterID string, req *models.RatePhotoRequest) (*models.RateResult, error) {
	s.mu.Lock()

	if _, ok := s.ratings[photoID][raterID]; ok {
		s.mu.Unlock()
		return nil, ErrDuplicateRating
	}

	photo, ok := s.photos[photoID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrPhotoNotFound
	}
	if photo.UploadedBy == raterID {
		s.mu.Unlock()
		return nil, ErrSelfRating
	}

	rating := &models.Rating{
		ID:         uuid.New().String(),
		PhotoID:    photoID,
		UserID:     raterID,
		Creativity: req.Creativity,
		Technical:  req.Technical,
		Emotional:  req.Emotional,
		Overall:    float64(req.Creativity+req.Technical+req.Emotional) / 3,
		RatedAt:    time.Now().UTC(),
	}
	if s.ratings[photoID] == nil {
		s.ratings[photoID] = make(map[string]*models.Rating)
	}
	s.ratings[photoID][raterID] = rating

	// Full recomputation over every rating, not an incremental update.
	sum := 0.0
	for _, r := range s.ratings[photoID] {
		sum += r.Overall
	}
	count := len(s.ratings[photoID])
	average := sum / float64(count)

	photo.AverageRating = &average
	photo.TotalRatings = count
	s.persist()
	s.mu.Unlock()

	if _, err := s.profiles.AddXP(ctx, raterID, xpRatingPhoto, XPReasonRatingPhoto, photoID); err != nil {
		return nil, err
	}

	return &models.RateResult{AverageRating: average, TotalRatings: count}, nil
}

func (s *InMemoryPhotoService) GetRatings(ctx context.Context, photoID, callerID string) (*models.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := make([]*models.Rating, 0)
	for _, r := range s.ratings[photoID] {
		ratings = append(ratings, r)
	}

	summary := &models.RatingSummary{TotalRatings: len(ratings)}
	if callerID != "" {
		if own, ok := s.ratings[photoID][callerID]; ok {
			r := *own
			summary.UserRating = &r
		}
	}

	if len(ratings) == 0 {
		return summary, nil
	}

	n := float64(len(ratings))
	for _, r := range ratings {
		summary.Averages.Creativity += float64(r.Creativity) / n
		summary.Averages.Technical += float64(r.Technical) / n
		summary.Averages.Emotional += float64(r.Emotional) / n
		summary.Averages.Overall += r.Overall / n
	}
	return summary, nil
}

func (s *InMemoryPhotoService) CountByContest(ctx context.Context, contestID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, photo := range s.photos {
		if photo.ContestID == contestID {
			count++
		}
	}
	return count, nil
}
