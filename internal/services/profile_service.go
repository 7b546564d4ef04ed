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
	ErrProfileNotFound = errors.New("profile not found")
	ErrAdminRequired   = errors.New("admin access required")
)

// XP ledger reasons. Negative amounts use the same reason vocabulary.
const (
	XPReasonPhotoUpload       = "Photo upload"
	XPReasonContestSubmission = "Contest submission"
	XPReasonRatingPhoto       = "Rating a photo"
	XPReasonPhotoDeleted      = "Photo deleted"
)

// LevelForXP is the single leveling formula: floor(xp/100)+1, never below 1.
// No caller computes levels on its own.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/100 + 1
}

// ProfileService maps authenticated identities to member profiles and owns
// the experience ledger.
type ProfileService interface {
	// GetOrCreate resolves the auth identity to its profile, creating one on
	// first interaction. Idempotent by user ID and by email.
	GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error)
	// AddXP adjusts a profile's experience (amount may be negative; the total
	// floors at 0) and appends one ledger transaction for every adjustment.
	AddXP(ctx context.Context, profileID string, amount int, reason, relatedID string) (*models.XPResult, error)
	Leaderboard(ctx context.Context, limit int) ([]*models.Profile, error)
	GrantAward(ctx context.Context, profileID string, req *models.GrantAwardRequest) (*models.Award, error)
	ListAwards(ctx context.Context, profileID string) ([]models.Award, error)
}

// InMemoryProfileService is the map-backed implementation used in dev mode
// and tests, optionally snapshotted to disk between runs.
type InMemoryProfileService struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile // profileID -> profile
	byUserID map[string]string          // auth userID -> profileID
	byEmail  map[string]string          // email -> profileID
	ledger   []models.XPTransaction
	awards   []models.Award
	store    *storage.JSONStore
}

type profileSnapshot struct {
	Profiles []*models.Profile      `json:"profiles"`
	Ledger   []models.XPTransaction `json:"ledger"`
	Awards   []models.Award         `json:"awards"`
}

// NewInMemoryProfileService creates the service. store may be nil (tests);
// with a store, state is loaded at startup and saved after every mutation.
func NewInMemoryProfileService(store *storage.JSONStore) *InMemoryProfileService {
	s := &InMemoryProfileService{
		profiles: make(map[string]*models.Profile),
		byUserID: make(map[string]string),
		byEmail:  make(map[string]string),
		store:    store,
	}

	if store != nil {
		var snap profileSnapshot
		if err := store.Load(&snap); err != nil {
			log.Printf("[profiles] failed to load snapshot: %v", err)
		}
		for _, p := range snap.Profiles {
			s.profiles[p.ID] = p
			s.byUserID[p.UserID] = p.ID
			if p.Email != "" {
				s.byEmail[p.Email] = p.ID
			}
		}
		s.ledger = snap.Ledger
		s.awards = snap.Awards
	}

	return s
}

func (s *InMemoryProfileService) persist() {
	if s.store == nil {
		return
	}
	snap := profileSnapshot{Ledger: s.ledger, Awards: s.awards}
	for _, p := range s.profiles {
		snap.Profiles = append(snap.Profiles, p)
	}
	if err := s.store.Save(&snap); err != nil {
		log.Printf("[profiles] failed to save snapshot: %v", err)
	}
}

func (s *InMemoryProfileService) GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byUserID[userID]; ok {
		prof := s.profiles[id]
		if email != "" && prof.Email == "" {
			prof.Email = email
			s.byEmail[email] = id
			prof.UpdatedAt = time.Now().UTC()
			s.persist()
		}
		return copyProfile(prof), nil
	}

	// A profile created under an earlier identity with the same email wins.
	if email != "" {
		if id, ok := s.byEmail[email]; ok {
			prof := s.profiles[id]
			prof.UserID = userID
			s.byUserID[userID] = id
			prof.UpdatedAt = time.Now().UTC()
			s.persist()
			return copyProfile(prof), nil
		}
	}

	now := time.Now().UTC()
	prof := &models.Profile{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		XP:        0,
		Level:     1,
		IsAdmin:   false,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	s.profiles[prof.ID] = prof
	s.byUserID[userID] = prof.ID
	if email != "" {
		s.byEmail[email] = prof.ID
	}
	s.persist()

	return copyProfile(prof), nil
}

func (s *InMemoryProfileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prof, ok := s.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return copyProfile(prof), nil
}

func (s *InMemoryProfileService) Upsert(ctx context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	if _, err := s.GetOrCreate(ctx, userID, email); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prof := s.profiles[s.byUserID[userID]]
	if req.Name != nil {
		prof.Name = *req.Name
	}
	if req.Bio != nil {
		prof.Bio = *req.Bio
	}
	if req.PhotoURL != nil {
		prof.PhotoURL = *req.PhotoURL
	}
	prof.UpdatedAt = time.Now().UTC()
	s.persist()

	return copyProfile(prof), nil
}

func (s *InMemoryProfileService) AddXP(ctx context.Context, profileID string, amount int, reason, relatedID string) (*models.XPResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prof, ok := s.profiles[profileID]
	if !ok {
		return nil, ErrProfileNotFound
	}

	newXP := prof.XP + amount
	if newXP < 0 {
		newXP = 0
	}
	prof.XP = newXP
	prof.Level = LevelForXP(newXP)
	prof.UpdatedAt = time.Now().UTC()

	s.ledger = append(s.ledger, models.XPTransaction{
		ID:        uuid.New().String(),
		UserID:    profileID,
		Amount:    amount,
		Reason:    reason,
		RelatedID: relatedID,
		Timestamp: time.Now().UTC(),
	})
	s.persist()

	return &models.XPResult{NewXP: newXP, NewLevel: prof.Level}, nil
}

func (s *InMemoryProfileService) Leaderboard(ctx context.Context, limit int) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	ranked := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		ranked = append(ranked, copyProfile(p))
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].XP != ranked[j].XP {
			return ranked[i].XP > ranked[j].XP
		}
		return ranked[i].JoinedAt.Before(ranked[j].JoinedAt)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *InMemoryProfileService) GrantAward(ctx context.Context, profileID string, req *models.GrantAwardRequest) (*models.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profileID]; !ok {
		return nil, ErrProfileNotFound
	}

	award := models.Award{
		ID:          uuid.New().String(),
		UserID:      profileID,
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		ContestID:   req.ContestID,
		AwardedAt:   time.Now().UTC(),
	}
	s.awards = append(s.awards, award)
	s.persist()

	return &award, nil
}

func (s *InMemoryProfileService) ListAwards(ctx context.Context, profileID string) ([]models.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	awards := make([]models.Award, 0)
	for _, a := range s.awards {
		if a.UserID == profileID {
			awards = append(awards, a)
		}
	}
	return awards, nil
}

// Transactions returns the ledger rows for one profile, newest first.
// Exposed for the profile read path and tests.
func (s *InMemoryProfileService) Transactions(profileID string) []models.XPTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]models.XPTransaction, 0)
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID == profileID {
			txs = append(txs, s.ledger[i])
		}
	}
	return txs
}

// SetAdmin flips the admin flag directly. Dev/test helper; production admin
// flags are set out of band in the database.
func (s *InMemoryProfileService) SetAdmin(profileID string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prof, ok := s.profiles[profileID]
	if !ok {
		return ErrProfileNotFound
	}
	prof.IsAdmin = admin
	s.persist()
	return nil
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	return &c
}
