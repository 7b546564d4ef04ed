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
	ErrContestNotFound   = errors.New("contest not found")
	ErrInvalidTransition = errors.New("invalid contest status transition")
)

// contestTransitions is the enforced status graph. Contests only move
// forward: active -> judging -> completed, with active -> completed allowed
// for contests closed without a judging phase. No reverse edges.
var contestTransitions = map[string][]string{
	models.ContestStatusActive:  {models.ContestStatusJudging, models.ContestStatusCompleted},
	models.ContestStatusJudging: {models.ContestStatusCompleted},
}

func validTransition(from, to string) bool {
	for _, next := range contestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ContestService interface {
	Create(ctx context.Context, creatorID string, req *models.CreateContestRequest) (*models.Contest, error)
	GetByID(ctx context.Context, id string) (*models.Contest, error)
	// List returns contests newest first, optionally filtered by status.
	List(ctx context.Context, status string) ([]*models.Contest, error)
	SetStatus(ctx context.Context, contestID, status string) (*models.Contest, error)
}

type InMemoryContestService struct {
	mu       sync.RWMutex
	contests map[string]*models.Contest
	store    *storage.JSONStore
}

func NewInMemoryContestService(store *storage.JSONStore) *InMemoryContestService {
	s := &InMemoryContestService{
		contests: make(map[string]*models.Contest),
		store:    store,
	}

	if store != nil {
		var snap []*models.Contest
		if err := store.Load(&snap); err != nil {
			log.Printf("[contests] failed to load snapshot: %v", err)
		}
		for _, c := range snap {
			s.contests[c.ID] = c
		}
	}

	return s
}

func (s *InMemoryContestService) persist() {
	if s.store == nil {
		return
	}
	snap := make([]*models.Contest, 0, len(s.contests))
	for _, c := range s.contests {
		snap = append(snap, c)
	}
	if err := s.store.Save(snap); err != nil {
		log.Printf("[contests] failed to save snapshot: %v", err)
	}
}

func (s *InMemoryContestService) Create(ctx context.Context, creatorID string, req *models.CreateContestRequest) (*models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contest := &models.Contest{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Theme:           req.Theme,
		Description:     req.Description,
		Deadline:        req.Deadline,
		EntryLimit:      req.EntryLimit,
		CreatedBy:       creatorID,
		Status:          models.ContestStatusActive,
		IsMinichallenge: req.IsMinichallenge,
		XPReward:        req.XPReward,
		CreatedAt:       time.Now().UTC(),
	}

	s.contests[contest.ID] = contest
	s.persist()

	c := *contest
	return &c, nil
}

func (s *InMemoryContestService) GetByID(ctx context.Context, id string) (*models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contest, ok := s.contests[id]
	if !ok {
		return nil, ErrContestNotFound
	}
	c := *contest
	return &c, nil
}

func (s *InMemoryContestService) List(ctx context.Context, status string) ([]*models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*models.Contest, 0, len(s.contests))
	for _, contest := range s.contests {
		if status != "" && contest.Status != status {
			continue
		}
		c := *contest
		results = append(results, &c)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *InMemoryContestService) SetStatus(ctx context.Context, contestID, status string) (*models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contest, ok := s.contests[contestID]
	if !ok {
		return nil, ErrContestNotFound
	}

	if !validTransition(contest.Status, status) {
		return nil, ErrInvalidTransition
	}

	contest.Status = status
	s.persist()

	c := *contest
	return &c, nil
}
