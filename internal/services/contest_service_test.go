package services

import (
	"context"
	"testing"
	"time"

	"github.com/shutterverse/backend/internal/models"
)

func TestContestTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{models.ContestStatusActive, models.ContestStatusJudging, true},
		{models.ContestStatusActive, models.ContestStatusCompleted, true},
		{models.ContestStatusJudging, models.ContestStatusCompleted, true},
		{models.ContestStatusJudging, models.ContestStatusActive, false},
		{models.ContestStatusCompleted, models.ContestStatusActive, false},
		{models.ContestStatusCompleted, models.ContestStatusJudging, false},
		{models.ContestStatusActive, models.ContestStatusActive, false},
	}
	for _, c := range cases {
		if got := validTransition(c.from, c.to); got != c.allowed {
			t.Errorf("validTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestSetStatusEnforcesTransitions(t *testing.T) {
	s := NewInMemoryContestService(nil)
	ctx := context.Background()

	contest, err := s.Create(ctx, "admin-1", &models.CreateContestRequest{
		Name:     "Night Shots",
		Theme:    "Darkness",
		Deadline: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if contest.Status != models.ContestStatusActive {
		t.Fatalf("new contest status = %s, want active", contest.Status)
	}

	updated, err := s.SetStatus(ctx, contest.ID, models.ContestStatusJudging)
	if err != nil {
		t.Fatalf("to judging: %v", err)
	}
	if updated.Status != models.ContestStatusJudging {
		t.Errorf("status = %s, want judging", updated.Status)
	}

	if _, err := s.SetStatus(ctx, contest.ID, models.ContestStatusActive); err != ErrInvalidTransition {
		t.Errorf("reopen err = %v, want ErrInvalidTransition", err)
	}

	if _, err := s.SetStatus(ctx, contest.ID, models.ContestStatusCompleted); err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if _, err := s.SetStatus(ctx, contest.ID, models.ContestStatusJudging); err != ErrInvalidTransition {
		t.Errorf("completed -> judging err = %v, want ErrInvalidTransition", err)
	}

	if _, err := s.SetStatus(ctx, "missing", models.ContestStatusJudging); err != ErrContestNotFound {
		t.Errorf("missing contest err = %v, want ErrContestNotFound", err)
	}
}

func TestListContestsByStatus(t *testing.T) {
	s := NewInMemoryContestService(nil)
	ctx := context.Background()

	first, _ := s.Create(ctx, "admin-1", &models.CreateContestRequest{
		Name:     "First",
		Theme:    "A",
		Deadline: time.Now().Add(time.Hour),
	})
	s.Create(ctx, "admin-1", &models.CreateContestRequest{
		Name:     "Second",
		Theme:    "B",
		Deadline: time.Now().Add(time.Hour),
	})
	s.SetStatus(ctx, first.ID, models.ContestStatusCompleted)

	active, err := s.List(ctx, models.ContestStatusActive)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Second" {
		t.Errorf("active contests = %d, want just Second", len(active))
	}

	all, _ := s.List(ctx, "")
	if len(all) != 2 {
		t.Errorf("all contests = %d, want 2", len(all))
	}
}

// TestContestLifecycleScenario walks one contest end to end: an admin opens
// it, one member enters, another rates the entry, the admin completes it and
// a latecomer is turned away.
func TestContestLifecycleScenario(t *testing.T) {
	profiles, contests, photos := newTestServices(t)
	ctx := context.Background()

	admin := testProfile(t, profiles, "admin")
	alice := testProfile(t, profiles, "alice")
	bob := testProfile(t, profiles, "bob")
	carol := testProfile(t, profiles, "carol")

	contest, err := contests.Create(ctx, admin.ID, &models.CreateContestRequest{
		Name:     "Weekly Shot",
		Theme:    "Water",
		Deadline: time.Now().Add(24 * time.Hour),
		XPReward: 50,
	})
	if err != nil {
		t.Fatalf("create contest: %v", err)
	}

	// Alice enters; a 50 reward pays the 10 XP minimum.
	entry, err := photos.SubmitToContest(ctx, alice.ID, contest.ID, uploadReq("droplets"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	aliceAfter, _ := profiles.GetByID(ctx, alice.ID)
	if aliceAfter.XP != 10 {
		t.Errorf("alice xp = %d, want 10", aliceAfter.XP)
	}

	// Her second entry is refused.
	if _, err := photos.SubmitToContest(ctx, alice.ID, contest.ID, uploadReq("waves")); err != ErrDuplicateEntry {
		t.Errorf("second entry err = %v, want ErrDuplicateEntry", err)
	}

	// Bob rates the entry.
	result, err := photos.RatePhoto(ctx, entry.ID, bob.ID, &models.RatePhotoRequest{Creativity: 5, Technical: 4, Emotional: 3})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if result.AverageRating != 4.0 {
		t.Errorf("average = %v, want 4.0", result.AverageRating)
	}
	bobAfter, _ := profiles.GetByID(ctx, bob.ID)
	if bobAfter.XP != 5 {
		t.Errorf("bob xp = %d, want 5", bobAfter.XP)
	}

	// Admin closes the contest outright.
	if _, err := contests.SetStatus(ctx, contest.ID, models.ContestStatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Carol arrives too late.
	if _, err := photos.SubmitToContest(ctx, carol.ID, contest.ID, uploadReq("ripples")); err != ErrContestClosed {
		t.Errorf("late entry err = %v, want ErrContestClosed", err)
	}
	carolAfter, _ := profiles.GetByID(ctx, carol.ID)
	if carolAfter.XP != 0 {
		t.Errorf("carol xp = %d, want 0", carolAfter.XP)
	}

	count, _ := photos.CountByContest(ctx, contest.ID)
	if count != 1 {
		t.Errorf("entries = %d, want 1", count)
	}
}
