package models

import "time"

// Contest statuses. Transitions only move forward; see
// services.ContestService.SetStatus.
const (
	ContestStatusActive    = "active"
	ContestStatusJudging   = "judging"
	ContestStatusCompleted = "completed"
)

func ValidContestStatus(s string) bool {
	switch s {
	case ContestStatusActive, ContestStatusJudging, ContestStatusCompleted:
		return true
	}
	return false
}

type Contest struct {
	ID              string    `json:"id" bson:"_id"`
	Name            string    `json:"name" bson:"name"`
	Theme           string    `json:"theme" bson:"theme"`
	Description     string    `json:"description" bson:"description"`
	Deadline        time.Time `json:"deadline" bson:"deadline"`
	EntryLimit      int       `json:"entry_limit" bson:"entry_limit"`
	CreatedBy       string    `json:"created_by" bson:"created_by"`
	Status          string    `json:"status" bson:"status"`
	IsMinichallenge bool      `json:"is_minichallenge" bson:"is_minichallenge"`
	XPReward        int       `json:"xp_reward" bson:"xp_reward"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

type CreateContestRequest struct {
	Name            string    `json:"name"`
	Theme           string    `json:"theme"`
	Description     string    `json:"description"`
	Deadline        time.Time `json:"deadline"`
	EntryLimit      int       `json:"entry_limit"`
	IsMinichallenge bool      `json:"is_minichallenge"`
	XPReward        int       `json:"xp_reward"`
}

func (r *CreateContestRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == "" {
		errors["name"] = "Contest name is required"
	}
	if r.Theme == "" {
		errors["theme"] = "Theme is required"
	}
	if r.Deadline.IsZero() {
		errors["deadline"] = "Deadline is required"
	} else if r.Deadline.Before(time.Now()) {
		errors["deadline"] = "Deadline must be in the future"
	}
	if r.EntryLimit < 0 {
		errors["entry_limit"] = "Entry limit cannot be negative"
	}
	if r.XPReward < 0 {
		errors["xp_reward"] = "XP reward cannot be negative"
	}

	return errors
}

type UpdateContestStatusRequest struct {
	Status string `json:"status"`
}

// ContestSummary annotates a contest with its live entry count and creator
// name at read time.
type ContestSummary struct {
	Contest
	EntryCount int    `json:"entry_count"`
	Creator    string `json:"creator"`
}

// ContestDetails additionally carries every submitted entry.
type ContestDetails struct {
	ContestSummary
	Entries []PhotoDetails `json:"entries"`
}
