package models

import "time"

const (
	AwardTypeTrophy = "trophy"
	AwardTypeMedal  = "medal"
	AwardTypeBadge  = "badge"
)

type Award struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Type        string    `json:"type" bson:"type"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Icon        string    `json:"icon" bson:"icon"`
	ContestID   string    `json:"contest_id,omitempty" bson:"contest_id,omitempty"`
	AwardedAt   time.Time `json:"awarded_at" bson:"awarded_at"`
}

type GrantAwardRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	ContestID   string `json:"contest_id"`
}

func (r *GrantAwardRequest) Validate() map[string]string {
	errors := make(map[string]string)

	switch r.Type {
	case AwardTypeTrophy, AwardTypeMedal, AwardTypeBadge:
	default:
		errors["type"] = "Type must be trophy, medal or badge"
	}
	if r.Name == "" {
		errors["name"] = "Award name is required"
	}

	return errors
}
