package models

import "time"

// Rating is one member's three-criterion score on a photo. At most one per
// (photo, rater) pair; never updated once written.
type Rating struct {
	ID         string    `json:"id" bson:"_id"`
	PhotoID    string    `json:"photo_id" bson:"photo_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	Creativity int       `json:"creativity" bson:"creativity"`
	Technical  int       `json:"technical" bson:"technical"`
	Emotional  int       `json:"emotional" bson:"emotional"`
	Overall    float64   `json:"overall" bson:"overall"`
	RatedAt    time.Time `json:"rated_at" bson:"rated_at"`
}

type RatePhotoRequest struct {
	Creativity int `json:"creativity"`
	Technical  int `json:"technical"`
	Emotional  int `json:"emotional"`
}

func (r *RatePhotoRequest) Validate() map[string]string {
	errors := make(map[string]string)

	for field, score := range map[string]int{
		"creativity": r.Creativity,
		"technical":  r.Technical,
		"emotional":  r.Emotional,
	} {
		if score < 1 || score > 5 {
			errors[field] = "Score must be between 1 and 5"
		}
	}

	return errors
}

// RateResult mirrors what the photo now carries after the rating landed.
type RateResult struct {
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`
}

// RatingAverages holds per-criterion means; every field is 0 while the photo
// has no ratings.
type RatingAverages struct {
	Creativity float64 `json:"creativity"`
	Technical  float64 `json:"technical"`
	Emotional  float64 `json:"emotional"`
	Overall    float64 `json:"overall"`
}

// RatingSummary is the read path for a photo's ratings, including the
// caller's own rating when one exists.
type RatingSummary struct {
	Averages     RatingAverages `json:"averages"`
	TotalRatings int            `json:"total_ratings"`
	UserRating   *Rating        `json:"user_rating,omitempty"`
}
