package models

import "time"

type Photo struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	ImageRef    string    `json:"image_ref" bson:"image_ref"`
	Category    string    `json:"category" bson:"category"`
	Tags        []string  `json:"tags" bson:"tags"`
	UploadedBy  string    `json:"uploaded_by" bson:"uploaded_by"`
	ContestID   string    `json:"contest_id,omitempty" bson:"contest_id,omitempty"`
	IsPublic    bool      `json:"is_public" bson:"is_public"`
	// AverageRating is nil until the first rating lands.
	AverageRating *float64  `json:"average_rating,omitempty" bson:"average_rating,omitempty"`
	TotalRatings  int       `json:"total_ratings" bson:"total_ratings"`
	UploadedAt    time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

type UploadPhotoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageRef    string `json:"image_ref"`
	Category    string `json:"category"`
	IsPublic    bool   `json:"is_public"`
}

func (r *UploadPhotoRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.ImageRef == "" {
		errors["image_ref"] = "Image reference is required"
	}
	if r.Category == "" {
		errors["category"] = "Category is required"
	}

	return errors
}

// PhotoListFilter selects at most one of Category, ContestID or UserID; with
// none set the newest photos come first.
type PhotoListFilter struct {
	Category  string
	ContestID string
	UserID    string
	Limit     int
}

// PhotoDetails is a read-time projection: the stored photo annotated with a
// resolved image URL and the uploader's public name.
type PhotoDetails struct {
	Photo
	ImageURL string        `json:"image_url"`
	Uploader *PublicProfile `json:"user,omitempty"`
}

// Common photo categories surfaced to the client for upload forms.
var PhotoCategories = []string{
	"Landscape",
	"Portrait",
	"Street",
	"Wildlife",
	"Macro",
	"Architecture",
	"Night",
	"Abstract",
	"Travel",
	"Documentary",
}
