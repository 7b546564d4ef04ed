package models

import "time"

// Profile is the application-level member record, distinct from the auth
// identity. Keyed by the auth user ID; XP and Level are mutated only through
// the experience ledger.
type Profile struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Email     string    `json:"email" bson:"email,omitempty"`
	Name      string    `json:"name" bson:"name,omitempty"`
	Bio       string    `json:"bio" bson:"bio,omitempty"`
	PhotoURL  string    `json:"photo_url" bson:"photo_url,omitempty"`
	XP        int       `json:"xp" bson:"xp"`
	Level     int       `json:"level" bson:"level"`
	IsAdmin   bool      `json:"is_admin" bson:"is_admin"`
	JoinedAt  time.Time `json:"joined_at" bson:"joined_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// PublicProfile is safe to share with other authenticated members.
type PublicProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

// Public strips fields other members should not see.
func (p *Profile) Public() PublicProfile {
	name := p.Name
	if name == "" {
		name = "Anonymous"
	}
	return PublicProfile{
		ID:       p.ID,
		Name:     name,
		PhotoURL: p.PhotoURL,
		XP:       p.XP,
		Level:    p.Level,
	}
}

type UpsertProfileRequest struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	PhotoURL *string `json:"photo_url"`
}

// ProfileDetails is the read-time projection returned by GET /api/users/{id}:
// the profile plus its public photos, awards and top rated work.
type ProfileDetails struct {
	PublicProfile
	JoinedAt   time.Time      `json:"joined_at"`
	Photos     []PhotoDetails `json:"photos"`
	Awards     []Award        `json:"awards"`
	TopPhotos  []PhotoDetails `json:"top_photos"`
	PhotoCount int            `json:"photo_count"`
}
