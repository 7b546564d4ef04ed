package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	appMiddleware "github.com/shutterverse/backend/internal/middleware"
	"github.com/shutterverse/backend/internal/models"
	"github.com/shutterverse/backend/internal/services"
)

const testSecret = "test-secret"

type testEnv struct {
	router   *chi.Mux
	profiles *services.InMemoryProfileService
	contests *services.InMemoryContestService
	photos   *services.InMemoryPhotoService
	images   *services.LocalImageStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	profiles := services.NewInMemoryProfileService(nil)
	contests := services.NewInMemoryContestService(nil)
	photos := services.NewInMemoryPhotoService(profiles, contests, nil)
	images := services.NewLocalImageStore(t.TempDir())

	profileHandler := NewProfileHandler(profiles, photos, images)
	photoHandler := NewPhotoHandler(photos, profiles, images, nil)
	contestHandler := NewContestHandler(contests, photos, profiles, images, nil)
	imageHandler := NewImageHandler(images, images, 10)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.JWTAuth(testSecret))

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)
			r.Get("/leaderboard", profileHandler.Leaderboard)
			r.Route("/users/{userId}", func(r chi.Router) {
				r.Get("/", profileHandler.GetUserDetails)
				r.Post("/xp", profileHandler.AddXP)
				r.Post("/awards", profileHandler.GrantAward)
			})

			r.Route("/photos", func(r chi.Router) {
				r.Get("/", photoHandler.ListPhotos)
				r.Post("/", photoHandler.UploadPhoto)
				r.Get("/top", photoHandler.TopRated)
				r.Route("/{photoId}", func(r chi.Router) {
					r.Get("/", photoHandler.GetPhoto)
					r.Delete("/", photoHandler.DeletePhoto)
					r.Post("/ratings", photoHandler.RatePhoto)
					r.Get("/ratings", photoHandler.GetRatings)
				})
			})

			r.Route("/contests", func(r chi.Router) {
				r.Get("/", contestHandler.ListContests)
				r.Post("/", contestHandler.CreateContest)
				r.Route("/{contestId}", func(r chi.Router) {
					r.Get("/", contestHandler.GetContest)
					r.Put("/status", contestHandler.UpdateStatus)
					r.Post("/entries", contestHandler.SubmitEntry)
				})
			})

			r.Post("/upload/handle", imageHandler.IssueHandle)
		})
	})

	return &testEnv{
		router:   r,
		profiles: profiles,
		contests: contests,
		photos:   photos,
		images:   images,
	}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   userID + "@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	if !resp.Success {
		t.Fatalf("response not successful: %s", resp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

// profileFor resolves the auth identity to its profile directly against the
// service, the same way the handlers do.
func (e *testEnv) profileFor(t *testing.T, userID string) *models.Profile {
	t.Helper()
	prof, err := e.profiles.GetOrCreate(context.Background(), userID, userID+"@example.com")
	if err != nil {
		t.Fatalf("get or create %s: %v", userID, err)
	}
	return prof
}

func (e *testEnv) makeAdmin(t *testing.T, userID string) *models.Profile {
	t.Helper()
	prof := e.profileFor(t, userID)
	if err := e.profiles.SetAdmin(prof.ID, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	return prof
}

func TestRequestsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetProfileCreatesOnFirstContact(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/profile", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var prof models.Profile
	decodeData(t, rec, &prof)
	if prof.UserID != "alice" || prof.Level != 1 || prof.XP != 0 {
		t.Errorf("profile = %+v, want fresh level 1 profile for alice", prof)
	}
}

func TestUpsertProfile(t *testing.T) {
	env := newTestEnv(t)

	name := "Alice Adams"
	bio := "Street photographer"
	rec := env.do(t, http.MethodPut, "/api/profile", "alice", models.UpsertProfileRequest{Name: &name, Bio: &bio})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var prof models.Profile
	decodeData(t, rec, &prof)
	if prof.Name != name || prof.Bio != bio {
		t.Errorf("profile = %+v, want updated name and bio", prof)
	}
}

func TestPhotoUploadAndRatingFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/photos", "alice", models.UploadPhotoRequest{
		Title:    "Sunset",
		ImageRef: "sunset.jpg",
		Category: "Landscape",
		IsPublic: true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var photo models.Photo
	decodeData(t, rec, &photo)

	// Missing fields are rejected before anything happens.
	rec = env.do(t, http.MethodPost, "/api/photos", "alice", models.UploadPhotoRequest{Title: "No image"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid upload status = %d, want 400", rec.Code)
	}

	ratePath := fmt.Sprintf("/api/photos/%s/ratings", photo.ID)

	// The uploader cannot rate their own photo.
	rec = env.do(t, http.MethodPost, ratePath, "alice", models.RatePhotoRequest{Creativity: 5, Technical: 5, Emotional: 5})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("self rating status = %d, want 422", rec.Code)
	}

	// Scores outside 1..5 fail validation.
	rec = env.do(t, http.MethodPost, ratePath, "bob", models.RatePhotoRequest{Creativity: 6, Technical: 1, Emotional: 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out of range status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, ratePath, "bob", models.RatePhotoRequest{Creativity: 5, Technical: 4, Emotional: 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("rating status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var result models.RateResult
	decodeData(t, rec, &result)
	if result.AverageRating != 4.0 || result.TotalRatings != 1 {
		t.Errorf("rate result = %+v, want avg 4.0 count 1", result)
	}

	// Rating again conflicts.
	rec = env.do(t, http.MethodPost, ratePath, "bob", models.RatePhotoRequest{Creativity: 1, Technical: 1, Emotional: 1})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate rating status = %d, want 409", rec.Code)
	}

	// Summary shows bob's own rating back to him.
	rec = env.do(t, http.MethodGet, ratePath, "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get ratings status = %d", rec.Code)
	}
	var summary models.RatingSummary
	decodeData(t, rec, &summary)
	if summary.TotalRatings != 1 || summary.UserRating == nil {
		t.Errorf("summary = %+v, want bob's rating included", summary)
	}
}

func TestPrivatePhotoReadsAsMissing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/photos", "alice", models.UploadPhotoRequest{
		Title:    "Hidden",
		ImageRef: "hidden.jpg",
		Category: "Portrait",
		IsPublic: false,
	})
	var photo models.Photo
	decodeData(t, rec, &photo)

	rec = env.do(t, http.MethodGet, "/api/photos/"+photo.ID, "bob", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("other member status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/photos/"+photo.ID, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("owner status = %d, want 200", rec.Code)
	}
}

func TestDeletePhotoOwnership(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/photos", "alice", models.UploadPhotoRequest{
		Title:    "Sunset",
		ImageRef: "sunset.jpg",
		Category: "Landscape",
		IsPublic: true,
	})
	var photo models.Photo
	decodeData(t, rec, &photo)

	rec = env.do(t, http.MethodDelete, "/api/photos/"+photo.ID, "bob", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner delete status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/photos/"+photo.ID, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("owner delete status = %d, want 200", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/photos/"+photo.ID, "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted photo status = %d, want 404", rec.Code)
	}
}

func TestContestAdminGate(t *testing.T) {
	env := newTestEnv(t)

	req := models.CreateContestRequest{
		Name:     "Weekly Shot",
		Theme:    "Water",
		Deadline: time.Now().Add(24 * time.Hour),
		XPReward: 50,
	}

	rec := env.do(t, http.MethodPost, "/api/contests", "alice", req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin create status = %d, want 403", rec.Code)
	}

	env.makeAdmin(t, "admin")
	rec = env.do(t, http.MethodPost, "/api/contests", "admin", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestContestEntryAndStatusFlow(t *testing.T) {
	env := newTestEnv(t)
	env.makeAdmin(t, "admin")

	rec := env.do(t, http.MethodPost, "/api/contests", "admin", models.CreateContestRequest{
		Name:     "Weekly Shot",
		Theme:    "Water",
		Deadline: time.Now().Add(24 * time.Hour),
		XPReward: 50,
	})
	var contest models.Contest
	decodeData(t, rec, &contest)

	entryPath := "/api/contests/" + contest.ID + "/entries"
	entry := models.UploadPhotoRequest{
		Title:    "Droplets",
		ImageRef: "droplets.jpg",
		Category: "Macro",
		IsPublic: true,
	}

	rec = env.do(t, http.MethodPost, entryPath, "alice", entry)
	if rec.Code != http.StatusCreated {
		t.Fatalf("entry status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, entryPath, "alice", entry)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate entry status = %d, want 409", rec.Code)
	}

	// Contest page shows the entry count and the entry itself.
	rec = env.do(t, http.MethodGet, "/api/contests/"+contest.ID, "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get contest status = %d", rec.Code)
	}
	var details models.ContestDetails
	decodeData(t, rec, &details)
	if details.EntryCount != 1 || len(details.Entries) != 1 {
		t.Errorf("details count=%d entries=%d, want 1 and 1", details.EntryCount, len(details.Entries))
	}

	// Only admins move the lifecycle.
	statusPath := "/api/contests/" + contest.ID + "/status"
	rec = env.do(t, http.MethodPut, statusPath, "alice", models.UpdateContestStatusRequest{Status: models.ContestStatusCompleted})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin status change = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPut, statusPath, "admin", models.UpdateContestStatusRequest{Status: models.ContestStatusCompleted})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, want 200", rec.Code)
	}

	// No going back.
	rec = env.do(t, http.MethodPut, statusPath, "admin", models.UpdateContestStatusRequest{Status: models.ContestStatusActive})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("reopen status = %d, want 422", rec.Code)
	}

	// Closed contests refuse new entries.
	rec = env.do(t, http.MethodPost, entryPath, "carol", entry)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("late entry status = %d, want 422", rec.Code)
	}
}

func TestAdminXPAndAwards(t *testing.T) {
	env := newTestEnv(t)
	env.makeAdmin(t, "admin")
	target := env.profileFor(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/users/"+target.ID+"/xp", "alice", models.AddXPRequest{Amount: 100, Reason: "Event bonus"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin xp status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/users/"+target.ID+"/xp", "admin", models.AddXPRequest{Amount: 100, Reason: "Event bonus"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin xp status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var result models.XPResult
	decodeData(t, rec, &result)
	if result.NewXP != 100 || result.NewLevel != 2 {
		t.Errorf("xp result = %+v, want 100 XP at level 2", result)
	}

	rec = env.do(t, http.MethodPost, "/api/users/"+target.ID+"/awards", "admin", models.GrantAwardRequest{
		Type: models.AwardTypeTrophy,
		Name: "Contest Winner",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("award status = %d, want 201", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/users/"+target.ID, "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("user details status = %d", rec.Code)
	}
	var details models.ProfileDetails
	decodeData(t, rec, &details)
	if details.XP != 100 || details.Level != 2 {
		t.Errorf("details xp=%d level=%d, want 100 and 2", details.XP, details.Level)
	}
	if len(details.Awards) != 1 {
		t.Errorf("awards = %d, want 1", len(details.Awards))
	}
}

func TestUserDetailsNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/users/missing", "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	env.makeAdmin(t, "admin")

	alice := env.profileFor(t, "alice")
	bob := env.profileFor(t, "bob")

	env.do(t, http.MethodPost, "/api/users/"+alice.ID+"/xp", "admin", models.AddXPRequest{Amount: 50, Reason: "Event bonus"})
	env.do(t, http.MethodPost, "/api/users/"+bob.ID+"/xp", "admin", models.AddXPRequest{Amount: 150, Reason: "Event bonus"})

	rec := env.do(t, http.MethodGet, "/api/leaderboard?limit=2", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d", rec.Code)
	}
	var ranked []models.PublicProfile
	decodeData(t, rec, &ranked)
	if len(ranked) != 2 {
		t.Fatalf("leaderboard size = %d, want 2", len(ranked))
	}
	if ranked[0].ID != bob.ID {
		t.Errorf("top of leaderboard = %s, want %s", ranked[0].ID, bob.ID)
	}
}

func TestIssueUploadHandle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/upload/handle", "alice", map[string]string{"content_type": "image/png"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("handle status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var handle models.UploadHandle
	decodeData(t, rec, &handle)
	if handle.Ref == "" || handle.URL == "" {
		t.Errorf("handle = %+v, want ref and url", handle)
	}

	rec = env.do(t, http.MethodPost, "/api/upload/handle", "alice", map[string]string{"content_type": "application/pdf"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad content type status = %d, want 400", rec.Code)
	}
}
