package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shutterverse/backend/internal/config"
	"github.com/shutterverse/backend/internal/handlers"
	appMiddleware "github.com/shutterverse/backend/internal/middleware"
	"github.com/shutterverse/backend/internal/services"
	"github.com/shutterverse/backend/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Firebase Auth (server-side verification of ID tokens)
	authClient, err := appMiddleware.NewFirebaseAuthClient(
		ctx,
		appMiddleware.FirebaseAuthConfig{
			ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
			CredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		},
	)
	if err != nil {
		log.Printf("Warning: failed to initialize Firebase Auth client: %v", err)
	}

	// Persistence: MongoDB when configured, JSON-snapshotted memory otherwise.
	var (
		profileService services.ProfileService
		contestService services.ContestService
		photoService   services.PhotoService
	)
	if cfg.UseMongo() {
		mongoProfiles, err := services.NewMongoProfileService(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect profile store: %v", err)
		}
		mongoContests, err := services.NewMongoContestService(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect contest store: %v", err)
		}
		mongoPhotos, err := services.NewMongoPhotoService(ctx, cfg.MongoURI, cfg.MongoDB, mongoProfiles, mongoContests)
		if err != nil {
			log.Fatalf("Failed to connect photo store: %v", err)
		}
		profileService = mongoProfiles
		contestService = mongoContests
		photoService = mongoPhotos
	} else {
		profileStore, err := storage.NewJSONStore(cfg.DataDir, "profiles.json")
		if err != nil {
			log.Fatalf("Failed to open profile store: %v", err)
		}
		contestStore, err := storage.NewJSONStore(cfg.DataDir, "contests.json")
		if err != nil {
			log.Fatalf("Failed to open contest store: %v", err)
		}
		photoStore, err := storage.NewJSONStore(cfg.DataDir, "photos.json")
		if err != nil {
			log.Fatalf("Failed to open photo store: %v", err)
		}
		profiles := services.NewInMemoryProfileService(profileStore)
		contests := services.NewInMemoryContestService(contestStore)
		profileService = profiles
		contestService = contests
		photoService = services.NewInMemoryPhotoService(profiles, contests, photoStore)
	}

	// Image bytes: GCS signed URLs with moderation when a bucket is
	// configured, local disk otherwise.
	var (
		imageStore services.ObjectStorage
		localStore *services.LocalImageStore
		moderation *services.ModerationService
	)
	if cfg.StorageBucket != "" {
		gcs, err := services.NewGCSStorage(ctx, cfg.StorageBucket)
		if err != nil {
			log.Fatalf("Failed to connect storage bucket: %v", err)
		}
		imageStore = gcs
		moderation = services.NewModerationService(gcs)
	} else {
		localStore = services.NewLocalImageStore(cfg.UploadDir)
		imageStore = localStore
	}

	userService := services.NewUserService()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, cfg.JWTSecret, cfg.JWTExpiration)
	profileHandler := handlers.NewProfileHandler(profileService, photoService, imageStore)
	photoHandler := handlers.NewPhotoHandler(photoService, profileService, imageStore, moderation)
	contestHandler := handlers.NewContestHandler(contestService, photoService, profileService, imageStore, moderation)
	imageHandler := handlers.NewImageHandler(imageStore, localStore, cfg.MaxUploadSizeMB)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Local auth (dev/test); Firebase clients skip these.
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			if authClient != nil {
				r.Use(appMiddleware.FirebaseAuth(authClient))
			} else {
				r.Use(appMiddleware.JWTAuth(cfg.JWTSecret))
			}

			// Profiles
			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)
			r.Get("/leaderboard", profileHandler.Leaderboard)
			r.Route("/users/{userId}", func(r chi.Router) {
				r.Get("/", profileHandler.GetUserDetails)
				r.Post("/xp", profileHandler.AddXP)
				r.Post("/awards", profileHandler.GrantAward)
			})

			// Photos and ratings
			r.Route("/photos", func(r chi.Router) {
				r.Get("/", photoHandler.ListPhotos)
				r.Post("/", photoHandler.UploadPhoto)
				r.Get("/top", photoHandler.TopRated)
				r.Get("/categories", photoHandler.ListCategories)

				r.Route("/{photoId}", func(r chi.Router) {
					r.Get("/", photoHandler.GetPhoto)
					r.Delete("/", photoHandler.DeletePhoto)
					r.Post("/ratings", photoHandler.RatePhoto)
					r.Get("/ratings", photoHandler.GetRatings)
				})
			})

			// Contests
			r.Route("/contests", func(r chi.Router) {
				r.Get("/", contestHandler.ListContests)
				r.Post("/", contestHandler.CreateContest)

				r.Route("/{contestId}", func(r chi.Router) {
					r.Get("/", contestHandler.GetContest)
					r.Put("/status", contestHandler.UpdateStatus)
					r.Post("/entries", contestHandler.SubmitEntry)
				})
			})

			// Image upload
			r.Post("/upload/handle", imageHandler.IssueHandle)
			r.Post("/upload", imageHandler.Upload)
			r.Put("/upload/{ref}", imageHandler.Put)
		})
	})

	// Serve uploaded files in local mode
	if cfg.StorageBucket == "" {
		workDir, _ := os.Getwd()
		filesDir := http.Dir(workDir + "/" + cfg.UploadDir)
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(filesDir)))
	}

	log.Printf("Shutterverse API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
