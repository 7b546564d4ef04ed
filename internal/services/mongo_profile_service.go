package services

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shutterverse/backend/internal/models"
)

type MongoProfileService struct {
	client      *mongo.Client
	db          *mongo.Database
	profilesCol *mongo.Collection
	ledgerCol   *mongo.Collection
	awardsCol   *mongo.Collection
}

func NewMongoProfileService(ctx context.Context, mongoURI, dbName string) (*MongoProfileService, error) {
	// Atlas occasionally fails TLS negotiation in some environments unless we
	// force TLS 1.2.
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	profiles := db.Collection("profiles")
	ledger := db.Collection("xp_transactions")
	awards := db.Collection("awards")

	// Best-effort indexes.
	_, _ = profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "xp", Value: -1}}},
	})
	_, _ = ledger.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	})
	_, _ = awards.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})

	log.Printf("MongoDB connected (profiles): db=%s", dbName)
	return &MongoProfileService{
		client:      client,
		db:          db,
		profilesCol: profiles,
		ledgerCol:   ledger,
		awardsCol:   awards,
	}, nil
}

func (s *MongoProfileService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoProfileService) GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error) {
	now := time.Now().UTC()

	var prof models.Profile
	err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof)
	if err == nil {
		if email != "" && prof.Email == "" {
			_, _ = s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
				"$set": bson.M{"email": email, "updated_at": now},
			})
			prof.Email = email
			prof.UpdatedAt = now
		}
		return &prof, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// Idempotent by email: bind a pre-existing profile to this identity.
	if email != "" {
		err = s.profilesCol.FindOne(ctx, bson.M{"email": email}).Decode(&prof)
		if err == nil {
			_, _ = s.profilesCol.UpdateOne(ctx, bson.M{"_id": prof.ID}, bson.M{
				"$set": bson.M{"user_id": userID, "updated_at": now},
			})
			prof.UserID = userID
			prof.UpdatedAt = now
			return &prof, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
	}

	prof = models.Profile{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		XP:        0,
		Level:     1,
		IsAdmin:   false,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if _, err := s.profilesCol.InsertOne(ctx, prof); err != nil {
		// If a race created it, fetch again.
		var retry models.Profile
		if err2 := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&retry); err2 == nil {
			return &retry, nil
		}
		return nil, err
	}
	return &prof, nil
}

func (s *MongoProfileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.profilesCol.FindOne(ctx, bson.M{"_id": id}).Decode(&prof); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &prof, nil
}

func (s *MongoProfileService) Upsert(ctx context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	prof, err := s.GetOrCreate(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Bio != nil {
		set["bio"] = *req.Bio
	}
	if req.PhotoURL != nil {
		set["photo_url"] = *req.PhotoURL
	}

	res := s.profilesCol.FindOneAndUpdate(
		ctx,
		bson.M{"_id": prof.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Profile
	if err := res.Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *MongoProfileService) AddXP(ctx context.Context, profileID string, amount int, reason, relatedID string) (*models.XPResult, error) {
	var prof models.Profile
	if err := s.profilesCol.FindOne(ctx, bson.M{"_id": profileID}).Decode(&prof); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	newXP := prof.XP + amount
	if newXP < 0 {
		newXP = 0
	}
	newLevel := LevelForXP(newXP)

	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"_id": profileID}, bson.M{
		"$set": bson.M{"xp": newXP, "level": newLevel, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return nil, err
	}

	tx := models.XPTransaction{
		ID:        uuid.New().String(),
		UserID:    profileID,
		Amount:    amount,
		Reason:    reason,
		RelatedID: relatedID,
		Timestamp: time.Now().UTC(),
	}
	if _, err := s.ledgerCol.InsertOne(ctx, tx); err != nil {
		return nil, err
	}

	return &models.XPResult{NewXP: newXP, NewLevel: newLevel}, nil
}

func (s *MongoProfileService) Leaderboard(ctx context.Context, limit int) ([]*models.Profile, error) {
	if limit <= 0 {
		limit = 20
	}

	cur, err := s.profilesCol.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "xp", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	profiles := make([]*models.Profile, 0, limit)
	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, cur.Err()
}

func (s *MongoProfileService) GrantAward(ctx context.Context, profileID string, req *models.GrantAwardRequest) (*models.Award, error) {
	if _, err := s.GetByID(ctx, profileID); err != nil {
		return nil, err
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
	if _, err := s.awardsCol.InsertOne(ctx, award); err != nil {
		return nil, err
	}
	return &award, nil
}

func (s *MongoProfileService) ListAwards(ctx context.Context, profileID string) ([]models.Award, error) {
	cur, err := s.awardsCol.Find(
		ctx,
		bson.M{"user_id": profileID},
		options.Find().SetSort(bson.D{{Key: "awarded_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	awards := make([]models.Award, 0)
	for cur.Next(ctx) {
		var a models.Award
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	return awards, cur.Err()
}
