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

type MongoContestService struct {
	client      *mongo.Client
	db          *mongo.Database
	contestsCol *mongo.Collection
}

func NewMongoContestService(ctx context.Context, mongoURI, dbName string) (*MongoContestService, error) {
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
	contests := db.Collection("contests")

	// Best-effort indexes.
	_, _ = contests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "deadline", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})

	log.Printf("MongoDB connected (contests): db=%s", dbName)
	return &MongoContestService{
		client:      client,
		db:          db,
		contestsCol: contests,
	}, nil
}

func (s *MongoContestService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoContestService) Create(ctx context.Context, creatorID string, req *models.CreateContestRequest) (*models.Contest, error) {
	contest := models.Contest{
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

	if _, err := s.contestsCol.InsertOne(ctx, contest); err != nil {
		return nil, err
	}
	return &contest, nil
}

func (s *MongoContestService) GetByID(ctx context.Context, id string) (*models.Contest, error) {
	var contest models.Contest
	if err := s.contestsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&contest); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrContestNotFound
		}
		return nil, err
	}
	return &contest, nil
}

func (s *MongoContestService) List(ctx context.Context, status string) ([]*models.Contest, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	cur, err := s.contestsCol.Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	contests := make([]*models.Contest, 0)
	for cur.Next(ctx) {
		var c models.Contest
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		contests = append(contests, &c)
	}
	return contests, cur.Err()
}

func (s *MongoContestService) SetStatus(ctx context.Context, contestID, status string) (*models.Contest, error) {
	contest, err := s.GetByID(ctx, contestID)
	if err != nil {
		return nil, err
	}

	if !validTransition(contest.Status, status) {
		return nil, ErrInvalidTransition
	}

	res := s.contestsCol.FindOneAndUpdate(
		ctx,
		// Guard against a concurrent transition between the read and the write.
		bson.M{"_id": contestID, "status": contest.Status},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Contest
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return &updated, nil
}
