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

type MongoPhotoService struct {
	client     *mongo.Client
	db         *mongo.Database
	photosCol  *mongo.Collection
	ratingsCol *mongo.Collection
	profiles   ProfileService
	contests   ContestService
}

func NewMongoPhotoService(
	ctx context.Context,
	mongoURI string,
	dbName string,
	profiles ProfileService,
	contests ContestService,
) (*MongoPhotoService, error) {
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
	photos := db.Collection("photos")
	ratings := db.Collection("ratings")

	// Best-effort indexes. The unique (photo_id, user_id) index backs the
	// one-rating-per-member invariant; the partial unique
	// (contest_id, uploaded_by) index backs one-entry-per-member. The latter
	// is partial because regular uploads omit contest_id entirely.
	_, _ = photos.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uploaded_at", Value: -1}}},
		{Keys: bson.D{{Key: "uploaded_by", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{
			Keys: bson.D{{Key: "contest_id", Value: 1}, {Key: "uploaded_by", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"contest_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "average_rating", Value: -1}}},
	})
	_, _ = ratings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "photo_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "photo_id", Value: 1}}},
	})

	log.Printf("MongoDB connected (photos): db=%s", dbName)
	return &MongoPhotoService{
		client:     client,
		db:         db,
		photosCol:  photos,
		ratingsCol: ratings,
		profiles:   profiles,
		contests:   contests,
	}, nil
}

func (s *MongoPhotoService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoPhotoService) Upload(ctx context.Context, uploaderID string, req *models.UploadPhotoRequest) (*models.Photo, error) {
	photo := newPhoto(uploaderID, "", req)

	if _, err := s.photosCol.InsertOne(ctx, photo); err != nil {
		return nil, err
	}

	if _, err := s.profiles.AddXP(ctx, uploaderID, xpPhotoUpload, XPReasonPhotoUpload, photo.ID); err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *MongoPhotoService) SubmitToContest(ctx context.Context, uploaderID, contestID string, req *models.UploadPhotoRequest) (*models.Photo, error) {
	// One entry per member per contest, checked first so the failure order
	// stays stable across backends.
	err := s.photosCol.FindOne(ctx, bson.M{"contest_id": contestID, "uploaded_by": uploaderID}).Err()
	if err == nil {
		return nil, ErrDuplicateEntry
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	contest, err := s.contests.GetByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != models.ContestStatusActive {
		return nil, ErrContestClosed
	}
	if contest.Deadline.Before(time.Now()) {
		return nil, ErrDeadlinePassed
	}

	photo := newPhoto(uploaderID, contestID, req)
	if _, err := s.photosCol.InsertOne(ctx, photo); err != nil {
		// The partial unique index closes the check-then-insert window.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}

	if _, err := s.profiles.AddXP(ctx, uploaderID, contestEntryXP(contest.XPReward), XPReasonContestSubmission, photo.ID); err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *MongoPhotoService) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	var photo models.Photo
	if err := s.photosCol.FindOne(ctx, bson.M{"_id": id}).Decode(&photo); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return &photo, nil
}

func (s *MongoPhotoService) List(ctx context.Context, filter models.PhotoListFilter, callerID string) ([]*models.Photo, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	// Visibility is part of the query so the limit counts only photos the
	// caller may see: public ones, plus their own.
	query := bson.M{
		"$or": []bson.M{
			{"is_public": true},
			{"uploaded_by": callerID},
		},
	}
	switch {
	case filter.Category != "":
		query["category"] = filter.Category
	case filter.ContestID != "":
		query["contest_id"] = filter.ContestID
	case filter.UserID != "":
		query["uploaded_by"] = filter.UserID
	}

	cur, err := s.photosCol.Find(
		ctx,
		query,
		options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := make([]*models.Photo, 0)
	for cur.Next(ctx) {
		var p models.Photo
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		results = append(results, &p)
	}
	return results, cur.Err()
}

func (s *MongoPhotoService) TopRated(ctx context.Context, limit int) ([]*models.Photo, error) {
	if limit <= 0 {
		limit = 10
	}

	cur, err := s.photosCol.Find(
		ctx,
		bson.M{"average_rating": bson.M{"$exists": true}, "is_public": true},
		options.Find().SetSort(bson.D{{Key: "average_rating", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := make([]*models.Photo, 0)
	for cur.Next(ctx) {
		var p models.Photo
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		results = append(results, &p)
	}
	return results, cur.Err()
}

func (s *MongoPhotoService) Delete(ctx context.Context, callerID, photoID string) error {
	// Ensure ownership before touching anything.
	var photo models.Photo
	if err := s.photosCol.FindOne(ctx, bson.M{"_id": photoID}).Decode(&photo); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrPhotoNotFound
		}
		return err
	}
	if photo.UploadedBy != callerID {
		return ErrNotPhotoOwner
	}

	if _, err := s.ratingsCol.DeleteMany(ctx, bson.M{"photo_id": photoID}); err != nil {
		return err
	}
	if _, err := s.photosCol.DeleteOne(ctx, bson.M{"_id": photoID}); err != nil {
		return err
	}

	// Reverse the upload grant; the ledger gets a compensating entry.
	_, err := s.profiles.AddXP(ctx, callerID, -xpPhotoUpload, XPReasonPhotoDeleted, photoID)
	return err
}

func (s *MongoPhotoService) RatePhoto(ctx context.Context, photoID, raterID string, req *models.RatePhotoRequest) (*models.RateResult, error) {
	err := s.ratingsCol.FindOne(ctx, bson.M{"photo_id": photoID, "user_id": raterID}).Err()
	if err == nil {
		return nil, ErrDuplicateRating
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	photo, err := s.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.UploadedBy == raterID {
		return nil, ErrSelfRating
	}

	rating := models.Rating{
		ID:         uuid.New().String(),
		PhotoID:    photoID,
		UserID:     raterID,
		Creativity: req.Creativity,
		Technical:  req.Technical,
		Emotional:  req.Emotional,
		Overall:    float64(req.Creativity+req.Technical+req.Emotional) / 3,
		RatedAt:    time.Now().UTC(),
	}
	if _, err := s.ratingsCol.InsertOne(ctx, rating); err != nil {
		// The unique index closes the check-then-insert window.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateRating
		}
		return nil, err
	}

	// Full recomputation over every rating, not an incremental update.
	all, err := s.ratingsForPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, r := range all {
		sum += r.Overall
	}
	average := sum / float64(len(all))

	_, err = s.photosCol.UpdateOne(ctx, bson.M{"_id": photoID}, bson.M{
		"$set": bson.M{"average_rating": average, "total_ratings": len(all)},
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.profiles.AddXP(ctx, raterID, xpRatingPhoto, XPReasonRatingPhoto, photoID); err != nil {
		return nil, err
	}

	return &models.RateResult{AverageRating: average, TotalRatings: len(all)}, nil
}

func (s *MongoPhotoService) GetRatings(ctx context.Context, photoID, callerID string) (*models.RatingSummary, error) {
	all, err := s.ratingsForPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	summary := &models.RatingSummary{TotalRatings: len(all)}
	for i := range all {
		if callerID != "" && all[i].UserID == callerID {
			r := all[i]
			summary.UserRating = &r
		}
	}

	if len(all) == 0 {
		return summary, nil
	}

	n := float64(len(all))
	for _, r := range all {
		summary.Averages.Creativity += float64(r.Creativity) / n
		summary.Averages.Technical += float64(r.Technical) / n
		summary.Averages.Emotional += float64(r.Emotional) / n
		summary.Averages.Overall += r.Overall / n
	}
	return summary, nil
}

func (s *MongoPhotoService) CountByContest(ctx context.Context, contestID string) (int, error) {
	count, err := s.photosCol.CountDocuments(ctx, bson.M{"contest_id": contestID})
	return int(count), err
}

func (s *MongoPhotoService) ratingsForPhoto(ctx context.Context, photoID string) ([]models.Rating, error) {
	cur, err := s.ratingsCol.Find(ctx, bson.M{"photo_id": photoID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ratings := make([]models.Rating, 0)
	for cur.Next(ctx) {
		var r models.Rating
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, cur.Err()
}
