// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovozbot/ovoz/models"
)

// MongoUsers implements UserStore on a MongoDB collection.
type MongoUsers struct {
	col *mongo.Collection
}

// MongoPolls implements PollStore on a MongoDB collection. All vote and
// lifecycle mutations are single conditional UpdateOne calls so the database
// enforces the uniqueness and counting invariants, even across process
// restarts or multiple instances.
type MongoPolls struct {
	col *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{col: db.Collection("users")}
}

func NewMongoPolls(db *mongo.Database) *MongoPolls {
	return &MongoPolls{col: db.Collection("polls")}
}

// EnsureIndexes declares the unique and query indexes for both collections.
// Safe to call on every startup. Declaring the unique email index correctly
// up front is what makes the historical null-key cleanup unnecessary.
func EnsureIndexes(ctx context.Context, users *MongoUsers, polls *MongoPolls) error {
	_, err := users.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "email_verified", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = polls.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create poll indexes: %w", err)
	}
	return nil
}

func (m *MongoUsers) Get(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := m.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", userID, err)
	}
	return &u, nil
}

func (m *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (m *MongoUsers) Upsert(ctx context.Context, u *models.User) error {
	filter := bson.M{"_id": u.UserID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": u.CreatedAt,
		},
		"$set": bson.M{
			"first_name":     u.FirstName,
			"last_name":      u.LastName,
			"phone":          u.Phone,
			"email":          u.Email,
			"email_verified": u.EmailVerified,
			"updated_at":     u.UpdatedAt,
		},
	}
	_, err := m.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.UserID, err)
	}
	return nil
}

func (m *MongoUsers) All(ctx context.Context) ([]models.User, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (m *MongoUsers) Count(ctx context.Context) (int64, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (m *MongoUsers) CountVerified(ctx context.Context) (int64, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{"email_verified": true})
	if err != nil {
		return 0, fmt.Errorf("count verified users: %w", err)
	}
	return n, nil
}

func (m *MongoPolls) Insert(ctx context.Context, p *models.Poll) error {
	_, err := m.col.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	return nil
}

func (m *MongoPolls) Get(ctx context.Context, id string) (*models.Poll, error) {
	var p models.Poll
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find poll %s: %w", id, err)
	}
	return &p, nil
}

func (m *MongoPolls) All(ctx context.Context) ([]models.Poll, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	var polls []models.Poll
	if err := cur.All(ctx, &polls); err != nil {
		return nil, fmt.Errorf("decode polls: %w", err)
	}
	return polls, nil
}

func (m *MongoPolls) ExpiredActive(ctx context.Context, now time.Time) ([]models.Poll, error) {
	cur, err := m.col.Find(ctx, bson.M{
		"active":     true,
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return nil, fmt.Errorf("list expired polls: %w", err)
	}
	var polls []models.Poll
	if err := cur.All(ctx, &polls); err != nil {
		return nil, fmt.Errorf("decode expired polls: %w", err)
	}
	return polls, nil
}

// InsertBallot encodes every voting precondition into the update filter.
// If any precondition fails the update matches nothing, and the poll is
// re-read once to classify which precondition it was.
func (m *MongoPolls) InsertBallot(ctx context.Context, pollID string, voterID int64, optionIndex int, now time.Time) (*models.Poll, error) {
	if optionIndex < 0 {
		return nil, models.ErrInvalidOption
	}
	ballotKey := "ballots." + models.BallotKey(voterID)
	optionPath := fmt.Sprintf("options.%d", optionIndex)

	filter := bson.M{
		"_id":        pollID,
		"active":     true,
		"expires_at": bson.M{"$gt": now},
		ballotKey:    bson.M{"$exists": false},
		optionPath:   bson.M{"$exists": true},
	}
	update := bson.M{
		"$set": bson.M{ballotKey: optionIndex},
		"$inc": bson.M{optionPath + ".votes": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Poll
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, m.classifyVoteFailure(ctx, pollID, voterID, optionIndex, now)
	}
	if err != nil {
		return nil, fmt.Errorf("insert ballot: %w", err)
	}
	return &p, nil
}

func (m *MongoPolls) classifyVoteFailure(ctx context.Context, pollID string, voterID int64, optionIndex int, now time.Time) error {
	p, err := m.Get(ctx, pollID)
	if err != nil {
		return err
	}
	switch {
	case p.HasVoted(voterID):
		return models.ErrAlreadyVoted
	case !p.Active || p.Expired(now):
		return models.ErrPollClosed
	case optionIndex < 0 || optionIndex >= len(p.Options):
		return models.ErrInvalidOption
	default:
		// The poll changed between the update and the re-read; report the
		// closest precondition rather than inventing a new failure mode.
		return models.ErrPollClosed
	}
}

func (m *MongoPolls) Close(ctx context.Context, id string) (bool, error) {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return false, fmt.Errorf("close poll %s: %w", id, err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	// Nothing flipped: either already closed (fine) or missing.
	if _, err := m.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (m *MongoPolls) DeleteAll(ctx context.Context) (int64, error) {
	res, err := m.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("delete polls: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *MongoPolls) Count(ctx context.Context) (int64, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count polls: %w", err)
	}
	return n, nil
}

func (m *MongoPolls) CountActive(ctx context.Context) (int64, error) {
	n, err := m.col.CountDocuments(ctx, bson.M{"active": true})
	if err != nil {
		return 0, fmt.Errorf("count active polls: %w", err)
	}
	return n, nil
}
