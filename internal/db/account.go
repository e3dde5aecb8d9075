package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAccountCollection implements AccountCollection for MongoDB
type MongoAccountCollection struct {
	Collection *mongo.Collection
}

// EnsureIndexes creates the unique email index.
func (c *MongoAccountCollection) EnsureIndexes(ctx context.Context) error {
	_, err := c.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create accounts email index: %w", err)
	}
	return nil
}

// InsertAccount inserts a new account into the database
func (c *MongoAccountCollection) InsertAccount(ctx context.Context, account models.Account) error {
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	account.IsActive = true

	_, err := c.Collection.InsertOne(ctx, account)
	return err
}

// FindAccountByID finds an account by its ID
func (c *MongoAccountCollection) FindAccountByID(ctx context.Context, id string) (*models.Account, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var account models.Account
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// FindAccountByEmail finds an account by its email
func (c *MongoAccountCollection) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := c.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// UpdateLastLogin updates the last login time for an account
func (c *MongoAccountCollection) UpdateLastLogin(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}
