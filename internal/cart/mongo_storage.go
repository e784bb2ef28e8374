package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plagued/storefront/internal/domain"
)

// MongoStorage is the durable cart backend: a single document keyed by
// StorageKey holding the full line sequence.
type MongoStorage struct {
	collection *mongo.Collection
}

type mongoCartDoc struct {
	ID        string            `bson:"_id"`
	Version   int               `bson:"version"`
	Items     []domain.CartLine `bson:"items"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{collection: db.Collection("carts")}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *MongoStorage) Load(ctx context.Context) ([]domain.CartLine, error) {
	var doc mongoCartDoc

	filter := bson.M{"_id": StorageKey}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoSavedCart
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	if doc.Version != schemaVersion {
		return nil, ErrNoSavedCart
	}
	return doc.Items, nil
}

func (m *MongoStorage) Save(ctx context.Context, lines []domain.CartLine) error {
	doc := mongoCartDoc{
		ID:        StorageKey,
		Version:   schemaVersion,
		Items:     lines,
		UpdatedAt: time.Now(),
	}

	filter := bson.M{"_id": StorageKey}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
