package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var ErrFailedToConnect = errors.New("failed to connect to mongo")

// UpdateResult holds the counts reported by an update.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// Backend is one open connection to a MongoDB deployment.
type Backend interface {
	ListDatabases(ctx context.Context) ([]string, error)
	ListCollections(ctx context.Context, database string) ([]string, error)
	InsertMany(ctx context.Context, database, collection string, documents []any) ([]any, error)
	Find(ctx context.Context, database, collection string, query FindQuery) ([]bson.D, error)
	Update(ctx context.Context, database, collection string, filter, update any, multi, upsert bool) (UpdateResult, error)
	Delete(ctx context.Context, database, collection string, filter any, multi bool) (int64, error)
	Close(ctx context.Context) error
}

// Dialer opens a Backend for a connection string.
type Dialer interface {
	Dial(ctx context.Context, connectionString string) (Backend, error)
}

// MongoDialer opens connections with the official driver.
type MongoDialer struct {
	appName        string
	connectTimeout time.Duration
}

var _ Dialer = (*MongoDialer)(nil)

func NewMongoDialer(appName string, connectTimeout time.Duration) *MongoDialer {
	return &MongoDialer{appName: appName, connectTimeout: connectTimeout}
}

// Dial creates a client for connectionString. The driver connects lazily; connection
// and server selection are both bounded by the connect timeout.
func (d *MongoDialer) Dial(_ context.Context, connectionString string) (Backend, error) {
	client, err := mongo.Connect(
		options.Client().
			ApplyURI(connectionString).
			SetAppName(d.appName).
			SetConnectTimeout(d.connectTimeout).
			SetServerSelectionTimeout(d.connectTimeout),
	)
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}

	return &mongoBackend{client: client}, nil
}

type mongoBackend struct {
	client *mongo.Client
}

func (b *mongoBackend) ListDatabases(ctx context.Context) ([]string, error) {
	return b.client.ListDatabaseNames(ctx, bson.D{})
}

func (b *mongoBackend) ListCollections(ctx context.Context, database string) ([]string, error) {
	return b.client.Database(database).ListCollectionNames(ctx, bson.D{})
}

func (b *mongoBackend) InsertMany(ctx context.Context, database, collection string, documents []any) ([]any, error) {
	res, err := b.client.Database(database).Collection(collection).InsertMany(ctx, documents)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

func (b *mongoBackend) Find(ctx context.Context, database, collection string, query FindQuery) ([]bson.D, error) {
	opts := options.Find().
		SetLimit(query.Limit).
		SetSkip(query.Skip).
		SetSort(SortDocument(query.Sort))

	cursor, err := b.client.Database(database).Collection(collection).Find(ctx, query.Filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}
	return docs, nil
}

func (b *mongoBackend) Update(ctx context.Context, database, collection string, filter, update any, multi, upsert bool) (UpdateResult, error) {
	coll := b.client.Database(database).Collection(collection)

	var (
		res *mongo.UpdateResult
		err error
	)
	if multi {
		res, err = coll.UpdateMany(ctx, filter, update, options.UpdateMany().SetUpsert(upsert))
	} else {
		res, err = coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(upsert))
	}
	if err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (b *mongoBackend) Delete(ctx context.Context, database, collection string, filter any, multi bool) (int64, error) {
	coll := b.client.Database(database).Collection(collection)

	var (
		res *mongo.DeleteResult
		err error
	)
	if multi {
		res, err = coll.DeleteMany(ctx, filter)
	} else {
		res, err = coll.DeleteOne(ctx, filter)
	}
	if err != nil {
		return 0, err
	}

	return res.DeletedCount, nil
}

func (b *mongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}
