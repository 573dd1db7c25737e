package mongo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// Collection names are shared with existing deployments; do not rename.
const (
	userCollectionName      = "users"
	bmiRecordCollectionName = "bmirecords"
	dietPlanCollectionName  = "dietplans"
)

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Connect succeeds lazily; ping the primary to make sure the server answers.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. Failures are logged
// and joined so startup can decide whether they are fatal.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	var errs []error
	for name, ensure := range map[string]func(context.Context, *mongo.Collection) error{
		userCollectionName:      EnsureUserIndexes,
		bmiRecordCollectionName: EnsureBMIRecordIndexes,
		dietPlanCollectionName:  EnsureDietPlanIndexes,
	} {
		if err := ensure(ctx, db.Collection(name)); err != nil {
			slog.Warn("failed to create indexes", "collection", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
