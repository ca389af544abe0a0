package eventlog

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "payment_events"

// Archive stores verified payment webhook events
type Archive interface {
	Record(ctx context.Context, event *domain.PaymentEvent) error
	Recent(ctx context.Context, limit int) ([]*domain.PaymentEvent, error)
}

// Connect opens and pings a MongoDB client for uri
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, nil
}

type mongoArchive struct {
	events *mongo.Collection
}

// NewMongoArchive stores events in the payment_events collection of database
func NewMongoArchive(client *mongo.Client, database string) Archive {
	return &mongoArchive{events: client.Database(database).Collection(collectionName)}
}

// Record inserts event keyed by its id. Redeliveries keep the first record.
func (a *mongoArchive) Record(ctx context.Context, event *domain.PaymentEvent) error {
	if _, err := a.events.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to archive payment event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first
func (a *mongoArchive) Recent(ctx context.Context, limit int) ([]*domain.PaymentEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := a.events.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	defer cur.Close(ctx)

	events := []*domain.PaymentEvent{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode payment events: %w", err)
	}
	return events, nil
}

type noopArchive struct{}

// NewNoopArchive returns an archive that keeps nothing
func NewNoopArchive() Archive {
	return noopArchive{}
}

func (noopArchive) Record(context.Context, *domain.PaymentEvent) error { return nil }

func (noopArchive) Recent(context.Context, int) ([]*domain.PaymentEvent, error) {
	return []*domain.PaymentEvent{}, nil
}
