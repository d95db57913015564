package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/developlogy/sitebuilder/app/models"
)

// MongoAnalyticsRepository stores events in a capped collection, so MongoDB
// itself drops the oldest documents once the cap is reached. Deleting from a
// capped collection needs MongoDB 5.0 or newer.
type MongoAnalyticsRepository struct {
	client *mongo.Client
	col    *mongo.Collection
	now    Clock
}

const analyticsCollection = "analytics_events"

// namespaceExists is the server error code for creating a collection that
// is already there.
const namespaceExists = 48

// ConnectMongoAnalytics connects, ensures the capped collection and its
// site/time index, and returns the repository.
func ConnectMongoAnalytics(ctx context.Context, uri, database string, limit int, now Clock) (*MongoAnalyticsRepository, error) {
	if limit <= 0 {
		limit = models.MaxAnalyticsEvents
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo analytics: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo analytics: ping: %w", err)
	}

	db := client.Database(database)
	err = db.CreateCollection(connectCtx, analyticsCollection, options.CreateCollection().
		SetCapped(true).
		SetMaxDocuments(int64(limit)).
		SetSizeInBytes(int64(limit)*4096))
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Code == namespaceExists) {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo analytics: create collection: %w", err)
	}

	col := db.Collection(analyticsCollection)
	if _, err := col.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "siteId", Value: 1}, {Key: "timestamp", Value: 1}},
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo analytics: create index: %w", err)
	}

	return &MongoAnalyticsRepository{client: client, col: col, now: clockOr(now)}, nil
}

func (r *MongoAnalyticsRepository) Append(ctx context.Context, e *models.AnalyticsEvent) error {
	fillEvent(e, r.now)
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return models.Storage("append analytics event", err)
	}
	return nil
}

func (r *MongoAnalyticsRepository) List(ctx context.Context, siteID string, f EventFilter) ([]models.AnalyticsEvent, error) {
	filter := bson.M{"siteId": siteID}
	window := bson.M{}
	if !f.From.IsZero() {
		window["$gte"] = f.From.UTC()
	}
	if !f.To.IsZero() {
		window["$lte"] = f.To.UTC()
	}
	if len(window) > 0 {
		filter["timestamp"] = window
	}

	// Natural order of a capped collection is insertion order.
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}}))
	if err != nil {
		return nil, models.Storage("list analytics events", err)
	}
	defer cur.Close(ctx)

	out := []models.AnalyticsEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, models.Storage("decode analytics events", err)
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}

func (r *MongoAnalyticsRepository) DeleteBySite(ctx context.Context, siteID string) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"siteId": siteID}); err != nil {
		return models.Storage("purge analytics events", err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (r *MongoAnalyticsRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoAnalyticsRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
