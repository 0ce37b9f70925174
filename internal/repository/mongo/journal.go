package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trackstream/internal/domain"
)

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type playbackEventDoc struct {
	TrackURI   string `bson:"trackUri"`
	TrackLogID string `bson:"trackLogId"`
	Kind       string `bson:"kind"`
	PositionMS int64  `bson:"positionMs"`
	OccurredAt int64  `bson:"occurredAt"`
}

// PlaybackJournal persists playback session boundaries (started/ended) to a
// Mongo collection, newest-first retrievable for the history endpoint.
type PlaybackJournal struct {
	collection *mongo.Collection
}

func NewPlaybackJournal(client *mongo.Client, dbName string) *PlaybackJournal {
	return &PlaybackJournal{collection: client.Database(dbName).Collection("playback_events")}
}

func (j *PlaybackJournal) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trackUri", Value: 1}, {Key: "occurredAt", Value: -1}}},
		{Keys: bson.D{{Key: "occurredAt", Value: -1}}},
	}
	_, err := j.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (j *PlaybackJournal) Record(ctx context.Context, event domain.PlaybackEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err := j.collection.InsertOne(ctx, playbackEventDoc{
		TrackURI:   event.TrackURI,
		TrackLogID: event.TrackLogID,
		Kind:       string(event.Kind),
		PositionMS: event.PositionMS,
		OccurredAt: occurredAt.UnixMilli(),
	})
	return err
}

func (j *PlaybackJournal) ListRecent(ctx context.Context, limit int) ([]domain.PlaybackEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "occurredAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := j.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []playbackEventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	events := make([]domain.PlaybackEvent, 0, len(docs))
	for _, doc := range docs {
		events = append(events, domain.PlaybackEvent{
			TrackURI:   doc.TrackURI,
			TrackLogID: doc.TrackLogID,
			Kind:       domain.PlaybackEventKind(doc.Kind),
			PositionMS: doc.PositionMS,
			OccurredAt: time.UnixMilli(doc.OccurredAt),
		})
	}
	return events, nil
}
