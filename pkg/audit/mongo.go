package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultMongoCollection = "delivery_audit"

// MongoStorage persists audit events in a MongoDB collection.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates an audit store on a collection of the given
// database. An empty collection name selects "delivery_audit".
func NewMongoStorage(db *mongo.Database, collection string) *MongoStorage {
	if collection == "" {
		collection = defaultMongoCollection
	}
	return &MongoStorage{coll: db.Collection(collection)}
}

// mongoEvent mirrors Event with string identifiers so documents stay
// readable without a UUID codec.
type mongoEvent struct {
	ID               string    `bson:"_id"`
	NotificationID   string    `bson:"notification_id,omitempty"`
	UserID           string    `bson:"user_id"`
	NotificationType string    `bson:"notification_type"`
	Provider         string    `bson:"provider,omitempty"`
	Result           string    `bson:"result"`
	Reason           string    `bson:"reason,omitempty"`
	Error            string    `bson:"error,omitempty"`
	LatencyMS        int64     `bson:"latency_ms"`
	CreatedAt        time.Time `bson:"created_at"`
}

func (s *MongoStorage) Store(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if _, err := s.coll.InsertOne(ctx, toMongoEvent(event)); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *MongoStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]mongoEvent, 0, len(events))
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
		docs = append(docs, toMongoEvent(events[i]))
	}

	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *MongoStorage) Query(ctx context.Context, criteria Criteria) ([]Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if criteria.Limit > 0 {
		opts = opts.SetLimit(int64(criteria.Limit))
	}
	if criteria.Offset > 0 {
		opts = opts.SetSkip(int64(criteria.Offset))
	}

	cursor, err := s.coll.Find(ctx, mongoFilter(criteria), opts)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer cursor.Close(ctx)

	var docs []mongoEvent
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}

	out := make([]Event, 0, len(docs))
	for _, doc := range docs {
		event, err := fromMongoEvent(doc)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		out = append(out, event)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *MongoStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, mongoFilter(criteria))
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

func mongoFilter(c Criteria) bson.M {
	filter := bson.M{}
	if c.NotificationID != uuid.Nil {
		filter["notification_id"] = c.NotificationID.String()
	}
	if c.UserID != uuid.Nil {
		filter["user_id"] = c.UserID.String()
	}
	if c.Provider != "" {
		filter["provider"] = c.Provider
	}
	if c.NotificationType != "" {
		filter["notification_type"] = c.NotificationType
	}
	if c.Result != "" {
		filter["result"] = string(c.Result)
	}
	created := bson.M{}
	if !c.From.IsZero() {
		created["$gte"] = c.From
	}
	if !c.To.IsZero() {
		created["$lte"] = c.To
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}

func toMongoEvent(e Event) mongoEvent {
	doc := mongoEvent{
		ID:               e.ID.String(),
		UserID:           e.UserID.String(),
		NotificationType: e.NotificationType,
		Provider:         e.Provider,
		Result:           string(e.Result),
		Reason:           e.Reason,
		Error:            e.Error,
		LatencyMS:        e.LatencyMS,
		CreatedAt:        e.CreatedAt,
	}
	if e.NotificationID != uuid.Nil {
		doc.NotificationID = e.NotificationID.String()
	}
	return doc
}

func fromMongoEvent(doc mongoEvent) (Event, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return Event{}, err
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return Event{}, err
	}

	event := Event{
		ID:               id,
		UserID:           userID,
		NotificationType: doc.NotificationType,
		Provider:         doc.Provider,
		Result:           Result(doc.Result),
		Reason:           doc.Reason,
		Error:            doc.Error,
		LatencyMS:        doc.LatencyMS,
		CreatedAt:        doc.CreatedAt,
	}
	if doc.NotificationID != "" {
		notificationID, err := uuid.Parse(doc.NotificationID)
		if err != nil {
			return Event{}, err
		}
		event.NotificationID = notificationID
	}
	return event, nil
}
