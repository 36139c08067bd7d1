package mongodb

import (
	"context"
	"time"

	"github.com/coinflux/realtime/internal/persistence"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type chatDocument struct {
	Id         bson.ObjectID `bson:"_id"`
	CreateTime time.Time     `bson:"createTime"`
	Room       string        `bson:"room"`
	SenderID   string        `bson:"senderId"`
	Body       string        `bson:"body"`
}

type PersistenceEngine struct {
	collection *mongo.Collection
}

func NewPersistenceEngine(client *mongo.Client) *PersistenceEngine {
	database := client.Database("realtime")
	collection := database.Collection("chat_messages")

	return &PersistenceEngine{
		collection,
	}
}

func (e *PersistenceEngine) Setup(ctx context.Context) error {
	ttlIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "createTime", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(30 * 24 * 60 * 60),
	}

	roomIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "room", Value: 1},
			{Key: "_id", Value: -1},
		},
	}

	_, err := e.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{ttlIndexModel, roomIndexModel})

	return err
}

func (e *PersistenceEngine) Save(ctx context.Context, request persistence.SaveRequest) (persistence.ChatRecord, error) {
	createTime := time.Now()

	result, err := e.collection.InsertOne(ctx, bson.D{
		{Key: "createTime", Value: createTime},
		{Key: "room", Value: request.Room},
		{Key: "senderId", Value: request.SenderID},
		{Key: "body", Value: request.Body},
	})
	if err != nil {
		return persistence.ChatRecord{}, err
	}

	return persistence.ChatRecord{
		Id:         result.InsertedID.(bson.ObjectID).Hex(),
		CreateTime: createTime,
		Room:       request.Room,
		SenderID:   request.SenderID,
		Body:       request.Body,
	}, nil
}

func (e *PersistenceEngine) List(ctx context.Context, room string, lastSeenId string) ([]persistence.ChatRecord, error) {
	filter := bson.M{
		"room": room,
	}

	if lastSeenId != "" {
		lastSeenObjectId, err := bson.ObjectIDFromHex(lastSeenId)
		if err != nil {
			return nil, err
		}

		filter["_id"] = bson.M{"$lt": lastSeenObjectId}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(101)

	result, err := e.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var documents []chatDocument
	err = result.All(ctx, &documents)
	if err != nil {
		return nil, err
	}

	records := make([]persistence.ChatRecord, len(documents))
	for i, d := range documents {
		records[i] = persistence.ChatRecord{
			Id:         d.Id.Hex(),
			CreateTime: d.CreateTime,
			Room:       d.Room,
			SenderID:   d.SenderID,
			Body:       d.Body,
		}
	}

	return records, nil
}
