package message

import (
	"context"
	"time"

	"chatey/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SnapshotFunc receives the full ordered message list after every change, or
// the error that stopped the subscription.
type SnapshotFunc func(messages []*DBMessage, err error)

type I_MessageRepo interface {
	AddMessage(ctx context.Context, msg *CreateMessage) (*DBMessage, error)
	FindMessages(ctx context.Context, conversationID string) ([]*DBMessage, error)
	LatestMessage(ctx context.Context, conversationID string) (string, time.Time, bool, error)
	WatchMessages(ctx context.Context, conversationID string, fn SnapshotFunc) (database.Subscription, error)
}

type MessageRepository struct {
	msgCollection *mongo.Collection
}

func NewMessageRepository(msgCollection *mongo.Collection) *MessageRepository {
	return &MessageRepository{msgCollection}
}

func (me *MessageRepository) GetCollection() *mongo.Collection {
	return me.msgCollection
}

// EnsureIndexes creates the index the ordered per-conversation query runs on.
func (me *MessageRepository) EnsureIndexes(ctx context.Context) error {
	index := mongo.IndexModel{Keys: bson.D{
		{Key: "conversation_id", Value: 1},
		{Key: "timestamp", Value: 1},
		{Key: "_id", Value: 1},
	}}

	_, err := me.msgCollection.Indexes().CreateOne(ctx, index)
	return err
}

// AddMessage stores msg with a timestamp taken from the server clock.
func (me *MessageRepository) AddMessage(ctx context.Context, msg *CreateMessage) (*DBMessage, error) {
	id := primitive.NewObjectID()
	query := bson.M{"_id": id}
	update := bson.M{
		"$setOnInsert": bson.M{
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"content":         msg.Content,
		},
		"$currentDate": bson.M{"timestamp": true},
	}

	opt := options.Update().SetUpsert(true)
	if _, err := me.msgCollection.UpdateOne(ctx, query, update, opt); err != nil {
		return nil, err
	}

	var newMsg *DBMessage
	if err := me.msgCollection.FindOne(ctx, query).Decode(&newMsg); err != nil {
		return nil, err
	}

	return newMsg, nil
}

func (me *MessageRepository) FindMessages(ctx context.Context, conversationID string) ([]*DBMessage, error) {
	query := bson.M{"conversation_id": conversationID}
	opt := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := me.msgCollection.Find(ctx, query, opt)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*DBMessage
	for cursor.Next(ctx) {
		msg := &DBMessage{}
		if err := cursor.Decode(msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return []*DBMessage{}, nil
	}

	return messages, nil
}

func (me *MessageRepository) LatestMessage(ctx context.Context, conversationID string) (string, time.Time, bool, error) {
	query := bson.M{"conversation_id": conversationID}
	opt := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})

	var msg *DBMessage
	if err := me.msgCollection.FindOne(ctx, query, opt).Decode(&msg); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, err
	}

	return msg.Content, msg.Timestamp, true, nil
}

// WatchMessages re-reads the whole ordered list on every insert into the
// conversation and hands it to fn.
func (me *MessageRepository) WatchMessages(ctx context.Context, conversationID string, fn SnapshotFunc) (database.Subscription, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"fullDocument.conversation_id": conversationID}}},
	}

	reload := func(ctx context.Context) error {
		messages, err := me.FindMessages(ctx, conversationID)
		if err != nil {
			return err
		}
		fn(messages, nil)
		return nil
	}

	onErr := func(err error) {
		fn(nil, err)
	}

	return database.Follow(ctx, me.msgCollection, pipeline, reload, onErr)
}
