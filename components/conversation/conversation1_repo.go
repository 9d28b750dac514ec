package conversation

import (
	"context"
	"time"

	"chatey/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type I_ConversationRepo interface {
	CreateConversation(ctx context.Context, id string, participants []string) (*DBConversation, error)
	FindConversationById(ctx context.Context, id string) (*DBConversation, error)
	FindConversations(ctx context.Context) ([]*DBConversation, error)
	UpdateLastMessage(ctx context.Context, id, content string) error
}

// I_LatestMessage looks up the newest message of a conversation; found is
// false for a conversation without messages.
type I_LatestMessage interface {
	LatestMessage(ctx context.Context, conversationID string) (content string, at time.Time, found bool, err error)
}

type ConversationRepository struct {
	conversationCollection *mongo.Collection
}

func NewConversationRepository(conversationCollection *mongo.Collection) I_ConversationRepo {
	return &ConversationRepository{conversationCollection}
}

// CreateConversation writes the conversation with an empty preview. Writing
// it again resets the preview, the same as the first write.
func (me *ConversationRepository) CreateConversation(ctx context.Context, id string, participants []string) (*DBConversation, error) {
	query := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"participants": participants,
			"last_message": "",
		},
		"$currentDate": bson.M{"last_updated": true},
	}

	opt := options.Update().SetUpsert(true)
	_, err := me.conversationCollection.UpdateOne(ctx, query, update, opt)
	if database.IsDuplicate(err) {
		// both participants upserted at once; the document exists now
		_, err = me.conversationCollection.UpdateOne(ctx, query, update, opt)
	}
	if err != nil {
		return nil, err
	}

	return me.FindConversationById(ctx, id)
}

func (me *ConversationRepository) FindConversationById(ctx context.Context, id string) (*DBConversation, error) {
	query := bson.M{"_id": id}

	var conversation *DBConversation
	if err := me.conversationCollection.FindOne(ctx, query).Decode(&conversation); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	return conversation, nil
}

func (me *ConversationRepository) FindConversations(ctx context.Context) ([]*DBConversation, error) {
	cursor, err := me.conversationCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*DBConversation
	for cursor.Next(ctx) {
		c := &DBConversation{}
		if err := cursor.Decode(c); err != nil {
			return nil, err
		}
		results = append(results, c)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return []*DBConversation{}, nil
	}

	return results, nil
}

func (me *ConversationRepository) UpdateLastMessage(ctx context.Context, id, content string) error {
	query := bson.M{"_id": id}
	update := bson.M{
		"$set":         bson.M{"last_message": content},
		"$currentDate": bson.M{"last_updated": true},
	}

	res, err := me.conversationCollection.UpdateOne(ctx, query, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return ErrConversationNotFound
	}

	return nil
}
