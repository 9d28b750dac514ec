package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection         = "users"
	ConversationsCollection = "conversations"
	MessagesCollection      = "messages"
	ProfileImagesBucket     = "profileImages"
)

const connectTimeout = 10 * time.Second

// Connect opens a client against uri and pings the primary before returning it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mongoclient, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := mongoclient.Ping(cctx, readpref.Primary()); err != nil {
		_ = mongoclient.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return mongoclient, nil
}

// IsDuplicate reports a unique index violation (E11000).
func IsDuplicate(err error) bool {
	if er, ok := err.(mongo.WriteException); ok {
		for _, we := range er.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}
