package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// I_TxRunner runs a group of writes. Atomic reports whether a failure inside
// fn leaves no partial state behind.
type I_TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}

type MongoTx struct {
	client *mongo.Client
}

// NewMongoTx needs a replica set or sharded cluster; standalone servers reject transactions.
func NewMongoTx(client *mongo.Client) I_TxRunner {
	return &MongoTx{client}
}

func (me *MongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := me.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (me *MongoTx) Atomic() bool {
	return true
}

// Sequential runs fn directly. A failure halfway through is not rolled back.
type Sequential struct{}

func (Sequential) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (Sequential) Atomic() bool {
	return false
}
