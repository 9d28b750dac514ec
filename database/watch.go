package database

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrWatchClosed is reported when the backend ends a change stream on its own.
var ErrWatchClosed = errors.New("change stream closed by server")

// Subscription is a standing live query. Close stops delivery and may be
// called more than once. Close does not wait for a callback already running.
type Subscription interface {
	Close()
}

type watchHandle struct {
	once   sync.Once
	cancel func()
}

func (w *watchHandle) Close() {
	w.once.Do(w.cancel)
}

// NewSubscription wraps a cancel func so it runs at most once.
func NewSubscription(cancel func()) Subscription {
	return &watchHandle{cancel: cancel}
}

// Follow opens a change stream on coll and calls reload once right away and
// again after every change. The stream is opened before the first reload so
// nothing written in between is missed. Stream and reload errors go to onErr;
// after a stream error the follower stops.
func Follow(ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline, reload func(ctx context.Context) error, onErr func(error)) (Subscription, error) {
	wctx, cancel := context.WithCancel(ctx)

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := coll.Watch(wctx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		defer stream.Close(context.Background())

		if err := reload(wctx); err != nil && wctx.Err() == nil {
			onErr(err)
		}

		for stream.Next(wctx) {
			if err := reload(wctx); err != nil {
				if wctx.Err() != nil {
					return
				}
				onErr(err)
			}
		}

		if wctx.Err() != nil {
			return
		}

		if err := stream.Err(); err != nil {
			onErr(err)
			return
		}
		onErr(ErrWatchClosed)
	}()

	return NewSubscription(cancel), nil
}
