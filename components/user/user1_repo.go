package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatey/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserFunc receives the latest copy of a watched user, or the error that
// stopped the watch.
type UserFunc func(user *DBUser, err error)

type I_UserRepo interface {
	ReplaceUser(ctx context.Context, user *DBUser) (*DBUser, error)
	FindUserById(ctx context.Context, uid string) (*DBUser, error)
	FindUsers(ctx context.Context) ([]*DBUser, error)
	AddFriendRequest(ctx context.Context, uid string, req FriendRequest) error
	RemoveFriendRequest(ctx context.Context, uid, requesterID string) error
	AddFriend(ctx context.Context, uid string, friend FriendRef, conversationID string) error
	SetProfileImage(ctx context.Context, uid, link string) error
	WatchUser(ctx context.Context, uid string, fn UserFunc) (database.Subscription, error)
}

type UserService struct {
	userCollection *mongo.Collection
}

func NewUserService(userCollection *mongo.Collection) I_UserRepo {
	return &UserService{userCollection}
}

func (me *UserService) GetCollection() *mongo.Collection {
	return me.userCollection
}

// ReplaceUser creates the document or overwrites it wholesale.
func (me *UserService) ReplaceUser(ctx context.Context, user *DBUser) (*DBUser, error) {
	user.Stamp(time.Now())
	user.Normalize()

	query := bson.M{"_id": user.UID}
	opt := options.Replace().SetUpsert(true)
	if _, err := me.userCollection.ReplaceOne(ctx, query, user, opt); err != nil {
		return nil, err
	}

	return me.FindUserById(ctx, user.UID)
}

func (me *UserService) FindUserById(ctx context.Context, uid string) (*DBUser, error) {
	query := bson.M{"_id": uid}

	var user *DBUser
	if err := me.userCollection.FindOne(ctx, query).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// FindUsers returns every user. There is no index to search on, callers filter.
func (me *UserService) FindUsers(ctx context.Context) ([]*DBUser, error) {
	cursor, err := me.userCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*DBUser
	for cursor.Next(ctx) {
		user := &DBUser{}
		if err := cursor.Decode(user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return []*DBUser{}, nil
	}

	return users, nil
}

func (me *UserService) AddFriendRequest(ctx context.Context, uid string, req FriendRequest) error {
	query := bson.M{"_id": uid, "friend_requests.id": bson.M{"$ne": req.ID}}
	update := bson.M{
		"$push":        bson.M{"friend_requests": req},
		"$currentDate": bson.M{"updated_at": true},
	}

	res, err := me.userCollection.UpdateOne(ctx, query, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		// either missing or the request is already pending
		return me.exists(ctx, uid)
	}

	return nil
}

func (me *UserService) RemoveFriendRequest(ctx context.Context, uid, requesterID string) error {
	query := bson.M{"_id": uid}
	update := bson.M{
		"$pull":        bson.M{"friend_requests": bson.M{"id": requesterID}},
		"$currentDate": bson.M{"updated_at": true},
	}

	res, err := me.userCollection.UpdateOne(ctx, query, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (me *UserService) AddFriend(ctx context.Context, uid string, friend FriendRef, conversationID string) error {
	query := bson.M{"_id": uid, "friend_list.id": bson.M{"$ne": friend.ID}}
	update := bson.M{
		"$push":        bson.M{"friend_list": friend},
		"$currentDate": bson.M{"updated_at": true},
	}

	if _, err := me.userCollection.UpdateOne(ctx, query, update); err != nil {
		return fmt.Errorf("add friend: %w", err)
	}

	query = bson.M{"_id": uid}
	update = bson.M{"$addToSet": bson.M{"conversations": conversationID}}
	res, err := me.userCollection.UpdateOne(ctx, query, update)
	if err != nil {
		return fmt.Errorf("add conversation: %w", err)
	}

	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (me *UserService) SetProfileImage(ctx context.Context, uid, link string) error {
	query := bson.M{"_id": uid}
	update := bson.M{
		"$set":         bson.M{"profile_img": link},
		"$currentDate": bson.M{"updated_at": true},
	}

	res, err := me.userCollection.UpdateOne(ctx, query, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

// WatchUser follows a single user document. fn gets the current document
// right away and again after every change to it.
func (me *UserService) WatchUser(ctx context.Context, uid string, fn UserFunc) (database.Subscription, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": uid}}},
	}

	reload := func(ctx context.Context) error {
		user, err := me.FindUserById(ctx, uid)
		if err != nil {
			return err
		}
		fn(user, nil)
		return nil
	}

	onErr := func(err error) {
		if errors.Is(err, ErrUserNotFound) {
			// deleted or not registered yet
			return
		}
		fn(nil, err)
	}

	return database.Follow(ctx, me.userCollection, pipeline, reload, onErr)
}

func (me *UserService) exists(ctx context.Context, uid string) error {
	count, err := me.userCollection.CountDocuments(ctx, bson.M{"_id": uid})
	if err != nil {
		return err
	}

	if count == 0 {
		return ErrUserNotFound
	}

	return nil
}
