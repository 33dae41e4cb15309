// Package mongo implements the cache on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/store"
)

const (
	database   = "soldash"
	collection = "cache"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c   *mgo.Client
	clk clock.Clock
}

// MongoEntry is the document stored per source, keyed by the source id.
type MongoEntry struct {
	Source    string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	FetchedAt time.Time `bson:"fetchedAt"`
}

// Entry converts a MongoEntry to store.Entry type.
func (e MongoEntry) Entry() store.Entry {
	return store.Entry{Payload: []byte(e.Payload), FetchedAt: e.FetchedAt}
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string, clk clock.Clock) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err = c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	if clk == nil {
		clk = clock.Real
	}

	return &Mongo{c: c, clk: clk}, nil
}

func (m *Mongo) col() *mgo.Collection {
	return m.c.Database(database).Collection(collection)
}

// Get implements store.Cache.
func (m *Mongo) Get(ctx context.Context, source string, fresh time.Duration) (store.Entry, error) {
	var me MongoEntry

	err := m.col().FindOne(ctx, bson.M{"_id": source}).Decode(&me)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return store.Entry{}, store.ErrDataNotFound
	}

	if err != nil {
		return store.Entry{}, fmt.Errorf("mongo get %s: %w", source, err)
	}

	e := me.Entry()
	if !e.Fresh(m.clk.Now(), fresh) {
		return store.Entry{}, store.ErrDataNotFound
	}

	return e, nil
}

// Put implements store.Cache, upserting the document of source.
func (m *Mongo) Put(ctx context.Context, source string, payload []byte) (store.Entry, error) {
	if source == "" {
		return store.Entry{}, store.ErrNoSource
	}

	// mongo keeps milliseconds only
	now := m.clk.Now().UTC().Truncate(time.Millisecond)

	_, err := m.col().UpdateOne(ctx,
		bson.D{{Key: "_id", Value: source}}, // filter
		bson.D{ // update
			{
				Key: "$set", Value: bson.D{
					{Key: "payload", Value: string(payload)},
					{Key: "fetchedAt", Value: now},
				},
			},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return store.Entry{}, fmt.Errorf("mongo put %s: %w", source, err)
	}

	return store.Entry{Payload: payload, FetchedAt: now}, nil
}

// Purge implements store.Cache.
func (m *Mongo) Purge(ctx context.Context) error {
	_, err := m.col().DeleteMany(ctx, bson.D{})

	return err
}

// Close will close a database connection. Must be called at termination time.
func (m *Mongo) Close() error {
	return m.c.Disconnect(context.Background())
}
