package docstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore is the production backend.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// ConnectMongo dials uri, pings the primary and returns a store bound to
// the named database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Printf("[docstore] connected to mongo database %q", database)
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the secondary indexes the equality queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]string{
		"subjects":  {"classLevel"},
		"chapters":  {"subjectId"},
		"topics":    {"chapterId"},
		"questions": {"chapterId"},
		"formulas":  {"chapterId"},
		"attempts":  {"userId"},
		"bookmarks": {"userId"},
	}
	for coll, fields := range indexes {
		for _, field := range fields {
			_, err := s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
				Keys: bson.D{{Key: field, Value: 1}},
			})
			if err != nil {
				return fmt.Errorf("create index %s.%s: %w", coll, field, err)
			}
		}
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter Filter, out interface{}) error {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M(filter))
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, bson.M(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func (s *MongoStore) Put(ctx context.Context, collection, id string, doc interface{}) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

// PutMany writes all docs inside one transaction. Deployments without
// replica sets cannot run transactions; there the ordered bulk write is the
// best available guarantee.
func (s *MongoStore) PutMany(ctx context.Context, collection string, ids []string, docs []interface{}) error {
	if len(ids) != len(docs) {
		return fmt.Errorf("put many %s: %d ids for %d docs", collection, len(ids), len(docs))
	}
	if len(docs) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, len(docs))
	for i, doc := range docs {
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": ids[i]}).
			SetReplacement(doc).
			SetUpsert(true)
	}
	coll := s.db.Collection(collection)

	session, err := s.client.StartSession()
	if err != nil {
		return s.bulkWrite(ctx, coll, writes)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return coll.BulkWrite(sc, writes, options.BulkWrite().SetOrdered(true))
	})
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == 20 { // IllegalOperation: standalone server
			return s.bulkWrite(ctx, coll, writes)
		}
		return fmt.Errorf("put many %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) bulkWrite(ctx context.Context, coll *mongo.Collection, writes []mongo.WriteModel) error {
	if _, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk write %s: %w", coll.Name(), err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
