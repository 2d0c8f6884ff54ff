package livesync

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ChannelFeed is an in-process Feed. Events sent before Subscribe are
// buffered up to the channel capacity.
type ChannelFeed[T any] struct {
	ch   chan Event[T]
	once sync.Once
}

// NewChannelFeed creates a feed with the given buffer size.
func NewChannelFeed[T any](buffer int) *ChannelFeed[T] {
	return &ChannelFeed[T]{ch: make(chan Event[T], buffer)}
}

// Send publishes ev, blocking while the buffer is full.
func (f *ChannelFeed[T]) Send(ev Event[T]) { f.ch <- ev }

// Close ends the feed.
func (f *ChannelFeed[T]) Close() { f.once.Do(func() { close(f.ch) }) }

func (f *ChannelFeed[T]) Subscribe(context.Context) (<-chan Event[T], error) {
	return f.ch, nil
}

// ErrChangeStreamsUnsupported is returned when the server cannot open a
// change stream (standalone mongod without a replica set).
var ErrChangeStreamsUnsupported = errors.New("change streams require a replica set")

// MongoFeed turns a collection change stream into events. Match filters on
// document fields (for example {"project_id": id}); delete events always pass
// since they carry only the document key.
type MongoFeed[T any] struct {
	Coll  *mongo.Collection
	Match bson.M
	Log   *zap.Logger
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

func (f MongoFeed[T]) pipeline() mongo.Pipeline {
	ops := bson.A{"insert", "update", "replace", "delete"}
	if len(f.Match) == 0 {
		return mongo.Pipeline{{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": ops}}}}}
	}
	doc := bson.M{}
	for k, v := range f.Match {
		doc["fullDocument."+k] = v
	}
	return mongo.Pipeline{{{Key: "$match", Value: bson.M{
		"operationType": bson.M{"$in": ops},
		"$or":           bson.A{bson.M{"operationType": "delete"}, doc},
	}}}}
}

func (f MongoFeed[T]) Subscribe(ctx context.Context) (<-chan Event[T], error) {
	log := f.Log
	if log == nil {
		log = zap.NewNop()
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	cs, err := f.Coll.Watch(ctx, f.pipeline(), opts)
	if err != nil {
		var ce mongo.CommandError
		if errors.As(err, &ce) && (ce.Code == 40573 || ce.Name == "Location40573") {
			return nil, ErrChangeStreamsUnsupported
		}
		return nil, err
	}

	out := make(chan Event[T])
	go func() {
		defer close(out)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var raw changeEvent
			if err := cs.Decode(&raw); err != nil {
				log.Warn("decode change event", zap.Error(err))
				continue
			}
			ev := Event[T]{ID: raw.DocumentKey.ID}
			switch raw.OperationType {
			case "insert":
				ev.Kind = Added
			case "update", "replace":
				ev.Kind = Changed
			case "delete":
				ev.Kind = Removed
			default:
				continue
			}
			if ev.Kind != Removed {
				if raw.FullDocument == nil {
					continue
				}
				if err := bson.Unmarshal(raw.FullDocument, &ev.Item); err != nil {
					log.Warn("decode changed document", zap.String("collection", f.Coll.Name()), zap.Error(err))
					continue
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			log.Warn("change stream ended", zap.String("collection", f.Coll.Name()), zap.Error(err))
		}
	}()
	return out, nil
}
