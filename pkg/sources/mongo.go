package sources

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goliatone/go-insight/components/dashboard"
)

// DefaultMongoLimit caps documents read when the settings carry no limit.
const DefaultMongoLimit = 1000

// MongoConnector reads documents from a collection. Nested documents are
// kept as maps; ObjectIDs and dates are flattened to strings.
type MongoConnector struct{}

func (MongoConnector) Fetch(ctx context.Context, conn dashboard.ConnectionConfig, query string) (dashboard.Dataset, error) {
	settings := conn.Mongo
	if settings == nil {
		return dashboard.Dataset{}, fmt.Errorf("%w: mongo settings missing", dashboard.ErrInvalidConnection)
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(settings.URI))
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: connect mongo: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	limit := settings.Limit
	if limit <= 0 {
		limit = DefaultMongoLimit
	}
	coll := client.Database(settings.Database).Collection(settings.Collection)
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetLimit(limit))
	if err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: find: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return dashboard.Dataset{}, fmt.Errorf("sources: read cursor: %w", err)
	}
	ds := documentsToDataset(docs)
	return withQuery(ctx, query, settings.Collection, ds)
}

func documentsToDataset(docs []bson.M) dashboard.Dataset {
	rows := make([]dashboard.Row, len(docs))
	seen := map[string]struct{}{}
	var fields []string
	for i, doc := range docs {
		row := make(dashboard.Row, len(doc))
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row[k] = bsonValue(doc[k])
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				fields = append(fields, k)
			}
		}
		rows[i] = row
	}
	return dashboard.NewDataset(fields, rows)
}

func bsonValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.DateOnly)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.Decimal128:
		return t.String()
	case bson.M:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = bsonValue(inner)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = bsonValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = bsonValue(inner)
		}
		return out
	}
	return v
}
