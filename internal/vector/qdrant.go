// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pdiddy/paper-recommender/internal/paperid"
)

const hashField = "hash"

// upsertBatch caps the number of points sent per Upsert call.
const upsertBatch = 100

// Qdrant is a Store backed by a Qdrant server over gRPC.
type Qdrant struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	health      qdrant.QdrantClient
	collection  string
}

// NewQdrant connects to the Qdrant gRPC endpoint at host:port.
func NewQdrant(host string, port int, collection string) (*Qdrant, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s: %w", addr, err)
	}
	return &Qdrant{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		health:      qdrant.NewQdrantClient(conn),
		collection:  collection,
	}, nil
}

// EnsureCollection creates a cosine collection and a keyword index on the
// hash payload when the collection does not exist.
func (q *Qdrant) EnsureCollection(ctx context.Context, dim int) error {
	list, err := q.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collection, err)
	}

	fieldType := qdrant.FieldType_FieldTypeKeyword
	wait := true
	_, err = q.points.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collection,
		FieldName:      hashField,
		FieldType:      &fieldType,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("indexing %s payload: %w", hashField, err)
	}
	return nil
}

// Upsert writes points in batches. Point IDs are derived from the hash so
// re-indexing a paper replaces its point.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	wait := true
	for start := 0; start < len(points); start += upsertBatch {
		end := min(start+upsertBatch, len(points))
		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id: &qdrant.PointId{
					PointIdOptions: &qdrant.PointId_Uuid{Uuid: paperid.PointID(p.Hash)},
				},
				Vectors: &qdrant.Vectors{
					VectorsOptions: &qdrant.Vectors_Vector{
						Vector: &qdrant.Vector{Data: p.Vector},
					},
				},
				Payload: map[string]*qdrant.Value{
					hashField: {Kind: &qdrant.Value_StringValue{StringValue: p.Hash}},
				},
			})
		}
		if _, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           &wait,
			Points:         batch,
		}); err != nil {
			return fmt.Errorf("upserting points: %w", err)
		}
	}
	return nil
}

// Search runs a filtered similarity search. Excluded hashes are removed with
// a must_not keyword match so offset and limit apply to eligible points only.
func (q *Qdrant) Search(ctx context.Context, query Query) ([]Match, error) {
	req := &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         query.Vector,
		Limit:          uint64(query.Limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Include{
				Include: &qdrant.PayloadIncludeSelector{Fields: []string{hashField}},
			},
		},
	}
	if query.Offset > 0 {
		offset := uint64(query.Offset)
		req.Offset = &offset
	}
	if len(query.Exclude) > 0 {
		req.Filter = &qdrant.Filter{
			MustNot: []*qdrant.Condition{{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: hashField,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keywords{
								Keywords: &qdrant.RepeatedStrings{Strings: query.Exclude},
							},
						},
					},
				},
			}},
		}
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching qdrant: %w", err)
	}

	out := make([]Match, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		hash := point.GetPayload()[hashField].GetStringValue()
		if hash == "" {
			continue
		}
		out = append(out, Match{Hash: hash, Score: float64(point.GetScore())})
	}
	return out, nil
}

// Has looks points up by their hash-derived IDs. A collection that was
// dropped or recreated reports nothing as present.
func (q *Qdrant) Has(ctx context.Context, hashes []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for start := 0; start < len(hashes); start += upsertBatch {
		end := min(start+upsertBatch, len(hashes))
		ids := make([]*qdrant.PointId, 0, end-start)
		for _, h := range hashes[start:end] {
			ids = append(ids, &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: paperid.PointID(h)},
			})
		}
		resp, err := q.points.Get(ctx, &qdrant.GetPoints{
			CollectionName: q.collection,
			Ids:            ids,
			WithPayload: &qdrant.WithPayloadSelector{
				SelectorOptions: &qdrant.WithPayloadSelector_Include{
					Include: &qdrant.PayloadIncludeSelector{Fields: []string{hashField}},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("looking up points: %w", err)
		}
		for _, point := range resp.GetResult() {
			if hash := point.GetPayload()[hashField].GetStringValue(); hash != "" {
				out[hash] = true
			}
		}
	}
	return out, nil
}

// Ping calls the Qdrant health check.
func (q *Qdrant) Ping(ctx context.Context) error {
	if _, err := q.health.HealthCheck(ctx, &qdrant.HealthCheckRequest{}); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (q *Qdrant) Close() error {
	return q.conn.Close()
}
