package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

const payloadKeyPhotoID = "photo_id"

// QdrantIndex implements VectorIndex against a Qdrant collection over gRPC.
// Photo IDs are carried in the point payload; point IDs are deterministic
// UUIDs derived from the photo ID so upserts replace in place.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	dimensions  int
}

// NewQdrantIndex connects to addr and ensures the collection exists with
// cosine distance and the given dimension.
func NewQdrantIndex(addr, collection string, dimensions int) (*QdrantIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}
	q := &QdrantIndex{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
		dimensions:  dimensions,
	}
	if err := q.ensureCollection(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return q, nil
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	_, err := q.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: q.collection,
	})
	if err == nil {
		return nil
	}
	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(q.dimensions),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// pointID derives a stable UUID point ID from a photo ID.
func pointID(id string) *qdrant.PointId {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte("smartlens:"+id))
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: u.String()}}
}

// Upsert writes points for the given photo IDs; existing points are replaced.
func (q *QdrantIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	points := make([]*qdrant.PointStruct, 0, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != q.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), q.dimensions)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(id),
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vectors[i]}}},
			Payload: map[string]*qdrant.Value{
				payloadKeyPhotoID: {Kind: &qdrant.Value_StringValue{StringValue: id}},
			},
		})
	}
	if len(points) == 0 {
		return nil
	}
	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points to Qdrant: %w", err)
	}
	return nil
}

// Search returns the top-k points by cosine similarity.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != q.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), q.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("Qdrant search failed: %w", err)
	}
	out := make([]*VectorResult, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		id := hit.GetPayload()[payloadKeyPhotoID].GetStringValue()
		if id == "" {
			continue
		}
		out = append(out, &VectorResult{ID: id, Score: float64(hit.GetScore())})
	}
	return out, nil
}

// Remove deletes points by photo ID.
func (q *QdrantIndex) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points from Qdrant: %w", err)
	}
	return nil
}

// Clear drops and recreates the collection.
func (q *QdrantIndex) Clear(ctx context.Context) error {
	_, err := q.collections.Delete(ctx, &qdrant.DeleteCollection{
		CollectionName: q.collection,
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return q.ensureCollection(ctx)
}

// Size returns the exact point count, or 0 when the server is unreachable.
func (q *QdrantIndex) Size() int {
	resp, err := q.points.Count(context.Background(), &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0
	}
	return int(resp.GetResult().GetCount())
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}
