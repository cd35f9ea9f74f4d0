package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	driveropts "go.mongodb.org/mongo-driver/mongo/options"
)

// noteDocument is one document of the notes collection, keyed by patient id.
type noteDocument struct {
	PatientID string    `bson:"_id"`
	Note      string    `bson:"note"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per patient.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore stores notes in collection of db.
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return &MongoStore{coll: db.Collection(collection)}
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, patientID string) (string, error) {
	var doc noteDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": patientID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("notes: find %s: %w", patientID, err)
	}
	return doc.Note, nil
}

// Put implements Store.
func (s *MongoStore) Put(ctx context.Context, patientID, text string) error {
	update := bson.M{"$set": bson.M{"note": text, "updated_at": time.Now().UTC()}}
	_, err := s.coll.UpdateByID(ctx, patientID, update, driveropts.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("notes: upsert %s: %w", patientID, err)
	}
	return nil
}

// All implements Store.
func (s *MongoStore) All(ctx context.Context) (map[string]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("notes: find all: %w", err)
	}
	defer cur.Close(ctx)

	var docs []noteDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("notes: decode: %w", err)
	}
	out := make(map[string]string, len(docs))
	for _, d := range docs {
		out[d.PatientID] = d.Note
	}
	return out, nil
}

// Close implements Store. The client is shared and closed by its owner.
func (s *MongoStore) Close() error { return nil }
