package repository

import (
	"context"
	"errors"
	"fmt"

	"fouani/storesync/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoRepository stores one document per sku in the given collection.
func NewMongoRepository(client *mongo.Client, database, collection string) ProductRepository {
	return &mongoRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}
}

// ConnectMongo opens a client and checks the server answers.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func (r *mongoRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	}}
	for _, field := range IndexedFields {
		models = append(models, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}})
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	log.Info("✅ MongoDB indexes ready")
	return nil
}

func (r *mongoRepository) FindAll(ctx context.Context) ([]domain.ProductRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	var records []domain.ProductRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return records, nil
}

func (r *mongoRepository) InsertBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, nil
	}

	documents := make([]interface{}, 0, len(records))
	for _, rec := range records {
		documents = append(documents, document(rec))
	}

	// unordered so one duplicate key does not stop the remaining inserts
	_, err := r.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	return batchResult(records, err)
}

func (r *mongoRepository) ReplaceBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "sku", Value: rec.SKU}}).
			SetReplacement(document(rec)))
	}

	res, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	result, err := batchResult(records, err)
	if err != nil || res == nil {
		return result, err
	}

	if missing := int(int64(len(records)-len(result.Failures)) - res.MatchedCount); missing > 0 {
		log.Warnf("⚠️ %d replacements matched no document", missing)
		result.Written -= missing
	}
	return result, nil
}

func (r *mongoRepository) MarkDeleted(ctx context.Context, skus []string) (int, error) {
	if len(skus) == 0 {
		return 0, nil
	}

	filter := bson.M{"sku": bson.M{"$in": skus}, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true}}

	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete products: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (r *mongoRepository) Counts(ctx context.Context) (int, int, error) {
	active, err := r.collection.CountDocuments(ctx, bson.M{"deleted": false})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count active products: %w", err)
	}
	deleted, err := r.collection.CountDocuments(ctx, bson.M{"deleted": true})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count deleted products: %w", err)
	}
	return int(active), int(deleted), nil
}

func (r *mongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func document(rec domain.ProductRecord) domain.ProductRecord {
	rec.Images = nonNil(rec.Images)
	rec.TagsImages = nonNil(rec.TagsImages)
	rec.MainCategory = nonNil(rec.MainCategory)
	rec.SubCategory = nonNil(rec.SubCategory)
	rec.ProductType = nonNil(rec.ProductType)
	if rec.Specifications == nil {
		rec.Specifications = map[string]string{}
	}
	return rec
}

// batchResult splits a bulk error into per-record failures. Anything other
// than write errors is a store failure.
func batchResult(records []domain.ProductRecord, err error) (BatchResult, error) {
	if err == nil {
		return BatchResult{Written: len(records)}, nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil || len(bulkErr.WriteErrors) == 0 {
		return BatchResult{}, fmt.Errorf("failed to write products: %w", err)
	}

	result := BatchResult{}
	for _, we := range bulkErr.WriteErrors {
		if we.Index < 0 || we.Index >= len(records) {
			continue
		}
		var cause error = errors.New(we.Message)
		if isDuplicateKey(we.Code) {
			cause = fmt.Errorf("%w: %s", ErrDuplicateSKU, we.Message)
		}
		result.Failures = append(result.Failures, domain.WriteFailure{SKU: records[we.Index].SKU, Err: cause})
	}
	result.Written = len(records) - len(result.Failures)
	return result, nil
}

func isDuplicateKey(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}
