package mongo

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoBMIRecordRepository implements repository.BMIRecordRepository
type mongoBMIRecordRepository struct {
	collection *mongo.Collection
	users      *mongo.Collection
}

// NewMongoBMIRecordRepository creates a new BMI record repository backed by MongoDB.
func NewMongoBMIRecordRepository(db *mongo.Database) repository.BMIRecordRepository {
	return &mongoBMIRecordRepository{
		collection: db.Collection(bmiRecordCollectionName),
		users:      db.Collection(userCollectionName),
	}
}

// Create inserts a new record. CreatedAt is set here.
func (r *mongoBMIRecordRepository) Create(ctx context.Context, record *domain.BMIRecord) (primitive.ObjectID, error) {
	if record.WeightKg <= 0 || record.HeightCm <= 0 {
		return primitive.NilObjectID, errors.New("record requires positive weightKg and heightCm")
	}
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted record ID")
	}
	return insertedID, nil
}

// GetByUserID retrieves a user's records, newest first.
func (r *mongoBMIRecordRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.BMIRecord, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []domain.BMIRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records across all users.
func (r *mongoBMIRecordRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// CountUsersWithRecords joins users to their records and counts the users
// with at least one.
func (r *mongoBMIRecordRepository) CountUsersWithRecords(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: bmiRecordCollectionName},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "userId"},
			{Key: "as", Value: "bmiRecords"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "bmiRecords.0", Value: bson.D{{Key: "$exists", Value: true}}}}}},
		{{Key: "$count", Value: "activeUsers"}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var result []struct {
		ActiveUsers int64 `bson:"activeUsers"`
	}
	if err = cursor.All(ctx, &result); err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].ActiveUsers, nil
}

// AverageBMI returns the mean bmi across all records.
func (r *mongoBMIRecordRepository) AverageBMI(ctx context.Context) (float64, bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avgBMI", Value: bson.D{{Key: "$avg", Value: "$bmi"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, false, err
	}
	defer cursor.Close(ctx)

	var result []struct {
		AvgBMI *float64 `bson:"avgBMI"`
	}
	if err = cursor.All(ctx, &result); err != nil {
		return 0, false, err
	}
	if len(result) == 0 || result[0].AvgBMI == nil {
		return 0, false, nil
	}
	return *result[0].AvgBMI, true, nil
}

// EnsureBMIRecordIndexes creates necessary indexes for the records collection.
func EnsureBMIRecordIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// history queries: one user's records, newest first
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
