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

// mongoDietPlanRepository implements repository.DietPlanRepository
type mongoDietPlanRepository struct {
	collection      *mongo.Collection
	useTransactions bool
}

// NewMongoDietPlanRepository creates a new DietPlan repository. With
// useTransactions set, CreateActive runs inside a multi-document
// transaction, which needs a replica set deployment.
func NewMongoDietPlanRepository(db *mongo.Database, useTransactions bool) repository.DietPlanRepository {
	return &mongoDietPlanRepository{
		collection:      db.Collection(dietPlanCollectionName),
		useTransactions: useTransactions,
	}
}

// CreateActive deactivates the user's active plans and inserts plan as active.
func (r *mongoDietPlanRepository) CreateActive(ctx context.Context, plan *domain.DietPlan) (primitive.ObjectID, error) {
	if plan.UserID == primitive.NilObjectID || plan.InstructorID == "" || plan.Title == "" {
		return primitive.NilObjectID, errors.New("plan requires userId, instructorId, and title")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	plan.IsActive = true
	if plan.Tips == nil {
		plan.Tips = []string{}
	}

	if !r.useTransactions {
		if err := r.deactivateForUser(ctx, plan.UserID, now); err != nil {
			return primitive.NilObjectID, err
		}
		return r.insert(ctx, plan)
	}

	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return primitive.NilObjectID, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := r.deactivateForUser(sc, plan.UserID, now); err != nil {
			return nil, err
		}
		return r.insert(sc, plan)
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return result.(primitive.ObjectID), nil
}

func (r *mongoDietPlanRepository) deactivateForUser(ctx context.Context, userID primitive.ObjectID, now time.Time) error {
	filter := bson.M{"userId": userID, "isActive": true}
	update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

func (r *mongoDietPlanRepository) insert(ctx context.Context, plan *domain.DietPlan) (primitive.ObjectID, error) {
	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrActivePlanConflict
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single diet plan by its ID.
func (r *mongoDietPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DietPlan, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetActiveByUserID retrieves the user's active plan.
func (r *mongoDietPlanRepository) GetActiveByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.DietPlan, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "isActive": true})
}

func (r *mongoDietPlanRepository) findOne(ctx context.Context, filter bson.M) (*domain.DietPlan, error) {
	var plan domain.DietPlan
	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByUserID retrieves all plans of a user, newest first.
func (r *mongoDietPlanRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.DietPlan, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// List retrieves every plan, newest first.
func (r *mongoDietPlanRepository) List(ctx context.Context) ([]domain.DietPlan, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoDietPlanRepository) find(ctx context.Context, filter bson.M) ([]domain.DietPlan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.DietPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// Update writes the content fields of plan. Ownership, activation and
// creation time are not part of the update document.
func (r *mongoDietPlanRepository) Update(ctx context.Context, plan *domain.DietPlan) error {
	if plan.ID == primitive.NilObjectID {
		return errors.New("diet plan ID is required for update")
	}

	plan.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"title":         plan.Title,
			"description":   plan.Description,
			"bmiCategory":   plan.BMICategory,
			"targetBMI":     plan.TargetBMI,
			"duration":      plan.Duration,
			"meals":         plan.Meals,
			"dailyCalories": plan.DailyCalories,
			"instructions":  plan.Instructions,
			"tips":          plan.Tips,
			"updatedAt":     plan.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": plan.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Deactivate clears the active flag. Deactivating an inactive plan is not an error.
func (r *mongoDietPlanRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureDietPlanIndexes creates necessary indexes. Call during startup.
func EnsureDietPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// at most one active plan per user
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetName("userId_active_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
