package repository

import (
	"alcyxob/bmi-tracker/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound           = RepositoryError("not found")
	ErrDuplicateEmail     = RepositoryError("email already exists")
	// ErrActivePlanConflict means a concurrent activation for the same user won.
	ErrActivePlanConflict = RepositoryError("another active diet plan exists")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// BMIRecordRepository stores measurements. Records are append-only.
type BMIRecordRepository interface {
	Create(ctx context.Context, record *domain.BMIRecord) (primitive.ObjectID, error)
	// GetByUserID returns the user's records newest first. limit <= 0 means all.
	GetByUserID(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.BMIRecord, error)
	Count(ctx context.Context) (int64, error)
	// CountUsersWithRecords counts registered users owning at least one record.
	CountUsersWithRecords(ctx context.Context) (int64, error)
	// AverageBMI returns the mean bmi over all records; ok is false when
	// there are none.
	AverageBMI(ctx context.Context) (avg float64, ok bool, err error)
}

// DietPlanRepository defines the interface for interacting with diet plan data.
type DietPlanRepository interface {
	// CreateActive deactivates every active plan of plan.UserID and inserts
	// plan as the user's only active plan.
	CreateActive(ctx context.Context, plan *domain.DietPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.DietPlan, error)
	GetActiveByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.DietPlan, error)
	// GetByUserID and List return plans newest first.
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.DietPlan, error)
	List(ctx context.Context) ([]domain.DietPlan, error)
	// Update overwrites the editable content fields of plan. It never
	// touches isActive, userId, instructorId or createdAt.
	Update(ctx context.Context, plan *domain.DietPlan) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}
