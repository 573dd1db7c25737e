package service

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/metrics"
	"alcyxob/bmi-tracker/internal/repository"
	"alcyxob/bmi-tracker/internal/validation"
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DietPlanService manages the diet plan lifecycle. Each user has at most one
// active plan; creating a plan deactivates the previous one.
type DietPlanService interface {
	Create(ctx context.Context, instructorID string, userID primitive.ObjectID, in domain.DietPlanInput) (*domain.DietPlan, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.DietPlan, error)
	GetActiveForUser(ctx context.Context, userID primitive.ObjectID) (*domain.DietPlan, error)
	ListAllForUser(ctx context.Context, userID primitive.ObjectID) ([]domain.DietPlan, error)
	Update(ctx context.Context, planID primitive.ObjectID, upd domain.DietPlanUpdate) (*domain.DietPlan, error)
	Deactivate(ctx context.Context, planID primitive.ObjectID) error
	ListAll(ctx context.Context) ([]domain.DietPlan, error)
}

type dietPlanService struct {
	planRepo  repository.DietPlanRepository
	userRepo  repository.UserRepository
	validator *validation.Validator
}

func NewDietPlanService(planRepo repository.DietPlanRepository, userRepo repository.UserRepository, v *validation.Validator) DietPlanService {
	return &dietPlanService{planRepo: planRepo, userRepo: userRepo, validator: v}
}

// Create validates the input, checks the user exists and stores the plan as
// the user's only active plan.
func (s *dietPlanService) Create(ctx context.Context, instructorID string, userID primitive.ObjectID, in domain.DietPlanInput) (*domain.DietPlan, error) {
	if instructorID == "" {
		return nil, ErrUnauthorized
	}
	if userID.IsZero() {
		return nil, invalid("Missing required fields", validation.FieldError{Field: "userId", Tag: "required", Message: "userId is required"})
	}
	trimInput(&in)
	if errs := s.validator.Struct(in); errs != nil {
		return nil, invalid("Missing required fields", errs...)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	plan := &domain.DietPlan{
		UserID:        userID,
		InstructorID:  instructorID,
		Title:         in.Title,
		Description:   in.Description,
		BMICategory:   in.BMICategory,
		TargetBMI:     in.TargetBMI,
		Duration:      in.Duration,
		Meals:         *in.Meals,
		DailyCalories: in.DailyCalories,
		Instructions:  in.Instructions,
		Tips:          in.Tips,
	}
	if plan.Tips == nil {
		plan.Tips = []string{}
	}

	id, err := s.planRepo.CreateActive(ctx, plan)
	if err != nil {
		if errors.Is(err, repository.ErrActivePlanConflict) {
			return nil, ErrActivePlanConflict
		}
		return nil, err
	}
	plan.ID = id
	plan.User = user.Summary()

	metrics.RecordDietPlanCreated()
	slog.Info("diet plan created", "plan_id", id.Hex(), "user_id", userID.Hex(), "instructor_id", instructorID)
	return plan, nil
}

func (s *dietPlanService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.DietPlan, error) {
	plans, err := s.planRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.attachUsers(ctx, plans)
}

// GetActiveForUser returns ErrNoActivePlan when the user has none.
func (s *dietPlanService) GetActiveForUser(ctx context.Context, userID primitive.ObjectID) (*domain.DietPlan, error) {
	if userID.IsZero() {
		return nil, ErrUnauthorized
	}
	plan, err := s.planRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActivePlan
		}
		return nil, err
	}
	withUser, err := s.attachUsers(ctx, []domain.DietPlan{*plan})
	if err != nil {
		return nil, err
	}
	return &withUser[0], nil
}

func (s *dietPlanService) ListAllForUser(ctx context.Context, userID primitive.ObjectID) ([]domain.DietPlan, error) {
	if userID.IsZero() {
		return nil, ErrUnauthorized
	}
	return s.planRepo.GetByUserID(ctx, userID)
}

// Update applies the whitelisted fields of upd. Ownership and activation
// are never touched.
func (s *dietPlanService) Update(ctx context.Context, planID primitive.ObjectID, upd domain.DietPlanUpdate) (*domain.DietPlan, error) {
	trimUpdate(&upd)
	if errs := s.validator.Struct(upd); errs != nil {
		return nil, invalid("Invalid diet plan fields", errs...)
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDietPlanNotFound
		}
		return nil, err
	}

	// nothing to change: return the stored plan without touching updatedAt
	if !upd.IsEmpty() {
		upd.Apply(plan)
		if plan.Tips == nil {
			plan.Tips = []string{}
		}
		if err = s.planRepo.Update(ctx, plan); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrDietPlanNotFound
			}
			return nil, err
		}
	}

	withUser, err := s.attachUsers(ctx, []domain.DietPlan{*plan})
	if err != nil {
		return nil, err
	}
	return &withUser[0], nil
}

// Deactivate is idempotent.
func (s *dietPlanService) Deactivate(ctx context.Context, planID primitive.ObjectID) error {
	if err := s.planRepo.Deactivate(ctx, planID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDietPlanNotFound
		}
		return err
	}
	metrics.RecordDietPlanDeactivated()
	return nil
}

func (s *dietPlanService) ListAll(ctx context.Context) ([]domain.DietPlan, error) {
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.attachUsers(ctx, plans)
}

// attachUsers sets plan.User for every plan whose owner still exists.
func (s *dietPlanService) attachUsers(ctx context.Context, plans []domain.DietPlan) ([]domain.DietPlan, error) {
	if len(plans) == 0 {
		return plans, nil
	}
	seen := make(map[primitive.ObjectID]struct{}, len(plans))
	ids := make([]primitive.ObjectID, 0, len(plans))
	for _, p := range plans {
		if _, ok := seen[p.UserID]; !ok {
			seen[p.UserID] = struct{}{}
			ids = append(ids, p.UserID)
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*domain.UserSummary, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Summary()
	}
	for i := range plans {
		plans[i].User = byID[plans[i].UserID]
	}
	return plans, nil
}

func trimInput(in *domain.DietPlanInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Duration = strings.TrimSpace(in.Duration)
}

func trimUpdate(u *domain.DietPlanUpdate) {
	for _, p := range []*string{u.Title, u.Description, u.Duration} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}
