package service

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/testutil"
	"alcyxob/bmi-tracker/internal/validation"
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const instructorID = "instructor_1700000000000"

func newDietPlanFixture() (DietPlanService, *testutil.MockDietPlanRepository, *testutil.MockUserRepository) {
	users := testutil.NewMockUserRepository()
	plans := testutil.NewMockDietPlanRepository()
	return NewDietPlanService(plans, users, validation.New()), plans, users
}

func TestDietPlanService_CreateReplacesActivePlan(t *testing.T) {
	svc, plans, users := newDietPlanFixture()
	ctx := context.Background()
	u := users.AddUser("Ana", "ana@example.com")

	a, err := svc.Create(ctx, instructorID, u.ID, testutil.DietPlanInput("Plan A"))
	if err != nil {
		t.Fatalf("Create(A) error = %v", err)
	}
	b, err := svc.Create(ctx, instructorID, u.ID, testutil.DietPlanInput("Plan B"))
	if err != nil {
		t.Fatalf("Create(B) error = %v", err)
	}

	storedA, _ := plans.GetByID(ctx, a.ID)
	if storedA.IsActive {
		t.Error("plan A should be inactive after B was created")
	}
	if !b.IsActive {
		t.Error("plan B should be active")
	}
	if n := plans.ActiveCount(u.ID); n != 1 {
		t.Errorf("active plans = %d, want 1", n)
	}

	active, err := svc.GetActiveForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetActiveForUser() error = %v", err)
	}
	if active.ID != b.ID {
		t.Errorf("active plan = %s, want %s", active.ID.Hex(), b.ID.Hex())
	}
	if active.User == nil || active.User.Email != "ana@example.com" {
		t.Errorf("active plan user = %+v", active.User)
	}

	if b.User == nil || b.User.Name != "Ana" {
		t.Errorf("created plan should carry user summary, got %+v", b.User)
	}
	if b.InstructorID != instructorID {
		t.Errorf("InstructorID = %q", b.InstructorID)
	}
	if b.Tips == nil {
		t.Error("tips should default to an empty list")
	}
	if !b.CreatedAt.Equal(b.UpdatedAt) {
		t.Error("createdAt and updatedAt should match on creation")
	}
}

func TestDietPlanService_CreateErrors(t *testing.T) {
	svc, plans, users := newDietPlanFixture()
	ctx := context.Background()
	u := users.AddUser("Ana", "ana@example.com")

	tests := []struct {
		name       string
		instructor string
		userID     primitive.ObjectID
		input      func() domain.DietPlanInput
		wantErr    error
	}{
		{
			name:       "unknown user",
			instructor: instructorID,
			userID:     primitive.NewObjectID(),
			input:      func() domain.DietPlanInput { return testutil.DietPlanInput("x") },
			wantErr:    ErrUserNotFound,
		},
		{
			name:       "missing user id",
			instructor: instructorID,
			input:      func() domain.DietPlanInput { return testutil.DietPlanInput("x") },
			wantErr:    ErrValidation,
		},
		{
			name:       "blank title",
			instructor: instructorID,
			userID:     u.ID,
			input:      func() domain.DietPlanInput { return testutil.DietPlanInput("   ") },
			wantErr:    ErrValidation,
		},
		{
			name:       "no instructions",
			instructor: instructorID,
			userID:     u.ID,
			input: func() domain.DietPlanInput {
				in := testutil.DietPlanInput("x")
				in.Instructions = nil
				return in
			},
			wantErr: ErrValidation,
		},
		{
			name:       "unknown category",
			instructor: instructorID,
			userID:     u.ID,
			input: func() domain.DietPlanInput {
				in := testutil.DietPlanInput("x")
				in.BMICategory = "Skinny"
				return in
			},
			wantErr: ErrValidation,
		},
		{
			name:    "no instructor",
			userID:  u.ID,
			input:   func() domain.DietPlanInput { return testutil.DietPlanInput("x") },
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.instructor, tt.userID, tt.input())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if n := plans.ActiveCount(u.ID); n != 0 {
		t.Errorf("failed creates must not store plans, active = %d", n)
	}
}

func TestDietPlanService_ValidationErrorCarriesFields(t *testing.T) {
	svc, _, users := newDietPlanFixture()
	u := users.AddUser("Ana", "ana@example.com")

	in := testutil.DietPlanInput("x")
	in.Meals.Dinner.Calories = nil

	_, err := svc.Create(context.Background(), instructorID, u.ID, in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "meals.dinner.calories" {
		t.Errorf("fields = %+v", verr.Fields)
	}
}

func TestDietPlanService_GetActiveWithoutPlans(t *testing.T) {
	svc, _, users := newDietPlanFixture()
	u := users.AddUser("Ana", "ana@example.com")

	_, err := svc.GetActiveForUser(context.Background(), u.ID)
	if !errors.Is(err, ErrNoActivePlan) {
		t.Errorf("error = %v, want ErrNoActivePlan", err)
	}
}

func TestDietPlanService_DeactivateIsIdempotent(t *testing.T) {
	svc, plans, users := newDietPlanFixture()
	ctx := context.Background()
	u := users.AddUser("Ana", "ana@example.com")
	p, err := svc.Create(ctx, instructorID, u.ID, testutil.DietPlanInput("Plan"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Deactivate(ctx, p.ID); err != nil {
			t.Fatalf("Deactivate() #%d error = %v", i+1, err)
		}
	}
	stored, _ := plans.GetByID(ctx, p.ID)
	if stored.IsActive {
		t.Error("plan should be inactive")
	}
	if _, err := svc.GetActiveForUser(ctx, u.ID); !errors.Is(err, ErrNoActivePlan) {
		t.Errorf("GetActiveForUser() error = %v, want ErrNoActivePlan", err)
	}

	if err := svc.Deactivate(ctx, primitive.NewObjectID()); !errors.Is(err, ErrDietPlanNotFound) {
		t.Errorf("Deactivate(unknown) error = %v, want ErrDietPlanNotFound", err)
	}
}

func TestDietPlanService_Update(t *testing.T) {
	svc, plans, users := newDietPlanFixture()
	ctx := context.Background()
	u := users.AddUser("Ana", "ana@example.com")
	p, err := svc.Create(ctx, instructorID, u.ID, testutil.DietPlanInput("Plan"))
	if err != nil {
		t.Fatal(err)
	}

	title := "Renamed"
	kcal := 1500
	updated, err := svc.Update(ctx, p.ID, domain.DietPlanUpdate{
		Title:         &title,
		DailyCalories: &kcal,
		Meals: &domain.MealsUpdate{
			Lunch: &domain.Meal{Description: "soup", Calories: testutil.IntPtr(300)},
		},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "Renamed" || updated.DailyCalories != 1500 {
		t.Errorf("fields not applied: %+v", updated)
	}
	if updated.Meals.Lunch.Description != "soup" {
		t.Errorf("lunch = %+v", updated.Meals.Lunch)
	}
	if updated.Meals.Breakfast.Description != "oatmeal" {
		t.Error("meals not named in the update must be kept")
	}
	if updated.UserID != u.ID || updated.InstructorID != instructorID || !updated.IsActive {
		t.Errorf("ownership or activation changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Error("createdAt must not change")
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Error("updatedAt should advance")
	}
	if updated.User == nil {
		t.Error("updated plan should carry user summary")
	}
	if n := plans.ActiveCount(u.ID); n != 1 {
		t.Errorf("active plans = %d, want 1", n)
	}
}

func TestDietPlanService_EmptyUpdateKeepsPlan(t *testing.T) {
	svc, plans, users := newDietPlanFixture()
	ctx := context.Background()
	u := users.AddUser("Ana", "ana@example.com")
	p, err := svc.Create(ctx, instructorID, u.ID, testutil.DietPlanInput("Plan"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Update(ctx, p.ID, domain.DietPlanUpdate{})
	if err != nil {
		t.Fatalf("Update({}) error = %v", err)
	}
	if got.Title != "Plan" || got.User == nil {
		t.Errorf("Update({}) = %+v", got)
	}
	stored, _ := plans.GetByID(ctx, p.ID)
	if !stored.UpdatedAt.Equal(p.UpdatedAt) {
		t.Error("an empty update must not write the plan")
	}

	if _, err := svc.Update(ctx, primitive.NewObjectID(), domain.DietPlanUpdate{}); !errors.Is(err, ErrDietPlanNotFound) {
		t.Errorf("Update({}) on unknown plan error = %v, want ErrDietPlanNotFound", err)
	}
}

func TestDietPlanService_UpdateErrors(t *testing.T) {
	svc, _, users := newDietPlanFixture()
	ctx := context.Background()
	u := users.AddUser("Ana", "ana@example.com")
	p, err := svc.Create(ctx, instructorID, u.ID, testutil.DietPlanInput("Plan"))
	if err != nil {
		t.Fatal(err)
	}

	title := "x"
	if _, err := svc.Update(ctx, primitive.NewObjectID(), domain.DietPlanUpdate{Title: &title}); !errors.Is(err, ErrDietPlanNotFound) {
		t.Errorf("unknown plan: error = %v", err)
	}

	blank := "  "
	if _, err := svc.Update(ctx, p.ID, domain.DietPlanUpdate{Title: &blank}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title: error = %v", err)
	}

	if _, err := svc.Update(ctx, p.ID, domain.DietPlanUpdate{Instructions: []string{}}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty instructions: error = %v", err)
	}
}

func TestDietPlanService_Listings(t *testing.T) {
	svc, _, users := newDietPlanFixture()
	ctx := context.Background()
	ana := users.AddUser("Ana", "ana@example.com")
	ben := users.AddUser("Ben", "ben@example.com")

	first, _ := svc.Create(ctx, instructorID, ana.ID, testutil.DietPlanInput("Ana 1"))
	second, _ := svc.Create(ctx, instructorID, ana.ID, testutil.DietPlanInput("Ana 2"))
	_, _ = svc.Create(ctx, instructorID, ben.ID, testutil.DietPlanInput("Ben 1"))

	byUser, err := svc.ListByUser(ctx, ana.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 2 || byUser[0].ID != second.ID || byUser[1].ID != first.ID {
		t.Errorf("ListByUser should be newest first, got %d plans", len(byUser))
	}
	for _, p := range byUser {
		if p.User == nil || p.User.Name != "Ana" {
			t.Errorf("plan %s missing user summary", p.ID.Hex())
		}
	}

	mine, err := svc.ListAllForUser(ctx, ana.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[1].IsActive || !mine[0].IsActive {
		t.Errorf("ListAllForUser = %+v", mine)
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll returned %d plans, want 3", len(all))
	}
	if all[0].User == nil || all[0].User.Name != "Ben" {
		t.Errorf("ListAll should be newest first with users attached, got %+v", all[0].User)
	}

	empty, err := svc.ListByUser(ctx, primitive.NewObjectID())
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ListByUser(unknown) = %v, %v; want empty list", empty, err)
	}
}

func TestDietPlanService_ConcurrentCreates(t *testing.T) {
	svc, plans, users := newDietPlanFixture()
	ctx := context.Background()
	u := users.AddUser("Ana", "ana@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(ctx, instructorID, u.ID, testutil.DietPlanInput("Plan")); err != nil {
				t.Errorf("Create() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := plans.ActiveCount(u.ID); n != 1 {
		t.Errorf("active plans after concurrent creates = %d, want 1", n)
	}
	all, _ := svc.ListAllForUser(ctx, u.ID)
	if len(all) != 20 {
		t.Errorf("stored plans = %d, want 20", len(all))
	}
}
