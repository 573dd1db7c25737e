package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meal is one of the four daily meals of a diet plan.
type Meal struct {
	Description string   `bson:"description" json:"description" validate:"required"`
	Calories    *int     `bson:"calories" json:"calories" validate:"required,gte=0"`
	Foods       []string `bson:"foods" json:"foods"`
}

// Meals groups the four meals of a plan.
type Meals struct {
	Breakfast Meal `bson:"breakfast" json:"breakfast"`
	Lunch     Meal `bson:"lunch" json:"lunch"`
	Dinner    Meal `bson:"dinner" json:"dinner"`
	Snacks    Meal `bson:"snacks" json:"snacks"`
}

// DietPlan is authored by an instructor for one user. At most one plan per
// user has IsActive set.
type DietPlan struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	InstructorID  string             `bson:"instructorId" json:"instructorId"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	BMICategory   BMICategory        `bson:"bmiCategory" json:"bmiCategory"`
	TargetBMI     float64            `bson:"targetBMI" json:"targetBMI"`
	Duration      string             `bson:"duration" json:"duration"`
	Meals         Meals              `bson:"meals" json:"meals"`
	DailyCalories int                `bson:"dailyCalories" json:"dailyCalories"`
	Instructions  []string           `bson:"instructions" json:"instructions"`
	Tips          []string           `bson:"tips" json:"tips"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`

	// User is attached for display and never persisted.
	User *UserSummary `bson:"-" json:"user,omitempty"`
}

// DietPlanInput carries the fields an instructor supplies when creating a plan.
type DietPlanInput struct {
	Title         string      `json:"title" validate:"required"`
	Description   string      `json:"description" validate:"required"`
	BMICategory   BMICategory `json:"bmiCategory" validate:"required,bmicategory"`
	TargetBMI     float64     `json:"targetBMI" validate:"required,gt=0"`
	Duration      string      `json:"duration" validate:"required"`
	Meals         *Meals      `json:"meals" validate:"required"`
	DailyCalories int         `json:"dailyCalories" validate:"required,gt=0"`
	Instructions  []string    `json:"instructions" validate:"required,min=1,dive,required"`
	Tips          []string    `json:"tips" validate:"omitempty,dive,required"`
}

// DietPlanUpdate is the whitelist of fields an instructor may change on an
// existing plan. Nil fields keep their stored value. Activation is not part
// of it: plans become active through creation and inactive through
// deactivation only.
type DietPlanUpdate struct {
	Title         *string      `json:"title" validate:"omitempty,min=1"`
	Description   *string      `json:"description" validate:"omitempty,min=1"`
	BMICategory   *BMICategory `json:"bmiCategory" validate:"omitempty,bmicategory"`
	TargetBMI     *float64     `json:"targetBMI" validate:"omitempty,gt=0"`
	Duration      *string      `json:"duration" validate:"omitempty,min=1"`
	Meals         *MealsUpdate `json:"meals" validate:"omitempty"`
	DailyCalories *int         `json:"dailyCalories" validate:"omitempty,gt=0"`
	Instructions  []string     `json:"instructions" validate:"omitnil,min=1,dive,required"`
	Tips          []string     `json:"tips" validate:"omitempty,dive,required"`
}

// MealsUpdate replaces individual meals; omitted meals are kept.
type MealsUpdate struct {
	Breakfast *Meal `json:"breakfast" validate:"omitempty"`
	Lunch     *Meal `json:"lunch" validate:"omitempty"`
	Dinner    *Meal `json:"dinner" validate:"omitempty"`
	Snacks    *Meal `json:"snacks" validate:"omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u *DietPlanUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.BMICategory == nil &&
		u.TargetBMI == nil && u.Duration == nil && u.Meals == nil &&
		u.DailyCalories == nil && u.Instructions == nil && u.Tips == nil
}

// Apply merges the provided fields into plan.
func (u *DietPlanUpdate) Apply(plan *DietPlan) {
	if u.Title != nil {
		plan.Title = *u.Title
	}
	if u.Description != nil {
		plan.Description = *u.Description
	}
	if u.BMICategory != nil {
		plan.BMICategory = *u.BMICategory
	}
	if u.TargetBMI != nil {
		plan.TargetBMI = *u.TargetBMI
	}
	if u.Duration != nil {
		plan.Duration = *u.Duration
	}
	if u.Meals != nil {
		if u.Meals.Breakfast != nil {
			plan.Meals.Breakfast = *u.Meals.Breakfast
		}
		if u.Meals.Lunch != nil {
			plan.Meals.Lunch = *u.Meals.Lunch
		}
		if u.Meals.Dinner != nil {
			plan.Meals.Dinner = *u.Meals.Dinner
		}
		if u.Meals.Snacks != nil {
			plan.Meals.Snacks = *u.Meals.Snacks
		}
	}
	if u.DailyCalories != nil {
		plan.DailyCalories = *u.DailyCalories
	}
	if u.Instructions != nil {
		plan.Instructions = u.Instructions
	}
	if u.Tips != nil {
		plan.Tips = u.Tips
	}
}
