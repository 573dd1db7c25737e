package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BMICategory is the classification derived from a BMI value.
type BMICategory string

const (
	CategoryUnderweight BMICategory = "Underweight"
	CategoryNormal      BMICategory = "Normal weight"
	CategoryOverweight  BMICategory = "Overweight"
	CategoryObesity     BMICategory = "Obesity"
)

// Categories lists every category in ascending BMI order.
var Categories = []BMICategory{CategoryUnderweight, CategoryNormal, CategoryOverweight, CategoryObesity}

// BMIRecord is one measurement submitted by a user. Records are immutable.
type BMIRecord struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	WeightKg  float64             `bson:"weightKg" json:"weightKg"`
	HeightCm  float64             `bson:"heightCm" json:"heightCm"`
	BMI       float64             `bson:"bmi" json:"bmi"`
	Category  BMICategory         `bson:"category" json:"category"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}

// UserWithRecords is a user together with their most recent records.
type UserWithRecords struct {
	User
	BMIRecords []BMIRecord `json:"bmiRecords"`
}
