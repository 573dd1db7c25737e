package testutil

import "alcyxob/bmi-tracker/internal/domain"

func IntPtr(v int) *int { return &v }

// DietPlanInput returns a complete, valid plan input.
func DietPlanInput(title string) domain.DietPlanInput {
	meal := func(desc string, kcal int) domain.Meal {
		return domain.Meal{Description: desc, Calories: IntPtr(kcal), Foods: []string{desc}}
	}
	return domain.DietPlanInput{
		Title:       title,
		Description: "Balanced plan",
		BMICategory: domain.CategoryOverweight,
		TargetBMI:   24.5,
		Duration:    "8 weeks",
		Meals: &domain.Meals{
			Breakfast: meal("oatmeal", 350),
			Lunch:     meal("chicken salad", 550),
			Dinner:    meal("salmon", 600),
			Snacks:    meal("apple", 100),
		},
		DailyCalories: 1600,
		Instructions:  []string{"Drink 2l of water daily"},
	}
}
