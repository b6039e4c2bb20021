package models

import (
	"time"
)

// Meal is one eating event. Dishes are exclusively owned by the meal and are
// never mutated after the meal has been persisted.
type Meal struct {
	MealID    string       `json:"meal_id,omitempty"`
	Timestamp time.Time    `json:"timestamp,omitempty"`
	MealType  string       `json:"meal_type,omitempty"`
	Dishes    []DishRecord `json:"dishes"`

	// MealNutritionTotal is the canonical name for the meal total.
	// NutritionTotal is accepted on input for records written by older
	// versions; readers go through Total.
	MealNutritionTotal *NutritionVector `json:"meal_nutrition_total,omitempty"`
	NutritionTotal     *NutritionVector `json:"nutrition_total,omitempty"`

	Scores                 *MealScores             `json:"scores,omitempty"`
	Advice                 *MealAdvice             `json:"advice,omitempty"`
	NextMealRecommendation *NextMealRecommendation `json:"next_meal_recommendation,omitempty"`

	// ImagePath is an opaque passthrough token, carried but never read.
	ImagePath string `json:"image_path,omitempty"`
}

// Total returns the meal total under either accepted name, or nil when the
// meal has not been aggregated.
func (m *Meal) Total() *NutritionVector {
	if m.MealNutritionTotal != nil {
		return m.MealNutritionTotal
	}
	return m.NutritionTotal
}

type MealScores struct {
	CurrentMealScore  int `json:"current_meal_score"`
	WeekAdjustedScore int `json:"week_adjusted_score"`
}

type MealAdvice struct {
	CurrentMealAdvice  string `json:"current_meal_advice"`
	WeekAdjustedAdvice string `json:"week_adjusted_advice"`
}

type NextMealOption struct {
	Title             string   `json:"title"`
	RecommendedDishes []string `json:"recommended_dishes"`
	Reason            string   `json:"reason"`
}

type NextMealRecommendation struct {
	Options       []NextMealOption `json:"options"`
	OverallReason string           `json:"overall_reason"`
}
