package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

// Aggregation contract violations. Unlike the earlier stages these are
// fatal: an absent weight or nutrition vector here is an upstream pipeline
// bug and must not be papered over before persistence.
var (
	ErrMissingWeight    = errors.New("dish is missing final_weight_g")
	ErrMissingNutrition = errors.New("dish is missing nutrition_per_100g")
	ErrZeroMealTotal    = errors.New("meal nutrition total is all zero")
)

// AggregateResult carries the aggregated dish list and the meal total, with
// the image token still passed through.
type AggregateResult struct {
	Dishes             []models.DishRecord    `json:"dishes"`
	MealNutritionTotal models.NutritionVector `json:"meal_nutrition_total"`
	ImagePath          string                 `json:"image_path,omitempty"`
}

// Aggregate computes each dish's total nutrition from its per-100g vector
// and confirmed weight, and sums the meal total. Per-dish totals stay
// unrounded; rounding is applied once, at the meal level.
func Aggregate(det *Detection) (*AggregateResult, error) {
	var mealTotal models.NutritionVector

	for i := range det.Dishes {
		d := &det.Dishes[i]
		if d.FinalWeightG == nil {
			return nil, fmt.Errorf("dish %q: %w", d.Name, ErrMissingWeight)
		}
		if d.NutritionPer100g == nil {
			return nil, fmt.Errorf("dish %q: %w", d.Name, ErrMissingNutrition)
		}

		total := d.NutritionPer100g.Scale(*d.FinalWeightG / 100)
		d.NutritionTotal = &total
		mealTotal = mealTotal.Add(total)
	}

	mealTotal = mealTotal.Round2()

	// An all-zero total across five nutrients signals a systemic unit or
	// field mismatch, not a legitimately empty meal.
	if len(det.Dishes) > 0 && mealTotal.IsZero() {
		return nil, ErrZeroMealTotal
	}

	return &AggregateResult{
		Dishes:             det.Dishes,
		MealNutritionTotal: mealTotal,
		ImagePath:          det.ImagePath,
	}, nil
}

// AssembleMeal folds an aggregation result and the classified slot label
// into one meal record. MealID is left empty; the store assigns it within
// the day sequence at append time.
func AssembleMeal(agg *AggregateResult, mealType string, at time.Time) *models.Meal {
	total := agg.MealNutritionTotal
	return &models.Meal{
		Timestamp:          at,
		MealType:           mealType,
		Dishes:             agg.Dishes,
		MealNutritionTotal: &total,
		ImagePath:          agg.ImagePath,
	}
}
