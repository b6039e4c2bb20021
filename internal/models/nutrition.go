package models

import "math"

// NutritionVector is the 5-field measurement unit used throughout the
// pipeline: kcal, grams, grams, grams, milligrams (all per context).
type NutritionVector struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Sodium   float64 `json:"sodium"`
}

func (v NutritionVector) Add(o NutritionVector) NutritionVector {
	return NutritionVector{
		Calories: v.Calories + o.Calories,
		Protein:  v.Protein + o.Protein,
		Fat:      v.Fat + o.Fat,
		Carbs:    v.Carbs + o.Carbs,
		Sodium:   v.Sodium + o.Sodium,
	}
}

// Scale multiplies every field by f. Used to convert per-100g values to a
// concrete portion weight.
func (v NutritionVector) Scale(f float64) NutritionVector {
	return NutritionVector{
		Calories: v.Calories * f,
		Protein:  v.Protein * f,
		Fat:      v.Fat * f,
		Carbs:    v.Carbs * f,
		Sodium:   v.Sodium * f,
	}
}

// Round2 rounds every field to 2 decimal places. Applied only at meal-total
// and daily-summary level, never per dish.
func (v NutritionVector) Round2() NutritionVector {
	return NutritionVector{
		Calories: round2(v.Calories),
		Protein:  round2(v.Protein),
		Fat:      round2(v.Fat),
		Carbs:    round2(v.Carbs),
		Sodium:   round2(v.Sodium),
	}
}

// IsZero reports whether all five fields are exactly zero.
func (v NutritionVector) IsZero() bool {
	return v.Calories == 0 && v.Protein == 0 && v.Fat == 0 && v.Carbs == 0 && v.Sodium == 0
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
