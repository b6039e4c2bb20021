package models_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

func TestNutritionVectorArithmetic(t *testing.T) {
	t.Parallel()

	a := models.NutritionVector{Calories: 116, Protein: 2.6, Fat: 0.3, Carbs: 25.6, Sodium: 2}
	b := models.NutritionVector{Calories: 195, Protein: 18.5, Fat: 11.2, Carbs: 7.8, Sodium: 850}

	sum := a.Add(b)
	if sum.Calories != 311 || sum.Sodium != 852 {
		t.Fatalf("unexpected sum: %+v", sum)
	}

	scaled := a.Scale(1.8)
	if scaled.Calories != 116*1.8 {
		t.Fatalf("unexpected scaled calories: %v", scaled.Calories)
	}

	rounded := models.NutritionVector{Calories: 208.7999999}.Round2()
	if rounded.Calories != 208.8 {
		t.Fatalf("unexpected rounding: %v", rounded.Calories)
	}
}

func TestNutritionVectorIsZero(t *testing.T) {
	t.Parallel()

	if !(models.NutritionVector{}).IsZero() {
		t.Fatal("zero vector not reported as zero")
	}
	if (models.NutritionVector{Sodium: 0.01}).IsZero() {
		t.Fatal("non-zero vector reported as zero")
	}
}

func TestDishRecordPreservesUnknownFields(t *testing.T) {
	t.Parallel()

	in := `{"dish_id":"dish_1","name":"fried rice","category":"staple","estimated_weight_g":180,"spice_level":"mild","vendor":{"stall":12}}`

	var dish models.DishRecord
	if err := json.Unmarshal([]byte(in), &dish); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dish.Name != "fried rice" || dish.EstimatedWeightG != 180 {
		t.Fatalf("known fields lost: %+v", dish)
	}
	if len(dish.Extra) != 2 {
		t.Fatalf("expected 2 extra fields, got %v", dish.Extra)
	}

	w := 200.0
	dish.FinalWeightG = &w

	out, err := json.Marshal(dish)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"spice_level":"mild"`, `"stall":12`, `"final_weight_g":200`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("output missing %s: %s", want, out)
		}
	}
}

func TestMealTotalAcceptsEitherName(t *testing.T) {
	t.Parallel()

	canonical := &models.Meal{MealNutritionTotal: &models.NutritionVector{Calories: 500}}
	if canonical.Total().Calories != 500 {
		t.Fatal("canonical total not returned")
	}

	legacy := &models.Meal{NutritionTotal: &models.NutritionVector{Calories: 300}}
	if legacy.Total().Calories != 300 {
		t.Fatal("legacy total not returned")
	}

	var empty models.Meal
	if empty.Total() != nil {
		t.Fatal("expected nil total for unaggregated meal")
	}
}
