package pipeline

import (
	"strings"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

// NutritionSource values recorded on each dish.
const (
	NutritionSourceLookup   = "lookup"
	NutritionSourceFallback = "fallback"
)

// Per-100g estimates used when the lookup collaborator is unavailable or
// returns garbage. Deliberately coarse: they keep the meal loggable, not
// nutritionally precise.
var fallbackTable = map[string]models.NutritionVector{
	"staple":    {Calories: 120, Protein: 3, Fat: 0.5, Carbs: 25, Sodium: 5},
	"meat":      {Calories: 180, Protein: 20, Fat: 10, Carbs: 2, Sodium: 300},
	"vegetable": {Calories: 30, Protein: 2, Fat: 0.3, Carbs: 5, Sodium: 50},
	"soup":      {Calories: 25, Protein: 1.5, Fat: 1, Carbs: 3, Sodium: 250},
	"other":     {Calories: 100, Protein: 5, Fat: 4, Carbs: 12, Sodium: 200},
}

var fallbackKeywords = map[string][]string{
	"staple":    {"rice", "noodle", "bread", "bun", "pasta", "pancake", "dumpling"},
	"meat":      {"chicken", "pork", "beef", "lamb", "fish", "shrimp", "duck", "meat"},
	"vegetable": {"vegetable", "greens", "salad", "cabbage", "broccoli", "bean", "mushroom", "sprout"},
	"soup":      {"soup", "broth", "congee", "porridge"},
}

// fallbackNutrition resolves the fallback vector for a dish: exact category
// match first, then name keywords, else the mixed-dish default.
func fallbackNutrition(category, name string) models.NutritionVector {
	if v, ok := fallbackTable[strings.ToLower(strings.TrimSpace(category))]; ok {
		return v
	}
	lower := strings.ToLower(name)
	for _, cat := range []string{"staple", "meat", "vegetable", "soup"} {
		for _, kw := range fallbackKeywords[cat] {
			if strings.Contains(lower, kw) {
				return fallbackTable[cat]
			}
		}
	}
	return fallbackTable["other"]
}
