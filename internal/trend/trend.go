// Package trend computes rolling-window statistics over recent day records
// for the scoring and recommendation collaborators.
package trend

import (
	"math"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

// Report summarizes a recent-history window. WeeklyTrend maps
// "<nutrient>_avg" to the mean per meal across the window; the map is
// omitted entirely when the window contains no meals.
type Report struct {
	RecentDays   []models.Day       `json:"recent_days"`
	TotalMeals   int                `json:"total_meals"`
	WeeklyTrend  map[string]float64 `json:"weekly_trend,omitempty"`
	DaysIncluded int                `json:"days_included"`
}

// Analyze folds every meal in the window into per-nutrient totals and
// derives the per-meal averages.
func Analyze(window []models.Day, daysIncluded int) *Report {
	report := &Report{
		RecentDays:   window,
		DaysIncluded: daysIncluded,
	}

	var total models.NutritionVector
	for _, day := range window {
		for i := range day.Meals {
			report.TotalMeals++
			if t := day.Meals[i].Total(); t != nil {
				total = total.Add(*t)
			}
		}
	}

	if report.TotalMeals == 0 {
		return report
	}

	n := float64(report.TotalMeals)
	report.WeeklyTrend = map[string]float64{
		"calories_avg": round2(total.Calories / n),
		"protein_avg":  round2(total.Protein / n),
		"fat_avg":      round2(total.Fat / n),
		"carbs_avg":    round2(total.Carbs / n),
		"sodium_avg":   round2(total.Sodium / n),
	}
	return report
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
