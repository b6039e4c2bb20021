package pipeline

import (
	"strings"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

// ScoreByRule grades a meal total against coarse single-meal targets and
// returns a 0-100 score with advice. It is the deterministic stand-in used
// whenever the scoring collaborator is unavailable.
func ScoreByRule(n models.NutritionVector) (int, string) {
	score := 100
	var advice []string

	switch {
	case n.Calories < 400:
		score -= 10
		advice = append(advice, "calories on the low side")
	case n.Calories > 900:
		score -= 15
		advice = append(advice, "calories on the high side")
	}

	switch {
	case n.Protein < 15:
		score -= 15
		advice = append(advice, "not enough protein")
	case n.Protein > 50:
		score -= 5
		advice = append(advice, "more protein than needed")
	default:
		advice = append(advice, "adequate protein")
	}

	if n.Fat > 35 {
		score -= 15
		advice = append(advice, "fat content is high")
	}

	switch {
	case n.Carbs < 30:
		score -= 10
		advice = append(advice, "not enough carbohydrates")
	case n.Carbs > 120:
		score -= 10
		advice = append(advice, "more carbohydrates than needed")
	}

	switch {
	case n.Sodium > 1200:
		score -= 15
		advice = append(advice, "sodium is high, cut down on salt")
	case n.Sodium > 800:
		score -= 5
		advice = append(advice, "sodium slightly high")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if len(advice) == 0 {
		return score, "well balanced meal"
	}
	return score, strings.Join(advice, "; ")
}
