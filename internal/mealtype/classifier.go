// Package mealtype decides which meal slot a timestamp belongs to.
//
// With fewer than three distinct days of history the decision comes from a
// fixed hour-of-day rule table (cold start). With enough history it is
// delegated to a pattern-inference collaborator, whose answer is validated
// against a closed label set; any failure on that path falls back to the
// rule table. Classify always returns a usable label.
package mealtype

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

// Meal slot labels.
const (
	Breakfast      = "breakfast"
	Lunch          = "lunch"
	Dinner         = "dinner"
	AfternoonTea   = "afternoon-tea"
	Brunch         = "brunch"
	Snack          = "snack"
	MorningSnack   = "morning-snack"
	AfternoonSnack = "afternoon-snack"
	EveningSnack   = "evening-snack"
	LateNightSnack = "late-night-snack"
)

// warmStartDays is the number of distinct history days required before the
// collaborator is consulted instead of the rule table.
const warmStartDays = 3

var acceptedLabels = []string{
	Breakfast, Lunch, Dinner, LateNightSnack, Snack, AfternoonTea,
	Brunch, MorningSnack, AfternoonSnack, EveningSnack,
}

// HistoryClassifier is the external pattern-inference collaborator.
type HistoryClassifier interface {
	ClassifyHistory(ctx context.Context, at time.Time, history []models.Day) (string, error)
}

type Classifier struct {
	delegate HistoryClassifier
	log      *logrus.Logger
}

// NewClassifier builds a classifier. The delegate may be nil, in which case
// every call uses the cold-start rule.
func NewClassifier(delegate HistoryClassifier, log *logrus.Logger) *Classifier {
	return &Classifier{delegate: delegate, log: log}
}

// Classify returns the meal-slot label for the given timestamp. It never
// fails: every error on the warm-start path degrades to the rule table.
func (c *Classifier) Classify(ctx context.Context, at time.Time, history []models.Day) string {
	if c.delegate == nil || distinctDays(history) < warmStartDays {
		return classifyByRule(at, history)
	}

	label, err := c.delegate.ClassifyHistory(ctx, at, history)
	if err != nil {
		c.log.WithError(err).Warn("history classification failed, using rule table")
		return classifyByRule(at, history)
	}

	label = strings.TrimSpace(label)
	for _, accepted := range acceptedLabels {
		if label == accepted {
			return label
		}
	}
	// Not an exact label; the collaborator may have wrapped it in prose.
	for _, accepted := range acceptedLabels {
		if strings.Contains(label, accepted) {
			return accepted
		}
	}

	c.log.WithField("label", label).Warn("unrecognized meal type from collaborator, using rule table")
	return classifyByRule(at, history)
}

// classifyByRule applies the fixed hour-of-day table, escalating to a
// secondary label when today already has a meal of the base type.
func classifyByRule(at time.Time, history []models.Day) string {
	hour := at.Hour()
	base := baseLabel(hour)

	if hasMealTypeToday(history, at.Format(models.DateLayout), base) {
		switch {
		case hour < 10:
			return MorningSnack
		case hour < 17:
			return AfternoonSnack
		default:
			return LateNightSnack
		}
	}
	return base
}

func baseLabel(hour int) string {
	switch {
	case hour >= 5 && hour < 10:
		return Breakfast
	case hour >= 10 && hour < 14:
		return Lunch
	case hour >= 14 && hour < 17:
		return AfternoonTea
	case hour >= 17 && hour < 21:
		return Dinner
	default:
		return LateNightSnack
	}
}

func hasMealTypeToday(history []models.Day, today, mealType string) bool {
	for _, day := range history {
		if day.Date != today {
			continue
		}
		for i := range day.Meals {
			if day.Meals[i].MealType == mealType {
				return true
			}
		}
	}
	return false
}

func distinctDays(history []models.Day) int {
	seen := make(map[string]struct{}, len(history))
	for _, day := range history {
		seen[day.Date] = struct{}{}
	}
	return len(seen)
}
