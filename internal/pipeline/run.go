package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/mealtype"
	"github.com/severin-ye/NutriFlow---AI/internal/models"
	"github.com/severin-ye/NutriFlow---AI/internal/trend"
)

// Scorer is the external scoring collaborator: a plain meal score and a
// score adjusted against the recent trend.
type Scorer interface {
	ScoreMeal(ctx context.Context, total models.NutritionVector) (int, string, error)
	ScoreWeekAdjusted(ctx context.Context, total models.NutritionVector, weeklyTrend map[string]float64) (int, string, error)
}

// Recommender is the external next-meal recommendation collaborator.
type Recommender interface {
	RecommendNextMeal(ctx context.Context, total models.NutritionVector, report *trend.Report) (*models.NextMealRecommendation, error)
}

// MealStore is the slice of the document store the runner needs.
type MealStore interface {
	AppendMeal(meal *models.Meal) (*models.Meal, error)
	RecentDays(n int) []models.Day
}

// Runner drives one full analysis: detect, classify the slot, refine
// portions, enrich nutrition, aggregate, score, recommend, persist.
type Runner struct {
	detector    Detector
	pipeline    *Pipeline
	classifier  *mealtype.Classifier
	scorer      Scorer
	recommender Recommender
	store       MealStore
	recentDays  int
	log         *logrus.Logger
}

func NewRunner(
	detector Detector,
	p *Pipeline,
	classifier *mealtype.Classifier,
	scorer Scorer,
	recommender Recommender,
	store MealStore,
	recentDays int,
	log *logrus.Logger,
) *Runner {
	return &Runner{
		detector:    detector,
		pipeline:    p,
		classifier:  classifier,
		scorer:      scorer,
		recommender: recommender,
		store:       store,
		recentDays:  recentDays,
		log:         log,
	}
}

// Analyze runs the whole pipeline for one meal image and returns the
// persisted meal. Detection, aggregation, and persistence failures abort
// the run; scoring and recommendation degrade locally instead.
func (r *Runner) Analyze(ctx context.Context, imagePath string) (*models.Meal, error) {
	runLog := r.log.WithField("run_id", uuid.NewString())
	now := time.Now()

	det, err := r.detector.DetectDishes(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("dish detection failed: %w", err)
	}
	if len(det.Dishes) == 0 {
		return nil, fmt.Errorf("dish detection returned no dishes for %s", imagePath)
	}
	// Dish ids are assigned at detection time, sequentially within the meal.
	for i := range det.Dishes {
		if det.Dishes[i].DishID == "" {
			det.Dishes[i].DishID = fmt.Sprintf("dish_%d", i+1)
		}
	}
	runLog.WithField("dishes", len(det.Dishes)).Info("dishes detected")

	history := r.store.RecentDays(r.recentDays)
	mealType := r.classifier.Classify(ctx, now, history)

	det = r.pipeline.RefinePortions(ctx, det)
	det = r.pipeline.EnrichNutrition(ctx, det)

	agg, err := Aggregate(det)
	if err != nil {
		return nil, err
	}

	meal := AssembleMeal(agg, mealType, now)
	report := trend.Analyze(history, r.recentDays)
	r.attachScores(ctx, runLog, meal, report)
	r.attachRecommendation(ctx, runLog, meal, report)

	saved, err := r.store.AppendMeal(meal)
	if err != nil {
		return nil, fmt.Errorf("failed to persist meal: %w", err)
	}
	runLog.WithFields(logrus.Fields{
		"meal_id":   saved.MealID,
		"meal_type": saved.MealType,
		"calories":  saved.MealNutritionTotal.Calories,
	}).Info("meal analyzed and saved")
	return saved, nil
}

// attachScores fills in scores and advice, degrading to the rule scorer
// when the collaborator fails.
func (r *Runner) attachScores(ctx context.Context, runLog *logrus.Entry, meal *models.Meal, report *trend.Report) {
	total := *meal.MealNutritionTotal

	score, advice := ScoreByRule(total)
	weekScore, weekAdvice := score, advice

	if r.scorer != nil {
		if s, a, err := r.scorer.ScoreMeal(ctx, total); err == nil {
			score, advice = s, a
		} else {
			runLog.WithError(err).Warn("meal scoring failed, using rule score")
		}
		if s, a, err := r.scorer.ScoreWeekAdjusted(ctx, total, report.WeeklyTrend); err == nil {
			weekScore, weekAdvice = s, a
		} else {
			runLog.WithError(err).Warn("trend scoring failed, using rule score")
		}
	}

	meal.Scores = &models.MealScores{CurrentMealScore: score, WeekAdjustedScore: weekScore}
	meal.Advice = &models.MealAdvice{CurrentMealAdvice: advice, WeekAdjustedAdvice: weekAdvice}
}

// attachRecommendation is best-effort: a failed recommendation is logged
// and the meal is saved without one.
func (r *Runner) attachRecommendation(ctx context.Context, runLog *logrus.Entry, meal *models.Meal, report *trend.Report) {
	if r.recommender == nil {
		return
	}
	rec, err := r.recommender.RecommendNextMeal(ctx, *meal.MealNutritionTotal, report)
	if err != nil {
		runLog.WithError(err).Warn("next meal recommendation failed")
		return
	}
	meal.NextMealRecommendation = rec
}
