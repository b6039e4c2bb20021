package storage_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
	"github.com/severin-ye/NutriFlow---AI/internal/storage"
)

func newTestStore(t *testing.T) (*storage.Store, string) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "meals.json")
	return storage.NewStore(path, "user001", log), path
}

func testMeal(calories float64, score *int) *models.Meal {
	w := 100.0
	per100 := models.NutritionVector{Calories: calories, Protein: 5, Fat: 4, Carbs: 12, Sodium: 200}
	total := per100
	meal := &models.Meal{
		Dishes: []models.DishRecord{{
			DishID:           "dish_1",
			Name:             "test dish",
			Category:         "other",
			FinalWeightG:     &w,
			NutritionPer100g: &per100,
			NutritionTotal:   &total,
		}},
		MealNutritionTotal: &total,
	}
	if score != nil {
		meal.Scores = &models.MealScores{CurrentMealScore: *score, WeekAdjustedScore: *score}
	}
	return meal
}

func intPtr(n int) *int { return &n }

func TestLoadInitializesMissingDatabase(t *testing.T) {
	t.Parallel()
	store, path := newTestStore(t)

	db := store.Load()
	if db.UserID != "user001" || len(db.Days) != 0 {
		t.Fatalf("unexpected fresh database: %+v", db)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("fresh database not persisted: %v", err)
	}
}

func TestLoadRecoversFromCorruptDocument(t *testing.T) {
	t.Parallel()
	store, path := newTestStore(t)

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	db := store.Load()
	if len(db.Days) != 0 {
		t.Fatalf("corrupt database should reinitialize, got %+v", db)
	}
	// Corruption must never block the next write.
	if _, err := store.AppendMeal(testMeal(500, nil)); err != nil {
		t.Fatalf("append after corruption: %v", err)
	}
}

func TestAppendMealRejectsIncompleteMeals(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	if _, err := store.AppendMeal(&models.Meal{MealNutritionTotal: &models.NutritionVector{Calories: 1}}); !errors.Is(err, storage.ErrNoDishes) {
		t.Fatalf("expected ErrNoDishes, got %v", err)
	}

	noTotal := testMeal(500, nil)
	noTotal.MealNutritionTotal = nil
	noTotal.NutritionTotal = nil
	if _, err := store.AppendMeal(noTotal); !errors.Is(err, storage.ErrNoMealTotal) {
		t.Fatalf("expected ErrNoMealTotal, got %v", err)
	}
}

func TestAppendMealAcceptsLegacyTotalName(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	meal := testMeal(420, nil)
	meal.NutritionTotal = meal.MealNutritionTotal
	meal.MealNutritionTotal = nil

	if _, err := store.AppendMeal(meal); err != nil {
		t.Fatalf("append with legacy total name: %v", err)
	}

	today := time.Now().Format(models.DateLayout)
	summary := store.DailySummary(today)
	if summary.TotalCalories != 420 {
		t.Fatalf("legacy total not rolled up: %+v", summary)
	}
}

func TestAppendMealAssignsSequentialIDsAndKeepsOrder(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	today := time.Now().Format(models.DateLayout)

	for i := 0; i < 3; i++ {
		if _, err := store.AppendMeal(testMeal(float64(100*(i+1)), nil)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	day := store.Load().Day(today)
	if day == nil {
		t.Fatal("today's day record missing")
	}
	if len(day.Meals) != 3 {
		t.Fatalf("expected 3 meals, got %d", len(day.Meals))
	}
	for i, meal := range day.Meals {
		wantID := fmt.Sprintf("meal_%s_%d", today, i+1)
		if meal.MealID != wantID {
			t.Fatalf("meal %d: expected id %s, got %s", i, wantID, meal.MealID)
		}
		if meal.MealNutritionTotal.Calories != float64(100*(i+1)) {
			t.Fatalf("meal order broken at %d: %+v", i, meal.MealNutritionTotal)
		}
		if meal.Timestamp.IsZero() {
			t.Fatalf("meal %d missing timestamp", i)
		}
	}
}

func TestRollUpInvariantHoldsAfterEveryAppend(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	today := time.Now().Format(models.DateLayout)

	for _, calories := range []float64{116.13, 520.8, 89.99} {
		if _, err := store.AppendMeal(testMeal(calories, nil)); err != nil {
			t.Fatalf("append: %v", err)
		}

		day := store.Load().Day(today)
		var sum float64
		for i := range day.Meals {
			sum += day.Meals[i].Total().Calories
		}
		want := math.Round(sum*100) / 100
		if day.DailySummary.TotalCalories != want {
			t.Fatalf("roll-up invariant broken: summary %v, sum %v",
				day.DailySummary.TotalCalories, want)
		}
	}
}

func TestDailyScoreAveragesOnlyScoredMeals(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	today := time.Now().Format(models.DateLayout)

	if _, err := store.AppendMeal(testMeal(500, intPtr(80))); err != nil {
		t.Fatalf("append scored: %v", err)
	}
	if _, err := store.AppendMeal(testMeal(300, nil)); err != nil {
		t.Fatalf("append unscored: %v", err)
	}
	if _, err := store.AppendMeal(testMeal(400, intPtr(91))); err != nil {
		t.Fatalf("append scored: %v", err)
	}

	summary := store.DailySummary(today)
	if summary.DailyScore != 85.5 {
		t.Fatalf("expected daily score 85.5, got %v", summary.DailyScore)
	}
}

func TestDailySummaryMissReturnsNote(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	summary := store.DailySummary("1999-01-01")
	if summary.TotalCalories != 0 || summary.Note == "" {
		t.Fatalf("expected zero summary with note, got %+v", summary)
	}
	if !strings.Contains(summary.Note, "1999-01-01") {
		t.Fatalf("note should name the date: %q", summary.Note)
	}
}

func TestRecentDaysWindowIsInclusive(t *testing.T) {
	t.Parallel()
	store, path := newTestStore(t)

	day := func(offset int) models.Day {
		date := time.Now().AddDate(0, 0, offset).Format(models.DateLayout)
		return models.Day{Date: date, Meals: []models.Meal{{MealID: "meal_" + date + "_1"}}}
	}
	db := models.Database{
		UserID: "user001",
		Days:   []models.Day{day(-10), day(-6), day(-1), day(0)},
	}
	data, err := json.Marshal(db)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("seed database: %v", err)
	}

	recent := store.RecentDays(7)
	if len(recent) != 3 {
		t.Fatalf("expected 3 days in window, got %d", len(recent))
	}
	if recent[0].Date != time.Now().AddDate(0, 0, -6).Format(models.DateLayout) {
		t.Fatalf("window start wrong: %s", recent[0].Date)
	}
}

func TestPersistFailurePropagatesAndCleansUp(t *testing.T) {
	t.Parallel()
	log := logrus.New()
	log.SetOutput(io.Discard)

	dir := t.TempDir()
	// The store path points at a directory, so the final rename must fail.
	path := filepath.Join(dir, "meals.json")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store := storage.NewStore(path, "user001", log)

	if _, err := store.AppendMeal(testMeal(500, nil)); err == nil {
		t.Fatal("expected persist failure")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary artifact not cleaned up: %v", err)
	}
}
