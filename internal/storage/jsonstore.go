package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/severin-ye/NutriFlow---AI/internal/models"
)

// Contract violations surfaced by AppendMeal. These mean a pipeline bug
// upstream, not bad data, and are never masked.
var (
	ErrNoDishes    = errors.New("meal has no dishes")
	ErrNoMealTotal = errors.New("meal has no nutrition total")
)

// Store persists one user's nutrition history as a single day-keyed JSON
// document. Single-writer: one process owns the file, writes are serialized
// by the caller.
type Store struct {
	path   string
	userID string
	log    *logrus.Logger
}

func NewStore(path, userID string, log *logrus.Logger) *Store {
	return &Store{path: path, userID: userID, log: log}
}

// Load reads the backing document. A missing, empty, or corrupt document
// yields a fresh empty database instead of an error: corruption must never
// block new writes. The fresh document is persisted best-effort.
func (s *Store) Load() *models.Database {
	fresh := func() *models.Database {
		db := &models.Database{UserID: s.userID, Days: []models.Day{}}
		if err := s.persist(db); err != nil {
			s.log.WithError(err).Warn("could not persist fresh database")
		}
		return db
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", s.path).Warn("unreadable database, reinitializing")
		}
		return fresh()
	}
	if len(data) == 0 {
		return fresh()
	}

	var db models.Database
	if err := json.Unmarshal(data, &db); err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("corrupt database, reinitializing")
		return fresh()
	}
	if db.UserID == "" {
		db.UserID = s.userID
	}
	return &db
}

// AppendMeal validates the incoming meal, files it under today's day record,
// recomputes the daily roll-up, and persists the whole database atomically.
// Meals are append-only; MealID and Timestamp are assigned when absent.
func (s *Store) AppendMeal(meal *models.Meal) (*models.Meal, error) {
	if len(meal.Dishes) == 0 {
		return nil, ErrNoDishes
	}
	if meal.Total() == nil {
		return nil, ErrNoMealTotal
	}

	db := s.Load()

	now := time.Now()
	today := now.Format(models.DateLayout)

	day := db.Day(today)
	if day == nil {
		db.Days = append(db.Days, models.Day{Date: today, Meals: []models.Meal{}})
		day = &db.Days[len(db.Days)-1]
	}

	if meal.MealID == "" {
		meal.MealID = fmt.Sprintf("meal_%s_%d", today, len(day.Meals)+1)
	}
	if meal.Timestamp.IsZero() {
		meal.Timestamp = now
	}

	day.Meals = append(day.Meals, *meal)
	recomputeSummary(day)

	if err := s.persist(db); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"meal_id": meal.MealID,
		"date":    today,
		"meals":   len(day.Meals),
	}).Info("meal appended")

	return meal, nil
}

// recomputeSummary re-sums the whole day rather than adding incrementally,
// so the roll-up invariant holds even if prior state was hand-edited.
func recomputeSummary(day *models.Day) {
	var total models.NutritionVector
	var scoreSum, scored int
	for i := range day.Meals {
		if t := day.Meals[i].Total(); t != nil {
			total = total.Add(*t)
		}
		if sc := day.Meals[i].Scores; sc != nil {
			scoreSum += sc.CurrentMealScore
			scored++
		}
	}
	total = total.Round2()

	day.DailySummary.TotalCalories = total.Calories
	day.DailySummary.TotalProtein = total.Protein
	day.DailySummary.TotalFat = total.Fat
	day.DailySummary.TotalCarbs = total.Carbs
	day.DailySummary.TotalSodium = total.Sodium
	if scored > 0 {
		day.DailySummary.DailyScore = math.Round(float64(scoreSum)/float64(scored)*100) / 100
	} else {
		day.DailySummary.DailyScore = 0
	}
}

// persist writes the document to a temporary file and atomically replaces
// the backing file, so a crash mid-write never leaves a truncated document.
// On failure the temporary artifact is removed and the error propagated.
func (s *Store) persist(db *models.Database) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode database: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace database: %w", err)
	}
	return nil
}

// RecentDays returns the stored days whose date falls within the last n
// calendar days, inclusive of today. Days with an unparseable date are
// skipped with a warning.
func (s *Store) RecentDays(n int) []models.Day {
	db := s.Load()

	today := time.Now()
	start := today.AddDate(0, 0, -(n - 1))
	startDate := start.Format(models.DateLayout)
	endDate := today.Format(models.DateLayout)

	var recent []models.Day
	for _, day := range db.Days {
		if _, err := time.Parse(models.DateLayout, day.Date); err != nil {
			s.log.WithField("date", day.Date).Warn("skipping day with invalid date")
			continue
		}
		if day.Date >= startDate && day.Date <= endDate {
			recent = append(recent, day)
		}
	}
	return recent
}

// DailySummary returns the stored summary for an exact date. A miss is not
// an error: the zero summary comes back with an explanatory note.
func (s *Store) DailySummary(date string) models.DailySummary {
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	}

	db := s.Load()
	if day := db.Day(date); day != nil {
		return day.DailySummary
	}
	return models.DailySummary{Note: fmt.Sprintf("no records found for %s", date)}
}
