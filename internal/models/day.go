package models

// DateLayout is the calendar-day key format used throughout the store.
const DateLayout = "2006-01-02"

// DailySummary holds the running totals for one day. Totals are always the
// full re-sum over the day's meals, rounded to 2 decimals; DailyScore is the
// mean of the per-meal scores recorded so far (scoreless meals excluded).
type DailySummary struct {
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalFat      float64 `json:"total_fat"`
	TotalCarbs    float64 `json:"total_carbs"`
	TotalSodium   float64 `json:"total_sodium"`
	DailyScore    float64 `json:"daily_score"`

	// Note is set only on synthetic summaries returned for dates with no
	// stored record.
	Note string `json:"note,omitempty"`
}

// Day is the unique daily container. Meals keep strict insertion order.
type Day struct {
	Date         string       `json:"date"`
	DailySummary DailySummary `json:"daily_summary"`
	Meals        []Meal       `json:"meals"`
}

// Database is the whole persisted document for one user.
type Database struct {
	UserID string `json:"user_id"`
	Days   []Day  `json:"days"`
}

// Day returns the day record for the given date, or nil.
func (db *Database) Day(date string) *Day {
	for i := range db.Days {
		if db.Days[i].Date == date {
			return &db.Days[i]
		}
	}
	return nil
}
