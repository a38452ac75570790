package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// defaultDailyCalories is the target used when a user has not set one.
const defaultDailyCalories = 2000

// dayNames labels the daily breakdown, Monday first.
var dayNames = [7]string{"Thứ 2", "Thứ 3", "Thứ 4", "Thứ 5", "Thứ 6", "Thứ 7", "Chủ nhật"}

// dayStats is one day's entry in the weekly breakdown.
type dayStats struct {
	Date               DateOnly `json:"date"`
	DayName            string   `json:"day_name"`
	CaloriesConsumed   float64  `json:"calories_consumed"`
	CaloriesBurned     float64  `json:"calories_burned"`
	NetCalories        float64  `json:"net_calories"`
	MealsCompleted     int      `json:"meals_completed"`
	MealsTotal         int      `json:"meals_total"`
	ExercisesCompleted int      `json:"exercises_completed"`
	ExercisesTotal     int      `json:"exercises_total"`
}

// statistics is the response shape for GET /api/statistics.
type statistics struct {
	StartDate               DateOnly   `json:"start_date"`
	EndDate                 DateOnly   `json:"end_date"`
	Period                  string     `json:"period"`
	CaloriesConsumed        float64    `json:"calories_consumed"`
	CaloriesBurned          float64    `json:"calories_burned"`
	NetCalories             float64    `json:"net_calories"`
	CaloriesTarget          int        `json:"calories_target"`
	CaloriesRemaining       float64    `json:"calories_remaining"`
	MealsCompleted          int        `json:"meals_completed"`
	MealsTotal              int        `json:"meals_total"`
	MealsCompletionRate     float64    `json:"meals_completion_rate"`
	ExercisesCompleted      int        `json:"exercises_completed"`
	ExercisesTotal          int        `json:"exercises_total"`
	ExercisesCompletionRate float64    `json:"exercises_completion_rate"`
	DaysWithData            int        `json:"days_with_data"`
	DaysInPeriod            int        `json:"days_in_period"`
	DailyCaloriesTarget     int        `json:"daily_calories_target"`
	DailyBreakdown          []dayStats `json:"daily_breakdown,omitempty"`
}

// currentMonday returns the Monday of the current week at midnight UTC.
// Uses AddDate to safely handle month/year boundaries; direct day subtraction
// can produce day=0 or negative, which time.Date normalizes but is confusing.
func currentMonday(now time.Time) time.Time {
	now = now.UTC()
	weekday := int(now.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	daysBack := weekday - 1
	return now.AddDate(0, 0, -daysBack).Truncate(24 * time.Hour)
}

// statsRange resolves the reporting window. period=week is the current
// Mon..Sun, period=month the current calendar month; otherwise explicit
// start/end, falling back to the current week.
func statsRange(period, start, end string, now time.Time) (from, to time.Time, label string, ok bool) {
	switch period {
	case "week":
		from = currentMonday(now)
		return from, from.AddDate(0, 0, 6), "week", true
	case "month":
		u := now.UTC()
		from = time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, -1), "month", true
	}
	if start != "" && end != "" {
		var okStart, okEnd bool
		from, okStart = parseDate(start)
		to, okEnd = parseDate(end)
		if !okStart || !okEnd || from.After(to) {
			return from, to, "", false
		}
		return from, to, "custom", true
	}
	from = currentMonday(now)
	return from, from.AddDate(0, 0, 6), "week", true
}

// tally accumulates calories and completion counts. Items whose library row
// was deleted are left out entirely; only completed items add calories.
func (d *dayStats) tally(e progressEntry) {
	for _, m := range e.Meals {
		if m.ItemID == nil {
			continue
		}
		d.MealsTotal++
		if m.Completed {
			d.MealsCompleted++
			if m.Calories != nil && *m.Calories > 0 {
				d.CaloriesConsumed += *m.Calories
			}
		}
	}
	for _, x := range e.Exercises {
		if x.ItemID == nil {
			continue
		}
		d.ExercisesTotal++
		if x.Completed {
			d.ExercisesCompleted++
			if x.Calories != nil && *x.Calories > 0 {
				d.CaloriesBurned += *x.Calories
			}
		}
	}
	d.NetCalories = d.CaloriesConsumed - d.CaloriesBurned
}

// summarize aggregates entries over [from, to]. The daily breakdown is
// included only when breakdown is set (weekly view).
func summarize(entries []progressEntry, from, to time.Time, dailyTarget int, period string, breakdown bool) statistics {
	var total dayStats
	for _, e := range entries {
		total.tally(e)
	}

	days := int(to.Sub(from).Hours()/24) + 1
	target := dailyTarget * days
	s := statistics{
		StartDate:           DateOnly{from},
		EndDate:             DateOnly{to},
		Period:              period,
		CaloriesConsumed:    total.CaloriesConsumed,
		CaloriesBurned:      total.CaloriesBurned,
		NetCalories:         total.NetCalories,
		CaloriesTarget:      target,
		CaloriesRemaining:   float64(target) - total.NetCalories,
		MealsCompleted:      total.MealsCompleted,
		MealsTotal:          total.MealsTotal,
		ExercisesCompleted:  total.ExercisesCompleted,
		ExercisesTotal:      total.ExercisesTotal,
		DaysWithData:        len(entries),
		DaysInPeriod:        days,
		DailyCaloriesTarget: dailyTarget,
	}
	if total.MealsTotal > 0 {
		s.MealsCompletionRate = float64(total.MealsCompleted) / float64(total.MealsTotal) * 100
	}
	if total.ExercisesTotal > 0 {
		s.ExercisesCompletionRate = float64(total.ExercisesCompleted) / float64(total.ExercisesTotal) * 100
	}

	if breakdown {
		byDate := make(map[string]progressEntry, len(entries))
		for _, e := range entries {
			byDate[e.Date.Format("2006-01-02")] = e
		}
		s.DailyBreakdown = make([]dayStats, 7)
		for i := 0; i < 7; i++ {
			d := from.AddDate(0, 0, i)
			day := dayStats{Date: DateOnly{d}, DayName: dayNames[i]}
			if e, ok := byDate[d.Format("2006-01-02")]; ok {
				day.tally(e)
			}
			s.DailyBreakdown[i] = day
		}
	}
	return s
}

// getStatistics reports calorie and completion totals for a period.
// GET /api/statistics?period=week|month or ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *Handler) getStatistics(c *gin.Context) {
	userID := c.GetInt("user_id")

	from, to, period, ok := statsRange(c.Query("period"), c.Query("start"), c.Query("end"), time.Now())
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid start/end, expected YYYY-MM-DD with start <= end")
		return
	}

	dailyTarget := defaultDailyCalories
	var stored *int
	err := h.db.QueryRow(c, "SELECT daily_calories FROM users WHERE id = @userID",
		pgx.NamedArgs{"userID": userID}).Scan(&stored)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if stored != nil && *stored > 0 {
		dailyTarget = *stored
	}

	entries, err := h.store.entriesInRange(c, userID, from, to)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress entries")
		return
	}

	c.JSON(http.StatusOK, summarize(entries, from, to, dailyTarget, period, period == "week"))
}
