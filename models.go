package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID            int        `json:"id"             db:"id"`
	Email         string     `json:"email"          db:"email"`
	Name          string     `json:"name"           db:"name"`
	AuthToken     string     `json:"-"              db:"auth_token"`
	Password      string     `json:"-"              db:"password"`
	Role          string     `json:"role"           db:"role"`
	DailyCalories int        `json:"daily_calories" db:"daily_calories"`
	CreatedAt     *time.Time `json:"created_at"     db:"created_at"`
}

// meal maps to the meals table. Common meals are visible to everyone;
// the rest only to their creator.
type meal struct {
	ID          int        `json:"id"           db:"id"`
	Name        string     `json:"name"         db:"name"`
	Description *string    `json:"description"  db:"description"`
	Calories    float64    `json:"calories"     db:"calories"`
	Carbs       float64    `json:"carbs"        db:"carbs"`
	Protein     float64    `json:"protein"      db:"protein"`
	Fat         float64    `json:"fat"          db:"fat"`
	WeightGrams float64    `json:"weight_grams" db:"weight_grams"`
	IsCommon    bool       `json:"is_common"    db:"is_common"`
	CreatedBy   *int       `json:"created_by"   db:"created_by"`
	CreatedAt   *time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"   db:"updated_at"`
}

type exercise struct {
	ID              int        `json:"id"               db:"id"`
	Name            string     `json:"name"             db:"name"`
	Description     *string    `json:"description"      db:"description"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
	CaloriesBurned  float64    `json:"calories_burned"  db:"calories_burned"`
	VideoURL        *string    `json:"video_url"        db:"video_url"`
	Difficulty      string     `json:"difficulty"       db:"difficulty"`
	IsCommon        bool       `json:"is_common"        db:"is_common"`
	CreatedBy       *int       `json:"created_by"       db:"created_by"`
	CreatedAt       *time.Time `json:"created_at"       db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"       db:"updated_at"`
}

// progressEntry maps to progress_entries. Meals and Exercises come from the
// child tables and are attached after the entry rows are scanned.
type progressEntry struct {
	ID        int        `json:"id"         db:"id"`
	UserID    int        `json:"user_id"    db:"user_id"`
	Date      DateOnly   `json:"date"       db:"date"`
	PlanID    *int       `json:"plan_id"    db:"plan_id"`
	PlanType  *string    `json:"plan_type"  db:"plan_type"`
	Notes     *string    `json:"notes"      db:"notes"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`

	Meals     []entryItem `json:"meals"     db:"-"`
	Exercises []entryItem `json:"exercises" db:"-"`
}

// entryItem is one planned meal or exercise in an entry, joined with its
// library row. ItemID, Name and Calories are nil when the library item has
// since been deleted.
type entryItem struct {
	EntryID   int      `json:"-"         db:"entry_id"`
	Position  int      `json:"position"  db:"position"`
	Time      string   `json:"time"      db:"time"`
	ItemID    *int     `json:"item_id"   db:"item_id"`
	Completed bool     `json:"completed" db:"completed"`
	Name      *string  `json:"name"      db:"name"`
	Calories  *float64 `json:"calories"  db:"calories"`
}

// plan maps to plans: a reusable day of timed meals and exercises. Totals
// are computed from the slots on read.
type plan struct {
	ID          int        `json:"id"          db:"id"`
	Name        string     `json:"name"        db:"name"`
	Description *string    `json:"description" db:"description"`
	Goal        *string    `json:"goal"        db:"goal"`
	IsCommon    bool       `json:"is_common"   db:"is_common"`
	CreatedBy   *int       `json:"created_by"  db:"created_by"`
	CreatedAt   *time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"  db:"updated_at"`

	Meals     []planSlot `json:"meals"     db:"-"`
	Exercises []planSlot `json:"exercises" db:"-"`
	Totals    planTotals `json:"totals"    db:"-"`
}

// planSlot is one timed meal or exercise of a plan, joined with its library
// row. ItemID is nil once the library item is deleted.
type planSlot struct {
	PlanID   int      `json:"-"        db:"plan_id"`
	Position int      `json:"position" db:"position"`
	Time     string   `json:"time"     db:"time"`
	ItemID   *int     `json:"item_id"  db:"item_id"`
	Name     *string  `json:"name"     db:"name"`
	Calories *float64 `json:"calories" db:"calories"`
}

type planTotals struct {
	CaloriesIn  float64 `json:"calories_in"`
	CaloriesOut float64 `json:"calories_out"`
}

// weekDays holds the daily plan for each weekday; nil means a rest day.
type weekDays struct {
	Monday    *int `json:"monday"`
	Tuesday   *int `json:"tuesday"`
	Wednesday *int `json:"wednesday"`
	Thursday  *int `json:"thursday"`
	Friday    *int `json:"friday"`
	Saturday  *int `json:"saturday"`
	Sunday    *int `json:"sunday"`
}

// list returns the days Monday first.
func (d weekDays) list() [7]*int {
	return [7]*int{d.Monday, d.Tuesday, d.Wednesday, d.Thursday, d.Friday, d.Saturday, d.Sunday}
}

// weeklyPlan maps to weekly_plans. It is scanned by rowToWeeklyPlan.
type weeklyPlan struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Goal        *string    `json:"goal"`
	Days        weekDays   `json:"days"`
	IsCommon    bool       `json:"is_common"`
	CreatedBy   *int       `json:"created_by"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

/* ─── Requests ───────────────────────────────────────────────────────── */

type itemRequest struct {
	Time      string `json:"time"`
	ItemID    int    `json:"item_id"`
	Completed bool   `json:"completed"`
}

// upsertProgressRequest is the request body for POST /api/progress. A nil
// Meals or Exercises leaves the stored list untouched; an empty list clears it.
type upsertProgressRequest struct {
	Date      string         `json:"date"`
	Meals     *[]itemRequest `json:"meals"`
	Exercises *[]itemRequest `json:"exercises"`
	PlanID    *int           `json:"plan_id"`
	PlanType  *string        `json:"plan_type"`
	Notes     *string        `json:"notes"`
}

type applyDailyPlanRequest struct {
	PlanID    int    `json:"plan_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type applyWeeklyPlanRequest struct {
	WeeklyPlanID  int    `json:"weekly_plan_id"`
	WeekStartDate string `json:"week_start_date"`
}

type toggleCompletionRequest struct {
	Date  string `json:"date"`
	Type  string `json:"type"`
	Index *int   `json:"index"`
}

type createMealRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Calories    *float64 `json:"calories"`
	Carbs       *float64 `json:"carbs"`
	Protein     *float64 `json:"protein"`
	Fat         *float64 `json:"fat"`
	WeightGrams *float64 `json:"weight_grams"`
}

type createExerciseRequest struct {
	Name            string   `json:"name"`
	Description     *string  `json:"description"`
	DurationMinutes *int     `json:"duration_minutes"`
	CaloriesBurned  *float64 `json:"calories_burned"`
	VideoURL        *string  `json:"video_url"`
	Difficulty      string   `json:"difficulty"`
}

// updateMealRequest is the request body for PUT /api/meals/:id. Only non-nil
// fields are written.
type updateMealRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Calories    *float64 `json:"calories"`
	Carbs       *float64 `json:"carbs"`
	Protein     *float64 `json:"protein"`
	Fat         *float64 `json:"fat"`
	WeightGrams *float64 `json:"weight_grams"`
}

type updateExerciseRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	DurationMinutes *int     `json:"duration_minutes"`
	CaloriesBurned  *float64 `json:"calories_burned"`
	VideoURL        *string  `json:"video_url"`
	Difficulty      *string  `json:"difficulty"`
}

// planRequest is the body for POST and PUT /api/plans. On update a nil list
// keeps the stored slots; the completed flag of a slot is ignored.
type planRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Goal        *string        `json:"goal"`
	Meals       *[]itemRequest `json:"meals"`
	Exercises   *[]itemRequest `json:"exercises"`
}

// weeklyPlanRequest is the body for POST and PUT /api/weekly-plans. Days, when
// sent, replaces all seven days.
type weeklyPlanRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Goal        *string   `json:"goal"`
	Days        *weekDays `json:"days"`
}

// patchProfileRequest is the request body for PATCH /api/profile.
// All fields are pointers; only non-nil fields get written to the database.
type patchProfileRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	DailyCalories *int    `json:"daily_calories"`
}
