package main

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// timeOfDayPattern accepts "H:MM" and "HH:MM" wall-clock times.
var timeOfDayPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// validPlanTypes is the set of allowed values for progress_entries.plan_type.
var validPlanTypes = map[string]bool{
	"daily":  true,
	"weekly": true,
}

// maxApplyDays caps apply-daily so one request cannot write years of entries.
const maxApplyDays = 366

// refreshReminders re-arms reminders for date when it is close enough to
// matter. The reminder service logs its own failures, so nothing is returned.
func (h *Handler) refreshReminders(c *gin.Context, userID int, date time.Time) {
	if h.reminders == nil || !h.reminders.InWindow(date) {
		return
	}
	h.reminders.Refresh(c, userID, date)
}

// getProgressEntries returns the user's entries within [start, end].
// GET /api/progress?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Returns an empty array (not null) if no entries exist in the range.
func (h *Handler) getProgressEntries(c *gin.Context) {
	userID := c.GetInt("user_id")
	start, end, ok := parseRange(c)
	if !ok {
		return
	}

	entries, err := h.store.entriesInRange(c, userID, start, end)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress entries")
		return
	}
	if entries == nil {
		entries = []progressEntry{}
	}

	c.JSON(http.StatusOK, entries)
}

// getProgressEntry returns one day's entry.
// GET /api/progress/:date. 404 if the user has nothing planned that day.
func (h *Handler) getProgressEntry(c *gin.Context) {
	userID := c.GetInt("user_id")
	date, ok := parseDate(c.Param("date"))
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entry, err := h.store.entryByDate(c, userID, date)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress entry")
		return
	}
	if entry == nil {
		apiError(c, http.StatusNotFound, "progress entry not found")
		return
	}

	c.JSON(http.StatusOK, entry)
}

// upsertProgressEntry creates or updates the entry for a date.
// POST /api/progress. Omitted meals/exercises keep their stored value.
func (h *Handler) upsertProgressEntry(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body upsertProgressRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" {
		apiError(c, http.StatusBadRequest, "date is required")
		return
	}
	date, ok := parseDate(body.Date)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if body.PlanType != nil && !validPlanTypes[*body.PlanType] {
		apiError(c, http.StatusBadRequest, "plan_type must be one of: daily, weekly")
		return
	}
	if msg := validateItems("meals", body.Meals); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if msg := validateItems("exercises", body.Exercises); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	entry, err := h.store.saveEntry(c, userID, entryWrite{
		Date:      date,
		Meals:     body.Meals,
		Exercises: body.Exercises,
		PlanID:    body.PlanID,
		PlanType:  body.PlanType,
		Notes:     body.Notes,
	})
	if err != nil {
		h.log.Error("save progress entry failed", zap.Int("user_id", userID), zap.Error(err))
		apiError(c, http.StatusInternalServerError, "failed to save progress entry")
		return
	}

	h.refreshReminders(c, userID, date)
	c.JSON(http.StatusOK, entry)
}

// validateItems returns an error message for the first malformed item, or "".
func validateItems(field string, items *[]itemRequest) string {
	if items == nil {
		return ""
	}
	for _, it := range *items {
		if !timeOfDayPattern.MatchString(it.Time) {
			return field + ": time must be HH:MM"
		}
		if it.ItemID <= 0 {
			return field + ": item_id is required"
		}
	}
	return ""
}

// applyDailyPlan copies one plan into every day of [start_date, end_date].
// POST /api/progress/apply-daily. Existing entries in the range are overwritten.
func (h *Handler) applyDailyPlan(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body applyDailyPlanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.PlanID <= 0 || body.StartDate == "" || body.EndDate == "" {
		apiError(c, http.StatusBadRequest, "plan_id, start_date and end_date are required")
		return
	}
	start, ok := parseDate(body.StartDate)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	end, ok := parseDate(body.EndDate)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}
	if start.After(end) {
		apiError(c, http.StatusBadRequest, "start_date must not be after end_date")
		return
	}
	if end.Sub(start) >= maxApplyDays*24*time.Hour {
		apiError(c, http.StatusBadRequest, "date range is too long")
		return
	}

	meals, exercises, found, err := h.plans.planItems(c, userID, body.PlanID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch plan")
		return
	}
	if !found {
		apiError(c, http.StatusNotFound, "plan not found")
		return
	}

	planType := "daily"
	entries := []progressEntry{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		entry, err := h.store.saveEntry(c, userID, entryWrite{
			Date:      d,
			Meals:     &meals,
			Exercises: &exercises,
			PlanID:    &body.PlanID,
			PlanType:  &planType,
		})
		if err != nil {
			h.log.Error("apply daily plan failed",
				zap.Int("user_id", userID), zap.String("date", d.Format("2006-01-02")), zap.Error(err))
			apiError(c, http.StatusInternalServerError, "failed to apply daily plan")
			return
		}
		entries = append(entries, *entry)
		h.refreshReminders(c, userID, d)
	}

	c.JSON(http.StatusOK, entries)
}

// applyWeeklyPlan copies a weekly plan's Monday..Sunday plans into the seven
// days starting at week_start_date. Days without a plan are left untouched.
// POST /api/progress/apply-weekly.
func (h *Handler) applyWeeklyPlan(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body applyWeeklyPlanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.WeeklyPlanID <= 0 || body.WeekStartDate == "" {
		apiError(c, http.StatusBadRequest, "weekly_plan_id and week_start_date are required")
		return
	}
	// Accept a full timestamp too; only the date part matters.
	raw := body.WeekStartDate
	if len(raw) > 10 {
		raw = raw[:10]
	}
	start, ok := parseDate(raw)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid week_start_date, expected YYYY-MM-DD")
		return
	}

	days, found, err := h.plans.weeklyPlanDays(c, userID, body.WeeklyPlanID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch weekly plan")
		return
	}
	if !found {
		apiError(c, http.StatusNotFound, "weekly plan not found")
		return
	}

	planType := "weekly"
	entries := []progressEntry{}
	for i, planID := range days {
		if planID == nil {
			continue
		}
		meals, exercises, found, err := h.plans.planItems(c, userID, *planID)
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to fetch plan")
			return
		}
		if !found {
			continue
		}

		d := start.AddDate(0, 0, i)
		entry, err := h.store.saveEntry(c, userID, entryWrite{
			Date:      d,
			Meals:     &meals,
			Exercises: &exercises,
			PlanID:    &body.WeeklyPlanID,
			PlanType:  &planType,
		})
		if err != nil {
			h.log.Error("apply weekly plan failed",
				zap.Int("user_id", userID), zap.String("date", d.Format("2006-01-02")), zap.Error(err))
			apiError(c, http.StatusInternalServerError, "failed to apply weekly plan")
			return
		}
		entries = append(entries, *entry)
		h.refreshReminders(c, userID, d)
	}

	c.JSON(http.StatusOK, entries)
}

// toggleCompletion flips the completed flag of one meal or exercise.
// POST /api/progress/toggle-completion. Times are unchanged, so reminders
// are not refreshed.
func (h *Handler) toggleCompletion(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body toggleCompletionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" || body.Type == "" || body.Index == nil {
		apiError(c, http.StatusBadRequest, "date, type and index are required")
		return
	}
	date, ok := parseDate(body.Date)
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	kind := itemKind(body.Type)
	if kind != kindMeal && kind != kindExercise {
		apiError(c, http.StatusBadRequest, "type must be one of: meal, exercise")
		return
	}
	if *body.Index < 0 {
		apiError(c, http.StatusBadRequest, "index must not be negative")
		return
	}

	found, toggled, err := h.store.toggleItem(c, userID, date, kind, *body.Index)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to toggle completion")
		return
	}
	if !found {
		apiError(c, http.StatusNotFound, "progress entry not found, add meals or exercises for this day first")
		return
	}
	if !toggled {
		apiError(c, http.StatusBadRequest, string(kind)+" at that index not found")
		return
	}

	entry, err := h.store.entryByDate(c, userID, date)
	if err != nil || entry == nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// deleteProgressEntry removes one day's entry and cancels its reminders.
// DELETE /api/progress/:date. Returns 204 on success, 404 if not found.
func (h *Handler) deleteProgressEntry(c *gin.Context) {
	userID := c.GetInt("user_id")
	date, ok := parseDate(c.Param("date"))
	if !ok {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	deleted, err := h.store.deleteEntry(c, userID, date)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete progress entry")
		return
	}
	if !deleted {
		apiError(c, http.StatusNotFound, "progress entry not found")
		return
	}

	h.refreshReminders(c, userID, date)
	c.Status(http.StatusNoContent)
}

// parseRange reads and validates the start/end query params, writing a 400
// and returning ok=false on failure.
func parseRange(c *gin.Context) (start, end time.Time, ok bool) {
	s, e := c.Query("start"), c.Query("end")
	if s == "" || e == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return start, end, false
	}
	if start, ok = parseDate(s); !ok {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return start, end, false
	}
	if end, ok = parseDate(e); !ok {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return start, end, false
	}
	if start.After(end) {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return start, end, false
	}
	return start, end, true
}
