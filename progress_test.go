package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

/* ─── validation ─────────────────────────────────────────────────────── */

func TestTimeOfDayPattern(t *testing.T) {
	for _, ok := range []string{"7:30", "07:30", "00:00", "23:59", "19:05"} {
		assert.True(t, timeOfDayPattern.MatchString(ok), ok)
	}
	for _, bad := range []string{"", "24:00", "12:60", "7", "07:3", "7h30", " 07:30"} {
		assert.False(t, timeOfDayPattern.MatchString(bad), bad)
	}
}

func TestValidateItems(t *testing.T) {
	assert.Empty(t, validateItems("meals", nil))
	assert.Empty(t, validateItems("meals", &[]itemRequest{}))
	assert.Empty(t, validateItems("meals", &[]itemRequest{{Time: "07:00", ItemID: 1}, {Time: "12:30", ItemID: 2}}))

	assert.Equal(t, "meals: time must be HH:MM",
		validateItems("meals", &[]itemRequest{{Time: "07:00", ItemID: 1}, {Time: "noon", ItemID: 2}}))
	assert.Equal(t, "exercises: item_id is required",
		validateItems("exercises", &[]itemRequest{{Time: "18:00"}}))
}

func TestUpsertProgressEntry_Validation(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"not json", `{`, "invalid request body"},
		{"missing date", `{"meals":[]}`, "date is required"},
		{"bad date", `{"date":"2026-02-30"}`, "invalid date, expected YYYY-MM-DD"},
		{"bad plan type", `{"date":"2026-10-20","plan_type":"monthly"}`, "plan_type must be one of: daily, weekly"},
		{"bad meal time", `{"date":"2026-10-20","meals":[{"time":"25:00","item_id":1}]}`, "meals: time must be HH:MM"},
		{"missing exercise id", `{"date":"2026-10-20","exercises":[{"time":"18:00"}]}`, "exercises: item_id is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPost, "/api/progress", "/api/progress", tc.body,
				func(h *Handler) gin.HandlerFunc { return h.upsertProgressEntry })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestApplyDailyPlan_Validation(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"missing plan", `{"start_date":"2026-10-20","end_date":"2026-10-21"}`, "plan_id, start_date and end_date are required"},
		{"missing end", `{"plan_id":3,"start_date":"2026-10-20"}`, "plan_id, start_date and end_date are required"},
		{"bad start", `{"plan_id":3,"start_date":"20-10-2026","end_date":"2026-10-21"}`, "invalid start_date, expected YYYY-MM-DD"},
		{"bad end", `{"plan_id":3,"start_date":"2026-10-20","end_date":"tomorrow"}`, "invalid end_date, expected YYYY-MM-DD"},
		{"reversed", `{"plan_id":3,"start_date":"2026-10-21","end_date":"2026-10-20"}`, "start_date must not be after end_date"},
		{"too long", `{"plan_id":3,"start_date":"2026-01-01","end_date":"2027-01-02"}`, "date range is too long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPost, "/api/progress/apply-daily", "/api/progress/apply-daily", tc.body,
				func(h *Handler) gin.HandlerFunc { return h.applyDailyPlan })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestApplyWeeklyPlan_Validation(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"missing plan", `{"week_start_date":"2026-10-19"}`, "weekly_plan_id and week_start_date are required"},
		{"missing start", `{"weekly_plan_id":2}`, "weekly_plan_id and week_start_date are required"},
		{"bad start", `{"weekly_plan_id":2,"week_start_date":"19/10/2026"}`, "invalid week_start_date, expected YYYY-MM-DD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPost, "/api/progress/apply-weekly", "/api/progress/apply-weekly", tc.body,
				func(h *Handler) gin.HandlerFunc { return h.applyWeeklyPlan })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestToggleCompletion_Validation(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"missing index", `{"date":"2026-10-20","type":"meal"}`, "date, type and index are required"},
		{"missing type", `{"date":"2026-10-20","index":0}`, "date, type and index are required"},
		{"bad date", `{"date":"2026-1-2","type":"meal","index":0}`, "invalid date, expected YYYY-MM-DD"},
		{"bad type", `{"date":"2026-10-20","type":"snack","index":0}`, "type must be one of: meal, exercise"},
		{"negative index", `{"date":"2026-10-20","type":"exercise","index":-1}`, "index must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPost, "/api/progress/toggle-completion", "/api/progress/toggle-completion", tc.body,
				func(h *Handler) gin.HandlerFunc { return h.toggleCompletion })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestDateParams_Validation(t *testing.T) {
	get := func(h *Handler) gin.HandlerFunc { return h.getProgressEntry }
	del := func(h *Handler) gin.HandlerFunc { return h.deleteProgressEntry }

	w := serve(t, http.MethodGet, "/api/progress/:date", "/api/progress/yesterday", "", get)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, http.MethodDelete, "/api/progress/:date", "/api/progress/2026-13-01", "", del)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid date, expected YYYY-MM-DD", errorMessage(t, w))
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		name, query, want string
	}{
		{"missing both", "", "start and end query params are required"},
		{"missing end", "?start=2026-10-01", "start and end query params are required"},
		{"bad start", "?start=2026-10&end=2026-10-31", "invalid start, expected YYYY-MM-DD"},
		{"bad end", "?start=2026-10-01&end=31-10-2026", "invalid end, expected YYYY-MM-DD"},
		{"reversed", "?start=2026-10-31&end=2026-10-01", "start must not be after end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodGet, "/api/progress", "/api/progress"+tc.query, "",
				func(h *Handler) gin.HandlerFunc { return h.getProgressEntries })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/progress?start=2026-10-01&end=2026-10-01", nil)
	start, end, ok := parseRange(c)
	assert.True(t, ok)
	assert.Equal(t, day(2026, 10, 1), start)
	assert.Equal(t, start, end)
}

/* ─── reminder refresh ───────────────────────────────────────────────── */

type fakeRefresher struct {
	window    time.Time
	refreshed []time.Time
	userIDs   []int
}

func (f *fakeRefresher) InWindow(date time.Time) bool {
	return !date.After(f.window)
}

func (f *fakeRefresher) Refresh(_ context.Context, userID int, date time.Time) {
	f.userIDs = append(f.userIDs, userID)
	f.refreshed = append(f.refreshed, date)
}

func TestRefreshReminders_OnlyInsideWindow(t *testing.T) {
	fake := &fakeRefresher{window: day(2026, 10, 21)}
	h := &Handler{reminders: fake, log: zap.NewNop()}
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	h.refreshReminders(c, 4, day(2026, 10, 20))
	h.refreshReminders(c, 4, day(2026, 10, 21))
	h.refreshReminders(c, 4, day(2026, 10, 22))

	assert.Equal(t, []time.Time{day(2026, 10, 20), day(2026, 10, 21)}, fake.refreshed)
	assert.Equal(t, []int{4, 4}, fake.userIDs)
}

func TestRefreshReminders_NoService(t *testing.T) {
	h := &Handler{log: zap.NewNop()}
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotPanics(t, func() { h.refreshReminders(c, 4, day(2026, 10, 20)) })
}
