package main

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gymnet/go-api/internal/reminder"
)

const calendarProductID = "-//GymNet//Progress//VI"

// calendarNamespace seeds the deterministic event UIDs, so a re-export of
// the same slot updates the client's copy instead of duplicating it.
var calendarNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://gymnet.app/calendar"))

// Default event lengths when the library has no duration.
const (
	mealEventLength     = 30 * time.Minute
	exerciseEventLength = 45 * time.Minute
)

// buildCalendar renders every planned meal and exercise of entries as a
// VEVENT. offsetMinutes converts the local HH:MM slots to UTC the same way
// reminders do.
func buildCalendar(entries []progressEntry, offsetMinutes int, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, calendarProductID)

	add := func(e progressEntry, kind itemKind, it entryItem, length time.Duration) {
		start := reminder.EventInstant(e.Date.Time, it.Time, offsetMinutes)
		name := string(kind)
		if it.Name != nil {
			name = *it.Name
		}
		key := fmt.Sprintf("%d/%s/%s/%d", e.UserID, e.Date.Format("2006-01-02"), kind, it.Position)

		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, uuid.NewSHA1(calendarNamespace, []byte(key)).String()+"@gymnet.app")
		ev.Props.SetText(ical.PropSummary, name)
		ev.Props.SetText(ical.PropCategories, string(kind))
		if it.Completed {
			ev.Props.SetText(ical.PropStatus, "CONFIRMED")
		}
		ev.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(length).UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		cal.Children = append(cal.Children, ev.Component)
	}

	for _, e := range entries {
		for _, m := range e.Meals {
			if m.Time != "" {
				add(e, kindMeal, m, mealEventLength)
			}
		}
		for _, x := range e.Exercises {
			if x.Time != "" {
				add(e, kindExercise, x, exerciseEventLength)
			}
		}
	}
	return cal
}

// getProgressCalendar exports planned meals and exercises as iCalendar.
// GET /api/progress/calendar.ics?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *Handler) getProgressCalendar(c *gin.Context) {
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

	// Unparseable settings fall back to defaults, which is all the export needs.
	settings, _ := reminder.SettingsFromEnv()
	cal := buildCalendar(entries, settings.LocalOffsetMinutes, time.Now())
	// A VCALENDAR needs at least one component to be valid.
	if len(cal.Children) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to encode calendar")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="gymnet.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
