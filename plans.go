package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// validGoals is the set of allowed values for plans.goal and weekly_plans.goal.
var validGoals = map[string]bool{
	"weight_loss":       true,
	"muscle_gain":       true,
	"healthy_lifestyle": true,
}

const defaultGoal = "healthy_lifestyle"

// validatePlan returns an error message for a malformed plan body, or "".
// Name is only required when creating.
func validatePlan(body planRequest, creating bool) string {
	if creating && body.Name == nil {
		return "name is required"
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
		return "name cannot be empty"
	}
	if body.Goal != nil && !validGoals[*body.Goal] {
		return "goal must be one of: weight_loss, muscle_gain, healthy_lifestyle"
	}
	if msg := validateItems("meals", body.Meals); msg != "" {
		return msg
	}
	if msg := validateItems("exercises", body.Exercises); msg != "" {
		return msg
	}
	if !creating && body.Name == nil && body.Description == nil && body.Goal == nil &&
		body.Meals == nil && body.Exercises == nil {
		return "no fields to update"
	}
	return ""
}

func validateWeeklyPlan(body weeklyPlanRequest, creating bool) string {
	if creating && body.Name == nil {
		return "name is required"
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
		return "name cannot be empty"
	}
	if body.Goal != nil && !validGoals[*body.Goal] {
		return "goal must be one of: weight_loss, muscle_gain, healthy_lifestyle"
	}
	if body.Days != nil {
		for _, id := range body.Days.list() {
			if id != nil && *id <= 0 {
				return "days: plan ids must be positive"
			}
		}
	}
	if !creating && body.Name == nil && body.Description == nil && body.Goal == nil && body.Days == nil {
		return "no fields to update"
	}
	return ""
}

// isForeignKeyViolation reports whether err is a reference to a missing row.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

/* ─── Daily plans ────────────────────────────────────────────────────── */

// getPlans lists plans visible to the user with their slots and calorie totals.
// GET /api/plans?common=true|false.
func (h *Handler) getPlans(c *gin.Context) {
	userID := c.GetInt("user_id")

	plans, err := h.plans.listPlans(c, userID, c.Query("common"))
	if err != nil {
		h.log.Error("list plans failed", zap.Int("user_id", userID), zap.Error(err))
		apiError(c, http.StatusInternalServerError, "failed to fetch plans")
		return
	}
	if plans == nil {
		plans = []plan{}
	}

	c.JSON(http.StatusOK, plans)
}

// createPlan adds a private plan owned by the user.
// POST /api/plans. Goal defaults to healthy_lifestyle.
func (h *Handler) createPlan(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body planRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePlan(body, true); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if body.Goal == nil {
		goal := defaultGoal
		body.Goal = &goal
	}

	p, err := h.plans.createPlan(c, userID, body)
	if isForeignKeyViolation(err) {
		apiError(c, http.StatusBadRequest, "unknown meal or exercise")
		return
	}
	if err != nil {
		h.log.Error("create plan failed", zap.Int("user_id", userID), zap.Error(err))
		apiError(c, http.StatusInternalServerError, "failed to create plan")
		return
	}

	c.JSON(http.StatusCreated, p)
}

// updatePlan edits a plan the user owns. Sent meal or exercise lists replace
// the stored ones.
// PUT /api/plans/:id.
func (h *Handler) updatePlan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body planRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePlan(body, false); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if !h.authorizeOwner(c, "plans", "plan", "update", id) {
		return
	}

	p, err := h.plans.updatePlan(c, id, body)
	if isForeignKeyViolation(err) {
		apiError(c, http.StatusBadRequest, "unknown meal or exercise")
		return
	}
	if err != nil {
		h.log.Error("update plan failed", zap.Int("plan_id", id), zap.Error(err))
		apiError(c, http.StatusInternalServerError, "failed to update plan")
		return
	}

	c.JSON(http.StatusOK, p)
}

// deletePlan removes a plan the user owns. Weekly plans using it get a rest day.
// DELETE /api/plans/:id.
func (h *Handler) deletePlan(c *gin.Context) {
	h.deleteLibraryItem(c, "plans", "plan")
}

/* ─── Weekly plans ───────────────────────────────────────────────────── */

// GET /api/weekly-plans?common=true|false.
func (h *Handler) getWeeklyPlans(c *gin.Context) {
	userID := c.GetInt("user_id")

	plans, err := h.plans.listWeeklyPlans(c, userID, c.Query("common"))
	if err != nil {
		h.log.Error("list weekly plans failed", zap.Int("user_id", userID), zap.Error(err))
		apiError(c, http.StatusInternalServerError, "failed to fetch weekly plans")
		return
	}
	if plans == nil {
		plans = []weeklyPlan{}
	}

	c.JSON(http.StatusOK, plans)
}

// createWeeklyPlan adds a private weekly plan. Every day must name a plan
// the user can see; missing days are rest days.
// POST /api/weekly-plans.
func (h *Handler) createWeeklyPlan(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body weeklyPlanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateWeeklyPlan(body, true); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if body.Goal == nil {
		goal := defaultGoal
		body.Goal = &goal
	}
	if !h.checkWeekDays(c, userID, body.Days) {
		return
	}

	w, err := h.plans.createWeeklyPlan(c, userID, body)
	if err != nil {
		h.log.Error("create weekly plan failed", zap.Int("user_id", userID), zap.Error(err))
		apiError(c, http.StatusInternalServerError, "failed to create weekly plan")
		return
	}

	c.JSON(http.StatusCreated, w)
}

// PUT /api/weekly-plans/:id.
func (h *Handler) updateWeeklyPlan(c *gin.Context) {
	userID := c.GetInt("user_id")
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body weeklyPlanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateWeeklyPlan(body, false); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if !h.authorizeOwner(c, "weekly_plans", "weekly plan", "update", id) {
		return
	}
	if !h.checkWeekDays(c, userID, body.Days) {
		return
	}

	w, err := h.plans.updateWeeklyPlan(c, id, body)
	if err != nil {
		h.log.Error("update weekly plan failed", zap.Int("weekly_plan_id", id), zap.Error(err))
		apiError(c, http.StatusInternalServerError, "failed to update weekly plan")
		return
	}

	c.JSON(http.StatusOK, w)
}

// DELETE /api/weekly-plans/:id.
func (h *Handler) deleteWeeklyPlan(c *gin.Context) {
	h.deleteLibraryItem(c, "weekly_plans", "weekly plan")
}

// checkWeekDays writes a 400 and returns false when a day names a plan the
// user cannot see.
func (h *Handler) checkWeekDays(c *gin.Context, userID int, days *weekDays) bool {
	if days == nil {
		return true
	}
	var ids []int
	for _, id := range days.list() {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	missing, err := h.plans.missingPlans(c, userID, ids)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch plans")
		return false
	}
	if len(missing) > 0 {
		apiError(c, http.StatusBadRequest, fmt.Sprintf("plan %d not found", missing[0]))
		return false
	}
	return true
}
