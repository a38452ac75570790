package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// validDifficulties is the set of allowed values for exercises.difficulty.
var validDifficulties = map[string]bool{
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
}

// visibilityFilter builds the WHERE clause for ?common=true|false. Without the
// param the caller sees common items plus their own.
func visibilityFilter(common string) string {
	switch common {
	case "true":
		return "is_common"
	case "false":
		return "created_by = @userID AND NOT is_common"
	default:
		return "(is_common OR created_by = @userID)"
	}
}

// checkAmount rejects negative values and more than two decimal places.
func checkAmount(field string, v *float64) string {
	if v == nil {
		return field + " is required"
	}
	if *v < 0 {
		return field + " cannot be negative"
	}
	if scaled := *v * 100; math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		return field + " can only have up to 2 decimal places"
	}
	return ""
}

// getMeals lists meals visible to the user, newest first.
// GET /api/meals?common=true|false.
func (h *Handler) getMeals(c *gin.Context) {
	userID := c.GetInt("user_id")

	meals, err := queryMany[meal](h.db, c,
		"SELECT * FROM meals WHERE "+visibilityFilter(c.Query("common"))+" ORDER BY created_at DESC",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meals")
		return
	}
	if meals == nil {
		meals = []meal{}
	}

	c.JSON(http.StatusOK, meals)
}

// createMeal adds a private meal owned by the user.
// POST /api/meals. Name and all nutrition values are required.
func (h *Handler) createMeal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		apiError(c, http.StatusBadRequest, "name is required")
		return
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"calories", body.Calories},
		{"carbs", body.Carbs},
		{"protein", body.Protein},
		{"fat", body.Fat},
		{"weight_grams", body.WeightGrams},
	} {
		if msg := checkAmount(f.name, f.v); msg != "" {
			apiError(c, http.StatusBadRequest, msg)
			return
		}
	}

	m, err := queryOne[meal](h.db, c,
		`INSERT INTO meals (name, description, calories, carbs, protein, fat, weight_grams, is_common, created_by)
		 VALUES (@name, @description, @calories, @carbs, @protein, @fat, @weightGrams, false, @userID)
		 RETURNING *`,
		pgx.NamedArgs{
			"name": body.Name, "description": body.Description,
			"calories": *body.Calories, "carbs": *body.Carbs, "protein": *body.Protein,
			"fat": *body.Fat, "weightGrams": *body.WeightGrams, "userID": userID,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create meal")
		return
	}

	c.JSON(http.StatusCreated, m)
}

// updateMeal edits a meal the user owns. Only the fields sent are written.
// PUT /api/meals/:id.
func (h *Handler) updateMeal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body updateMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateMealUpdate(body); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if !h.authorizeOwner(c, "meals", "meal", "update", id) {
		return
	}

	setClauses := []string{"updated_at = now()"}
	args := pgx.NamedArgs{"id": id}
	if body.Name != nil {
		setClauses = append(setClauses, "name = @name")
		args["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Description != nil {
		setClauses = append(setClauses, "description = @description")
		args["description"] = *body.Description
	}
	for _, f := range []struct {
		column string
		v      *float64
	}{
		{"calories", body.Calories},
		{"carbs", body.Carbs},
		{"protein", body.Protein},
		{"fat", body.Fat},
		{"weight_grams", body.WeightGrams},
	} {
		if f.v != nil {
			setClauses = append(setClauses, f.column+" = @"+f.column)
			args[f.column] = *f.v
		}
	}

	m, err := queryOne[meal](h.db, c,
		"UPDATE meals SET "+strings.Join(setClauses, ", ")+" WHERE id = @id RETURNING *", args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update meal")
		return
	}

	c.JSON(http.StatusOK, m)
}

func validateMealUpdate(body updateMealRequest) string {
	if body.Name == nil && body.Description == nil && body.Calories == nil && body.Carbs == nil &&
		body.Protein == nil && body.Fat == nil && body.WeightGrams == nil {
		return "no fields to update"
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
		return "name cannot be empty"
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"calories", body.Calories},
		{"carbs", body.Carbs},
		{"protein", body.Protein},
		{"fat", body.Fat},
		{"weight_grams", body.WeightGrams},
	} {
		if f.v == nil {
			continue
		}
		if msg := checkAmount(f.name, f.v); msg != "" {
			return msg
		}
	}
	return ""
}

// deleteMeal removes a meal the user owns.
// DELETE /api/meals/:id. Common meals can only be removed by admins.
func (h *Handler) deleteMeal(c *gin.Context) {
	h.deleteLibraryItem(c, "meals", "meal")
}

// getExercises lists exercises visible to the user, newest first.
// GET /api/exercises?common=true|false.
func (h *Handler) getExercises(c *gin.Context) {
	userID := c.GetInt("user_id")

	exercises, err := queryMany[exercise](h.db, c,
		"SELECT * FROM exercises WHERE "+visibilityFilter(c.Query("common"))+" ORDER BY created_at DESC",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch exercises")
		return
	}
	if exercises == nil {
		exercises = []exercise{}
	}

	c.JSON(http.StatusOK, exercises)
}

// createExercise adds a private exercise owned by the user.
// POST /api/exercises.
func (h *Handler) createExercise(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createExerciseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		apiError(c, http.StatusBadRequest, "name is required")
		return
	}
	if body.DurationMinutes == nil || *body.DurationMinutes <= 0 {
		apiError(c, http.StatusBadRequest, "duration_minutes must be positive")
		return
	}
	if msg := checkAmount("calories_burned", body.CaloriesBurned); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if body.Difficulty == "" {
		body.Difficulty = "beginner"
	}
	if !validDifficulties[body.Difficulty] {
		apiError(c, http.StatusBadRequest, "difficulty must be one of: beginner, intermediate, advanced")
		return
	}

	e, err := queryOne[exercise](h.db, c,
		`INSERT INTO exercises (name, description, duration_minutes, calories_burned, video_url, difficulty, is_common, created_by)
		 VALUES (@name, @description, @duration, @caloriesBurned, @videoURL, @difficulty, false, @userID)
		 RETURNING *`,
		pgx.NamedArgs{
			"name": body.Name, "description": body.Description,
			"duration": *body.DurationMinutes, "caloriesBurned": *body.CaloriesBurned,
			"videoURL": body.VideoURL, "difficulty": body.Difficulty, "userID": userID,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create exercise")
		return
	}

	c.JSON(http.StatusCreated, e)
}

// updateExercise edits an exercise the user owns.
// PUT /api/exercises/:id.
func (h *Handler) updateExercise(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body updateExerciseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateExerciseUpdate(body); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if !h.authorizeOwner(c, "exercises", "exercise", "update", id) {
		return
	}

	setClauses := []string{"updated_at = now()"}
	args := pgx.NamedArgs{"id": id}
	if body.Name != nil {
		setClauses = append(setClauses, "name = @name")
		args["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Description != nil {
		setClauses = append(setClauses, "description = @description")
		args["description"] = *body.Description
	}
	if body.DurationMinutes != nil {
		setClauses = append(setClauses, "duration_minutes = @duration")
		args["duration"] = *body.DurationMinutes
	}
	if body.CaloriesBurned != nil {
		setClauses = append(setClauses, "calories_burned = @caloriesBurned")
		args["caloriesBurned"] = *body.CaloriesBurned
	}
	if body.VideoURL != nil {
		setClauses = append(setClauses, "video_url = @videoURL")
		args["videoURL"] = *body.VideoURL
	}
	if body.Difficulty != nil {
		setClauses = append(setClauses, "difficulty = @difficulty")
		args["difficulty"] = *body.Difficulty
	}

	e, err := queryOne[exercise](h.db, c,
		"UPDATE exercises SET "+strings.Join(setClauses, ", ")+" WHERE id = @id RETURNING *", args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update exercise")
		return
	}

	c.JSON(http.StatusOK, e)
}

func validateExerciseUpdate(body updateExerciseRequest) string {
	if body.Name == nil && body.Description == nil && body.DurationMinutes == nil &&
		body.CaloriesBurned == nil && body.VideoURL == nil && body.Difficulty == nil {
		return "no fields to update"
	}
	if body.Name != nil && strings.TrimSpace(*body.Name) == "" {
		return "name cannot be empty"
	}
	if body.DurationMinutes != nil && *body.DurationMinutes <= 0 {
		return "duration_minutes must be positive"
	}
	if body.CaloriesBurned != nil {
		if msg := checkAmount("calories_burned", body.CaloriesBurned); msg != "" {
			return msg
		}
	}
	if body.Difficulty != nil && !validDifficulties[*body.Difficulty] {
		return "difficulty must be one of: beginner, intermediate, advanced"
	}
	return ""
}

// deleteExercise removes an exercise the user owns.
// DELETE /api/exercises/:id.
func (h *Handler) deleteExercise(c *gin.Context) {
	h.deleteLibraryItem(c, "exercises", "exercise")
}

// parseID reads the :id path param. It writes a 400 and returns false when
// the id is not a positive integer.
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		apiError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// authorizeOwner checks that the caller may verb the row id of table. On
// refusal it writes 404, 403 or 500 and returns false.
func (h *Handler) authorizeOwner(c *gin.Context, table, noun, verb string, id int) bool {
	var owner struct {
		IsCommon  bool
		CreatedBy *int
	}
	err := h.db.QueryRow(c, "SELECT is_common, created_by FROM "+table+" WHERE id = $1", id).
		Scan(&owner.IsCommon, &owner.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		apiError(c, http.StatusNotFound, noun+" not found")
		return false
	}
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch "+noun)
		return false
	}
	if msg := ownershipDenied(verb, owner.IsCommon, owner.CreatedBy, c.GetInt("user_id"), c.GetString("role")); msg != "" {
		apiError(c, http.StatusForbidden, msg)
		return false
	}
	return true
}

// deleteLibraryItem enforces ownership before deleting from table. Returns 204
// on success, 403 for common or foreign items, 404 if the row does not exist.
// Plans and weekly plans go through here too.
func (h *Handler) deleteLibraryItem(c *gin.Context, table, noun string) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !h.authorizeOwner(c, table, noun, "delete", id) {
		return
	}

	if _, err := h.db.Exec(c, "DELETE FROM "+table+" WHERE id = $1", id); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete "+noun)
		return
	}

	c.Status(http.StatusNoContent)
}

// ownershipDenied returns why the caller may not verb an item, or "".
// Admins may change anything; everyone else only their own private items.
func ownershipDenied(verb string, isCommon bool, createdBy *int, userID int, role string) string {
	if role == "admin" {
		return ""
	}
	if isCommon {
		return "cannot " + verb + " common items"
	}
	if createdBy == nil || *createdBy != userID {
		return "cannot " + verb + " other users' items"
	}
	return ""
}
