package main

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOwnershipDenied(t *testing.T) {
	owner := testUserID
	other := testUserID + 1

	cases := []struct {
		name      string
		verb      string
		isCommon  bool
		createdBy *int
		role      string
		want      string
	}{
		{"own private item", "delete", false, &owner, "user", ""},
		{"common item", "delete", true, nil, "user", "cannot delete common items"},
		{"someone else's item", "delete", false, &other, "user", "cannot delete other users' items"},
		{"orphaned item", "delete", false, nil, "user", "cannot delete other users' items"},
		{"admin on common item", "delete", true, nil, "admin", ""},
		{"admin on someone else's item", "delete", false, &other, "admin", ""},
		{"update own item", "update", false, &owner, "user", ""},
		{"update common item", "update", true, &owner, "user", "cannot update common items"},
		{"update someone else's item", "update", false, &other, "user", "cannot update other users' items"},
		{"admin updates common item", "update", true, nil, "admin", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ownershipDenied(tc.verb, tc.isCommon, tc.createdBy, testUserID, tc.role))
		})
	}
}

func TestCheckAmount(t *testing.T) {
	assert.Empty(t, checkAmount("calories", ptr(0.0)))
	assert.Empty(t, checkAmount("calories", ptr(250.0)))
	assert.Empty(t, checkAmount("fat", ptr(12.35)))
	assert.Empty(t, checkAmount("fat", ptr(0.1)))

	assert.Equal(t, "carbs is required", checkAmount("carbs", nil))
	assert.Equal(t, "protein cannot be negative", checkAmount("protein", ptr(-1.0)))
	assert.Equal(t, "weight_grams can only have up to 2 decimal places", checkAmount("weight_grams", ptr(10.125)))
}

func TestVisibilityFilter(t *testing.T) {
	assert.Equal(t, "is_common", visibilityFilter("true"))
	assert.Equal(t, "created_by = @userID AND NOT is_common", visibilityFilter("false"))
	assert.Equal(t, "(is_common OR created_by = @userID)", visibilityFilter(""))
	assert.Equal(t, "(is_common OR created_by = @userID)", visibilityFilter("yes"))
}

func TestCreateMeal_Validation(t *testing.T) {
	full := `"calories":200,"carbs":20,"protein":10,"fat":5,"weight_grams":150`
	cases := []struct {
		name, body, want string
	}{
		{"not json", `[`, "invalid request body"},
		{"missing name", `{` + full + `}`, "name is required"},
		{"missing fat", `{"name":"Phở","calories":200,"carbs":20,"protein":10,"weight_grams":150}`, "fat is required"},
		{"negative calories", `{"name":"Phở","calories":-5,"carbs":20,"protein":10,"fat":5,"weight_grams":150}`, "calories cannot be negative"},
		{"too precise", `{"name":"Phở","calories":200,"carbs":20.123,"protein":10,"fat":5,"weight_grams":150}`, "carbs can only have up to 2 decimal places"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPost, "/api/meals", "/api/meals", tc.body,
				func(h *Handler) gin.HandlerFunc { return h.createMeal })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestCreateExercise_Validation(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"missing name", `{"duration_minutes":30,"calories_burned":200}`, "name is required"},
		{"missing duration", `{"name":"Chạy bộ","calories_burned":200}`, "duration_minutes must be positive"},
		{"zero duration", `{"name":"Chạy bộ","duration_minutes":0,"calories_burned":200}`, "duration_minutes must be positive"},
		{"missing calories", `{"name":"Chạy bộ","duration_minutes":30}`, "calories_burned is required"},
		{"bad difficulty", `{"name":"Chạy bộ","duration_minutes":30,"calories_burned":200,"difficulty":"extreme"}`,
			"difficulty must be one of: beginner, intermediate, advanced"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPost, "/api/exercises", "/api/exercises", tc.body,
				func(h *Handler) gin.HandlerFunc { return h.createExercise })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestDeleteLibraryItem_BadID(t *testing.T) {
	for _, id := range []string{"abc", "0", "-3"} {
		w := serve(t, http.MethodDelete, "/api/meals/:id", "/api/meals/"+id, "",
			func(h *Handler) gin.HandlerFunc { return h.deleteMeal })
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
		assert.Equal(t, "invalid id", errorMessage(t, w))
	}
}

func TestUpdateMeal_Validation(t *testing.T) {
	cases := []struct {
		name, target, body, want string
	}{
		{"bad id", "/api/meals/abc", `{"name":"Phở"}`, "invalid id"},
		{"not json", "/api/meals/3", `[`, "invalid request body"},
		{"empty body", "/api/meals/3", `{}`, "no fields to update"},
		{"blank name", "/api/meals/3", `{"name":"  "}`, "name cannot be empty"},
		{"negative protein", "/api/meals/3", `{"protein":-2}`, "protein cannot be negative"},
		{"too precise", "/api/meals/3", `{"calories":100.555}`, "calories can only have up to 2 decimal places"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPut, "/api/meals/:id", tc.target, tc.body,
				func(h *Handler) gin.HandlerFunc { return h.updateMeal })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestValidateMealUpdate_PartialBodies(t *testing.T) {
	assert.Empty(t, validateMealUpdate(updateMealRequest{Calories: ptr(320.5)}))
	assert.Empty(t, validateMealUpdate(updateMealRequest{Description: ptr("")}))
	assert.Empty(t, validateMealUpdate(updateMealRequest{Name: ptr("Bún chả"), Fat: ptr(0.0)}))
}

func TestUpdateExercise_Validation(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"empty body", `{}`, "no fields to update"},
		{"blank name", `{"name":""}`, "name cannot be empty"},
		{"zero duration", `{"duration_minutes":0}`, "duration_minutes must be positive"},
		{"negative calories", `{"calories_burned":-10}`, "calories_burned cannot be negative"},
		{"bad difficulty", `{"difficulty":"extreme"}`, "difficulty must be one of: beginner, intermediate, advanced"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, http.MethodPut, "/api/exercises/:id", "/api/exercises/4", tc.body,
				func(h *Handler) gin.HandlerFunc { return h.updateExercise })
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorMessage(t, w))
		})
	}
}

func TestValidateExerciseUpdate_PartialBodies(t *testing.T) {
	assert.Empty(t, validateExerciseUpdate(updateExerciseRequest{Difficulty: ptr("advanced")}))
	assert.Empty(t, validateExerciseUpdate(updateExerciseRequest{VideoURL: ptr("https://example.com/v")}))
	assert.Empty(t, validateExerciseUpdate(updateExerciseRequest{DurationMinutes: ptr(20), CaloriesBurned: ptr(150.25)}))
}
