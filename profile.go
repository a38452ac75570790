package main

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// getProfile returns the authenticated user.
// GET /api/profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}

	c.JSON(http.StatusOK, u)
}

// patchProfile updates only the provided profile fields.
// PATCH /api/profile. The email set here is where reminders are sent; the
// reminder service reads it at scheduling time, so no refresh is needed.
func (h *Handler) patchProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Build SET clause dynamically; only update fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}

	if body.Name != nil {
		setClauses = append(setClauses, "name = @name")
		args["name"] = strings.TrimSpace(*body.Name)
	}
	if body.Email != nil {
		addr, err := mail.ParseAddress(*body.Email)
		if err != nil || addr.Address != strings.TrimSpace(*body.Email) {
			apiError(c, http.StatusBadRequest, "invalid email")
			return
		}
		setClauses = append(setClauses, "email = @email")
		args["email"] = addr.Address
	}
	if body.DailyCalories != nil {
		if *body.DailyCalories <= 0 || *body.DailyCalories > 20000 {
			apiError(c, http.StatusBadRequest, "daily_calories must be between 1 and 20000")
			return
		}
		setClauses = append(setClauses, "daily_calories = @dailyCalories")
		args["dailyCalories"] = *body.DailyCalories
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE users SET " + strings.Join(setClauses, ", ") +
		" WHERE id = @userID RETURNING *"

	u, err := queryOne[user](h.db, c, query, args)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			apiError(c, http.StatusConflict, "email already in use")
			return
		}
		apiError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, u)
}
