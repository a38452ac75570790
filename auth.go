package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash stands in for the stored hash of an unknown email, so a login for
// an account that does not exist still pays for one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

// login trades an email and password for the member's API token and role.
// POST /api/login. Emails match case-insensitively.
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	u, lookupErr := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE lower(email) = lower(@email)",
		pgx.NamedArgs{"email": strings.TrimSpace(body.Email)})

	stored := string(dummyHash)
	if lookupErr == nil {
		stored = u.Password
	}
	// Unknown email and wrong password get the same answer.
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(body.Password)); err != nil || lookupErr != nil {
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": u.AuthToken, "user_id": u.ID, "role": u.Role})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-sensitive and the token must not be empty.
func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// authMiddleware guards /api. Handlers behind it read the caller from
// c.GetInt("user_id") and c.GetString("role").
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			apiError(c, http.StatusUnauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		var userID int
		var role string
		err := h.db.QueryRow(c, "SELECT id, role FROM users WHERE auth_token = $1", token).Scan(&userID, &role)
		if err != nil {
			apiError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}
