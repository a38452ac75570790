package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// reminderRefresher is the part of the reminder service the write path needs.
type reminderRefresher interface {
	InWindow(date time.Time) bool
	Refresh(ctx context.Context, userID int, date time.Time)
}

// Handler holds shared dependencies (db pool, reminder service, logger) for all route handlers.
type Handler struct {
	db        *pgxpool.Pool
	store     *progressStore
	plans     *planStore
	reminders reminderRefresher
	log       *zap.Logger
}

func newHandler(pool *pgxpool.Pool, store *progressStore, reminders reminderRefresher, log *zap.Logger) *Handler {
	return &Handler{
		db:        pool,
		store:     store,
		plans:     newPlanStore(pool),
		reminders: reminders,
		log:       log.Named("api"),
	}
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// pgQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
func queryOne[T any](q pgQuerier, ctx context.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		zap.L().Error("query failed", zap.String("helper", "queryOne"), zap.Error(err))
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		zap.L().Error("scan failed", zap.String("helper", "queryOne"), zap.Error(err))
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](q pgQuerier, ctx context.Context, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		zap.L().Error("query failed", zap.String("helper", "queryMany"), zap.Error(err))
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		zap.L().Error("scan failed", zap.String("helper", "queryMany"), zap.Error(err))
	}
	return results, err
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// parseDate validates a YYYY-MM-DD string and returns it as midnight UTC.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// the hosted Postgres closes idle connections after a few minutes.
func getDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from a server-side prepared statement cache after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	router.POST("/api/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/progress", h.getProgressEntries)
	api.GET("/progress/calendar.ics", h.getProgressCalendar)
	api.GET("/progress/:date", h.getProgressEntry)
	api.POST("/progress", h.upsertProgressEntry)
	api.POST("/progress/apply-daily", h.applyDailyPlan)
	api.POST("/progress/apply-weekly", h.applyWeeklyPlan)
	api.POST("/progress/toggle-completion", h.toggleCompletion)
	api.DELETE("/progress/:date", h.deleteProgressEntry)
	api.GET("/meals", h.getMeals)
	api.POST("/meals", h.createMeal)
	api.PUT("/meals/:id", h.updateMeal)
	api.DELETE("/meals/:id", h.deleteMeal)
	api.GET("/exercises", h.getExercises)
	api.POST("/exercises", h.createExercise)
	api.PUT("/exercises/:id", h.updateExercise)
	api.DELETE("/exercises/:id", h.deleteExercise)
	api.GET("/plans", h.getPlans)
	api.POST("/plans", h.createPlan)
	api.PUT("/plans/:id", h.updatePlan)
	api.DELETE("/plans/:id", h.deletePlan)
	api.GET("/weekly-plans", h.getWeeklyPlans)
	api.POST("/weekly-plans", h.createWeeklyPlan)
	api.PUT("/weekly-plans/:id", h.updateWeeklyPlan)
	api.DELETE("/weekly-plans/:id", h.deleteWeeklyPlan)
	api.GET("/statistics", h.getStatistics)
	api.GET("/profile", h.getProfile)
	api.PATCH("/profile", h.patchProfile)
}
