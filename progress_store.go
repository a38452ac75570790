package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gymnet/go-api/internal/reminder"
)

// itemKind selects the child table and library table for an entry item.
type itemKind string

const (
	kindMeal     itemKind = "meal"
	kindExercise itemKind = "exercise"
)

// tables returns the child table, library table and calorie column for kind.
func (k itemKind) tables() (child, library, calories string) {
	if k == kindExercise {
		return "progress_entry_exercises", "exercises", "calories_burned"
	}
	return "progress_entry_meals", "meals", "calories"
}

// progressStore reads and writes progress entries. It also serves the
// reminder service as its EntryStore and UserDirectory.
type progressStore struct {
	db *pgxpool.Pool
}

var (
	_ reminder.EntryStore    = (*progressStore)(nil)
	_ reminder.UserDirectory = (*progressStore)(nil)
)

func newProgressStore(pool *pgxpool.Pool) *progressStore {
	return &progressStore{db: pool}
}

// entryWrite is a full or partial replacement of one day's entry. Nil lists
// keep what is stored.
type entryWrite struct {
	Date      time.Time
	Meals     *[]itemRequest
	Exercises *[]itemRequest
	PlanID    *int
	PlanType  *string
	Notes     *string
}

/* ─── Reads ──────────────────────────────────────────────────────────── */

// entryByDate returns the user's entry for date, or nil if there is none.
func (s *progressStore) entryByDate(ctx context.Context, userID int, date time.Time) (*progressEntry, error) {
	e, err := queryOne[progressEntry](s.db, ctx,
		"SELECT * FROM progress_entries WHERE user_id = @userID AND date = @date",
		pgx.NamedArgs{"userID": userID, "date": date.Format("2006-01-02")})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entries := []progressEntry{e}
	if err := s.attachItems(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// entriesInRange returns the user's entries in [start, end], ordered by date.
func (s *progressStore) entriesInRange(ctx context.Context, userID int, start, end time.Time) ([]progressEntry, error) {
	entries, err := queryMany[progressEntry](s.db, ctx,
		`SELECT * FROM progress_entries
		 WHERE user_id = @userID AND date >= @start AND date <= @end
		 ORDER BY date ASC`,
		pgx.NamedArgs{
			"userID": userID,
			"start":  start.Format("2006-01-02"),
			"end":    end.Format("2006-01-02"),
		})
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// attachItems loads the meals and exercises of entries in two queries and
// assigns them in position order.
func (s *progressStore) attachItems(ctx context.Context, entries []progressEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int, len(entries))
	byID := make(map[int]*progressEntry, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
		byID[entries[i].ID] = &entries[i]
		entries[i].Meals = []entryItem{}
		entries[i].Exercises = []entryItem{}
	}

	for _, kind := range []itemKind{kindMeal, kindExercise} {
		child, library, calories := kind.tables()
		items, err := queryMany[entryItem](s.db, ctx, fmt.Sprintf(
			`SELECT c.entry_id, c.position, c.time, c.item_id, c.completed,
			        l.name, l.%s::float8 AS calories
			 FROM %s c LEFT JOIN %s l ON l.id = c.item_id
			 WHERE c.entry_id = ANY(@ids::int[])
			 ORDER BY c.entry_id, c.position`, calories, child, library),
			pgx.NamedArgs{"ids": ids})
		if err != nil {
			return fmt.Errorf("load %s items: %w", kind, err)
		}
		for _, it := range items {
			e := byID[it.EntryID]
			if kind == kindMeal {
				e.Meals = append(e.Meals, it)
			} else {
				e.Exercises = append(e.Exercises, it)
			}
		}
	}
	return nil
}

/* ─── Writes ─────────────────────────────────────────────────────────── */

// saveEntry upserts the entry for (userID, w.Date) and replaces the item lists
// that w carries, all in one transaction.
func (s *progressStore) saveEntry(ctx context.Context, userID int, w entryWrite) (*progressEntry, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var entryID int
	err = tx.QueryRow(ctx,
		`INSERT INTO progress_entries (user_id, date, plan_id, plan_type, notes)
		 VALUES (@userID, @date, @planID, @planType, @notes)
		 ON CONFLICT (user_id, date) DO UPDATE SET
			plan_id    = COALESCE(EXCLUDED.plan_id, progress_entries.plan_id),
			plan_type  = COALESCE(EXCLUDED.plan_type, progress_entries.plan_type),
			notes      = COALESCE(EXCLUDED.notes, progress_entries.notes),
			updated_at = now()
		 RETURNING id`,
		pgx.NamedArgs{
			"userID":   userID,
			"date":     w.Date.Format("2006-01-02"),
			"planID":   w.PlanID,
			"planType": w.PlanType,
			"notes":    w.Notes,
		}).Scan(&entryID)
	if err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}

	if w.Meals != nil {
		if err := replaceItems(ctx, tx, kindMeal, entryID, *w.Meals); err != nil {
			return nil, err
		}
	}
	if w.Exercises != nil {
		if err := replaceItems(ctx, tx, kindExercise, entryID, *w.Exercises); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.entryByDate(ctx, userID, w.Date)
}

func replaceItems(ctx context.Context, tx pgx.Tx, kind itemKind, entryID int, items []itemRequest) error {
	child, _, _ := kind.tables()
	if _, err := tx.Exec(ctx, "DELETE FROM "+child+" WHERE entry_id = $1", entryID); err != nil {
		return fmt.Errorf("clear %s items: %w", kind, err)
	}
	if len(items) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{child},
		[]string{"entry_id", "position", "time", "item_id", "completed"},
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{entryID, i, it.Time, it.ItemID, it.Completed}, nil
		}))
	if err != nil {
		return fmt.Errorf("insert %s items: %w", kind, err)
	}
	return nil
}

// toggleItem flips the completed flag of the item at index. found is false
// when the user has no entry on date; ok is false when index is out of range.
func (s *progressStore) toggleItem(ctx context.Context, userID int, date time.Time, kind itemKind, index int) (found, ok bool, err error) {
	var entryID int
	err = s.db.QueryRow(ctx,
		"SELECT id FROM progress_entries WHERE user_id = @userID AND date = @date",
		pgx.NamedArgs{"userID": userID, "date": date.Format("2006-01-02")}).Scan(&entryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	child, _, _ := kind.tables()
	tag, err := s.db.Exec(ctx,
		"UPDATE "+child+" SET completed = NOT completed WHERE entry_id = @entryID AND position = @index",
		pgx.NamedArgs{"entryID": entryID, "index": index})
	if err != nil {
		return true, false, err
	}
	return true, tag.RowsAffected() > 0, nil
}

// deleteEntry removes the entry and, by cascade, its items. It reports
// whether a row was deleted.
func (s *progressStore) deleteEntry(ctx context.Context, userID int, date time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM progress_entries WHERE user_id = @userID AND date = @date",
		pgx.NamedArgs{"userID": userID, "date": date.Format("2006-01-02")})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

/* ─── reminder.EntryStore / reminder.UserDirectory ───────────────────── */

func (s *progressStore) FindEntry(ctx context.Context, userID int, date time.Time) (*reminder.Entry, error) {
	e, err := s.entryByDate(ctx, userID, reminder.StartOfDay(date))
	if err != nil || e == nil {
		return nil, err
	}
	re := toReminderEntry(*e)
	return &re, nil
}

func (s *progressStore) FindEntriesByDate(ctx context.Context, date time.Time) ([]reminder.Entry, error) {
	entries, err := queryMany[progressEntry](s.db, ctx,
		"SELECT * FROM progress_entries WHERE date = @date ORDER BY user_id",
		pgx.NamedArgs{"date": date.UTC().Format("2006-01-02")})
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, entries); err != nil {
		return nil, err
	}
	out := make([]reminder.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toReminderEntry(e))
	}
	return out, nil
}

func (s *progressStore) FindContact(ctx context.Context, userID int) (*reminder.Contact, error) {
	var c reminder.Contact
	err := s.db.QueryRow(ctx, "SELECT email, name FROM users WHERE id = $1", userID).Scan(&c.Email, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func toReminderEntry(e progressEntry) reminder.Entry {
	return reminder.Entry{
		UserID:    e.UserID,
		Date:      e.Date.Time,
		Meals:     toOccurrences(e.Meals),
		Exercises: toOccurrences(e.Exercises),
	}
}

func toOccurrences(items []entryItem) []reminder.Occurrence {
	out := make([]reminder.Occurrence, 0, len(items))
	for _, it := range items {
		o := reminder.Occurrence{Time: it.Time, Completed: it.Completed}
		if it.Name != nil {
			o.Name = *it.Name
		}
		out = append(out, o)
	}
	return out
}
