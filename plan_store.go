package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// planStore reads and writes daily plans and weekly plans.
type planStore struct {
	db *pgxpool.Pool
}

func newPlanStore(pool *pgxpool.Pool) *planStore {
	return &planStore{db: pool}
}

// planTable returns the slot table of kind and its library reference column.
func (k itemKind) planTable() (table, column string) {
	if k == kindExercise {
		return "plan_exercises", "exercise_id"
	}
	return "plan_meals", "meal_id"
}

// sumTotals adds up the library calories of the slots. Deleted items count as zero.
func sumTotals(meals, exercises []planSlot) planTotals {
	var t planTotals
	for _, m := range meals {
		if m.ItemID != nil && m.Calories != nil {
			t.CaloriesIn += *m.Calories
		}
	}
	for _, x := range exercises {
		if x.ItemID != nil && x.Calories != nil {
			t.CaloriesOut += *x.Calories
		}
	}
	return t
}

/* ─── Daily plans ────────────────────────────────────────────────────── */

// listPlans returns the plans visible to userID, newest first.
func (s *planStore) listPlans(ctx context.Context, userID int, common string) ([]plan, error) {
	plans, err := queryMany[plan](s.db, ctx,
		"SELECT * FROM plans WHERE "+visibilityFilter(common)+" ORDER BY created_at DESC",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		return nil, err
	}
	if err := s.attachSlots(ctx, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// planByID returns the plan with its slots, or nil if there is none.
func (s *planStore) planByID(ctx context.Context, id int) (*plan, error) {
	p, err := queryOne[plan](s.db, ctx, "SELECT * FROM plans WHERE id = @id", pgx.NamedArgs{"id": id})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	plans := []plan{p}
	if err := s.attachSlots(ctx, plans); err != nil {
		return nil, err
	}
	return &plans[0], nil
}

// attachSlots loads the meal and exercise slots of plans and fills in totals.
func (s *planStore) attachSlots(ctx context.Context, plans []plan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]int, len(plans))
	byID := make(map[int]*plan, len(plans))
	for i := range plans {
		ids[i] = plans[i].ID
		byID[plans[i].ID] = &plans[i]
		plans[i].Meals = []planSlot{}
		plans[i].Exercises = []planSlot{}
	}

	for _, kind := range []itemKind{kindMeal, kindExercise} {
		table, column := kind.planTable()
		_, library, calories := kind.tables()
		slots, err := queryMany[planSlot](s.db, ctx, fmt.Sprintf(
			`SELECT p.plan_id, p.position, p.time, p.%[1]s AS item_id,
			        l.name, l.%[2]s::float8 AS calories
			 FROM %[3]s p LEFT JOIN %[4]s l ON l.id = p.%[1]s
			 WHERE p.plan_id = ANY(@ids::int[])
			 ORDER BY p.plan_id, p.position`, column, calories, table, library),
			pgx.NamedArgs{"ids": ids})
		if err != nil {
			return fmt.Errorf("load %s slots: %w", kind, err)
		}
		for _, slot := range slots {
			p := byID[slot.PlanID]
			if kind == kindMeal {
				p.Meals = append(p.Meals, slot)
			} else {
				p.Exercises = append(p.Exercises, slot)
			}
		}
	}

	for i := range plans {
		plans[i].Totals = sumTotals(plans[i].Meals, plans[i].Exercises)
	}
	return nil
}

// createPlan inserts a private plan owned by userID together with its slots.
func (s *planStore) createPlan(ctx context.Context, userID int, req planRequest) (*plan, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var id int
	err = tx.QueryRow(ctx,
		`INSERT INTO plans (name, description, goal, is_common, created_by)
		 VALUES (@name, @description, @goal, false, @userID)
		 RETURNING id`,
		pgx.NamedArgs{
			"name":        strings.TrimSpace(*req.Name),
			"description": req.Description,
			"goal":        req.Goal,
			"userID":      userID,
		}).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}

	if err := replaceSlots(ctx, tx, id, req); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.planByID(ctx, id)
}

// updatePlan writes the non-nil fields of req and replaces the slot lists it carries.
func (s *planStore) updatePlan(ctx context.Context, id int, req planRequest) (*plan, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	setClauses := []string{"updated_at = now()"}
	args := pgx.NamedArgs{"id": id}
	if req.Name != nil {
		setClauses = append(setClauses, "name = @name")
		args["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		setClauses = append(setClauses, "description = @description")
		args["description"] = *req.Description
	}
	if req.Goal != nil {
		setClauses = append(setClauses, "goal = @goal")
		args["goal"] = *req.Goal
	}
	if _, err := tx.Exec(ctx, "UPDATE plans SET "+strings.Join(setClauses, ", ")+" WHERE id = @id", args); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	if err := replaceSlots(ctx, tx, id, req); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.planByID(ctx, id)
}

// replaceSlots rewrites the slot lists that req carries; nil lists are kept.
func replaceSlots(ctx context.Context, tx pgx.Tx, planID int, req planRequest) error {
	for _, l := range []struct {
		kind  itemKind
		items *[]itemRequest
	}{
		{kindMeal, req.Meals},
		{kindExercise, req.Exercises},
	} {
		if l.items == nil {
			continue
		}
		table, column := l.kind.planTable()
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE plan_id = $1", planID); err != nil {
			return fmt.Errorf("clear %s slots: %w", l.kind, err)
		}
		items := *l.items
		if len(items) == 0 {
			continue
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{table},
			[]string{"plan_id", "position", "time", column},
			pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
				return []any{planID, i, items[i].Time, items[i].ItemID}, nil
			}))
		if err != nil {
			return fmt.Errorf("insert %s slots: %w", l.kind, err)
		}
	}
	return nil
}

// planItems returns the meal and exercise slots of a plan visible to userID,
// in the shape progress entries are written with. Slots whose library item
// was deleted are dropped. found is false when no such plan exists.
func (s *planStore) planItems(ctx context.Context, userID, planID int) (meals, exercises []itemRequest, found bool, err error) {
	p, err := queryOne[plan](s.db, ctx,
		"SELECT * FROM plans WHERE id = @planID AND (is_common OR created_by = @userID)",
		pgx.NamedArgs{"planID": planID, "userID": userID})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}

	plans := []plan{p}
	if err := s.attachSlots(ctx, plans); err != nil {
		return nil, nil, true, err
	}
	return slotsToItems(plans[0].Meals), slotsToItems(plans[0].Exercises), true, nil
}

func slotsToItems(slots []planSlot) []itemRequest {
	out := make([]itemRequest, 0, len(slots))
	for _, slot := range slots {
		if slot.ItemID == nil {
			continue
		}
		out = append(out, itemRequest{Time: slot.Time, ItemID: *slot.ItemID})
	}
	return out
}

// missingPlans returns the ids among ids that are not plans visible to userID.
func (s *planStore) missingPlans(ctx context.Context, userID int, ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		"SELECT id FROM plans WHERE id = ANY(@ids::int[]) AND (is_common OR created_by = @userID)",
		pgx.NamedArgs{"ids": ids, "userID": userID})
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}
	visible := make(map[int]bool, len(found))
	for _, id := range found {
		visible[id] = true
	}
	var missing []int
	for _, id := range ids {
		if !visible[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

/* ─── Weekly plans ───────────────────────────────────────────────────── */

const weeklyPlanColumns = `id, name, description, goal,
	monday, tuesday, wednesday, thursday, friday, saturday, sunday,
	is_common, created_by, created_at, updated_at`

func rowToWeeklyPlan(row pgx.CollectableRow) (weeklyPlan, error) {
	var w weeklyPlan
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.Goal,
		&w.Days.Monday, &w.Days.Tuesday, &w.Days.Wednesday, &w.Days.Thursday,
		&w.Days.Friday, &w.Days.Saturday, &w.Days.Sunday,
		&w.IsCommon, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// listWeeklyPlans returns the weekly plans visible to userID, newest first.
func (s *planStore) listWeeklyPlans(ctx context.Context, userID int, common string) ([]weeklyPlan, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+weeklyPlanColumns+" FROM weekly_plans WHERE "+visibilityFilter(common)+" ORDER BY created_at DESC",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, rowToWeeklyPlan)
}

func (s *planStore) createWeeklyPlan(ctx context.Context, userID int, req weeklyPlanRequest) (*weeklyPlan, error) {
	var days weekDays
	if req.Days != nil {
		days = *req.Days
	}
	rows, err := s.db.Query(ctx,
		`INSERT INTO weekly_plans (name, description, goal,
			monday, tuesday, wednesday, thursday, friday, saturday, sunday, is_common, created_by)
		 VALUES (@name, @description, @goal,
			@monday, @tuesday, @wednesday, @thursday, @friday, @saturday, @sunday, false, @userID)
		 RETURNING `+weeklyPlanColumns,
		pgx.NamedArgs{
			"name":        strings.TrimSpace(*req.Name),
			"description": req.Description,
			"goal":        req.Goal,
			"monday":      days.Monday,
			"tuesday":     days.Tuesday,
			"wednesday":   days.Wednesday,
			"thursday":    days.Thursday,
			"friday":      days.Friday,
			"saturday":    days.Saturday,
			"sunday":      days.Sunday,
			"userID":      userID,
		})
	if err != nil {
		return nil, err
	}
	w, err := pgx.CollectOneRow(rows, rowToWeeklyPlan)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// updateWeeklyPlan writes the non-nil fields of req. Days replaces all seven days.
func (s *planStore) updateWeeklyPlan(ctx context.Context, id int, req weeklyPlanRequest) (*weeklyPlan, error) {
	setClauses := []string{"updated_at = now()"}
	args := pgx.NamedArgs{"id": id}
	if req.Name != nil {
		setClauses = append(setClauses, "name = @name")
		args["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		setClauses = append(setClauses, "description = @description")
		args["description"] = *req.Description
	}
	if req.Goal != nil {
		setClauses = append(setClauses, "goal = @goal")
		args["goal"] = *req.Goal
	}
	if req.Days != nil {
		names := [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
		for i, planID := range req.Days.list() {
			setClauses = append(setClauses, names[i]+" = @"+names[i])
			args[names[i]] = planID
		}
	}

	rows, err := s.db.Query(ctx,
		"UPDATE weekly_plans SET "+strings.Join(setClauses, ", ")+" WHERE id = @id RETURNING "+weeklyPlanColumns,
		args)
	if err != nil {
		return nil, err
	}
	w, err := pgx.CollectOneRow(rows, rowToWeeklyPlan)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// weeklyPlanDays returns the daily plan ids of a weekly plan visible to
// userID, Monday first.
func (s *planStore) weeklyPlanDays(ctx context.Context, userID, weeklyPlanID int) (days [7]*int, found bool, err error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+weeklyPlanColumns+" FROM weekly_plans WHERE id = @id AND (is_common OR created_by = @userID)",
		pgx.NamedArgs{"id": weeklyPlanID, "userID": userID})
	if err != nil {
		return days, false, err
	}
	w, err := pgx.CollectOneRow(rows, rowToWeeklyPlan)
	if errors.Is(err, pgx.ErrNoRows) {
		return days, false, nil
	}
	if err != nil {
		return days, false, err
	}
	return w.Days.list(), true, nil
}
