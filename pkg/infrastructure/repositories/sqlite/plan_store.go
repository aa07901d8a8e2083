// Package sqlite persists plans and their run outputs in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// PlanStore implements repositories.PlanRepository on SQLite. Entities are
// stored as JSON documents next to the columns used for lookups.
type PlanStore struct {
	db *sql.DB
}

var _ repositories.PlanRepository = (*PlanStore)(nil)

// New opens or creates the database at path
func New(path string) (*PlanStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PlanStore{db: db}, nil
}

// Close closes the database
func (s *PlanStore) Close() error {
	return s.db.Close()
}

func (s *PlanStore) SavePlan(ctx context.Context, plan entities.Plan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", plan.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plans (id, number, type, status, created_at, data) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET number = excluded.number, status = excluded.status, data = excluded.data`,
		string(plan.ID), plan.Number, plan.Type.String(), plan.Status.String(), plan.CreatedAt, string(data))
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	return nil
}

// SavePlanFrom updates the plan row only while its status column still reads from
func (s *PlanStore) SavePlanFrom(ctx context.Context, plan entities.Plan, from entities.PlanStatus) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", plan.ID, err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE plans SET number = ?, status = ?, data = ? WHERE id = ? AND status = ?`,
		plan.Number, plan.Status.String(), string(data), string(plan.ID), from.String())
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM plans WHERE id = ?`, string(plan.ID)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("plan %s: %w", plan.ID, entities.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get plan %s: %w", plan.ID, err)
	}
	return fmt.Errorf("%w: plan %s is %s, not %s", entities.ErrInvalidState, plan.ID, current, from)
}

func (s *PlanStore) GetPlan(ctx context.Context, id entities.PlanID) (*entities.Plan, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM plans WHERE id = ?`, string(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}
	var plan entities.Plan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", id, err)
	}
	return &plan, nil
}

// ListPlans filters on the status and type columns; the remaining fields are
// matched on the decoded plans
func (s *PlanStore) ListPlans(ctx context.Context, filter repositories.PlanFilter) ([]entities.Plan, error) {
	var where conditions
	if filter.Status != nil {
		where.add("status = ?", filter.Status.String())
	}
	if filter.Type != nil {
		where.add("type = ?", filter.Type.String())
	}
	plans, err := query[entities.Plan](ctx, s.db, `SELECT data FROM plans`+where.sql()+` ORDER BY created_at, id`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	matched := plans[:0]
	for _, p := range plans {
		if filter.Matches(p) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// ReplaceOutputs deletes the plan's previous outputs and inserts the new ones in one transaction
func (s *PlanStore) ReplaceOutputs(ctx context.Context, planID entities.PlanID, outputs entities.PlanOutputs) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"requirements", "planned_orders", "capacity_requirements", "exceptions"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE plan_id = ?`, string(planID)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, r := range outputs.Requirements {
		if err = insert(ctx, tx, `INSERT INTO requirements (plan_id, seq, data) VALUES (?, ?, ?)`, r,
			string(planID), i); err != nil {
			return err
		}
	}
	for i, o := range outputs.PlannedOrders {
		if err = insert(ctx, tx, `INSERT INTO planned_orders (id, plan_id, seq, product_id, status, data) VALUES (?, ?, ?, ?, ?, ?)`, o,
			o.ID, string(planID), i, string(o.ProductID), o.Status.String()); err != nil {
			return err
		}
	}
	for i, c := range outputs.CapacityRequirements {
		if err = insert(ctx, tx, `INSERT INTO capacity_requirements (plan_id, seq, work_center_id, data) VALUES (?, ?, ?, ?)`, c,
			string(planID), i, string(c.WorkCenterID)); err != nil {
			return err
		}
	}
	for i, e := range outputs.Exceptions {
		if err = insert(ctx, tx, `INSERT INTO exceptions (id, plan_id, seq, type, severity, is_resolved, data) VALUES (?, ?, ?, ?, ?, ?, ?)`, e,
			e.ID, string(planID), i, e.Type.String(), e.Severity.String(), e.IsResolved); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit outputs of %s: %w", planID, err)
	}
	return nil
}

func (s *PlanStore) GetOutputs(ctx context.Context, planID entities.PlanID) (*entities.PlanOutputs, error) {
	var out entities.PlanOutputs
	var err error
	id := string(planID)

	if out.Requirements, err = query[entities.Requirement](ctx, s.db,
		`SELECT data FROM requirements WHERE plan_id = ? ORDER BY seq`, id); err != nil {
		return nil, err
	}
	if out.PlannedOrders, err = query[entities.PlannedOrder](ctx, s.db,
		`SELECT data FROM planned_orders WHERE plan_id = ? ORDER BY seq`, id); err != nil {
		return nil, err
	}
	if out.CapacityRequirements, err = query[entities.CapacityRequirement](ctx, s.db,
		`SELECT data FROM capacity_requirements WHERE plan_id = ? ORDER BY seq`, id); err != nil {
		return nil, err
	}
	if out.Exceptions, err = query[entities.Exception](ctx, s.db,
		`SELECT data FROM exceptions WHERE plan_id = ? ORDER BY seq`, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PlanStore) GetPlannedOrder(ctx context.Context, id string) (*entities.PlannedOrder, error) {
	orders, err := query[entities.PlannedOrder](ctx, s.db, `SELECT data FROM planned_orders WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("planned order %s: %w", id, entities.ErrNotFound)
	}
	return &orders[0], nil
}

func (s *PlanStore) SavePlannedOrder(ctx context.Context, order entities.PlannedOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode planned order %s: %w", order.ID, err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE planned_orders SET status = ?, data = ? WHERE id = ?`,
		order.Status.String(), string(data), order.ID)
	return updated(res, err, "planned order", order.ID)
}

func (s *PlanStore) ListPlannedOrders(ctx context.Context, filter repositories.PlannedOrderFilter) ([]entities.PlannedOrder, error) {
	var where conditions
	if filter.PlanID != "" {
		where.add("o.plan_id = ?", string(filter.PlanID))
	}
	if filter.ProductID != "" {
		where.add("o.product_id = ?", string(filter.ProductID))
	}
	if filter.Status != nil {
		where.add("o.status = ?", filter.Status.String())
	}
	return query[entities.PlannedOrder](ctx, s.db, `
		SELECT o.data FROM planned_orders o JOIN plans p ON p.id = o.plan_id`+where.sql()+`
		ORDER BY p.created_at, p.id, o.seq`, where.args...)
}

func (s *PlanStore) ListCapacityRequirements(ctx context.Context, filter repositories.CapacityFilter) ([]entities.CapacityRequirement, error) {
	var where conditions
	where.add("plan_id = ?", string(filter.PlanID))
	if filter.WorkCenterID != "" {
		where.add("work_center_id = ?", string(filter.WorkCenterID))
	}
	reqs, err := query[entities.CapacityRequirement](ctx, s.db,
		`SELECT data FROM capacity_requirements`+where.sql()+` ORDER BY seq`, where.args...)
	if err != nil {
		return nil, err
	}
	matched := reqs[:0]
	for _, c := range reqs {
		if filter.Matches(c) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (s *PlanStore) GetException(ctx context.Context, id string) (*entities.Exception, error) {
	list, err := query[entities.Exception](ctx, s.db, `SELECT data FROM exceptions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("exception %s: %w", id, entities.ErrNotFound)
	}
	return &list[0], nil
}

func (s *PlanStore) SaveException(ctx context.Context, exception entities.Exception) error {
	data, err := json.Marshal(exception)
	if err != nil {
		return fmt.Errorf("encode exception %s: %w", exception.ID, err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE exceptions SET is_resolved = ?, data = ? WHERE id = ?`,
		exception.IsResolved, string(data), exception.ID)
	return updated(res, err, "exception", exception.ID)
}

// conditions accumulates AND-ed WHERE clauses with their arguments
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, arg any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, arg)
}

func (c *conditions) sql() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// insert encodes v as the last argument of the statement
func insert(ctx context.Context, tx *sql.Tx, stmt string, v any, args ...any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	if _, err := tx.ExecContext(ctx, stmt, append(args, string(data))...); err != nil {
		return fmt.Errorf("insert %T: %w", v, err)
	}
	return nil
}

func query[T any](ctx context.Context, db *sql.DB, stmt string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %T: %w", *new(T), err)
	}
	return scanAll[T](rows)
}

func scanAll[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("decode %T: %w", v, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func updated(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return fmt.Errorf("save %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, entities.ErrNotFound)
	}
	return nil
}
