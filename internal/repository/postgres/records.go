package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/repository"
)

// table describes one record collection that may be queried by name.
type table struct {
	columns map[string]bool
	jsonb   map[string]bool
}

func newTable(columns []string, jsonb ...string) table {
	t := table{columns: map[string]bool{"id": true, "created_at": true}, jsonb: map[string]bool{}}
	for _, c := range columns {
		t.columns[c] = true
	}
	for _, c := range jsonb {
		t.columns[c] = true
		t.jsonb[c] = true
	}
	return t
}

// tables lists every collection reachable through the record contract.
// identities and auth_sessions are not reachable.
var tables = map[string]table{
	"user_profiles": newTable([]string{"user_id", "role", "first_name", "last_name", "email"}),
	"patients": newTable([]string{
		"first_name", "last_name", "date_of_birth", "gender", "contact_number", "email", "address", "doctor_id",
	}),
	"doctors": newTable([]string{
		"first_name", "last_name", "specialization", "qualifications", "license_number", "contact_number", "email",
	}, "available_days", "available_hours"),
	"appointments": newTable([]string{
		"patient_id", "doctor_id", "appointment_date", "appointment_time", "reason", "notes", "status",
	}),
	"medical_records": newTable([]string{
		"patient_id", "doctor_id", "visit_date", "diagnosis", "treatment", "prescription", "notes",
	}),
	"bills": newTable([]string{
		"patient_id", "amount", "payment_method", "insurance_claim_id", "insurance_status", "status",
	}),
	"inventory": newTable([]string{
		"name", "category", "quantity", "unit", "reorder_level", "supplier",
	}),
	"pharmacy_items": newTable([]string{
		"name", "generic_name", "category", "quantity", "unit", "unit_price", "reorder_level", "supplier", "expiry_date",
	}),
	"prescriptions": newTable([]string{
		"patient_id", "doctor_id", "medication", "dosage", "instructions", "status",
	}),
	"lab_tests": newTable([]string{
		"patient_id", "doctor_id", "test_type", "test_date", "results", "notes", "status",
	}),
	"notifications": newTable([]string{"user_id", "title", "message", "read"}),
}

type recordRepository struct {
	BaseRepository
}

func NewRecordRepository(base BaseRepository) repository.RecordRepository {
	return &recordRepository{base}
}

func lookup(name string) (table, error) {
	t, ok := tables[name]
	if !ok {
		return table{}, fmt.Errorf("unknown table %q: %w", name, repository.ErrInvalidQuery)
	}
	return t, nil
}

func (t table) column(name string) error {
	if !t.columns[name] {
		return fmt.Errorf("unknown column %q: %w", name, repository.ErrInvalidQuery)
	}
	return nil
}

// where renders filter as a WHERE clause with placeholders starting at $next.
func (t table) where(filter model.Filter, next int) (string, []interface{}, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(filter))
	args := make([]interface{}, 0, len(filter))
	for _, c := range filter {
		if err := t.column(c.Column); err != nil {
			return "", nil, err
		}
		if c.BindSubject {
			return "", nil, fmt.Errorf("condition on %q has no subject bound: %w", c.Column, repository.ErrInvalidQuery)
		}

		switch c.Op {
		case model.OpEq:
			if c.Value == nil {
				clauses = append(clauses, fmt.Sprintf("%s IS NULL", c.Column))
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", c.Column, next))
			args = append(args, c.Value)
			next++
		case model.OpLt:
			clauses = append(clauses, fmt.Sprintf("%s < $%d", c.Column, next))
			args = append(args, c.Value)
			next++
		case model.OpLtColumn:
			other, _ := c.Value.(string)
			if err := t.column(other); err != nil {
				return "", nil, err
			}
			clauses = append(clauses, fmt.Sprintf("%s < %s", c.Column, other))
		default:
			return "", nil, fmt.Errorf("unsupported operator %q: %w", c.Op, repository.ErrInvalidQuery)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (r *recordRepository) QueryOne(ctx context.Context, name string, filter model.Filter) (model.Row, error) {
	rows, err := r.query(ctx, "query_one", name, filter, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *recordRepository) QueryMany(ctx context.Context, name string, filter model.Filter, order *model.Order, limit int) ([]model.Row, error) {
	return r.query(ctx, "query_many", name, filter, order, limit)
}

func (r *recordRepository) query(ctx context.Context, op, name string, filter model.Filter, order *model.Order, limit int) ([]model.Row, error) {
	t, err := lookup(name)
	if err != nil {
		return nil, err
	}

	where, args, err := t.where(filter, 1)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + name + where
	if order != nil {
		if err := t.column(order.Column); err != nil {
			return nil, err
		}
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", order.Column, dir)
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	start := time.Now()
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.observe(op, start, err)
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	out, err := t.scan(rows)
	r.observe(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", name, err)
	}
	return out, nil
}

func (r *recordRepository) CountWhere(ctx context.Context, name string, filter model.Filter) (int64, error) {
	t, err := lookup(name)
	if err != nil {
		return 0, err
	}

	where, args, err := t.where(filter, 1)
	if err != nil {
		return 0, err
	}

	var count int64
	start := time.Now()
	err = r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+name+where, args...)
	r.observe("count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", name, err)
	}
	return count, nil
}

func (r *recordRepository) Insert(ctx context.Context, name string, payload model.Row) (model.Row, error) {
	t, err := lookup(name)
	if err != nil {
		return nil, err
	}

	columns, args, err := t.payload(payload)
	if err != nil {
		return nil, err
	}

	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", name)
	} else {
		placeholders := make([]string, len(columns))
		for i := range columns {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			name, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	}

	return r.returning(ctx, "insert", name, t, query, args)
}

func (r *recordRepository) Update(ctx context.Context, name, id string, payload model.Row) (model.Row, error) {
	t, err := lookup(name)
	if err != nil {
		return nil, err
	}

	columns, args, err := t.payload(payload)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("empty update for %s: %w", name, repository.ErrInvalidQuery)
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *", name, strings.Join(sets, ", "), len(columns)+1)
	args = append(args, id)

	return r.returning(ctx, "update", name, t, query, args)
}

func (r *recordRepository) Delete(ctx context.Context, name, id string) error {
	if _, err := lookup(name); err != nil {
		return err
	}

	start := time.Now()
	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", name), id)
	r.observe("delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *recordRepository) returning(ctx context.Context, op, name string, t table, query string, args []interface{}) (model.Row, error) {
	start := time.Now()
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.observe(op, start, err)
		return nil, fmt.Errorf("failed to %s %s: %w", op, name, err)
	}
	defer rows.Close()

	out, err := t.scan(rows)
	r.observe(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", name, err)
	}
	if len(out) == 0 {
		if op == "update" {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to %s %s: %w", op, name, sql.ErrNoRows)
	}
	return out[0], nil
}

// payload validates columns and returns them sorted with their bind values.
// id and created_at are assigned by the store.
func (t table) payload(p model.Row) ([]string, []interface{}, error) {
	columns := make([]string, 0, len(p))
	for c := range p {
		if c == "id" || c == "created_at" {
			continue
		}
		if err := t.column(c); err != nil {
			return nil, nil, err
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)

	args := make([]interface{}, len(columns))
	for i, c := range columns {
		v, err := bindValue(p[c])
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", c, err)
		}
		args[i] = v
	}
	return columns, args, nil
}

// bindValue encodes maps and slices as JSON for jsonb columns.
func bindValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		return json.Marshal(v)
	}
	return v, nil
}

func (t table) scan(rows *sqlx.Rows) ([]model.Row, error) {
	out := []model.Row{}
	for rows.Next() {
		m := map[string]interface{}{}
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		for k, v := range m {
			b, ok := v.([]byte)
			if !ok {
				continue
			}
			if t.jsonb[k] {
				var decoded interface{}
				if err := json.Unmarshal(b, &decoded); err == nil {
					m[k] = decoded
					continue
				}
			}
			m[k] = string(b)
		}
		out = append(out, model.Row(m))
	}
	return out, rows.Err()
}
