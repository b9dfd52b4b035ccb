package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	sqlite "github.com/mattn/go-sqlite3"
	"github.com/viant/fingov/service/dao"
)

// table is a generic dao.Service over one SQL table holding a JSON body,
// an optimistic version and the filter columns List can query.
type table[T any] struct {
	db      DBTX
	name    string
	columns map[string]string // entity field name -> column
	key     func(*T) string
	// decode normalizes an entity after it has been read.
	decode func(*T) error
	// expand widens filter values, e.g. with legacy spellings.
	expand func(field string, values []string) []string
}

func (t *table[T]) fieldNames() []string {
	ret := make([]string, 0, len(t.columns))
	for name := range t.columns {
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}

func (t *table[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	id := t.key(v)
	if id == "" {
		return dao.ErrInvalidID
	}
	var current int64
	versioned, isVersioned := any(v).(dao.Versioned)
	if isVersioned {
		current = versioned.GetVersion()
		versioned.SetVersion(current + 1)
	}
	err := t.write(ctx, id, v, current, isVersioned)
	if err != nil && isVersioned {
		versioned.SetVersion(current)
	}
	return err
}

func (t *table[T]) write(ctx context.Context, id string, v *T, current int64, versioned bool) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", t.name, id, err)
	}
	fields := t.fieldNames()
	values := make([]any, 0, len(fields)+4)
	columns := make([]string, 0, len(fields))
	fielder, _ := any(v).(dao.Fielder)
	for _, field := range fields {
		columns = append(columns, t.columns[field])
		value := ""
		if fielder != nil {
			value, _ = fielder.Field(field)
		}
		values = append(values, value)
	}
	next := current
	if versioned {
		next = current + 1
	}

	if !versioned || current == 0 {
		verb := "INSERT"
		if !versioned {
			verb = "INSERT OR REPLACE"
		}
		placeholders := strings.Repeat(", ?", len(columns))
		query := fmt.Sprintf("%s INTO %s (id, version, body%s) VALUES (?, ?, ?%s)",
			verb, t.name, prefixed(columns), placeholders)
		args := append([]any{id, next, string(body)}, values...)
		if _, err = t.db.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return dao.ErrStaleVersion
			}
			return fmt.Errorf("failed to insert %s %s: %w", t.name, id, err)
		}
		return nil
	}

	assignments := make([]string, 0, len(columns))
	for _, column := range columns {
		assignments = append(assignments, column+" = ?")
	}
	set := "version = ?, body = ?"
	if len(assignments) > 0 {
		set += ", " + strings.Join(assignments, ", ")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND version = ?", t.name, set)
	args := append([]any{next, string(body)}, values...)
	args = append(args, id, current)
	result, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", t.name, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return dao.ErrStaleVersion
	}
	return nil
}

func (t *table[T]) Load(ctx context.Context, id string) (*T, error) {
	var body string
	err := t.db.QueryRowContext(ctx, fmt.Sprintf("SELECT body FROM %s WHERE id = ?", t.name), id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query %s %s: %w", t.name, id, err)
	}
	return t.unmarshal(body)
}

func (t *table[T]) Delete(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", t.name, id, err)
	}
	return nil
}

func (t *table[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	var conditions []string
	var args []any
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		column, ok := t.columns[parameter.Name]
		if !ok {
			return []*T{}, nil
		}
		values := parameter.Values()
		if t.expand != nil {
			values = t.expand(parameter.Name, values)
		}
		if len(values) == 0 {
			return []*T{}, nil
		}
		conditions = append(conditions, fmt.Sprintf("%s IN (?%s)", column, strings.Repeat(", ?", len(values)-1)))
		for _, value := range values {
			args = append(args, value)
		}
	}
	query := "SELECT body FROM " + t.name
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	defer rows.Close()

	ret := []*T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.name, err)
		}
		item, err := t.unmarshal(body)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

func (t *table[T]) unmarshal(body string) (*T, error) {
	ret := new(T)
	if err := json.Unmarshal([]byte(body), ret); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t.name, err)
	}
	if t.decode != nil {
		if err := t.decode(ret); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func prefixed(columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	return ", " + strings.Join(columns, ", ")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite.ErrConstraint || sqliteErr.ExtendedCode == sqlite.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
