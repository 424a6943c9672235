package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RecordStore executes schema/table-qualified CRUD statements on rows
// represented as column -> value maps.
type RecordStore interface {
	FetchAll(ctx context.Context, schema, table string) ([]map[string]any, error)
	FindByTemplate(ctx context.Context, schema, table string, match map[string]any) ([]map[string]any, error)
	Insert(ctx context.Context, schema, table string, fields map[string]any) (int64, error)
	Update(ctx context.Context, schema, table, keyField string, keyValue any, fields map[string]any) (int64, error)
	Delete(ctx context.Context, schema, table, keyField string, keyValue any) (int64, error)
	Ping(ctx context.Context) error
}

// RecordRepository is the MySQL RecordStore.
type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db}
}

func (r *RecordRepository) FetchAll(ctx context.Context, schema, table string) ([]map[string]any, error) {
	const op = "repository.FetchAll"

	query := fmt.Sprintf(`SELECT * FROM %s`, qualified(schema, table))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

func (r *RecordRepository) FindByTemplate(ctx context.Context, schema, table string, match map[string]any) ([]map[string]any, error) {
	const op = "repository.FindByTemplate"

	query := fmt.Sprintf(`SELECT * FROM %s`, qualified(schema, table))
	where, args := assignments(match, " AND ")
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

func (r *RecordRepository) Insert(ctx context.Context, schema, table string, fields map[string]any) (int64, error) {
	const op = "repository.Insert"

	columns := sortedKeys(fields)
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
		args[i] = fields[c]
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		qualified(schema, table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Update applies fields to the rows matching keyField = keyValue and
// returns the number of rows matched. An empty field map is a no-op.
func (r *RecordRepository) Update(ctx context.Context, schema, table, keyField string, keyValue any, fields map[string]any) (int64, error) {
	const op = "repository.Update"

	set, args := assignments(fields, ", ")
	if set == "" {
		return 0, nil
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = ?`, qualified(schema, table), set, quoteIdent(keyField))
	res, err := r.db.ExecContext(ctx, query, append(args, keyValue)...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (r *RecordRepository) Delete(ctx context.Context, schema, table, keyField string, keyValue any) (int64, error) {
	const op = "repository.Delete"

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, qualified(schema, table), quoteIdent(keyField))
	res, err := r.db.ExecContext(ctx, query, keyValue)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (r *RecordRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func qualified(schema, table string) string {
	if schema == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// assignments renders "`a` = ?<sep>`b` = ?" in column order with its args.
func assignments(m map[string]any, sep string) (string, []any) {
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		parts[i] = quoteIdent(k) + " = ?"
		args[i] = m[k]
	}
	return strings.Join(parts, sep), args
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(types))
		for i, ct := range types {
			record[ct.Name()] = normalize(values[i], ct.DatabaseTypeName())
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// normalize converts raw column bytes into int64, float64 or string
// according to the column's database type. Values the driver already
// decoded are returned as is.
func normalize(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	s := string(b)
	switch t := strings.ToUpper(dbType); {
	case strings.HasSuffix(t, "INT"):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case t == "FLOAT" || t == "DOUBLE" || t == "DECIMAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
