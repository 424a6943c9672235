package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository keeps every table in memory. Data is lost on restart.
// Each table has an auto-increment primary key named key. Rows always carry
// every column in columns, nil when unset, so records have the same shape
// as rows read from MySQL. Safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	tables  map[string]*memoryTable
	key     string
	columns []string
}

type memoryTable struct {
	next int64
	rows map[int64]map[string]any
}

// NewMemoryRepository creates an empty in-memory store whose tables use key
// as their auto-increment primary key column.
func NewMemoryRepository(key string, columns ...string) *MemoryRepository {
	return &MemoryRepository{tables: make(map[string]*memoryTable), key: key, columns: columns}
}

func tableName(schema, table string) string {
	return schema + "." + table
}

func (m *MemoryRepository) FetchAll(ctx context.Context, schema, table string) ([]map[string]any, error) {
	return m.FindByTemplate(ctx, schema, table, nil)
}

func (m *MemoryRepository) FindByTemplate(_ context.Context, schema, table string, match map[string]any) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]map[string]any, 0)
	t, ok := m.tables[tableName(schema, table)]
	if !ok {
		return records, nil
	}

	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		row := t.rows[id]
		if matches(row, match) {
			records = append(records, copyRow(row))
		}
	}
	return records, nil
}

func (m *MemoryRepository) Insert(_ context.Context, schema, table string, fields map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := tableName(schema, table)
	t, ok := m.tables[name]
	if !ok {
		t = &memoryTable{rows: make(map[int64]map[string]any)}
		m.tables[name] = t
	}

	t.next++
	row := make(map[string]any, len(m.columns)+len(fields)+1)
	for _, col := range m.columns {
		row[col] = nil
	}
	for k, v := range fields {
		row[k] = v
	}
	row[m.key] = t.next
	t.rows[t.next] = row
	return t.next, nil
}

func (m *MemoryRepository) Update(_ context.Context, schema, table, keyField string, keyValue any, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableName(schema, table)]
	if !ok {
		return 0, nil
	}

	var n int64
	for _, row := range t.rows {
		if !equal(row[keyField], keyValue) {
			continue
		}
		for k, v := range fields {
			row[k] = v
		}
		n++
	}
	return n, nil
}

func (m *MemoryRepository) Delete(_ context.Context, schema, table, keyField string, keyValue any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableName(schema, table)]
	if !ok {
		return 0, nil
	}

	var n int64
	for id, row := range t.rows {
		if equal(row[keyField], keyValue) {
			delete(t.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) Ping(context.Context) error {
	return nil
}

func copyRow(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func matches(row, match map[string]any) bool {
	for k, v := range match {
		if !equal(row[k], v) {
			return false
		}
	}
	return true
}

// equal compares loosely the way MySQL compares a column to a bound
// parameter, so int(1), int64(1) and "1" are the same key.
func equal(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
