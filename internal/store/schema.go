package store

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Schema is the set of tables and columns the store is allowed to read.
// Lookups naming anything else fail with ErrSchemaMismatch before any SQL
// reaches the database.
type Schema map[string]tableSchema

type tableSchema struct {
	columns map[string]struct{}
	primary []string
}

// NewSchema derives the registry from gorm models.
func NewSchema(db *gorm.DB, models ...interface{}) (Schema, error) {
	schema := make(Schema, len(models))
	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}

		t := tableSchema{
			columns: make(map[string]struct{}, len(stmt.Schema.DBNames)),
			primary: append([]string(nil), stmt.Schema.PrimaryFieldDBNames...),
		}
		for _, name := range stmt.Schema.DBNames {
			t.columns[name] = struct{}{}
		}
		schema[stmt.Schema.Table] = t
	}
	return schema, nil
}

func (s Schema) check(table string, columns ...string) error {
	t, ok := s[table]
	if !ok {
		return fmt.Errorf("%w: unknown table %q", ErrSchemaMismatch, table)
	}
	for _, column := range columns {
		if _, ok := t.columns[column]; !ok {
			return fmt.Errorf("%w: table %q has no column %q", ErrSchemaMismatch, table, column)
		}
	}
	return nil
}

// clusteringOrder orders rows by the table's primary key.
func (s Schema) clusteringOrder(table string) string {
	parts := make([]string, 0, len(s[table].primary))
	for _, column := range s[table].primary {
		parts = append(parts, pq.QuoteIdentifier(column)+" ASC")
	}
	return strings.Join(parts, ", ")
}
