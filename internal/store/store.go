// Package store issues single-predicate reads against the primary and
// denormalized lookup tables. It has no business logic: every call is one
// bounded read with no implicit joins and no retries.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/metrics"
	"github.com/javajoker/license-registry/internal/models"
)

type Store struct {
	db      *gorm.DB
	schema  Schema
	timeout time.Duration
	flight  singleflight.Group
}

// New wraps the shared connection pool. The schema registry is derived from
// the given models.
func New(db *gorm.DB, cfg config.StoreConfig, tables ...interface{}) (*Store, error) {
	schema, err := NewSchema(db, tables...)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:      db,
		schema:  schema,
		timeout: cfg.QueryTimeout,
	}, nil
}

// Bound is an optional exclusive lower bound on a range lookup. The zero value
// means "no lower bound", which is distinct from After("").
type Bound struct {
	value string
	set   bool
}

func NoBound() Bound { return Bound{} }

func After(value string) Bound { return Bound{value: value, set: true} }

func (b Bound) Value() (string, bool) { return b.value, b.set }

// Equality restricts a range lookup to rows where Column = Value.
type Equality struct {
	Column string
	Value  interface{}
}

type RangeQuery struct {
	Table       string
	OrderColumn string
	After       Bound
	Equal       *Equality
	Limit       int
}

// cloner is implemented by row types that hold reference fields.
type cloner[T any] interface {
	Clone() T
}

// LookupByExactValue returns the rows of table where column = value, ordered
// by the table's primary key. Identical lookups in flight at the same time
// share one read; each caller receives its own rows.
func LookupByExactValue[T any](ctx context.Context, s *Store, table, column string, value interface{}) ([]T, error) {
	if err := s.schema.check(table, column); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}

	var zero T
	key := fmt.Sprintf("%s\x00%s\x00%T\x00%v", table, column, zero, value)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		// The shared read must not die with whichever caller started it.
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		var rows []T
		err := s.observe("exact", table, column, func() error {
			return s.db.WithContext(qctx).
				Table(table).
				Where(pq.QuoteIdentifier(column)+" = ?", value).
				Order(s.schema.clusteringOrder(table)).
				Find(&rows).Error
		})
		return rows, err
	})

	select {
	case <-ctx.Done():
		return nil, classify(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rows, ok := res.Val.([]T)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected row type %T", ErrSchemaMismatch, res.Val)
		}
		out := make([]T, len(rows))
		for i, row := range rows {
			if c, ok := any(row).(cloner[T]); ok {
				out[i] = c.Clone()
				continue
			}
			out[i] = row
		}
		return out, nil
	}
}

// LookupByRange returns at most q.Limit rows whose q.OrderColumn is strictly
// greater than q.After, ascending. A zero limit yields an empty result without
// touching the store.
func LookupByRange[T any](ctx context.Context, s *Store, q RangeQuery) ([]T, error) {
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: limit %d", ErrInvalidRange, q.Limit)
	}
	columns := []string{q.OrderColumn}
	if q.Equal != nil {
		columns = append(columns, q.Equal.Column)
	}
	if err := s.schema.check(q.Table, columns...); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		return []T{}, nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows := []T{}
	err := s.observe("range", q.Table, q.OrderColumn, func() error {
		tx := s.db.WithContext(qctx).Table(q.Table)
		if q.Equal != nil {
			tx = tx.Where(pq.QuoteIdentifier(q.Equal.Column)+" = ?", q.Equal.Value)
		}
		if after, ok := q.After.Value(); ok {
			tx = tx.Where(pq.QuoteIdentifier(q.OrderColumn)+" > ?", after)
		}
		return tx.Order(pq.QuoteIdentifier(q.OrderColumn) + " ASC").
			Limit(q.Limit).
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) observe(kind, table, column string, fn func() error) error {
	start := time.Now()
	err := classify(fn())

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrStoreUnavailable):
		outcome = "unavailable"
	case errors.Is(err, ErrSchemaMismatch):
		outcome = "schema_mismatch"
	default:
		outcome = "error"
	}
	metrics.StoreLookupDuration.WithLabelValues(kind, table, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"kind":   kind,
			"table":  table,
			"column": column,
		}).Warn("Store lookup failed")
	}
	return err
}

// FindAssets reads asset-shaped rows from the primary or a lookup table.
func (s *Store) FindAssets(ctx context.Context, table, column string, value interface{}) ([]models.Asset, error) {
	return LookupByExactValue[models.Asset](ctx, s, table, column, value)
}

// FindUsers reads user-shaped rows with an equality predicate.
func (s *Store) FindUsers(ctx context.Context, table, column string, value interface{}) ([]models.User, error) {
	return LookupByExactValue[models.User](ctx, s, table, column, value)
}

// RangeUsers reads one bounded, ordered slice of user-shaped rows.
func (s *Store) RangeUsers(ctx context.Context, q RangeQuery) ([]models.User, error) {
	return LookupByRange[models.User](ctx, s, q)
}
