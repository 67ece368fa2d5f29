// Package retrieval combines single-predicate store lookups into multi-value
// asset queries and pages through users by key.
package retrieval

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/license-registry/internal/metrics"
	"github.com/javajoker/license-registry/internal/models"
)

// Dimension is a filterable asset attribute backed by its own lookup table.
type Dimension struct {
	Name   string
	Table  string
	Column string
}

var (
	License  = Dimension{Name: "license", Table: models.TableAssetsByLicense, Column: "license"}
	Category = Dimension{Name: "category", Table: models.TableAssetsByCategory, Column: "license_category"}
)

// AssetFinder issues one exact-match lookup against an asset-shaped table.
type AssetFinder interface {
	FindAssets(ctx context.Context, table, column string, value interface{}) ([]models.Asset, error)
}

type Engine struct {
	finder      AssetFinder
	concurrency int
}

// NewEngine returns an engine that runs at most concurrency lookups at once
// per operation. A value below 1 means no limit.
func NewEngine(finder AssetFinder, concurrency int) *Engine {
	return &Engine{finder: finder, concurrency: concurrency}
}

// ByAnyOf returns the assets matching at least one of values in dim, without
// duplicates. An empty values yields an empty result. Order is unspecified.
func (e *Engine) ByAnyOf(ctx context.Context, dim Dimension, values []string) ([]models.Asset, error) {
	g, gctx := errgroup.WithContext(ctx)
	e.limit(g)

	collect := e.fetch(gctx, g, dim, values)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.LookupFanout.WithLabelValues("by_" + dim.Name).Observe(float64(len(distinct(values))))
	return collect(), nil
}

// ByAllDimensions returns the assets that match at least one license AND at
// least one category. This is weaker than matching the requested sets exactly;
// no single lookup table indexes both attributes.
func (e *Engine) ByAllDimensions(ctx context.Context, licenses, categories []string) ([]models.Asset, error) {
	g, gctx := errgroup.WithContext(ctx)
	e.limit(g)

	collectA := e.fetch(gctx, g, License, licenses)
	collectB := e.fetch(gctx, g, Category, categories)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.LookupFanout.WithLabelValues("by_license_and_category").
		Observe(float64(len(distinct(licenses)) + len(distinct(categories))))

	a, b := collectA(), collectB()
	inB := mapset.NewThreadUnsafeSetWithSize[uuid.UUID](len(b))
	for _, asset := range b {
		inB.Add(asset.AssetID)
	}

	out := make([]models.Asset, 0, len(a))
	for _, asset := range a {
		if inB.Contains(asset.AssetID) {
			out = append(out, asset)
		}
	}
	return out, nil
}

// fetch schedules one lookup per distinct value on g and returns a function
// that merges the results once g has finished. Each goroutine writes only its
// own slot.
func (e *Engine) fetch(ctx context.Context, g *errgroup.Group, dim Dimension, values []string) func() []models.Asset {
	keys := distinct(values)
	parts := make([][]models.Asset, len(keys))
	for i, value := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := e.finder.FindAssets(ctx, dim.Table, dim.Column, value)
			if err != nil {
				return err
			}
			parts[i] = rows
			return nil
		})
	}
	return func() []models.Asset {
		return union(parts)
	}
}

func (e *Engine) limit(g *errgroup.Group) {
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
}

// union concatenates parts in order and keeps the first row seen per asset id.
func union(parts [][]models.Asset) []models.Asset {
	seen := mapset.NewThreadUnsafeSet[uuid.UUID]()
	out := []models.Asset{}
	for _, rows := range parts {
		for _, asset := range rows {
			if seen.Add(asset.AssetID) {
				out = append(out, asset)
			}
		}
	}
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
