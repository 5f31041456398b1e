// Package sink materializes pipeline outputs. Every sink follows
// full-replace semantics: writing a relation atomically swaps its previous
// contents for the new dataset, so reruns converge instead of accumulating.
package sink

import (
	"context"
)

// Relation identifies one materialized output.
type Relation string

const (
	RelationIncidentSummary  Relation = "incident_summary"
	RelationDailyKPIs        Relation = "daily_kpis"
	RelationGroupPerformance Relation = "group_performance"
)

// Dataset is a relation ready to write: ordered columns and row tuples in
// column order. KeyColumn names the column whose value uniquely identifies
// a row; key-value sinks use it to build keys and relational sinks ignore
// it.
type Dataset struct {
	Relation  Relation
	KeyColumn string
	Columns   []string
	Rows      [][]interface{}
}

// Sink writes datasets to one destination.
type Sink interface {
	Materialize(ctx context.Context, ds Dataset) error
	Name() string
}
