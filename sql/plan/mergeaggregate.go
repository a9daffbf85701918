// Copyright 2024 The FetchEngine Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plan

import (
	"math"
	"strings"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

// AggSpec describes one output aggregate column of a MergeAggregate (§4.9):
// Alias is the output/input column name, Function is one of COUNT, SUM,
// MIN, MAX, AVG, and CountAlias names the companion count column AVG needs
// to merge partials correctly.
type AggSpec struct {
	Alias      string
	Function   string
	CountAlias string
}

// MergeAggregate combines partial aggregate rows produced by independent
// partitions (§4.10) into final aggregate rows, grouped by GroupBy across
// partitions (§4.9). COUNT/SUM sum partials; MIN/MAX take the min/max;
// AVG recombines as sum(alias*count_alias) / sum(count_alias).
type MergeAggregate struct {
	UnaryNodeHolder
	GroupBy []string
	Aggs    []AggSpec
}

func NewMergeAggregate(child esql.Node, groupBy []string, aggs []AggSpec) *MergeAggregate {
	return &MergeAggregate{UnaryNodeHolder: UnaryNodeHolder{Child: child}, GroupBy: groupBy, Aggs: aggs}
}

func (m *MergeAggregate) Describe() string { return "MergeAggregate" }

func (m *MergeAggregate) EstimatedRows() int64 {
	if len(m.GroupBy) == 0 {
		return 1
	}
	in := m.Child.EstimatedRows()
	if in < 0 {
		return esql.UnknownRowCount
	}
	return int64(math.Ceil(math.Sqrt(float64(in))))
}

type aggAccumulator struct {
	groupValues []esql.Value
	sums        map[string]float64
	mins        map[string]esql.Value
	maxes       map[string]esql.Value
	counts      map[string]float64
	seenAny     map[string]bool
}

func (m *MergeAggregate) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := m.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	partials, err := esql.Drain(ctx, childIter)
	if err != nil {
		return nil, err
	}

	groups := map[string]*aggAccumulator{}
	var order []string

	for _, r := range partials {
		key, groupValues := groupKey(r, m.GroupBy)
		acc, ok := groups[key]
		if !ok {
			acc = &aggAccumulator{
				groupValues: groupValues,
				sums:        map[string]float64{},
				mins:        map[string]esql.Value{},
				maxes:       map[string]esql.Value{},
				counts:      map[string]float64{},
				seenAny:     map[string]bool{},
			}
			groups[key] = acc
			order = append(order, key)
		}
		for _, agg := range m.Aggs {
			v, ok := r.Get(agg.Alias)
			if !ok || v.IsNull() {
				continue
			}
			switch strings.ToUpper(agg.Function) {
			case "COUNT", "SUM":
				f, err := v.Float()
				if err != nil {
					return nil, err
				}
				acc.sums[agg.Alias] += f
				acc.seenAny[agg.Alias] = true
			case "MIN":
				if cur, ok := acc.mins[agg.Alias]; !ok {
					acc.mins[agg.Alias] = v
				} else if c, err := expression.TypedCompare(v, cur); err == nil && c < 0 {
					acc.mins[agg.Alias] = v
				}
				acc.seenAny[agg.Alias] = true
			case "MAX":
				if cur, ok := acc.maxes[agg.Alias]; !ok {
					acc.maxes[agg.Alias] = v
				} else if c, err := expression.TypedCompare(v, cur); err == nil && c > 0 {
					acc.maxes[agg.Alias] = v
				}
				acc.seenAny[agg.Alias] = true
			case "AVG":
				cv, ok := r.Get(agg.CountAlias)
				if !ok || cv.IsNull() {
					continue
				}
				cf, err := cv.Float()
				if err != nil {
					return nil, err
				}
				af, err := v.Float()
				if err != nil {
					return nil, err
				}
				acc.sums[agg.Alias] += af * cf
				acc.counts[agg.Alias] += cf
				acc.seenAny[agg.Alias] = true
			}
		}
	}

	out := make([]esql.Row, 0, len(order))
	for _, key := range order {
		acc := groups[key]
		row := esql.NewRow()
		for i, col := range m.GroupBy {
			row.Set(col, "", acc.groupValues[i])
		}
		for _, agg := range m.Aggs {
			if !acc.seenAny[agg.Alias] {
				row.Set(agg.Alias, "", esql.Null)
				continue
			}
			switch strings.ToUpper(agg.Function) {
			case "COUNT", "SUM":
				row.Set(agg.Alias, "", esql.NewFloat(acc.sums[agg.Alias]))
			case "MIN":
				row.Set(agg.Alias, "", acc.mins[agg.Alias])
			case "MAX":
				row.Set(agg.Alias, "", acc.maxes[agg.Alias])
			case "AVG":
				if acc.counts[agg.Alias] == 0 {
					row.Set(agg.Alias, "", esql.Null)
				} else {
					row.Set(agg.Alias, "", esql.NewFloat(acc.sums[agg.Alias]/acc.counts[agg.Alias]))
				}
			}
		}
		out = append(out, row)
	}
	return esql.NewSliceIter(out), nil
}

func groupKey(r esql.Row, groupBy []string) (string, []esql.Value) {
	if len(groupBy) == 0 {
		return "", nil
	}
	values := make([]esql.Value, len(groupBy))
	var sb strings.Builder
	for i, col := range groupBy {
		v, _ := r.Get(col)
		values[i] = v
		sb.WriteString(v.Kind().String())
		sb.WriteByte(':')
		sb.WriteString(v.String())
		sb.WriteByte('\x1f')
	}
	return sb.String(), values
}
