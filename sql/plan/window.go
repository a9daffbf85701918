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
	"sort"
	"strings"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

// WindowSpec is one window function projection the planner wraps a scan
// with (§4.12 step 7: "ClientWindow for any window function"). Function is
// one of ROW_NUMBER, RANK, SUM, COUNT, AVG, MIN, MAX; Arg is nil for
// ROW_NUMBER/RANK.
type WindowSpec struct {
	OutputName  string
	Function    string
	Arg         esql.Expression
	PartitionBy []string
	OrderBy     []SortKey
}

// ClientWindow materializes its input, computes one or more window
// function columns over PARTITION BY/ORDER BY groups, and streams the
// augmented rows. Every base column is passed through unchanged; window
// columns are appended under their output name (§3 invariant: sibling rows
// share a consistent schema).
type ClientWindow struct {
	UnaryNodeHolder
	Windows []WindowSpec
}

func NewClientWindow(child esql.Node, windows []WindowSpec) *ClientWindow {
	return &ClientWindow{UnaryNodeHolder: UnaryNodeHolder{Child: child}, Windows: windows}
}

func (w *ClientWindow) Describe() string     { return "ClientWindow" }
func (w *ClientWindow) EstimatedRows() int64 { return w.Child.EstimatedRows() }

func (w *ClientWindow) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := w.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	rows, err := esql.Drain(ctx, childIter)
	if err != nil {
		return nil, err
	}
	out := make([]esql.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	for _, spec := range w.Windows {
		if err := applyWindow(ctx, out, spec); err != nil {
			return nil, err
		}
	}
	return esql.NewSliceIter(out), nil
}

// applyWindow computes one window column in place over rows, partitioning
// by spec.PartitionBy (stable original-index order within a partition) and
// ordering each partition by spec.OrderBy before computing rank/aggregate
// values.
func applyWindow(ctx *esql.ExecContext, rows []esql.Row, spec WindowSpec) error {
	partitions := map[string][]int{}
	var order []string
	for i, r := range rows {
		key := partitionKey(r, spec.PartitionBy)
		if _, ok := partitions[key]; !ok {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], i)
	}

	fn := strings.ToUpper(spec.Function)
	for _, key := range order {
		idxs := partitions[key]
		sortIdxs := make([]int, len(idxs))
		copy(sortIdxs, idxs)
		if len(spec.OrderBy) > 0 {
			var sortErr error
			sort.SliceStable(sortIdxs, func(a, b int) bool {
				if sortErr != nil {
					return false
				}
				c, err := compareRowsByKeys(rows[sortIdxs[a]], rows[sortIdxs[b]], spec.OrderBy)
				if err != nil {
					sortErr = err
					return false
				}
				return c < 0
			})
			if sortErr != nil {
				return sortErr
			}
		}

		switch fn {
		case "ROW_NUMBER":
			for rank, idx := range sortIdxs {
				rows[idx].Set(spec.OutputName, "", esql.NewInt(int64(rank+1)))
			}
		case "RANK":
			rank := 0
			var prev esql.Row
			for i, idx := range sortIdxs {
				if i == 0 || !sameOrderKey(prev, rows[idx], spec.OrderBy) {
					rank = i + 1
				}
				rows[idx].Set(spec.OutputName, "", esql.NewInt(int64(rank)))
				prev = rows[idx]
			}
		default:
			// Running aggregate over the whole partition (SUM/COUNT/AVG/MIN/MAX
			// OVER (PARTITION BY ...), unbounded frame — the only frame this
			// engine supports).
			val, err := aggregateOverPartition(ctx, rows, sortIdxs, fn, spec.Arg)
			if err != nil {
				return err
			}
			for _, idx := range sortIdxs {
				rows[idx].Set(spec.OutputName, "", val)
			}
		}
	}
	return nil
}

func partitionKey(r esql.Row, cols []string) string {
	var sb strings.Builder
	for _, c := range cols {
		v, _ := r.Get(c)
		sb.WriteString(v.Kind().String())
		sb.WriteByte(':')
		sb.WriteString(v.String())
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

func sameOrderKey(a, b esql.Row, keys []SortKey) bool {
	if a.Len() == 0 {
		return false
	}
	c, err := compareRowsByKeys(a, b, keys)
	return err == nil && c == 0
}

func aggregateOverPartition(ctx *esql.ExecContext, rows []esql.Row, idxs []int, fn string, arg esql.Expression) (esql.Value, error) {
	var sum float64
	var count int64
	var min, max esql.Value
	haveMinMax := false
	for _, idx := range idxs {
		v, err := arg.Eval(ctx, rows[idx])
		if err != nil {
			return esql.Value{}, err
		}
		if v.IsNull() {
			continue
		}
		count++
		if fn == "SUM" || fn == "AVG" {
			f, err := v.Float()
			if err != nil {
				return esql.Value{}, err
			}
			sum += f
		}
		if fn == "MIN" {
			if !haveMinMax {
				min, haveMinMax = v, true
			} else if c, err := expression.TypedCompare(v, min); err == nil && c < 0 {
				min = v
			}
		}
		if fn == "MAX" {
			if !haveMinMax {
				max, haveMinMax = v, true
			} else if c, err := expression.TypedCompare(v, max); err == nil && c > 0 {
				max = v
			}
		}
	}
	switch fn {
	case "COUNT":
		return esql.NewInt(count), nil
	case "SUM":
		if count == 0 {
			return esql.Null, nil
		}
		return esql.NewFloat(sum), nil
	case "AVG":
		if count == 0 {
			return esql.Null, nil
		}
		return esql.NewFloat(sum / float64(count)), nil
	case "MIN":
		if !haveMinMax {
			return esql.Null, nil
		}
		return min, nil
	case "MAX":
		if !haveMinMax {
			return esql.Null, nil
		}
		return max, nil
	default:
		return esql.Null, nil
	}
}
