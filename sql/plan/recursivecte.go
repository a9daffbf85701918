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

import esql "github.com/joshsmithxrm/fetchengine/sql"

// IterationFactory builds the plan for one recursive step given the prior
// iteration's materialized rows (§4.11, §9 design note: "a recursive-member
// plan template + a substitution step that replaces a sentinel CteScan with
// the prior iteration's materialized rows" — the substitution itself is the
// caller's CteScan(prevIteration) wired wherever the template references
// the CTE name).
type IterationFactory func(prevIteration []esql.Row) (esql.Node, error)

// RecursiveCte yields the anchor's rows, then repeatedly evaluates Factory
// over the previous iteration's rows until an iteration yields nothing or
// the execution context's MaxRecursion is reached (§4.11). All anchor and
// iteration rows are yielded to the outer consumer in order.
type RecursiveCte struct {
	Anchor  esql.Node
	Factory IterationFactory
}

func NewRecursiveCte(anchor esql.Node, factory IterationFactory) *RecursiveCte {
	return &RecursiveCte{Anchor: anchor, Factory: factory}
}

func (r *RecursiveCte) Describe() string      { return "RecursiveCte" }
func (r *RecursiveCte) EstimatedRows() int64  { return esql.UnknownRowCount }
func (r *RecursiveCte) Children() []esql.Node { return []esql.Node{r.Anchor} }

func (r *RecursiveCte) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	anchorIter, err := r.Anchor.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	anchorRows, err := esql.Drain(ctx, anchorIter)
	if err != nil {
		return nil, err
	}

	max := ctx.MaxRecursion
	if max <= 0 {
		max = 100
	}

	all := make([]esql.Row, len(anchorRows))
	copy(all, anchorRows)

	prev := anchorRows
	depth := 0
	for len(prev) > 0 {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		depth++
		if depth > max {
			return nil, esql.ErrRecursion.New(max)
		}
		node, err := r.Factory(prev)
		if err != nil {
			return nil, err
		}
		iter, err := node.RowIter(ctx, row)
		if err != nil {
			return nil, err
		}
		rows, err := esql.Drain(ctx, iter)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		prev = rows
	}
	return esql.NewSliceIter(all), nil
}
