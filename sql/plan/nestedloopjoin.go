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

// RightFactory builds the inner plan for one outer row. For CROSS JOIN it
// ignores the outer row and always returns the same node; for CROSS
// APPLY/OUTER APPLY it is typically a correlated subquery re-planned (or
// simply re-evaluated, since RowIter already threads the outer row down)
// against the current outer row (§4.6).
type RightFactory func(ctx *esql.ExecContext, outerRow esql.Row) (esql.Node, error)

// NestedLoopJoin re-evaluates its inner plan once per outer row and applies
// an optional residual predicate, covering CROSS JOIN, CROSS APPLY, OUTER
// APPLY, and any join whose condition isn't a simple equality (§4.6).
type NestedLoopJoin struct {
	Left        esql.Node
	Kind        esql.JoinKind
	RightOf     RightFactory
	Predicate   esql.Expression // nil for CROSS JOIN / CROSS APPLY with no extra condition
	RightSchema esql.Schema
	RightEntity string
	// LeftSchema is needed only for Right/FullOuter, to null-fill the left
	// side of unmatched inner rows.
	LeftSchema esql.Schema
}

func NewNestedLoopJoin(left esql.Node, kind esql.JoinKind, rightOf RightFactory, predicate esql.Expression, rightSchema esql.Schema, rightEntity string) *NestedLoopJoin {
	return &NestedLoopJoin{Left: left, Kind: kind, RightOf: rightOf, Predicate: predicate, RightSchema: rightSchema, RightEntity: rightEntity}
}

func (j *NestedLoopJoin) Describe() string { return "NestedLoopJoin" }

func (j *NestedLoopJoin) EstimatedRows() int64 {
	l := j.Left.EstimatedRows()
	if l < 0 {
		return esql.UnknownRowCount
	}
	return l
}

func (j *NestedLoopJoin) Children() []esql.Node { return []esql.Node{j.Left} }

func (j *NestedLoopJoin) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	if isOuterOnRight(j.Kind) {
		return j.materializedIter(ctx, row)
	}
	leftIter, err := j.Left.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &nestedLoopIter{join: j, left: leftIter, ctx: ctx}, nil
}

// materializedIter serves Right/FullOuter: the inner side is materialized
// once (the factory sees an empty outer row), matched inner indices are
// tracked across the whole probe, and the leftovers emit with a
// null-filled left side (§4.6).
func (j *NestedLoopJoin) materializedIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	innerNode, err := j.RightOf(ctx, esql.NewRow())
	if err != nil {
		return nil, err
	}
	innerIter, err := innerNode.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	innerRows, err := esql.Drain(ctx, innerIter)
	if err != nil {
		return nil, err
	}

	leftIter, err := j.Left.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	leftRows, err := esql.Drain(ctx, leftIter)
	if err != nil {
		return nil, err
	}

	matched := make([]bool, len(innerRows))
	var out []esql.Row
	for _, outerRow := range leftRows {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		any := false
		for i, innerRow := range innerRows {
			merged := esql.Merge(outerRow, innerRow, j.RightEntity)
			if j.Predicate != nil {
				ok, err := esql.EvaluateCondition(ctx, j.Predicate, merged)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			matched[i] = true
			any = true
			out = append(out, merged)
		}
		if !any && isOuterOnLeft(j.Kind) {
			out = append(out, esql.Merge(outerRow, esql.NullFill(j.RightSchema, j.RightEntity), j.RightEntity))
		}
	}
	for i, innerRow := range innerRows {
		if !matched[i] {
			out = append(out, esql.Merge(esql.NullFill(j.LeftSchema, ""), innerRow, j.RightEntity))
		}
	}
	return esql.NewSliceIter(out), nil
}

type nestedLoopIter struct {
	join *NestedLoopJoin
	left esql.RowIter
	ctx  *esql.ExecContext

	inner    esql.RowIter
	outerRow esql.Row
	anyInner bool
}

func (it *nestedLoopIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		if it.inner == nil {
			outerRow, err := it.left.Next(ctx)
			if err != nil {
				return esql.Row{}, err
			}
			it.outerRow = outerRow
			it.anyInner = false
			innerNode, err := it.join.RightOf(ctx, outerRow)
			if err != nil {
				return esql.Row{}, err
			}
			innerIter, err := innerNode.RowIter(ctx, outerRow)
			if err != nil {
				return esql.Row{}, err
			}
			it.inner = innerIter
		}

		innerRow, err := it.inner.Next(ctx)
		if err == esql.EOF {
			_ = it.inner.Close(ctx)
			it.inner = nil
			if !it.anyInner && isOuterOnLeft(it.join.Kind) {
				return esql.Merge(it.outerRow, esql.NullFill(it.join.RightSchema, it.join.RightEntity), it.join.RightEntity), nil
			}
			continue
		}
		if err != nil {
			return esql.Row{}, err
		}

		merged := esql.Merge(it.outerRow, innerRow, it.join.RightEntity)
		if it.join.Predicate != nil {
			ok, err := esql.EvaluateCondition(ctx, it.join.Predicate, merged)
			if err != nil {
				return esql.Row{}, err
			}
			if !ok {
				continue
			}
		}
		it.anyInner = true
		return merged, nil
	}
}

func (it *nestedLoopIter) Close(ctx *esql.ExecContext) error {
	if it.inner != nil {
		_ = it.inner.Close(ctx)
	}
	return it.left.Close(ctx)
}
