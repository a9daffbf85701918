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
	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

// HashSemiJoin implements IN/NOT IN/EXISTS/NOT EXISTS against a materialized
// inner plan (§4.7), used whenever the anti-join pushdown rewrite doesn't
// apply. Anti, when true, inverts membership (NOT IN / NOT EXISTS); when
// the inner side contains a NULL key and Anti is true, SQL's "NOT IN with a
// NULL in the list" rule means every outer row is dropped.
type HashSemiJoin struct {
	UnaryNodeHolder
	Inner    esql.Node
	OuterKey esql.Expression
	InnerKey esql.Expression
	Anti     bool
}

func NewHashSemiJoin(outer, inner esql.Node, outerKey, innerKey esql.Expression, anti bool) *HashSemiJoin {
	return &HashSemiJoin{UnaryNodeHolder: UnaryNodeHolder{Child: outer}, Inner: inner, OuterKey: outerKey, InnerKey: innerKey, Anti: anti}
}

func (s *HashSemiJoin) Describe() string {
	if s.Anti {
		return "HashSemiJoin(anti)"
	}
	return "HashSemiJoin"
}

func (s *HashSemiJoin) EstimatedRows() int64 {
	in := s.Child.EstimatedRows()
	if in < 0 {
		return esql.UnknownRowCount
	}
	est := int64(float64(in) * 0.33)
	if est < 1 {
		est = 1
	}
	return est
}

func (s *HashSemiJoin) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	innerIter, err := s.Inner.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	innerRows, err := esql.Drain(ctx, innerIter)
	if err != nil {
		return nil, err
	}

	set := map[expression.JoinKey]struct{}{}
	innerHasNull := false
	for _, r := range innerRows {
		v, err := s.InnerKey.Eval(ctx, r)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			innerHasNull = true
			continue
		}
		set[expression.NormalizeJoinKey(v)] = struct{}{}
	}

	if s.Anti && innerHasNull {
		return esql.NewEmptyIter(), nil
	}

	outerIter, err := s.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &semiJoinIter{outer: outerIter, outerKey: s.OuterKey, set: set, anti: s.Anti}, nil
}

type semiJoinIter struct {
	outer    esql.RowIter
	outerKey esql.Expression
	set      map[expression.JoinKey]struct{}
	anti     bool
}

func (it *semiJoinIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		row, err := it.outer.Next(ctx)
		if err != nil {
			return esql.Row{}, err
		}
		v, err := it.outerKey.Eval(ctx, row)
		if err != nil {
			return esql.Row{}, err
		}
		if v.IsNull() {
			continue
		}
		_, inSet := it.set[expression.NormalizeJoinKey(v)]
		if inSet != it.anti {
			return row, nil
		}
	}
}

func (it *semiJoinIter) Close(ctx *esql.ExecContext) error { return it.outer.Close(ctx) }
