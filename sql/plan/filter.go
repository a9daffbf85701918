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

// ClientFilter applies a compiled row predicate client-side (§4.2). Rows
// for which the predicate evaluates TRUE are yielded; FALSE and UNKNOWN
// are dropped.
type ClientFilter struct {
	UnaryNodeHolder
	Predicate esql.Expression
}

func NewClientFilter(child esql.Node, predicate esql.Expression) *ClientFilter {
	return &ClientFilter{UnaryNodeHolder: UnaryNodeHolder{Child: child}, Predicate: predicate}
}

func (f *ClientFilter) Describe() string { return "ClientFilter(" + f.Predicate.String() + ")" }

func (f *ClientFilter) EstimatedRows() int64 {
	in := f.Child.EstimatedRows()
	if in < 0 {
		return esql.UnknownRowCount
	}
	est := int64(float64(in) * 0.10)
	if est < 1 {
		est = 1
	}
	return est
}

func (f *ClientFilter) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := f.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &filterIter{child: childIter, predicate: f.Predicate}, nil
}

type filterIter struct {
	child     esql.RowIter
	predicate esql.Expression
}

func (it *filterIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		row, err := it.child.Next(ctx)
		if err != nil {
			return esql.Row{}, err
		}
		ok, err := esql.EvaluateCondition(ctx, it.predicate, row)
		if err != nil {
			return esql.Row{}, err
		}
		if ok {
			return row, nil
		}
	}
}

func (it *filterIter) Close(ctx *esql.ExecContext) error { return it.child.Close(ctx) }
