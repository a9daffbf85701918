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

// OffsetFetch skips the first Offset rows of input, then yields up to
// Fetch rows (Fetch < 0 means unlimited), short-circuiting once the fetch
// budget is exhausted (§4.5).
type OffsetFetch struct {
	UnaryNodeHolder
	Offset int64
	Fetch  int64
}

func NewOffsetFetch(child esql.Node, offset, fetch int64) *OffsetFetch {
	return &OffsetFetch{UnaryNodeHolder: UnaryNodeHolder{Child: child}, Offset: offset, Fetch: fetch}
}

func (o *OffsetFetch) Describe() string { return "OffsetFetch" }

func (o *OffsetFetch) EstimatedRows() int64 {
	in := o.Child.EstimatedRows()
	if in < 0 {
		return esql.UnknownRowCount
	}
	if o.Fetch >= 0 {
		return o.Fetch
	}
	remaining := in - o.Offset
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (o *OffsetFetch) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := o.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &offsetFetchIter{child: childIter, offset: o.Offset, fetch: o.Fetch}, nil
}

type offsetFetchIter struct {
	child   esql.RowIter
	offset  int64
	fetch   int64
	skipped int64
	emitted int64
}

func (it *offsetFetchIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	if it.fetch == 0 {
		return esql.Row{}, esql.EOF
	}
	for it.skipped < it.offset {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		if _, err := it.child.Next(ctx); err != nil {
			return esql.Row{}, err
		}
		it.skipped++
	}
	if it.fetch >= 0 && it.emitted >= it.fetch {
		return esql.Row{}, esql.EOF
	}
	if err := ctx.CheckCancelled(); err != nil {
		return esql.Row{}, err
	}
	row, err := it.child.Next(ctx)
	if err != nil {
		return esql.Row{}, err
	}
	it.emitted++
	return row, nil
}

func (it *offsetFetchIter) Close(ctx *esql.ExecContext) error { return it.child.Close(ctx) }
