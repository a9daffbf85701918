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

// Concatenate yields the rows of each child in order (UNION ALL, §4.8).
type Concatenate struct {
	Kids []esql.Node
}

func NewConcatenate(children ...esql.Node) *Concatenate { return &Concatenate{Kids: children} }

func (c *Concatenate) Describe() string      { return "Concatenate" }
func (c *Concatenate) Children() []esql.Node { return c.Kids }

func (c *Concatenate) EstimatedRows() int64 {
	var total int64
	for _, k := range c.Kids {
		n := k.EstimatedRows()
		if n < 0 {
			return esql.UnknownRowCount
		}
		total += n
	}
	return total
}

func (c *Concatenate) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	return &concatenateIter{nodes: c.Kids, ctx: ctx, row: row}, nil
}

type concatenateIter struct {
	nodes []esql.Node
	ctx   *esql.ExecContext
	row   esql.Row
	idx   int
	cur   esql.RowIter
}

func (it *concatenateIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		if it.cur == nil {
			if it.idx >= len(it.nodes) {
				return esql.Row{}, esql.EOF
			}
			iter, err := it.nodes[it.idx].RowIter(ctx, it.row)
			if err != nil {
				return esql.Row{}, err
			}
			it.cur = iter
			it.idx++
		}
		row, err := it.cur.Next(ctx)
		if err == esql.EOF {
			_ = it.cur.Close(ctx)
			it.cur = nil
			continue
		}
		if err != nil {
			return esql.Row{}, err
		}
		return row, nil
	}
}

func (it *concatenateIter) Close(ctx *esql.ExecContext) error {
	if it.cur != nil {
		return it.cur.Close(ctx)
	}
	return nil
}

// Distinct yields each row the first time its composite key is seen (§4.8).
type Distinct struct {
	UnaryNodeHolder
}

func NewDistinct(child esql.Node) *Distinct { return &Distinct{UnaryNodeHolder{Child: child}} }

func (d *Distinct) Describe() string { return "Distinct" }

func (d *Distinct) EstimatedRows() int64 {
	in := d.Child.EstimatedRows()
	if in < 0 {
		return esql.UnknownRowCount
	}
	est := int64(float64(in) * 0.80)
	if est < 1 {
		est = 1
	}
	return est
}

func (d *Distinct) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := d.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &distinctIter{child: childIter, seen: map[expression.CompositeKey]struct{}{}}, nil
}

type distinctIter struct {
	child esql.RowIter
	seen  map[expression.CompositeKey]struct{}
}

func (it *distinctIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		row, err := it.child.Next(ctx)
		if err != nil {
			return esql.Row{}, err
		}
		k, err := expression.ComputeCompositeKey(row)
		if err != nil {
			return esql.Row{}, err
		}
		if _, ok := it.seen[k]; ok {
			continue
		}
		it.seen[k] = struct{}{}
		return row, nil
	}
}

func (it *distinctIter) Close(ctx *esql.ExecContext) error { return it.child.Close(ctx) }

// Intersect materializes the right side into a composite-key set, then
// streams the left side, yielding rows whose key is in the set and hasn't
// already been yielded (§4.8).
type Intersect struct {
	BinaryNodeHolder
}

func NewIntersect(left, right esql.Node) *Intersect {
	return &Intersect{BinaryNodeHolder{Left: left, Right: right}}
}

func (s *Intersect) Describe() string { return "Intersect" }

func (s *Intersect) EstimatedRows() int64 {
	l, r := s.Left.EstimatedRows(), s.Right.EstimatedRows()
	if l < 0 || r < 0 {
		return esql.UnknownRowCount
	}
	if l < r {
		return l
	}
	return r
}

func (s *Intersect) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	rightIter, err := s.Right.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	rightRows, err := esql.Drain(ctx, rightIter)
	if err != nil {
		return nil, err
	}
	rightSet := map[expression.CompositeKey]struct{}{}
	for _, r := range rightRows {
		k, err := expression.ComputeCompositeKey(r)
		if err != nil {
			return nil, err
		}
		rightSet[k] = struct{}{}
	}
	leftIter, err := s.Left.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &setFilterIter{child: leftIter, set: rightSet, want: true, seen: map[expression.CompositeKey]struct{}{}}, nil
}

// Except yields left rows whose composite key is NOT in the right set, with
// dedup (§4.8).
type Except struct {
	BinaryNodeHolder
}

func NewExcept(left, right esql.Node) *Except {
	return &Except{BinaryNodeHolder{Left: left, Right: right}}
}

func (s *Except) Describe() string { return "Except" }

func (s *Except) EstimatedRows() int64 { return s.Left.EstimatedRows() }

func (s *Except) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	rightIter, err := s.Right.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	rightRows, err := esql.Drain(ctx, rightIter)
	if err != nil {
		return nil, err
	}
	rightSet := map[expression.CompositeKey]struct{}{}
	for _, r := range rightRows {
		k, err := expression.ComputeCompositeKey(r)
		if err != nil {
			return nil, err
		}
		rightSet[k] = struct{}{}
	}
	leftIter, err := s.Left.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &setFilterIter{child: leftIter, set: rightSet, want: false, seen: map[expression.CompositeKey]struct{}{}}, nil
}

// setFilterIter drives both Intersect (want=true) and Except (want=false):
// a left row is yielded iff its key's membership in set matches want, and
// it hasn't already been yielded this run.
type setFilterIter struct {
	child esql.RowIter
	set   map[expression.CompositeKey]struct{}
	want  bool
	seen  map[expression.CompositeKey]struct{}
}

func (it *setFilterIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		row, err := it.child.Next(ctx)
		if err != nil {
			return esql.Row{}, err
		}
		k, err := expression.ComputeCompositeKey(row)
		if err != nil {
			return esql.Row{}, err
		}
		if _, already := it.seen[k]; already {
			continue
		}
		_, inSet := it.set[k]
		if inSet != it.want {
			continue
		}
		it.seen[k] = struct{}{}
		return row, nil
	}
}

func (it *setFilterIter) Close(ctx *esql.ExecContext) error { return it.child.Close(ctx) }
