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

// isOuterOnLeft/isOuterOnRight report whether unmatched rows from the left
// or right side must be emitted with a null-filled opposite side, per the
// join-type enum of §4.6.
func isOuterOnLeft(kind esql.JoinKind) bool {
	return kind == esql.JoinLeft || kind == esql.JoinFullOuter || kind == esql.JoinOuterApply
}

func isOuterOnRight(kind esql.JoinKind) bool {
	return kind == esql.JoinRight || kind == esql.JoinFullOuter
}

// HashJoin builds a hash map from the right input keyed by the normalized
// join key, then probes it while streaming the left input (§4.6). Rows
// with a NULL key never match: NULL build keys are left out of the hash
// map (such a right row still counts as unmatched for Right/FullOuter),
// so a NULL probe key finds no bucket.
type HashJoin struct {
	BinaryNodeHolder
	Kind         esql.JoinKind
	LeftKey      esql.Expression
	RightKey     esql.Expression
	RightSchema  esql.Schema
	LeftSchema   esql.Schema
	RightEntity  string
}

func NewHashJoin(left, right esql.Node, kind esql.JoinKind, leftKey, rightKey esql.Expression, leftSchema, rightSchema esql.Schema, rightEntity string) *HashJoin {
	return &HashJoin{
		BinaryNodeHolder: BinaryNodeHolder{Left: left, Right: right},
		Kind:             kind,
		LeftKey:          leftKey,
		RightKey:         rightKey,
		LeftSchema:       leftSchema,
		RightSchema:      rightSchema,
		RightEntity:      rightEntity,
	}
}

func (j *HashJoin) Describe() string { return "HashJoin" }

func (j *HashJoin) EstimatedRows() int64 {
	l, r := j.Left.EstimatedRows(), j.Right.EstimatedRows()
	if l < 0 || r < 0 {
		return esql.UnknownRowCount
	}
	est := int64(float64(l) * float64(r) * 0.10)
	if est < 1 {
		est = 1
	}
	return est
}

func (j *HashJoin) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	rightIter, err := j.Right.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	rightRows, err := esql.Drain(ctx, rightIter)
	if err != nil {
		return nil, err
	}

	buckets := map[expression.JoinKey][]int{}
	matched := make([]bool, len(rightRows))
	for i, r := range rightRows {
		v, err := j.RightKey.Eval(ctx, r)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		k := expression.NormalizeJoinKey(v)
		buckets[k] = append(buckets[k], i)
	}
	leftIter, err := j.Left.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}

	return &hashJoinIter{
		join:       j,
		left:       leftIter,
		rightRows:  rightRows,
		buckets:    buckets,
		matched:    matched,
	}, nil
}

type hashJoinIter struct {
	join      *HashJoin
	left      esql.RowIter
	rightRows []esql.Row
	buckets   map[expression.JoinKey][]int
	matched   []bool

	pending      []esql.Row
	pendingPos   int
	leftDone     bool
	rightEmitted bool
}

func (it *hashJoinIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		if it.pendingPos < len(it.pending) {
			r := it.pending[it.pendingPos]
			it.pendingPos++
			return r, nil
		}
		if it.leftDone {
			return it.emitUnmatchedRight(ctx)
		}
		leftRow, err := it.left.Next(ctx)
		if err == esql.EOF {
			it.leftDone = true
			continue
		}
		if err != nil {
			return esql.Row{}, err
		}
		it.pending, it.pendingPos = nil, 0
		lv, err := it.join.LeftKey.Eval(ctx, leftRow)
		if err != nil {
			return esql.Row{}, err
		}
		if lv.IsNull() {
			if isOuterOnLeft(it.join.Kind) {
				return esql.Merge(leftRow, esql.NullFill(it.join.RightSchema, it.join.RightEntity), it.join.RightEntity), nil
			}
			continue
		}
		key := expression.NormalizeJoinKey(lv)
		bucket := it.buckets[key]
		if len(bucket) == 0 {
			if isOuterOnLeft(it.join.Kind) {
				return esql.Merge(leftRow, esql.NullFill(it.join.RightSchema, it.join.RightEntity), it.join.RightEntity), nil
			}
			continue
		}
		for _, idx := range bucket {
			it.matched[idx] = true
			it.pending = append(it.pending, esql.Merge(leftRow, it.rightRows[idx], it.join.RightEntity))
		}
	}
}

func (it *hashJoinIter) emitUnmatchedRight(ctx *esql.ExecContext) (esql.Row, error) {
	if !isOuterOnRight(it.join.Kind) {
		return esql.Row{}, esql.EOF
	}
	if !it.rightEmitted {
		it.rightEmitted = true
		var out []esql.Row
		for i, r := range it.rightRows {
			if !it.matched[i] {
				out = append(out, esql.Merge(esql.NullFill(it.join.LeftSchema, ""), r, it.join.RightEntity))
			}
		}
		it.pending, it.pendingPos = out, 0
	}
	if it.pendingPos < len(it.pending) {
		r := it.pending[it.pendingPos]
		it.pendingPos++
		return r, nil
	}
	return esql.Row{}, esql.EOF
}

func (it *hashJoinIter) Close(ctx *esql.ExecContext) error {
	return it.left.Close(ctx)
}

// BinaryNodeHolder is the two-children analogue of UnaryNodeHolder.
type BinaryNodeHolder struct {
	Left, Right esql.Node
}

func (b BinaryNodeHolder) Children() []esql.Node { return []esql.Node{b.Left, b.Right} }
