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

// MergeJoin walks two inputs that are each already sorted ascending on
// their join key, in lockstep, emitting the full cross product of each
// run of equal keys (§4.6). As in HashJoin, two NULL keys never compare
// equal here: NULLs never join to NULLs, per
// §4.6's join semantics, so a NULL key row is treated as strictly
// unmatched on its own side.
//
// The planner is responsible for guaranteeing both inputs are delivered
// in join-key order (by emitting matching ORDER BYs, or selecting a scan
// that is naturally ordered); MergeJoin does not verify this itself.
type MergeJoin struct {
	BinaryNodeHolder
	Kind        esql.JoinKind
	LeftKey     esql.Expression
	RightKey    esql.Expression
	LeftSchema  esql.Schema
	RightSchema esql.Schema
	RightEntity string
}

func NewMergeJoin(left, right esql.Node, kind esql.JoinKind, leftKey, rightKey esql.Expression, leftSchema, rightSchema esql.Schema, rightEntity string) *MergeJoin {
	return &MergeJoin{
		BinaryNodeHolder: BinaryNodeHolder{Left: left, Right: right},
		Kind:             kind,
		LeftKey:          leftKey,
		RightKey:         rightKey,
		LeftSchema:       leftSchema,
		RightSchema:      rightSchema,
		RightEntity:      rightEntity,
	}
}

func (j *MergeJoin) Describe() string { return "MergeJoin" }

func (j *MergeJoin) EstimatedRows() int64 {
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

func (j *MergeJoin) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	leftIter, err := j.Left.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	leftRows, err := esql.Drain(ctx, leftIter)
	if err != nil {
		return nil, err
	}
	rightIter, err := j.Right.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	rightRows, err := esql.Drain(ctx, rightIter)
	if err != nil {
		return nil, err
	}

	out, err := mergeJoinRows(ctx, j, leftRows, rightRows)
	if err != nil {
		return nil, err
	}
	return esql.NewSliceIter(out), nil
}

func mergeJoinRows(ctx *esql.ExecContext, j *MergeJoin, left, right []esql.Row) ([]esql.Row, error) {
	var out []esql.Row
	li, ri := 0, 0
	leftMatched := make([]bool, len(left))
	rightMatched := make([]bool, len(right))

	for li < len(left) && ri < len(right) {
		if err := ctx.CheckCancelled(); err != nil {
			return nil, err
		}
		lv, err := j.LeftKey.Eval(ctx, left[li])
		if err != nil {
			return nil, err
		}
		rv, err := j.RightKey.Eval(ctx, right[ri])
		if err != nil {
			return nil, err
		}
		if lv.IsNull() {
			li++
			continue
		}
		if rv.IsNull() {
			ri++
			continue
		}
		cmp, err := expression.TypedCompare(lv, rv)
		if err != nil {
			return nil, err
		}
		if cmp < 0 {
			li++
			continue
		}
		if cmp > 0 {
			ri++
			continue
		}

		// Equal-key run: find the extent of the matching block on both
		// sides, then emit the full cross product.
		lEnd := li
		for lEnd < len(left) {
			v, err := j.LeftKey.Eval(ctx, left[lEnd])
			if err != nil {
				return nil, err
			}
			c, err := expression.TypedCompare(v, lv)
			if err != nil || c != 0 {
				break
			}
			lEnd++
		}
		rEnd := ri
		for rEnd < len(right) {
			v, err := j.RightKey.Eval(ctx, right[rEnd])
			if err != nil {
				return nil, err
			}
			c, err := expression.TypedCompare(v, rv)
			if err != nil || c != 0 {
				break
			}
			rEnd++
		}
		for a := li; a < lEnd; a++ {
			leftMatched[a] = true
			for b := ri; b < rEnd; b++ {
				rightMatched[b] = true
				out = append(out, esql.Merge(left[a], right[b], j.RightEntity))
			}
		}
		li, ri = lEnd, rEnd
	}

	if isOuterOnLeft(j.Kind) {
		for i, matched := range leftMatched {
			if !matched {
				out = append(out, esql.Merge(left[i], esql.NullFill(j.RightSchema, j.RightEntity), j.RightEntity))
			}
		}
	}
	if isOuterOnRight(j.Kind) {
		for i, matched := range rightMatched {
			if !matched {
				out = append(out, esql.Merge(esql.NullFill(j.LeftSchema, ""), right[i], j.RightEntity))
			}
		}
	}
	return out, nil
}
