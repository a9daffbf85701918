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

package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
	"github.com/joshsmithxrm/fetchengine/sql/plan"
)

func TestNestedLoopJoinCrossApplyPerOuterRow(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	outer := rowsNode([]esql.Row{accountRow(1, "Acme"), accountRow(2, "Globex")})

	factory := func(ctx *esql.ExecContext, outerRow esql.Row) (esql.Node, error) {
		v, _ := outerRow.Get("accountid")
		id, _ := v.Int()
		return rowsNode([]esql.Row{contactRow(id, "Derived")}), nil
	}

	j := plan.NewNestedLoopJoin(outer, esql.JoinCrossApply, factory, nil, nil, "contact")
	iter, err := j.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 2)

	v, _ := out[0].Get("parentaccountid")
	id, _ := v.Int()
	require.Equal(int64(1), id)
}

func TestNestedLoopJoinOuterApplyFillsEmptyInner(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	outer := rowsNode([]esql.Row{accountRow(1, "Acme")})
	factory := func(ctx *esql.ExecContext, outerRow esql.Row) (esql.Node, error) {
		return rowsNode(nil), nil
	}

	rightSchema := esql.Schema{{Name: "fullname"}}
	j := plan.NewNestedLoopJoin(outer, esql.JoinOuterApply, factory, nil, rightSchema, "contact")
	iter, err := j.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 1)

	v, _ := out[0].Get("fullname")
	require.True(v.IsNull())
}

func TestNestedLoopJoinFullOuterEmitsUnmatchedBothSides(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	outer := rowsNode([]esql.Row{accountRow(1, "Acme"), accountRow(9, "Orphan")})
	inner := rowsNode([]esql.Row{contactRow(1, "Ada"), contactRow(7, "Stray")})
	factory := func(ctx *esql.ExecContext, outerRow esql.Row) (esql.Node, error) {
		return inner, nil
	}

	pred := expression.NewComparison(expression.Eq, expression.NewGetField("accountid"), expression.NewGetField("parentaccountid"))
	j := plan.NewNestedLoopJoin(outer, esql.JoinFullOuter, factory, pred, esql.Schema{{Name: "parentaccountid"}, {Name: "fullname"}}, "contact")
	j.LeftSchema = esql.Schema{{Name: "accountid"}, {Name: "name"}}

	iter, err := j.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 3)

	// Matched pair first, then the unmatched outer with null right side,
	// then the unmatched inner with null left side.
	name, _ := out[0].Get("name")
	require.Equal("Acme", name.String())
	fn, _ := out[1].Get("fullname")
	require.True(fn.IsNull())
	acc, _ := out[2].Get("accountid")
	require.True(acc.IsNull())
	fn, _ = out[2].Get("fullname")
	require.Equal("Stray", fn.String())
}
