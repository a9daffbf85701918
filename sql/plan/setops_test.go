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
	"github.com/joshsmithxrm/fetchengine/sql/plan"
)

func TestConcatenateYieldsInOrder(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	a := rowsNode([]esql.Row{accountRow(1, "Acme")})
	b := rowsNode([]esql.Row{accountRow(2, "Globex")})

	c := plan.NewConcatenate(a, b)
	iter, err := c.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 2)
}

func TestDistinctDropsDuplicates(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	src := rowsNode([]esql.Row{accountRow(1, "Acme"), accountRow(1, "Acme"), accountRow(2, "Globex")})
	d := plan.NewDistinct(src)
	iter, err := d.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 2)
}

func TestIntersectKeepsOnlyCommonRows(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	left := rowsNode([]esql.Row{accountRow(1, "Acme"), accountRow(2, "Globex")})
	right := rowsNode([]esql.Row{accountRow(2, "Globex")})

	i := plan.NewIntersect(left, right)
	iter, err := i.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 1)
	v, _ := out[0].Get("name")
	require.Equal("Globex", v.String())
}

func TestExceptDropsRowsInRight(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	left := rowsNode([]esql.Row{accountRow(1, "Acme"), accountRow(2, "Globex")})
	right := rowsNode([]esql.Row{accountRow(2, "Globex")})

	e := plan.NewExcept(left, right)
	iter, err := e.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 1)
	v, _ := out[0].Get("name")
	require.Equal("Acme", v.String())
}
