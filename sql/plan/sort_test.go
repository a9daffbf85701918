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

func namesOf(rows []esql.Row, col string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		v, _ := r.Get(col)
		out[i] = v.String()
	}
	return out
}

func TestClientSortNullsLast(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	nullRow := esql.NewRow()
	nullRow.Set("name", "a", esql.Null)
	nullRow.Set("tag", "a", esql.NewString("null-row"))
	mk := func(name, tag string) esql.Row {
		r := esql.NewRow()
		r.Set("name", "a", esql.NewString(name))
		r.Set("tag", "a", esql.NewString(tag))
		return r
	}

	s := plan.NewClientSort(rowsNode([]esql.Row{mk("b", "1"), nullRow, mk("A", "2")}), []plan.SortKey{{Column: "name"}})
	iter, err := s.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)

	// Case-insensitive string compare, null sorts last.
	require.Equal([]string{"A", "b", "NULL"}, namesOf(out, "name"))
}

func TestClientSortStableAndIdempotent(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	mk := func(group int64, tag string) esql.Row {
		r := esql.NewRow()
		r.Set("g", "a", esql.NewInt(group))
		r.Set("tag", "a", esql.NewString(tag))
		return r
	}
	input := []esql.Row{mk(2, "x"), mk(1, "first"), mk(1, "second"), mk(1, "third")}

	s := plan.NewClientSort(rowsNode(input), []plan.SortKey{{Column: "g"}})
	iter, err := s.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	once, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Equal([]string{"first", "second", "third", "x"}, namesOf(once, "tag"))

	again := plan.NewClientSort(rowsNode(once), []plan.SortKey{{Column: "g"}})
	iter, err = again.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	twice, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Equal(namesOf(once, "tag"), namesOf(twice, "tag"))
}

func TestClientSortDescending(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	mk := func(n int64) esql.Row {
		r := esql.NewRow()
		r.Set("n", "a", esql.NewInt(n))
		return r
	}
	s := plan.NewClientSort(rowsNode([]esql.Row{mk(1), mk(3), mk(2)}), []plan.SortKey{{Column: "n", Descending: true}})
	iter, err := s.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Equal([]string{"3", "2", "1"}, namesOf(out, "n"))
}
