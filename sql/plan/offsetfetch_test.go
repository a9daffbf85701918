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

func intRows(ns ...int64) []esql.Row {
	out := make([]esql.Row, len(ns))
	for i, n := range ns {
		r := esql.NewRow()
		r.Set("n", "t", esql.NewInt(n))
		out[i] = r
	}
	return out
}

func TestOffsetFetchSlices(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	cases := []struct {
		offset, fetch int64
		want          []string
	}{
		{0, -1, []string{"1", "2", "3", "4", "5"}},
		{2, 2, []string{"3", "4"}},
		{2, -1, []string{"3", "4", "5"}},
		{0, 0, nil},
		{5, -1, nil},
		{4, 10, []string{"5"}},
	}
	for _, tc := range cases {
		o := plan.NewOffsetFetch(rowsNode(intRows(1, 2, 3, 4, 5)), tc.offset, tc.fetch)
		iter, err := o.RowIter(ctx, esql.NewRow())
		require.NoError(err)
		out, err := esql.Drain(ctx, iter)
		require.NoError(err)
		require.Equal(tc.want, sliceOrNil(namesOf(out, "n")), "offset=%d fetch=%d", tc.offset, tc.fetch)
	}
}

func sliceOrNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestOffsetFetchPastEndOfInput(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	o := plan.NewOffsetFetch(rowsNode(intRows(1, 2)), 10, 5)
	iter, err := o.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Empty(out)
}
