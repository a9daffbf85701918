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
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/plan"
)

func TestDateRangePartitionerSplitsByEstimatedVolume(t *testing.T) {
	require := require.New(t)

	min := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	ranges := plan.DateRangePartitioner(min, max, 5000, 1000)
	require.Len(ranges, 5)
	require.True(ranges[0].Start.Equal(min))
	require.True(ranges[len(ranges)-1].End.Equal(max))
	for i := 1; i < len(ranges); i++ {
		require.True(ranges[i].Start.Equal(ranges[i-1].End))
	}
}

func TestBuildPartitionFetchXmlAddsFilterAndCountColumn(t *testing.T) {
	require := require.New(t)

	base := `<fetch><entity name="incident"><attribute name="resolvetime" aggregate="avg" alias="avgresolve" /></entity></fetch>`
	r := plan.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	out := plan.BuildPartitionFetchXml(base, "createdon", r)

	require.Contains(out, `attribute="createdon" operator="ge"`)
	require.Contains(out, `attribute="createdon" operator="lt"`)
	require.Contains(out, `<attribute name="resolvetime" aggregate="avg" alias="avgresolve" /><attribute name="resolvetime" aggregate="countcolumn" alias="resolvetime_count" />`)
}

func TestParallelPartitionNodeYieldsAllRows(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	parts := []esql.Node{
		rowsNode([]esql.Row{accountRow(1, "Acme")}),
		rowsNode([]esql.Row{accountRow(2, "Globex")}),
		rowsNode([]esql.Row{accountRow(3, "Initech")}),
	}

	node := plan.NewParallelPartitionNode(parts, 2)
	iter, err := node.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 3)

	var names []string
	for _, r := range out {
		v, _ := r.Get("name")
		names = append(names, v.String())
	}
	sort.Strings(names)
	require.Equal([]string{"Acme", "Globex", "Initech"}, names)
}
