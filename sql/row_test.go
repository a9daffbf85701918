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

package sql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshsmithxrm/fetchengine/sql"
)

func TestRowCaseInsensitiveLookup(t *testing.T) {
	require := require.New(t)

	row := sql.NewRow()
	row.Set("AccountId", "account", sql.NewInt(1))

	v, ok := row.Get("accountid")
	require.True(ok)
	i, err := v.Int()
	require.NoError(err)
	require.Equal(int64(1), i)
}

func TestRowMergeCollisionDisambiguates(t *testing.T) {
	require := require.New(t)

	left := sql.NewRow()
	left.Set("name", "account", sql.NewString("Contoso"))

	right := sql.NewRow()
	right.Set("name", "contact", sql.NewString("Ada"))

	merged := sql.Merge(left, right, "contact")

	v, ok := merged.Get("name")
	require.True(ok)
	require.Equal("Contoso", v.String())

	v2, ok := merged.GetQualified("contact", "name")
	require.True(ok)
	require.Equal("Ada", v2.String())
}

func TestNullFillUsesSchemaColumns(t *testing.T) {
	require := require.New(t)

	schema := sql.Schema{{Name: "id"}, {Name: "name"}}
	row := sql.NullFill(schema, "account")

	for _, col := range schema {
		v, ok := row.Get(col.Name)
		require.True(ok)
		require.True(v.IsNull())
	}
}

func TestSameSchema(t *testing.T) {
	require := require.New(t)

	a := sql.NewRow()
	a.Set("id", "", sql.NewInt(1))
	b := sql.NewRow()
	b.Set("ID", "", sql.NewInt(2))

	require.True(sql.SameSchema(a, b))

	c := sql.NewRow()
	c.Set("other", "", sql.NewInt(3))
	require.False(sql.SameSchema(a, c))
}
