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

package expression_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

func TestCompareEqualNullIsUnknown(t *testing.T) {
	require := require.New(t)

	tri, err := expression.CompareEqual(esql.Null, esql.NewInt(1))
	require.NoError(err)
	require.Equal(expression.Unknown, tri)
}

func TestSortNullsLast(t *testing.T) {
	require := require.New(t)

	c, err := expression.SortNullsLast(esql.Null, esql.NewInt(1), false)
	require.NoError(err)
	require.Equal(1, c) // null sorts after non-null regardless of direction

	c, err = expression.SortNullsLast(esql.Null, esql.NewInt(1), true)
	require.NoError(err)
	require.Equal(1, c)

	c, err = expression.SortNullsLast(esql.Null, esql.Null, false)
	require.NoError(err)
	require.Equal(0, c)
}

func TestAndOrThreeValuedLogic(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()
	row := esql.NewRow()

	// NULL AND FALSE = FALSE
	and := expression.NewAnd(expression.NewLiteral(esql.Null), expression.NewLiteral(esql.NewBool(false)))
	v, err := and.Eval(ctx, row)
	require.NoError(err)
	b, _ := v.Bool()
	require.False(b)

	// NULL OR TRUE = TRUE
	or := expression.NewOr(expression.NewLiteral(esql.Null), expression.NewLiteral(esql.NewBool(true)))
	v, err = or.Eval(ctx, row)
	require.NoError(err)
	b, _ = v.Bool()
	require.True(b)

	// NULL AND TRUE = NULL
	and2 := expression.NewAnd(expression.NewLiteral(esql.Null), expression.NewLiteral(esql.NewBool(true)))
	v, err = and2.Eval(ctx, row)
	require.NoError(err)
	require.True(v.IsNull())
}

func TestCompositeKeyIgnoresColumnOrder(t *testing.T) {
	require := require.New(t)

	a := esql.NewRow()
	a.Set("id", "", esql.NewInt(1))
	a.Set("name", "", esql.NewString("Ada"))

	b := esql.NewRow()
	b.Set("name", "", esql.NewString("Ada"))
	b.Set("id", "", esql.NewInt(1))

	ka, err := expression.ComputeCompositeKey(a)
	require.NoError(err)
	kb, err := expression.ComputeCompositeKey(b)
	require.NoError(err)
	require.Equal(ka, kb)
}

func TestRaiserrorFormatting(t *testing.T) {
	require := require.New(t)

	msg, err := expression.FormatRaiserror("value %s count %d", []esql.Value{esql.NewString("x"), esql.NewInt(3)})
	require.NoError(err)
	require.Equal("value x count 3", msg)
}
