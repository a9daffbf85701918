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

func TestValueCoercions(t *testing.T) {
	require := require.New(t)

	i, err := sql.NewString("42").Int()
	require.NoError(err)
	require.Equal(int64(42), i)

	f, err := sql.NewInt(3).Float()
	require.NoError(err)
	require.Equal(float64(3), f)

	_, err = sql.Null.Int()
	require.Error(err)
}

func TestUUIDRoundTrip(t *testing.T) {
	require := require.New(t)

	v, err := sql.NewUUIDFromString("123e4567-e89b-12d3-a456-426614174000")
	require.NoError(err)
	require.Equal(sql.KindUUID, v.Kind())
	require.Equal("123e4567-e89b-12d3-a456-426614174000", v.String())

	_, err = sql.NewUUIDFromString("not-a-uuid")
	require.Error(err)
}
