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

package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariableScopeDeclareSetGet(t *testing.T) {
	require := require.New(t)
	s := NewVariableScope(nil)

	// Set before declare is an error.
	require.Error(s.Set("@x", NewInt(1)))
	require.False(s.IsDeclared("@x"))

	require.NoError(s.Declare("@x", "INT", NewInt(1)))
	require.True(s.IsDeclared("@x"))
	typ, ok := s.DeclaredType("@x")
	require.True(ok)
	require.Equal("INT", typ)

	// Double declare is an error.
	require.Error(s.Declare("@x", "INT", NewInt(2)))

	require.NoError(s.Set("@x", NewInt(5)))
	v, ok := s.Get("@x")
	require.True(ok)
	n, err := v.Int()
	require.NoError(err)
	require.EqualValues(5, n)
}

func TestVariableScopeErrorPseudoVariables(t *testing.T) {
	require := require.New(t)
	s := NewVariableScope(nil)

	// Always "declared", zero-valued before any error.
	require.True(s.IsDeclared("@@ERROR_MESSAGE"))
	v, ok := s.Get("@@ERROR_NUMBER")
	require.True(ok)
	n, _ := v.Int()
	require.EqualValues(0, n)

	s.SetError(50001, "oops", 16, 1)
	msg, _ := s.Get("@@ERROR_MESSAGE")
	require.Equal("oops", msg.String())
	num, _ := s.Get("@@ERROR")
	n, _ = num.Int()
	require.EqualValues(50001, n)
	sev, _ := s.Get("@@ERROR_SEVERITY")
	n, _ = sev.Int()
	require.EqualValues(16, n)

	s.ClearError()
	msg, _ = s.Get("@@ERROR_MESSAGE")
	require.Equal("", msg.String())
}

func TestSessionContextTempTableLifecycle(t *testing.T) {
	require := require.New(t)
	s := NewSessionContext()

	require.False(s.TempExists("#t"))
	_, err := s.GetTempRows("#t")
	require.Error(err)

	require.NoError(s.CreateTempTable("#t", Schema{{Name: "n"}}))
	require.Error(s.CreateTempTable("#t", Schema{{Name: "n"}}))

	r := NewRow()
	r.Set("n", "", NewInt(1))
	require.NoError(s.InsertIntoTemp("#t", []Row{r}))
	rows, err := s.GetTempRows("#t")
	require.NoError(err)
	require.Len(rows, 1)

	require.NoError(s.DropTemp("#t"))
	require.False(s.TempExists("#t"))

	// A second session does not see the first session's tables.
	other := NewSessionContext()
	require.False(other.TempExists("#t"))
}

func TestSessionContextLastError(t *testing.T) {
	require := require.New(t)
	s := NewSessionContext()

	s.SetLastError(50001, "oops")
	n, msg := s.LastError()
	require.Equal(50001, n)
	require.Equal("oops", msg)

	s.ClearLastError()
	n, msg = s.LastError()
	require.Equal(0, n)
	require.Equal("", msg)
}
