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

import "context"

// DmlResult is the outcome of an INSERT/UPDATE/DELETE: an affected-row
// count, surfaced to ScriptExecution even though DML statements yield no
// rows of their own ([EXPANSION] "@@ROWCOUNT-style DML result" in
// SPEC_FULL.md).
type DmlResult struct {
	AffectedRows int64
}

// DmlExecutor is the write-path collaborator: it takes an entity, a scan
// producing the rows to operate on (for UPDATE/DELETE, synthesized by the
// planner per §4.12), and performs the mutation against the backend.
type DmlExecutor interface {
	InsertValues(ctx context.Context, entity string, columns []string, rows [][]Value, rowCap int) (*DmlResult, error)
	InsertSelect(ctx context.Context, entity string, columns []string, source RowIter, execCtx *ExecContext, rowCap int) (*DmlResult, error)
	Update(ctx context.Context, entity string, idColumn string, set []SetClause, source RowIter, execCtx *ExecContext, rowCap int) (*DmlResult, error)
	Delete(ctx context.Context, entity string, idColumn string, source RowIter, execCtx *ExecContext, rowCap int) (*DmlResult, error)
}
