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

package plan

import esql "github.com/joshsmithxrm/fetchengine/sql"

// TdsScan passes a statement through to the direct-wire executor verbatim
// (§4.1), used when the planner's compatibility check rules the statement
// safe to pass through (§4.12 step 3).
type TdsScan struct {
	SQL string
}

func NewTdsScan(sql string) *TdsScan { return &TdsScan{SQL: sql} }

func (s *TdsScan) Describe() string         { return "TdsScan(" + s.SQL + ")" }
func (s *TdsScan) EstimatedRows() int64     { return esql.UnknownRowCount }
func (s *TdsScan) Children() []esql.Node    { return nil }

func (s *TdsScan) RowIter(ctx *esql.ExecContext, _ esql.Row) (esql.RowIter, error) {
	if ctx.TdsExec == nil {
		return nil, esql.ErrPlan.New("TdsScan requires a direct-wire executor")
	}
	rows, err := ctx.TdsExec.ExecuteSql(ctx.Context, s.SQL)
	if err != nil {
		return nil, esql.ErrExecution.New("tds", err.Error())
	}
	return esql.NewSliceIter(rows), nil
}

// MetadataScan reads a metadata.* table, applying an optional client-side
// where-condition (§4.1).
type MetadataScan struct {
	Table      string
	Columns    []string
	Where      esql.Expression // nil if unconditional
}

func NewMetadataScan(table string, columns []string, where esql.Expression) *MetadataScan {
	return &MetadataScan{Table: table, Columns: columns, Where: where}
}

func (s *MetadataScan) Describe() string      { return "MetadataScan(" + s.Table + ")" }
func (s *MetadataScan) EstimatedRows() int64  { return esql.UnknownRowCount }
func (s *MetadataScan) Children() []esql.Node { return nil }

func (s *MetadataScan) RowIter(ctx *esql.ExecContext, _ esql.Row) (esql.RowIter, error) {
	md, ok := ctx.Executor.(esql.MetadataExecutor)
	if !ok {
		return nil, esql.ErrPlan.New("backend executor does not support metadata queries")
	}
	rows, err := md.QueryMetadata(ctx.Context, s.Table, s.Columns)
	if err != nil {
		return nil, esql.ErrExecution.New("metadata", err.Error())
	}
	if s.Where == nil {
		return esql.NewSliceIter(rows), nil
	}
	var filtered []esql.Row
	for _, row := range rows {
		ok, err := esql.EvaluateCondition(ctx, s.Where, row)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, row)
		}
	}
	return esql.NewSliceIter(filtered), nil
}

// RemoteScan is a FetchXmlScan whose backend is an alternate target
// instance (§4.1); otherwise identical.
type RemoteScan struct {
	FetchXmlScan
}

func NewRemoteScan(fetchxml, entity string, maxRows *int, schema esql.Schema) *RemoteScan {
	return &RemoteScan{FetchXmlScan: FetchXmlScan{FetchXml: fetchxml, Entity: entity, MaxRows: maxRows, schema: schema}}
}

func (s *RemoteScan) Describe() string { return "RemoteScan(" + s.Entity + ")" }

func (s *RemoteScan) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	if ctx.Remote == nil {
		return nil, esql.ErrPlan.New("RemoteScan requires an alternate-target backend executor")
	}
	remoteCtx := *ctx
	remoteCtx.Executor = ctx.Remote
	return s.FetchXmlScan.RowIter(&remoteCtx, row)
}
