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

// TempTableScan reads rows from a named "#temp" table in the session
// context (§4.1). It fails if the name is absent.
type TempTableScan struct {
	Name string
}

func NewTempTableScan(name string) *TempTableScan { return &TempTableScan{Name: name} }

func (s *TempTableScan) Describe() string      { return "TempTableScan(" + s.Name + ")" }
func (s *TempTableScan) EstimatedRows() int64  { return esql.UnknownRowCount }
func (s *TempTableScan) Children() []esql.Node { return nil }

func (s *TempTableScan) RowIter(ctx *esql.ExecContext, _ esql.Row) (esql.RowIter, error) {
	if !ctx.Session.TempExists(s.Name) {
		return nil, esql.ErrPlan.New("temp table " + s.Name + " does not exist")
	}
	rows, err := ctx.Session.GetTempRows(s.Name)
	if err != nil {
		return nil, err
	}
	return esql.NewSliceIter(rows), nil
}

// CteScan is a terminal operator over a pre-materialized row list produced
// by an earlier CTE evaluation (§4.1).
type CteScan struct {
	Rows []esql.Row
}

func NewCteScan(rows []esql.Row) *CteScan { return &CteScan{Rows: rows} }

func (s *CteScan) Describe() string      { return "CteScan" }
func (s *CteScan) EstimatedRows() int64  { return int64(len(s.Rows)) }
func (s *CteScan) Children() []esql.Node { return nil }

func (s *CteScan) RowIter(ctx *esql.ExecContext, _ esql.Row) (esql.RowIter, error) {
	return esql.NewSliceIter(s.Rows), nil
}
