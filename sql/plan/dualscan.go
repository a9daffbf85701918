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

// DualScan yields exactly one empty row. FROM-less SELECTs (§4.11) are
// planned as a Project over a DualScan, so every projection is evaluated
// once against an empty row; recursive CTE anchors with no FROM clause use
// the same shape.
type DualScan struct{}

func NewDualScan() *DualScan { return &DualScan{} }

func (*DualScan) Describe() string      { return "DualScan" }
func (*DualScan) EstimatedRows() int64  { return 1 }
func (*DualScan) Children() []esql.Node { return nil }

func (*DualScan) RowIter(ctx *esql.ExecContext, _ esql.Row) (esql.RowIter, error) {
	return esql.NewSliceIter([]esql.Row{esql.NewRow()}), nil
}
