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

package analyzer

import (
	"strings"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

// PlanInsert plans an INSERT (§4.12): bulk VALUES rows are evaluated
// against an empty row (no source to reference) and handed to the DML
// executor directly; INSERT ... SELECT plans its source as an ordinary
// query and streams the result into InsertSelect.
func (p *Planner) PlanInsert(ctx *esql.ExecContext, ast *esql.InsertAST) (*esql.DmlResult, error) {
	if p.Dml == nil {
		return nil, esql.ErrPlan.New("planner has no DML executor configured")
	}

	if ast.Source != nil {
		planned, err := p.PlanSelect(ctx, ast.Source)
		if err != nil {
			return nil, err
		}
		iter, err := planned.Root.RowIter(ctx, esql.NewRow())
		if err != nil {
			return nil, err
		}
		return p.Dml.InsertSelect(ctx.Context, ast.Entity, ast.Columns, iter, ctx, p.Config.DmlRowCap)
	}

	empty := esql.NewRow()
	rows := make([][]esql.Value, len(ast.Values))
	for i, valueRow := range ast.Values {
		vals := make([]esql.Value, len(valueRow))
		for j, expr := range valueRow {
			v, err := expr.Eval(ctx, empty)
			if err != nil {
				return nil, err
			}
			vals[j] = v
		}
		rows[i] = vals
	}
	return p.Dml.InsertValues(ctx.Context, ast.Entity, ast.Columns, rows, p.Config.DmlRowCap)
}

// PlanUpdate synthesizes a SELECT of the entity's id column plus every
// column referenced on the right-hand side of Set, plans and runs it, and
// hands the resulting row stream to the DML executor (§4.12).
func (p *Planner) PlanUpdate(ctx *esql.ExecContext, ast *esql.UpdateAST) (*esql.DmlResult, error) {
	if p.Dml == nil {
		return nil, esql.ErrPlan.New("planner has no DML executor configured")
	}

	cols := []esql.SelectColumn{{Column: ast.IdColumn}}
	seen := map[string]bool{strings.ToLower(ast.IdColumn): true}
	for _, set := range ast.Set {
		for _, name := range referencedColumns(set.Expression) {
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			cols = append(cols, esql.SelectColumn{Column: name})
		}
	}

	source := &esql.SelectAST{Entity: ast.Entity, Columns: cols, Where: ast.Where}
	planned, err := p.PlanSelect(ctx, source)
	if err != nil {
		return nil, err
	}
	iter, err := planned.Root.RowIter(ctx, esql.NewRow())
	if err != nil {
		return nil, err
	}
	return p.Dml.Update(ctx.Context, ast.Entity, ast.IdColumn, ast.Set, iter, ctx, p.Config.DmlRowCap)
}

// PlanDelete synthesizes a SELECT of just the entity's id column, plans
// and runs it, and hands the resulting row stream to the DML executor
// (§4.12).
func (p *Planner) PlanDelete(ctx *esql.ExecContext, ast *esql.DeleteAST) (*esql.DmlResult, error) {
	if p.Dml == nil {
		return nil, esql.ErrPlan.New("planner has no DML executor configured")
	}

	source := &esql.SelectAST{
		Entity:  ast.Entity,
		Columns: []esql.SelectColumn{{Column: ast.IdColumn}},
		Where:   ast.Where,
	}
	planned, err := p.PlanSelect(ctx, source)
	if err != nil {
		return nil, err
	}
	iter, err := planned.Root.RowIter(ctx, esql.NewRow())
	if err != nil {
		return nil, err
	}
	return p.Dml.Delete(ctx.Context, ast.Entity, ast.IdColumn, iter, ctx, p.Config.DmlRowCap)
}

// referencedColumns walks a compiled expression tree and returns every
// column name it reads, used to build UPDATE's synthesized SELECT.
func referencedColumns(expr esql.Expression) []string {
	switch e := expr.(type) {
	case nil:
		return nil
	case *expression.GetField:
		return []string{e.Name}
	case *expression.Literal, *expression.Variable:
		return nil
	case *expression.Arithmetic:
		return append(referencedColumns(e.Left), referencedColumns(e.Right)...)
	case *expression.Comparison:
		return append(referencedColumns(e.Left), referencedColumns(e.Right)...)
	case *expression.And:
		return append(referencedColumns(e.Left), referencedColumns(e.Right)...)
	case *expression.Or:
		return append(referencedColumns(e.Left), referencedColumns(e.Right)...)
	case *expression.Not:
		return referencedColumns(e.Operand)
	case *expression.IsNull:
		return referencedColumns(e.Operand)
	case *expression.Case:
		var out []string
		for _, b := range e.Branches {
			out = append(out, referencedColumns(b.Condition)...)
			out = append(out, referencedColumns(b.Result)...)
		}
		out = append(out, referencedColumns(e.Else)...)
		return out
	default:
		return nil
	}
}
