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

// Projection is one output column of a Project node: either a pass-through
// copy of an input column under OutputName, or a computed column evaluated
// from Expression (§4.3).
type Projection struct {
	OutputName string
	SourceName string          // set for a pass-through projection
	Expression esql.Expression // set for a computed projection
}

// Project holds an ordered list of projections and emits a row carrying
// exactly those names (§4.3).
type Project struct {
	UnaryNodeHolder
	Projections []Projection
}

func NewProject(child esql.Node, projections []Projection) *Project {
	return &Project{UnaryNodeHolder: UnaryNodeHolder{Child: child}, Projections: projections}
}

func (p *Project) Describe() string { return "Project" }

func (p *Project) EstimatedRows() int64 { return p.Child.EstimatedRows() }

func (p *Project) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := p.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	return &projectIter{child: childIter, projections: p.Projections}, nil
}

type projectIter struct {
	child       esql.RowIter
	projections []Projection
}

func (it *projectIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return esql.Row{}, err
	}
	row, err := it.child.Next(ctx)
	if err != nil {
		return esql.Row{}, err
	}
	out := esql.NewRow()
	for _, proj := range it.projections {
		if proj.Expression != nil {
			v, err := proj.Expression.Eval(ctx, row)
			if err != nil {
				return esql.Row{}, err
			}
			out.Set(proj.OutputName, "", v)
			continue
		}
		v, _ := row.Get(proj.SourceName)
		entity, _ := row.Entity(proj.SourceName)
		out.Set(proj.OutputName, entity, v)
	}
	return out, nil
}

func (it *projectIter) Close(ctx *esql.ExecContext) error { return it.child.Close(ctx) }
