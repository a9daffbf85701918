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

// Package expression implements the compiled predicate/projection
// expression tree consumed by sql.ExecContext.ExpressionEvaluator: column
// references, literals, @variables, arithmetic and comparison operators,
// CASE, boolean connectives, and the handful of functions the script
// engine needs (ERROR_MESSAGE() and friends).
package expression

import (
	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// Literal is a constant expression.
type Literal struct {
	Value esql.Value
}

func NewLiteral(v esql.Value) *Literal { return &Literal{Value: v} }

func (l *Literal) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	return l.Value, nil
}

func (l *Literal) String() string { return l.Value.String() }

// GetField references a column by name on the current row.
type GetField struct {
	Name string
}

func NewGetField(name string) *GetField { return &GetField{Name: name} }

func (f *GetField) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	v, ok := row.Get(f.Name)
	if !ok {
		return esql.Null, nil
	}
	return v, nil
}

func (f *GetField) String() string { return f.Name }

// Variable references "@name" in the execution context's scope (§3, §4.11).
type Variable struct {
	Name string
}

func NewVariable(name string) *Variable { return &Variable{Name: name} }

func (v *Variable) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	val, ok := ctx.Scope.Get(v.Name)
	if !ok {
		return esql.Value{}, esql.ErrPlan.New("variable " + v.Name + " is not declared")
	}
	return val, nil
}

func (v *Variable) String() string { return v.Name }
