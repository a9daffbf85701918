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

import esql "github.com/joshsmithxrm/fetchengine/sql"

// substituteVariables returns a copy of p with every PredVariableComparison
// leaf whose variable is currently declared in scope replaced by a
// PredColumnEqLiteral carrying the variable's current value — the §9 Open
// Question resolution: @variable references in WHERE are resolved by
// textual substitution into an AST copy before the transpiler ever sees
// the predicate, never by mutating the caller's original WHERE. Leaves
// referencing an undeclared variable are left as-is; the Variable
// expression that CompilePredicate builds for such a leaf fails with a
// "not declared" plan error when it is evaluated.
func substituteVariables(p *esql.Predicate, scope *esql.VariableScope) *esql.Predicate {
	if p == nil {
		return nil
	}
	switch p.Kind {
	case esql.PredAnd, esql.PredOr:
		cp := *p
		cp.Left = substituteVariables(p.Left, scope)
		cp.Right = substituteVariables(p.Right, scope)
		return &cp
	case esql.PredVariableComparison:
		if scope == nil || !scope.IsDeclared(p.Variable) {
			return p
		}
		v, _ := scope.Get(p.Variable)
		return &esql.Predicate{Kind: esql.PredColumnEqLiteral, Column: p.Column, Literal: v, Text: p.Text}
	case esql.PredInSubquery, esql.PredNotInSubquery, esql.PredExists, esql.PredNotExists:
		if p.Subquery == nil {
			return p
		}
		cp := *p
		sqCopy := *p.Subquery
		sqCopy.Where = substituteVariables(p.Subquery.Where, scope)
		cp.Subquery = &sqCopy
		return &cp
	default:
		return p
	}
}
