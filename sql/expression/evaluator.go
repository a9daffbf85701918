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

package expression

import esql "github.com/joshsmithxrm/fetchengine/sql"

// DefaultEvaluator is the stock esql.ExpressionEvaluator: it just calls
// through to the expression's own Eval method. It exists so that
// sql/plan code can depend on the esql.ExpressionEvaluator interface
// without importing this package, while still having a ready-made
// implementation to wire into ExecContext.
type DefaultEvaluator struct{}

func (DefaultEvaluator) Eval(ctx *esql.ExecContext, row esql.Row, expr esql.Expression) (esql.Value, error) {
	return expr.Eval(ctx, row)
}

// CompilePredicate turns an *esql.Predicate AST fragment into an
// esql.Expression usable by ClientFilter, HAVING, or WHILE/IF conditions.
// Subquery-bearing predicate kinds (IN/EXISTS) are not handled here — those
// are planned as HashSemiJoin nodes upstream (§4.7); CompilePredicate only
// covers the leaf/AND/OR shapes a ClientFilter wraps directly.
func CompilePredicate(p *esql.Predicate) (esql.Expression, error) {
	if p == nil {
		return NewLiteral(esql.NewBool(true)), nil
	}
	switch p.Kind {
	case esql.PredAnd:
		l, err := CompilePredicate(p.Left)
		if err != nil {
			return nil, err
		}
		r, err := CompilePredicate(p.Right)
		if err != nil {
			return nil, err
		}
		return NewAnd(l, r), nil
	case esql.PredOr:
		l, err := CompilePredicate(p.Left)
		if err != nil {
			return nil, err
		}
		r, err := CompilePredicate(p.Right)
		if err != nil {
			return nil, err
		}
		return NewOr(l, r), nil
	case esql.PredColumnEqLiteral:
		return NewComparison(Eq, NewGetField(p.Column), NewLiteral(p.Literal)), nil
	case esql.PredColumnEqColumn:
		return NewComparison(Eq, NewGetField(p.Column), NewGetField(p.Column2)), nil
	case esql.PredVariableComparison:
		return NewComparison(Eq, NewGetField(p.Column), NewVariable(p.Variable)), nil
	case esql.PredIsNull:
		return NewIsNull(NewGetField(p.Column)), nil
	case esql.PredExpression:
		if p.Expr != nil {
			return p.Expr, nil
		}
		return nil, esql.ErrPlan.New("expression predicate has no compiled form: " + p.Text)
	default:
		return nil, esql.ErrPlan.New("cannot compile predicate fragment: " + p.Text)
	}
}
