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

import (
	"fmt"

	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// ArithOp is an arithmetic binary operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
	Concat
)

// Arithmetic evaluates Left <op> Right, propagating NULL per three-valued
// logic: either side NULL yields NULL (§3).
type Arithmetic struct {
	Op          ArithOp
	Left, Right esql.Expression
}

func NewArithmetic(op ArithOp, left, right esql.Expression) *Arithmetic {
	return &Arithmetic{Op: op, Left: left, Right: right}
}

func (a *Arithmetic) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	l, err := a.Left.Eval(ctx, row)
	if err != nil {
		return esql.Value{}, err
	}
	r, err := a.Right.Eval(ctx, row)
	if err != nil {
		return esql.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return esql.Null, nil
	}
	if a.Op == Concat {
		return esql.NewString(l.String() + r.String()), nil
	}
	if l.Kind() == esql.KindInt && r.Kind() == esql.KindInt {
		switch a.Op {
		case Add, Sub, Mul:
			li, _ := l.Int()
			ri, _ := r.Int()
			switch a.Op {
			case Add:
				return esql.NewInt(li + ri), nil
			case Sub:
				return esql.NewInt(li - ri), nil
			default:
				return esql.NewInt(li * ri), nil
			}
		}
	}
	lf, err := l.Float()
	if err != nil {
		return esql.Value{}, err
	}
	rf, err := r.Float()
	if err != nil {
		return esql.Value{}, err
	}
	switch a.Op {
	case Add:
		return esql.NewFloat(lf + rf), nil
	case Sub:
		return esql.NewFloat(lf - rf), nil
	case Mul:
		return esql.NewFloat(lf * rf), nil
	case Div:
		if rf == 0 {
			return esql.Value{}, esql.ErrExecution.New("arith", "division by zero")
		}
		return esql.NewFloat(lf / rf), nil
	case Mod:
		if rf == 0 {
			return esql.Value{}, esql.ErrExecution.New("arith", "division by zero")
		}
		li, _ := l.Int()
		ri, _ := r.Int()
		return esql.NewInt(li % ri), nil
	default:
		return esql.Value{}, fmt.Errorf("unknown arithmetic operator %d", a.Op)
	}
}

func (a *Arithmetic) String() string {
	return fmt.Sprintf("(%s %v %s)", a.Left.String(), a.Op, a.Right.String())
}

// CompareOp is a comparison operator.
type CompareOp int

const (
	Eq CompareOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
)

// Comparison evaluates Left <op> Right as a boolean Value, UNKNOWN
// (returned as NULL) if either side is NULL.
type Comparison struct {
	Op          CompareOp
	Left, Right esql.Expression
}

func NewComparison(op CompareOp, left, right esql.Expression) *Comparison {
	return &Comparison{Op: op, Left: left, Right: right}
}

func (c *Comparison) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	l, err := c.Left.Eval(ctx, row)
	if err != nil {
		return esql.Value{}, err
	}
	r, err := c.Right.Eval(ctx, row)
	if err != nil {
		return esql.Value{}, err
	}
	var tri Tristate
	switch c.Op {
	case Eq:
		tri, err = CompareEqual(l, r)
	case Neq:
		tri, err = CompareEqual(l, r)
		tri = invert(tri)
	case Lt:
		tri, err = CompareLess(l, r)
	case Lte:
		var gt Tristate
		gt, err = CompareGreater(l, r)
		tri = invert(gt)
	case Gt:
		tri, err = CompareGreater(l, r)
	case Gte:
		var lt Tristate
		lt, err = CompareLess(l, r)
		tri = invert(lt)
	}
	if err != nil {
		return esql.Value{}, err
	}
	return tristateToValue(tri), nil
}

func invert(t Tristate) Tristate {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func tristateToValue(t Tristate) esql.Value {
	switch t {
	case True:
		return esql.NewBool(true)
	case False:
		return esql.NewBool(false)
	default:
		return esql.Null
	}
}

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %v %s)", c.Left.String(), c.Op, c.Right.String())
}

// And/Or implement SQL three-valued boolean connectives directly (not via
// the bool coercion of Comparison's output), so that NULL AND FALSE = FALSE
// and NULL OR TRUE = TRUE behave per the standard truth tables.
type And struct{ Left, Right esql.Expression }

func NewAnd(l, r esql.Expression) *And { return &And{Left: l, Right: r} }

func (a *And) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	lt, err := evalTristate(ctx, row, a.Left)
	if err != nil {
		return esql.Value{}, err
	}
	if lt == False {
		return esql.NewBool(false), nil
	}
	rt, err := evalTristate(ctx, row, a.Right)
	if err != nil {
		return esql.Value{}, err
	}
	if rt == False {
		return esql.NewBool(false), nil
	}
	if lt == True && rt == True {
		return esql.NewBool(true), nil
	}
	return esql.Null, nil
}

func (a *And) String() string { return fmt.Sprintf("(%s AND %s)", a.Left.String(), a.Right.String()) }

type Or struct{ Left, Right esql.Expression }

func NewOr(l, r esql.Expression) *Or { return &Or{Left: l, Right: r} }

func (o *Or) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	lt, err := evalTristate(ctx, row, o.Left)
	if err != nil {
		return esql.Value{}, err
	}
	if lt == True {
		return esql.NewBool(true), nil
	}
	rt, err := evalTristate(ctx, row, o.Right)
	if err != nil {
		return esql.Value{}, err
	}
	if rt == True {
		return esql.NewBool(true), nil
	}
	if lt == False && rt == False {
		return esql.NewBool(false), nil
	}
	return esql.Null, nil
}

func (o *Or) String() string { return fmt.Sprintf("(%s OR %s)", o.Left.String(), o.Right.String()) }

func evalTristate(ctx *esql.ExecContext, row esql.Row, e esql.Expression) (Tristate, error) {
	v, err := e.Eval(ctx, row)
	if err != nil {
		return Unknown, err
	}
	if v.IsNull() {
		return Unknown, nil
	}
	b, err := v.Bool()
	if err != nil {
		return Unknown, err
	}
	return boolTristate(b), nil
}

// Not implements logical negation; NOT UNKNOWN = UNKNOWN.
type Not struct{ Operand esql.Expression }

func NewNot(e esql.Expression) *Not { return &Not{Operand: e} }

func (n *Not) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	t, err := evalTristate(ctx, row, n.Operand)
	if err != nil {
		return esql.Value{}, err
	}
	return tristateToValue(invert(t)), nil
}

func (n *Not) String() string { return fmt.Sprintf("(NOT %s)", n.Operand.String()) }

// IsNull/IsNotNull test for nullity directly — never UNKNOWN themselves.
type IsNull struct{ Operand esql.Expression }

func NewIsNull(e esql.Expression) *IsNull { return &IsNull{Operand: e} }

func (n *IsNull) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	v, err := n.Operand.Eval(ctx, row)
	if err != nil {
		return esql.Value{}, err
	}
	return esql.NewBool(v.IsNull()), nil
}

func (n *IsNull) String() string { return fmt.Sprintf("(%s IS NULL)", n.Operand.String()) }
