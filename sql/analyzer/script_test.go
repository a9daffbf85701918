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

package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/analyzer"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

func runScript(t *testing.T, ctx *esql.ExecContext, stmts ...esql.Statement) ([]esql.Row, error) {
	t.Helper()
	p := analyzer.NewPlanner(nil, nil, nil, nil, nil)
	script := p.PlanScript(&esql.ScriptAST{Statements: stmts})
	iter, err := script.RowIter(ctx, esql.NewRow())
	if err != nil {
		return nil, err
	}
	return esql.Drain(ctx, iter)
}

func lit(v esql.Value) esql.Expression { return expression.NewLiteral(v) }

// DECLARE @i INT = 0; WHILE @i < 3 BEGIN SET @i = @i + 1 END; SELECT @i x
func TestScriptDeclareWhileSet(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.DeclareStmt{Variable: "@i", TypeName: "INT", Expression: lit(esql.NewInt(0))},
		&esql.WhileStmt{
			Condition: expression.NewComparison(expression.Lt, expression.NewVariable("@i"), lit(esql.NewInt(3))),
			Body: []esql.Statement{
				&esql.SetStmt{Variable: "@i", Expression: expression.NewArithmetic(expression.Add, expression.NewVariable("@i"), lit(esql.NewInt(1)))},
			},
		},
		&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "x", Expression: expression.NewVariable("@i")}}},
	)
	require.NoError(err)
	require.Len(rows, 1)
	v, ok := rows[0].Get("x")
	require.True(ok)
	n, err := v.Int()
	require.NoError(err)
	require.EqualValues(3, n)
}

// BEGIN TRY THROW 50001,'oops',1 END TRY BEGIN CATCH SELECT ERROR_MESSAGE() msg END CATCH
func TestScriptTryCatchThrow(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.TryCatchStmt{
			Try: []esql.Statement{
				&esql.ThrowStmt{HasArgs: true, Number: lit(esql.NewInt(50001)), Message: lit(esql.NewString("oops")), State: lit(esql.NewInt(1))},
			},
			Catch: []esql.Statement{
				&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "msg", Expression: expression.NewErrorFunc("MESSAGE")}}},
			},
		},
	)
	require.NoError(err)
	require.Len(rows, 1)
	v, _ := rows[0].Get("msg")
	require.Equal("oops", v.String())

	number, message := ctx.Session.LastError()
	require.Equal(50001, number)
	require.Equal("oops", message)
}

// WITH c AS (SELECT 1 n UNION ALL SELECT n+1 FROM c WHERE n<3) SELECT n FROM c
func TestScriptRecursiveCte(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	cte := &esql.RecursiveCteAST{
		CteName: "c",
		AnchorQuery: &esql.SelectAST{
			Columns: []esql.SelectColumn{{Alias: "n", Expression: lit(esql.NewInt(1))}},
		},
		RecursiveQuery: &esql.SelectAST{
			Entity: "c",
			Columns: []esql.SelectColumn{
				{Alias: "n", Expression: expression.NewArithmetic(expression.Add, expression.NewGetField("n"), lit(esql.NewInt(1)))},
			},
			Where: &esql.Predicate{
				Kind: esql.PredExpression,
				Expr: expression.NewComparison(expression.Lt, expression.NewGetField("n"), lit(esql.NewInt(3))),
				Text: "n < 3",
			},
		},
		Outer: &esql.SelectAST{Entity: "c", Columns: []esql.SelectColumn{{Column: "n"}}},
	}

	rows, err := runScript(t, ctx, cte)
	require.NoError(err)
	require.Len(rows, 3)
	for i, want := range []int64{1, 2, 3} {
		v, _ := rows[i].Get("n")
		n, err := v.Int()
		require.NoError(err)
		require.Equal(want, n)
	}
}

func TestScriptRecursiveCteDepthExhausted(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()
	ctx.MaxRecursion = 5

	cte := &esql.RecursiveCteAST{
		CteName: "c",
		AnchorQuery: &esql.SelectAST{
			Columns: []esql.SelectColumn{{Alias: "n", Expression: lit(esql.NewInt(1))}},
		},
		// No terminating WHERE: every iteration produces a row.
		RecursiveQuery: &esql.SelectAST{
			Entity: "c",
			Columns: []esql.SelectColumn{
				{Alias: "n", Expression: expression.NewArithmetic(expression.Add, expression.NewGetField("n"), lit(esql.NewInt(1)))},
			},
		},
	}

	_, err := runScript(t, ctx, cte)
	require.Error(err)
	require.True(esql.ErrRecursion.Is(err))
}

func TestScriptWhileIterationCap(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()
	ctx.MaxIterations = 10

	_, err := runScript(t, ctx,
		&esql.WhileStmt{
			Condition: lit(esql.NewBool(true)),
			Body:      []esql.Statement{&esql.PrintStmt{Expression: lit(esql.NewString("tick"))}},
		},
	)
	require.Error(err)
	require.True(esql.ErrIterationCap.Is(err))
}

func TestScriptWhileBreakAndContinue(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	// Counts odd iterations only, breaking at 7: CONTINUE skips the even
	// increments of @odd, BREAK leaves the loop before the cap fires.
	rows, err := runScript(t, ctx,
		&esql.DeclareStmt{Variable: "@i", TypeName: "INT", Expression: lit(esql.NewInt(0))},
		&esql.DeclareStmt{Variable: "@odd", TypeName: "INT", Expression: lit(esql.NewInt(0))},
		&esql.WhileStmt{
			Condition: lit(esql.NewBool(true)),
			Body: []esql.Statement{
				&esql.SetStmt{Variable: "@i", Expression: expression.NewArithmetic(expression.Add, expression.NewVariable("@i"), lit(esql.NewInt(1)))},
				&esql.IfStmt{
					Condition: expression.NewComparison(expression.Gte, expression.NewVariable("@i"), lit(esql.NewInt(7))),
					Then:      []esql.Statement{&esql.BreakStmt{}},
				},
				&esql.IfStmt{
					Condition: expression.NewComparison(expression.Eq, expression.NewArithmetic(expression.Mod, expression.NewVariable("@i"), lit(esql.NewInt(2))), lit(esql.NewInt(0))),
					Then:      []esql.Statement{&esql.ContinueStmt{}},
				},
				&esql.SetStmt{Variable: "@odd", Expression: expression.NewArithmetic(expression.Add, expression.NewVariable("@odd"), lit(esql.NewInt(1)))},
			},
		},
		&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "odd", Expression: expression.NewVariable("@odd")}}},
	)
	require.NoError(err)
	require.Len(rows, 1)
	v, _ := rows[0].Get("odd")
	n, err := v.Int()
	require.NoError(err)
	require.EqualValues(3, n) // i = 1, 3, 5
}

func TestScriptBreakPropagatesThroughTry(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.DeclareStmt{Variable: "@caught", TypeName: "INT", Expression: lit(esql.NewInt(0))},
		&esql.WhileStmt{
			Condition: lit(esql.NewBool(true)),
			Body: []esql.Statement{
				&esql.TryCatchStmt{
					Try:   []esql.Statement{&esql.BreakStmt{}},
					Catch: []esql.Statement{&esql.SetStmt{Variable: "@caught", Expression: lit(esql.NewInt(1))}},
				},
			},
		},
		&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "caught", Expression: expression.NewVariable("@caught")}}},
	)
	require.NoError(err)
	require.Len(rows, 1)
	v, _ := rows[0].Get("caught")
	n, _ := v.Int()
	require.EqualValues(0, n)
}

func TestScriptTrySuccessClearsError(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.TryCatchStmt{
			Try:   []esql.Statement{&esql.ThrowStmt{HasArgs: true, Number: lit(esql.NewInt(50001)), Message: lit(esql.NewString("first")), State: lit(esql.NewInt(1))}},
			Catch: nil,
		},
		&esql.TryCatchStmt{
			Try:   []esql.Statement{&esql.PrintStmt{Expression: lit(esql.NewString("fine"))}},
			Catch: nil,
		},
		&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "msg", Expression: expression.NewErrorFunc("MESSAGE")}}},
	)
	require.NoError(err)
	require.Len(rows, 1)
	v, _ := rows[0].Get("msg")
	require.Equal("", v.String())
	number, _ := ctx.Session.LastError()
	require.Equal(0, number)
}

func TestScriptBareThrowReraises(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	_, err := runScript(t, ctx,
		&esql.TryCatchStmt{
			Try:   []esql.Statement{&esql.ThrowStmt{HasArgs: true, Number: lit(esql.NewInt(50001)), Message: lit(esql.NewString("oops")), State: lit(esql.NewInt(1))}},
			Catch: []esql.Statement{&esql.ThrowStmt{}},
		},
	)
	require.Error(err)
	ue, ok := esql.AsUserError(err)
	require.True(ok)
	require.Equal(50001, ue.Number)
	require.Equal("oops", ue.Message)
}

func TestScriptRaiserrorRouting(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()
	var reported []string
	ctx.Reporter = esql.ProgressReporterFunc(func(msg string) { reported = append(reported, msg) })

	// Severity < 11 routes to the reporter with %s/%d substitution.
	_, err := runScript(t, ctx,
		&esql.RaiserrorStmt{
			Format:   lit(esql.NewString("processed %d rows for %s")),
			Severity: lit(esql.NewInt(10)),
			State:    lit(esql.NewInt(1)),
			Args:     []esql.Expression{lit(esql.NewInt(42)), lit(esql.NewString("acme"))},
		},
		&esql.PrintStmt{Expression: lit(esql.NewString("done"))},
	)
	require.NoError(err)
	require.Equal([]string{"processed 42 rows for acme", "done"}, reported)

	// Severity >= 11 raises a user error.
	_, err = runScript(t, ctx,
		&esql.RaiserrorStmt{
			Format:   lit(esql.NewString("boom %s")),
			Severity: lit(esql.NewInt(16)),
			State:    lit(esql.NewInt(1)),
			Args:     []esql.Expression{lit(esql.NewString("now"))},
		},
	)
	require.Error(err)
	ue, ok := esql.AsUserError(err)
	require.True(ok)
	require.Equal("boom now", ue.Message)
	require.Equal(16, ue.Severity)
}

func TestScriptSelectIntoAndFromTemp(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.SelectAST{
			Columns:  []esql.SelectColumn{{Alias: "v", Expression: lit(esql.NewString("x"))}},
			IntoTemp: "#t",
		},
		&esql.SelectAST{FromTemp: "#t", Columns: []esql.SelectColumn{{Column: "v"}}},
	)
	require.NoError(err)
	require.Len(rows, 1)
	v, _ := rows[0].Get("v")
	require.Equal("x", v.String())
	require.True(ctx.Session.TempExists("#t"))
}

func TestScriptSelectAssignFromQuery(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.DeclareStmt{Variable: "@last", TypeName: "NVARCHAR(100)"},
		&esql.SelectAST{
			Columns:  []esql.SelectColumn{{Alias: "v", Expression: lit(esql.NewString("first"))}},
			IntoTemp: "#src",
		},
		&esql.SelectAST{
			FromTemp:   "#src",
			VarAssigns: []esql.VarAssign{{Variable: "@last", Expression: expression.NewGetField("v")}},
		},
		&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "out", Expression: expression.NewVariable("@last")}}},
	)
	require.NoError(err)
	// The assignment SELECT yields no rows; only the final SELECT does.
	require.Len(rows, 1)
	v, _ := rows[0].Get("out")
	require.Equal("first", v.String())
}

func TestScriptIfElse(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.IfStmt{
			Condition: expression.NewComparison(expression.Gt, lit(esql.NewInt(1)), lit(esql.NewInt(2))),
			Then:      []esql.Statement{&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "b", Expression: lit(esql.NewString("then"))}}}},
			Else:      []esql.Statement{&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "b", Expression: lit(esql.NewString("else"))}}}},
		},
	)
	require.NoError(err)
	require.Len(rows, 1)
	v, _ := rows[0].Get("b")
	require.Equal("else", v.String())
}

func TestScriptYieldsOnlyLastRowProducingStatement(t *testing.T) {
	require := require.New(t)
	ctx := esql.NewEmptyContext()

	rows, err := runScript(t, ctx,
		&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "a", Expression: lit(esql.NewInt(1))}}},
		&esql.FromlessSelectStmt{Columns: []esql.SelectColumn{{Alias: "b", Expression: lit(esql.NewInt(2))}}},
		&esql.PrintStmt{Expression: lit(esql.NewString("side effect only"))},
	)
	require.NoError(err)
	require.Len(rows, 1)
	_, hasA := rows[0].Get("a")
	require.False(hasA)
	v, _ := rows[0].Get("b")
	n, _ := v.Int()
	require.EqualValues(2, n)
}
