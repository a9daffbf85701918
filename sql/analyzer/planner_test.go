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
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/analyzer"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

// fakeTranspiler satisfies the injectable transpiler contract (§6) with a
// canned result, recording the AST it was handed so tests can assert on
// the planner's rewrites.
type fakeTranspiler struct {
	result *esql.TranspileResult
	last   esql.SelectAST
}

func (f *fakeTranspiler) Generate(ast esql.SelectAST) (*esql.TranspileResult, error) {
	f.last = ast
	if f.result != nil {
		return f.result, nil
	}
	return &esql.TranspileResult{FetchXml: `<fetch><entity name="` + ast.Entity + `"></entity></fetch>`}, nil
}

// fakeBackend serves canned pages; safe for the concurrent calls
// ParallelPartitionNode issues.
type fakeBackend struct {
	mu    sync.Mutex
	pages []*esql.FetchResult
	calls int
}

func (f *fakeBackend) ExecuteFetchXml(_ context.Context, _ string, _ *int, _ string, _ bool) (*esql.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.pages) {
		return &esql.FetchResult{}, nil
	}
	res := f.pages[f.calls]
	f.calls++
	return res, nil
}

func namedRow(pairs ...interface{}) esql.Row {
	r := esql.NewRow()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), "", pairs[i+1].(esql.Value))
	}
	return r
}

// SELECT name FROM account WHERE accountid NOT IN (SELECT parentaccountid
// FROM account): the subquery is simple, so the planner folds it into a
// LEFT OUTER link and an IS NULL check; the backend's joined rows carry
// the linked key column and the client filter keeps only the orphans.
func TestPlanSelectNotInSubqueryRewrite(t *testing.T) {
	require := require.New(t)

	joined := func(name string, parent esql.Value) esql.Row {
		return namedRow("name", esql.NewString(name), "account.parentaccountid", parent)
	}
	backend := &fakeBackend{pages: []*esql.FetchResult{{
		Rows: []esql.Row{
			joined("A", esql.NewInt(1)),
			joined("B", esql.Null),
			joined("C", esql.NewInt(3)),
		},
	}}}
	transpiler := &fakeTranspiler{result: &esql.TranspileResult{
		FetchXml: `<fetch><entity name="account"></entity></fetch>`,
		Pushdown: esql.PushdownInfo{UnpushedWhere: []string{"account.parentaccountid IS NULL"}},
	}}

	p := analyzer.NewPlanner(transpiler, nil, nil, nil, nil)
	ctx := esql.NewExecContext(context.Background(), backend)

	ast := &esql.SelectAST{
		Entity:  "account",
		Columns: []esql.SelectColumn{{Column: "name"}},
		Where: &esql.Predicate{
			Kind:   esql.PredNotInSubquery,
			Column: "accountid",
			Subquery: &esql.SelectAST{
				Entity:  "account",
				Columns: []esql.SelectColumn{{Column: "parentaccountid"}},
			},
		},
	}

	res, err := p.PlanSelect(ctx, ast)
	require.NoError(err)

	// The rewrite reached the transpiler as a LEFT OUTER join.
	require.Len(transpiler.last.Joins, 1)
	require.Equal(esql.JoinLeft, transpiler.last.Joins[0].Kind)
	// The caller's AST was not mutated.
	require.Empty(ast.Joins)
	require.Equal(esql.PredNotInSubquery, ast.Where.Kind)

	iter, err := res.Root.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	rows, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(rows, 1)
	v, _ := rows[0].Get("name")
	require.Equal("B", v.String())
}

// SELECT ownerid, SUM(revenue) FROM account GROUP BY ownerid HAVING
// SUM(revenue) > 100, planned as a partitioned parallel aggregate: two
// partitions return partial sums, MergeAggregate recombines them, and the
// HAVING filter runs client-side over the merged rows.
func TestPlanSelectPartitionedAggregateWithHaving(t *testing.T) {
	require := require.New(t)

	backend := &fakeBackend{pages: []*esql.FetchResult{
		{Rows: []esql.Row{
			namedRow("ownerid", esql.NewString("u1"), "revenue", esql.NewFloat(50)),
			namedRow("ownerid", esql.NewString("u2"), "revenue", esql.NewFloat(20)),
		}},
		{Rows: []esql.Row{
			namedRow("ownerid", esql.NewString("u1"), "revenue", esql.NewFloat(80)),
		}},
	}}

	estimated := int64(100000)
	minDate := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := &esql.Config{
		PoolCapacity:         2,
		EstimatedRecordCount: &estimated,
		MinDate:              &minDate,
		MaxDate:              &maxDate,
		AggregateRecordLimit: 50000,
	}

	p := analyzer.NewPlanner(&fakeTranspiler{}, nil, cfg, nil, nil)
	ctx := esql.NewExecContext(context.Background(), backend)

	ast := &esql.SelectAST{
		Entity: "account",
		Columns: []esql.SelectColumn{
			{Column: "ownerid"},
			{Alias: "revenue", Column: "revenue", Aggregate: "SUM"},
		},
		GroupBy: []string{"ownerid"},
		Having: &esql.Predicate{
			Kind: esql.PredExpression,
			Expr: expression.NewComparison(expression.Gt, expression.NewGetField("revenue"), expression.NewLiteral(esql.NewFloat(100))),
			Text: "SUM(revenue) > 100",
		},
	}

	res, err := p.PlanSelect(ctx, ast)
	require.NoError(err)
	require.Contains(esql.Explain(res.Root), "MergeAggregate")

	iter, err := res.Root.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	rows, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(rows, 1)

	owner, _ := rows[0].Get("ownerid")
	require.Equal("u1", owner.String())
	rev, _ := rows[0].Get("revenue")
	f, err := rev.Float()
	require.NoError(err)
	require.InDelta(130, f, 0.001)
	require.Equal(2, backend.calls)
}

// SELECT name FROM a ORDER BY name OFFSET 2 ROWS FETCH NEXT 2 ROWS ONLY:
// the transpiler reports the sort pushed down, so only OffsetFetch wraps
// the scan.
func TestPlanSelectOffsetFetchOverPushedSort(t *testing.T) {
	require := require.New(t)

	rows := make([]esql.Row, 0, 5)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		rows = append(rows, namedRow("name", esql.NewString(name)))
	}
	backend := &fakeBackend{pages: []*esql.FetchResult{{Rows: rows}}}
	transpiler := &fakeTranspiler{result: &esql.TranspileResult{
		FetchXml: `<fetch><entity name="a"></entity></fetch>`,
		Pushdown: esql.PushdownInfo{Sorted: []string{"name"}},
	}}

	p := analyzer.NewPlanner(transpiler, nil, nil, nil, nil)
	ctx := esql.NewExecContext(context.Background(), backend)

	offset, fetch := int64(2), int64(2)
	ast := &esql.SelectAST{
		Entity:  "a",
		Columns: []esql.SelectColumn{{Column: "name"}},
		OrderBy: []esql.OrderKey{{Column: "name"}},
		Offset:  &offset,
		Fetch:   &fetch,
	}

	res, err := p.PlanSelect(ctx, ast)
	require.NoError(err)
	require.NotContains(esql.Explain(res.Root), "ClientSort")

	iter, err := res.Root.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(out, 2)
	c, _ := out[0].Get("name")
	d, _ := out[1].Get("name")
	require.Equal("C", c.String())
	require.Equal("D", d.String())
}

type fakeTds struct{ sql string }

func (f *fakeTds) ExecuteSql(_ context.Context, sql string) ([]esql.Row, error) {
	f.sql = sql
	return []esql.Row{namedRow("ok", esql.NewBool(true))}, nil
}

func TestPlanSelectTdsPassthrough(t *testing.T) {
	require := require.New(t)

	tds := &fakeTds{}
	cfg := &esql.Config{UseTdsEndpoint: true, TdsQueryExecutor: tds}
	p := analyzer.NewPlanner(&fakeTranspiler{}, nil, cfg, nil, nil)

	ctx := esql.NewExecContext(context.Background(), nil)
	ctx.TdsExec = tds

	ast := &esql.SelectAST{
		Entity:      "account",
		Columns:     []esql.SelectColumn{{Column: "name"}},
		OriginalSQL: "SELECT name FROM account",
	}
	res, err := p.PlanSelect(ctx, ast)
	require.NoError(err)
	require.True(strings.HasPrefix(res.Root.Describe(), "TdsScan"))

	iter, err := res.Root.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	rows, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(rows, 1)
	require.Equal("SELECT name FROM account", tds.sql)
}

func TestPlanSelectSubstitutesDeclaredVariables(t *testing.T) {
	require := require.New(t)

	backend := &fakeBackend{pages: []*esql.FetchResult{{}}}
	transpiler := &fakeTranspiler{}
	p := analyzer.NewPlanner(transpiler, nil, nil, nil, nil)

	ctx := esql.NewExecContext(context.Background(), backend)
	require.NoError(ctx.Scope.Declare("@owner", "NVARCHAR(100)", esql.NewString("u1")))

	ast := &esql.SelectAST{
		Entity:  "account",
		Columns: []esql.SelectColumn{{Column: "name"}},
		Where: &esql.Predicate{
			Kind:     esql.PredVariableComparison,
			Column:   "ownerid",
			Variable: "@owner",
			Text:     "ownerid = @owner",
		},
	}
	_, err := p.PlanSelect(ctx, ast)
	require.NoError(err)

	// The transpiler saw a literal comparison, not a variable reference.
	require.NotNil(transpiler.last.Where)
	require.Equal(esql.PredColumnEqLiteral, transpiler.last.Where.Kind)
	require.Equal("u1", transpiler.last.Where.Literal.String())
	// The caller's AST still holds the variable form.
	require.Equal(esql.PredVariableComparison, ast.Where.Kind)
}

func TestPlanSetOpUnionDeduplicates(t *testing.T) {
	require := require.New(t)

	backend := &fakeBackend{pages: []*esql.FetchResult{
		{Rows: []esql.Row{namedRow("name", esql.NewString("A")), namedRow("name", esql.NewString("B"))}},
		{Rows: []esql.Row{namedRow("name", esql.NewString("B")), namedRow("name", esql.NewString("C"))}},
	}}
	p := analyzer.NewPlanner(&fakeTranspiler{}, nil, nil, nil, nil)
	ctx := esql.NewExecContext(context.Background(), backend)

	union := &esql.SetOpAST{
		Kind:  esql.SetOpUnion,
		Left:  &esql.SelectAST{Entity: "a", Columns: []esql.SelectColumn{{Column: "name"}}},
		Right: &esql.SelectAST{Entity: "b", Columns: []esql.SelectColumn{{Column: "name"}}},
	}
	out, err := p.Plan(ctx, union)
	require.NoError(err)

	iter, err := out.Query.Root.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	rows, err := esql.Drain(ctx, iter)
	require.NoError(err)
	require.Len(rows, 3)
}
