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

// Package analyzer implements the planner of §4.12: it dispatches on the
// parsed AST's statement kind and chooses between a backend-pushdown scan
// (optionally wrapped in client operators), a partitioned parallel
// aggregate plan, a direct-wire passthrough, or a full client-side tree.
package analyzer

import (
	"strings"

	"github.com/sirupsen/logrus"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/estimator"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
	"github.com/joshsmithxrm/fetchengine/sql/plan"
)

// DefaultDateField is the column AdaptiveAggregateScan partitions on when
// the caller hasn't configured one (§4.10 uses "createdon" throughout as
// the worked example date field).
const DefaultDateField = "createdon"

// Planner holds the collaborators §4.12 needs: the injectable FetchXML
// transpiler (§6), the DML executor, planner configuration (§6), and a
// table of known entity row counts the cost estimator (§4.13) consults.
type Planner struct {
	Transpiler   esql.FetchXmlTranspiler
	Dml          esql.DmlExecutor
	Config       *esql.Config
	EntityCounts estimator.EntityRecordCounts
	DateField    string

	Log *logrus.Entry
}

// NewPlanner builds a Planner. cfg and counts may be nil; log may be nil
// (a no-op discard logger is used then).
func NewPlanner(transpiler esql.FetchXmlTranspiler, dml esql.DmlExecutor, cfg *esql.Config, counts estimator.EntityRecordCounts, log *logrus.Entry) *Planner {
	if cfg == nil {
		cfg = &esql.Config{}
	}
	if log == nil {
		logger := logrus.New()
		logger.SetOutput(nopWriter{})
		log = logrus.NewEntry(logger)
	}
	return &Planner{Transpiler: transpiler, Dml: dml, Config: cfg, EntityCounts: counts, Log: log}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// Outcome is the planner's dispatch result (§4.12 "Dispatches on the AST
// statement kind"): exactly one of Query or Dml is populated, matching
// whether stmt was row-producing (SELECT, set operations) or mutating
// (INSERT/UPDATE/DELETE).
type Outcome struct {
	Query *esql.PlanResult
	Dml   *esql.DmlResult
}

// Plan dispatches stmt to the matching planning routine.
func (p *Planner) Plan(ctx *esql.ExecContext, stmt esql.Statement) (*Outcome, error) {
	switch s := stmt.(type) {
	case *esql.SelectAST:
		res, err := p.PlanSelect(ctx, s)
		if err != nil {
			return nil, err
		}
		return &Outcome{Query: res}, nil
	case *esql.SetOpAST:
		res, err := p.planSetOp(ctx, s)
		if err != nil {
			return nil, err
		}
		return &Outcome{Query: res}, nil
	case *esql.InsertAST:
		res, err := p.PlanInsert(ctx, s)
		if err != nil {
			return nil, err
		}
		return &Outcome{Dml: res}, nil
	case *esql.UpdateAST:
		res, err := p.PlanUpdate(ctx, s)
		if err != nil {
			return nil, err
		}
		return &Outcome{Dml: res}, nil
	case *esql.DeleteAST:
		res, err := p.PlanDelete(ctx, s)
		if err != nil {
			return nil, err
		}
		return &Outcome{Dml: res}, nil
	case *esql.RecursiveCteAST:
		root, err := p.PlanRecursiveCte(ctx, s)
		if err != nil {
			return nil, err
		}
		return &Outcome{Query: &esql.PlanResult{Root: root, PrimaryEntity: s.CteName}}, nil
	case *esql.ScriptAST:
		return &Outcome{Query: &esql.PlanResult{Root: p.PlanScript(s)}}, nil
	default:
		return nil, esql.ErrPlan.New("unsupported statement for planning")
	}
}

// PlanSelect implements §4.12's numbered SELECT algorithm.
func (p *Planner) PlanSelect(ctx *esql.ExecContext, ast *esql.SelectAST) (*esql.PlanResult, error) {
	// Step: SELECT ... FROM #t reads a session temp table directly; no
	// backend round trip, no transpiler involvement.
	if ast.FromTemp != "" {
		return p.planFromTemp(ctx, ast)
	}

	// Step 1/2: resolve the primary entity; metadata.* routes to
	// MetadataScan.
	if ast.Entity == "" {
		return nil, esql.ErrPlan.New("SELECT has no FROM entity")
	}
	if strings.HasPrefix(strings.ToLower(ast.Entity), "metadata.") {
		return p.planMetadata(ctx, ast)
	}

	// Step 3: direct-wire passthrough when enabled and the statement is
	// compatible.
	if p.Config.UseTdsEndpoint && p.Config.TdsQueryExecutor != nil && compatibleForPassthrough(ast) {
		p.Log.WithFields(logrus.Fields{"entity": ast.Entity}).Info("planner: direct-wire passthrough")
		return &esql.PlanResult{Root: plan.NewTdsScan(ast.OriginalSQL), PrimaryEntity: ast.Entity}, nil
	}

	// Step 4: substitute @variable references in WHERE with their current
	// literal value before invoking the transpiler (§9 Open Question
	// resolution: textual substitution into a copy, never the caller's AST).
	working := copySelectAST(ast)
	if ctx.Scope != nil {
		working.Where = substituteVariables(working.Where, ctx.Scope)
	}

	// Extract IN(subquery)/NOT IN/EXISTS/NOT EXISTS predicates. Simple NOT
	// IN subqueries are rewritten as a LEFT OUTER link + null check and
	// folded back into working before transpilation (§4.7 pushdown
	// rewrite); the rest are pulled out of WHERE entirely and planned as
	// client-side HashSemiJoin wrappers after the scan is built.
	semiJoins, err := extractSemiJoins(working)
	if err != nil {
		return nil, err
	}

	// Step 5: ask the transpiler for FetchXML + virtual columns + pushdown
	// metadata.
	if p.Transpiler == nil {
		return nil, esql.ErrPlan.New("planner has no FetchXML transpiler configured")
	}
	tr, err := p.Transpiler.Generate(*working)
	if err != nil {
		return nil, esql.ErrPlan.New("transpile failed: " + err.Error())
	}

	schema := schemaOf(ast)
	maxRows := p.Config.MaxRows

	hasAggregates := false
	hasCountDistinct := false
	for _, c := range ast.Columns {
		if c.Aggregate != "" {
			hasAggregates = true
			if strings.EqualFold(c.Aggregate, "COUNT") && ast.Distinct {
				hasCountDistinct = true
			}
		}
	}

	var root esql.Node
	if p.shouldPartition(hasAggregates, hasCountDistinct) {
		root = p.buildPartitionedPlan(tr, ast, maxRows, schema)
	} else {
		scan := plan.NewFetchXmlScan(tr.FetchXml, ast.Entity, maxRows, schema)
		if p.Config.PageNumber != nil {
			scan.InitialPageNumber = p.Config.PageNumber
		}
		scan.InitialPagingCookie = p.Config.PagingCookie
		scan.IncludeCount = p.Config.IncludeCount
		root = scan
		p.Log.WithFields(logrus.Fields{
			"entity":    ast.Entity,
			"estimated": estimator.ScanEstimate(ast.Entity, maxRows, p.EntityCounts),
		}).Debug("planner: scan cardinality estimate")
	}

	if p.Config.EnablePrefetch {
		root = plan.NewPrefetchScan(root, p.Config.PrefetchBufferSize)
	}

	// Planner step 7's client-operator stack: subquery semi/anti-joins,
	// the remaining unpushable predicates, HAVING, window functions, and
	// computed-column projection, followed by client sort/offset-fetch/
	// distinct for constructs the FetchXML pushdown doesn't express.
	for _, sj := range semiJoins {
		innerResult, err := p.PlanSelect(ctx, sj.subquery)
		if err != nil {
			return nil, err
		}
		outerKey := expression.NewGetField(sj.outerColumn)
		innerKey := innerKeyExpr(sj.subquery)
		root = plan.NewHashSemiJoin(root, innerResult.Root, outerKey, innerKey, sj.anti)
	}

	if clientExpr := unpushedWhereExpr(working.Where, tr.Pushdown.UnpushedWhere); clientExpr != nil {
		root = plan.NewClientFilter(root, clientExpr)
	}

	if ast.Having != nil {
		havingExpr, err := expression.CompilePredicate(ast.Having)
		if err != nil {
			return nil, err
		}
		root = plan.NewClientFilter(root, havingExpr)
	}

	if len(ast.WindowFuncs) > 0 {
		root = plan.NewClientWindow(root, windowSpecs(ast.WindowFuncs))
	}

	if needsProjection(ast.Columns) {
		root = plan.NewProject(root, projections(ast.Columns))
	}

	if ast.Distinct {
		root = plan.NewDistinct(root)
	}

	if len(ast.OrderBy) > 0 && !alreadySorted(ast.OrderBy, tr.Pushdown.Sorted) {
		root = plan.NewClientSort(root, sortKeys(ast.OrderBy))
	}

	if ast.Offset != nil || ast.Fetch != nil {
		offset := int64(0)
		if ast.Offset != nil {
			offset = *ast.Offset
		}
		fetch := int64(-1)
		if ast.Fetch != nil {
			fetch = *ast.Fetch
		}
		root = plan.NewOffsetFetch(root, offset, fetch)
	} else if ast.Top != nil {
		root = plan.NewOffsetFetch(root, 0, *ast.Top)
	}

	return &esql.PlanResult{
		Root:           root,
		FetchXmlTrace:  tr.FetchXml,
		VirtualColumns: tr.VirtualColumns,
		PrimaryEntity:  ast.Entity,
	}, nil
}

func (p *Planner) planFromTemp(ctx *esql.ExecContext, ast *esql.SelectAST) (*esql.PlanResult, error) {
	var root esql.Node = plan.NewTempTableScan(ast.FromTemp)
	if ast.Where != nil {
		expr, err := expression.CompilePredicate(ast.Where)
		if err != nil {
			return nil, err
		}
		root = plan.NewClientFilter(root, expr)
	}
	if needsProjection(ast.Columns) {
		root = plan.NewProject(root, projections(ast.Columns))
	}
	return &esql.PlanResult{Root: root, PrimaryEntity: ast.FromTemp}, nil
}

func (p *Planner) planMetadata(ctx *esql.ExecContext, ast *esql.SelectAST) (*esql.PlanResult, error) {
	cols := make([]string, 0, len(ast.Columns))
	for _, c := range ast.Columns {
		if c.Column != "" {
			cols = append(cols, c.Column)
		}
	}
	var where esql.Expression
	if ast.Where != nil {
		expr, err := expression.CompilePredicate(ast.Where)
		if err != nil {
			return nil, err
		}
		where = expr
	}
	table := ast.Entity
	if len(table) > len("metadata.") && strings.EqualFold(table[:len("metadata.")], "metadata.") {
		table = table[len("metadata."):]
	}
	root := esql.Node(plan.NewMetadataScan(table, cols, where))
	if needsProjection(ast.Columns) {
		root = plan.NewProject(root, projections(ast.Columns))
	}
	return &esql.PlanResult{Root: root, PrimaryEntity: ast.Entity}, nil
}

// shouldPartition consults the cost estimator (§4.13, §4.10 "When to
// partition").
func (p *Planner) shouldPartition(hasAggregates, hasCountDistinct bool) bool {
	cfg := p.Config
	hasDateRange := cfg.MinDate != nil && cfg.MaxDate != nil
	var estimatedRows int64 = -1
	if cfg.EstimatedRecordCount != nil {
		estimatedRows = *cfg.EstimatedRecordCount
	}
	limit := cfg.AggregateRecordLimit
	if limit == 0 {
		limit = esql.DefaultAggregateRecordLimit
	}
	ok := estimator.ShouldPartition(hasAggregates, cfg.PoolCapacity, estimatedRows, limit, hasDateRange, hasCountDistinct)
	if ok {
		p.Log.WithFields(logrus.Fields{"estimated_rows": estimatedRows, "limit": limit}).Info("planner: partitioning aggregate query")
	}
	return ok
}

func (p *Planner) buildPartitionedPlan(tr *esql.TranspileResult, ast *esql.SelectAST, maxRows *int, schema esql.Schema) esql.Node {
	dateField := p.DateField
	if dateField == "" {
		dateField = DefaultDateField
	}
	maxPerPartition := p.Config.MaxRecordsPerPartition
	if maxPerPartition <= 0 {
		maxPerPartition = p.Config.AggregateRecordLimit
	}
	if maxPerPartition <= 0 {
		maxPerPartition = esql.DefaultAggregateRecordLimit
	}
	ranges := plan.DateRangePartitioner(*p.Config.MinDate, *p.Config.MaxDate, *p.Config.EstimatedRecordCount, maxPerPartition)
	partitions := make([]esql.Node, len(ranges))
	for i, r := range ranges {
		partitions[i] = plan.NewAdaptiveAggregateScan(tr.FetchXml, ast.Entity, dateField, r, maxRows, schema)
	}
	partitionNode := plan.NewParallelPartitionNode(partitions, p.Config.PoolCapacity)
	return plan.NewMergeAggregate(partitionNode, ast.GroupBy, aggSpecs(ast.Columns))
}

// planSetOp recursively collects binary query-expression branches (§4.12
// "UNION/EXCEPT/INTERSECT"), planning each side independently and
// combining with Concatenate (+Distinct for a non-ALL boundary), Intersect,
// or Except. Left-associative chains are handled for free: ast.Left may
// itself be a *SetOpAST.
func (p *Planner) planSetOp(ctx *esql.ExecContext, ast *esql.SetOpAST) (*esql.PlanResult, error) {
	left, err := p.planStatement(ctx, ast.Left)
	if err != nil {
		return nil, err
	}
	right, err := p.planStatement(ctx, ast.Right)
	if err != nil {
		return nil, err
	}

	var root esql.Node
	switch ast.Kind {
	case esql.SetOpUnionAll:
		root = plan.NewConcatenate(left.Root, right.Root)
	case esql.SetOpUnion:
		root = plan.NewDistinct(plan.NewConcatenate(left.Root, right.Root))
	case esql.SetOpIntersect:
		root = plan.NewIntersect(left.Root, right.Root)
	case esql.SetOpExcept:
		root = plan.NewExcept(left.Root, right.Root)
	default:
		return nil, esql.ErrPlan.New("unknown set operation kind")
	}

	virtualColumns := map[string]esql.VirtualColumn{}
	for k, v := range left.VirtualColumns {
		virtualColumns[k] = v
	}
	for k, v := range right.VirtualColumns {
		virtualColumns[k] = v
	}
	return &esql.PlanResult{Root: root, VirtualColumns: virtualColumns, PrimaryEntity: left.PrimaryEntity}, nil
}

func (p *Planner) planStatement(ctx *esql.ExecContext, stmt esql.Statement) (*esql.PlanResult, error) {
	switch s := stmt.(type) {
	case *esql.SelectAST:
		return p.PlanSelect(ctx, s)
	case *esql.SetOpAST:
		return p.planSetOp(ctx, s)
	default:
		return nil, esql.ErrPlan.New("unsupported branch in set operation")
	}
}

// compatibleForPassthrough is the §4.12 step 3 "compatibility check,
// supported surface": the statement must not depend on anything our
// client-side session owns — a temp table read/write, a SET @v=
// assignment, or a window function the raw SQL text doesn't carry to the
// backend in our AST shape — and must carry original SQL text to pass
// through verbatim.
func compatibleForPassthrough(ast *esql.SelectAST) bool {
	return ast.OriginalSQL != "" &&
		ast.FromTemp == "" &&
		ast.IntoTemp == "" &&
		len(ast.VarAssigns) == 0 &&
		len(ast.WindowFuncs) == 0
}

func schemaOf(ast *esql.SelectAST) esql.Schema {
	if len(ast.Columns) == 0 {
		return nil
	}
	schema := make(esql.Schema, 0, len(ast.Columns))
	for _, c := range ast.Columns {
		name := c.Alias
		if name == "" {
			name = c.Column
		}
		schema = append(schema, esql.Column{Name: name})
	}
	return schema
}

func needsProjection(cols []esql.SelectColumn) bool {
	for _, c := range cols {
		if c.Expression != nil {
			return true
		}
		if c.Alias != "" && c.Alias != c.Column {
			return true
		}
	}
	return false
}

func projections(cols []esql.SelectColumn) []plan.Projection {
	out := make([]plan.Projection, 0, len(cols))
	for _, c := range cols {
		name := c.Alias
		if name == "" {
			name = c.Column
		}
		if c.Expression != nil {
			out = append(out, plan.Projection{OutputName: name, Expression: c.Expression})
			continue
		}
		out = append(out, plan.Projection{OutputName: name, SourceName: c.Column})
	}
	return out
}

func windowSpecs(fns []esql.WindowFunc) []plan.WindowSpec {
	out := make([]plan.WindowSpec, 0, len(fns))
	for _, f := range fns {
		out = append(out, plan.WindowSpec{
			OutputName:  f.Alias,
			Function:    f.Function,
			Arg:         f.Arg,
			PartitionBy: f.PartitionBy,
			OrderBy:     sortKeys(f.OrderBy),
		})
	}
	return out
}

func sortKeys(keys []esql.OrderKey) []plan.SortKey {
	out := make([]plan.SortKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, plan.SortKey{Column: k.Column, Descending: k.Descending})
	}
	return out
}

func aggSpecs(cols []esql.SelectColumn) []plan.AggSpec {
	var out []plan.AggSpec
	for _, c := range cols {
		if c.Aggregate == "" {
			continue
		}
		name := c.Alias
		if name == "" {
			name = c.Column
		}
		out = append(out, plan.AggSpec{Alias: name, Function: c.Aggregate, CountAlias: c.CountAlias})
	}
	return out
}

// alreadySorted reports whether the transpiler's pushed-down <order>
// already satisfies orderBy, so the planner can skip an extra ClientSort.
// This is the only use the planner makes of Pushdown.Sorted.
func alreadySorted(orderBy []esql.OrderKey, sorted []string) bool {
	if len(sorted) < len(orderBy) {
		return false
	}
	for i, k := range orderBy {
		if !strings.EqualFold(sorted[i], k.Column) {
			return false
		}
	}
	return true
}

func copySelectAST(ast *esql.SelectAST) *esql.SelectAST {
	cp := *ast
	cp.Where = copyPredicate(ast.Where)
	cp.Joins = append([]esql.JoinClause(nil), ast.Joins...)
	return &cp
}

func copyPredicate(p *esql.Predicate) *esql.Predicate {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Left = copyPredicate(p.Left)
	cp.Right = copyPredicate(p.Right)
	return &cp
}
