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
	"github.com/sirupsen/logrus"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

// ScriptExecution runs a sequence of statements with a shared variable
// scope and session context, yielding rows only from the last row-producing
// statement (§4.11). It is a Node so callers drive it exactly like any
// other plan root; the per-statement planning happens lazily inside RowIter
// because IF/WHILE decide at execution time which statements run at all.
type ScriptExecution struct {
	Statements []esql.Statement

	planner *Planner
}

// PlanScript wraps a parsed statement sequence in a ScriptExecution bound
// to this planner.
func (p *Planner) PlanScript(script *esql.ScriptAST) *ScriptExecution {
	return &ScriptExecution{Statements: script.Statements, planner: p}
}

func (s *ScriptExecution) Describe() string      { return "ScriptExecution" }
func (s *ScriptExecution) EstimatedRows() int64  { return esql.UnknownRowCount }
func (s *ScriptExecution) Children() []esql.Node { return nil }

func (s *ScriptExecution) RowIter(ctx *esql.ExecContext, _ esql.Row) (esql.RowIter, error) {
	st := &scriptState{}
	if err := s.runSequence(ctx, s.Statements, st); err != nil {
		return nil, err
	}
	if !st.hasRows {
		return esql.NewEmptyIter(), nil
	}
	return esql.NewSliceIter(st.lastRows), nil
}

// scriptState tracks the most recent row-producing statement's output; a
// statement with side effects only never touches it.
type scriptState struct {
	lastRows []esql.Row
	hasRows  bool
}

func (st *scriptState) setRows(rows []esql.Row) {
	st.lastRows = rows
	st.hasRows = true
}

func (s *ScriptExecution) runSequence(ctx *esql.ExecContext, stmts []esql.Statement, st *scriptState) error {
	for _, stmt := range stmts {
		if err := ctx.CheckCancelled(); err != nil {
			return err
		}
		if err := s.runStatement(ctx, stmt, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *ScriptExecution) runStatement(ctx *esql.ExecContext, stmt esql.Statement, st *scriptState) error {
	switch t := stmt.(type) {
	case *esql.DeclareStmt:
		initial := esql.Null
		if t.Expression != nil {
			v, err := t.Expression.Eval(ctx, esql.NewRow())
			if err != nil {
				return err
			}
			initial = v
		}
		return ctx.Scope.Declare(t.Variable, t.TypeName, initial)

	case *esql.SetStmt:
		v, err := t.Expression.Eval(ctx, esql.NewRow())
		if err != nil {
			return err
		}
		return ctx.Scope.Set(t.Variable, v)

	case *esql.FromlessSelectStmt:
		row, err := evalFromlessRow(ctx, t.Columns)
		if err != nil {
			return err
		}
		st.setRows([]esql.Row{row})
		return nil

	case *esql.SelectAST:
		return s.runSelect(ctx, t, st)

	case *esql.SetOpAST:
		res, err := s.planner.planSetOp(ctx, t)
		if err != nil {
			return err
		}
		rows, err := drainNode(ctx, res.Root)
		if err != nil {
			return err
		}
		st.setRows(rows)
		return nil

	case *esql.RecursiveCteAST:
		root, err := s.planner.PlanRecursiveCte(ctx, t)
		if err != nil {
			return err
		}
		rows, err := drainNode(ctx, root)
		if err != nil {
			return err
		}
		st.setRows(rows)
		return nil

	case *esql.InsertAST, *esql.UpdateAST, *esql.DeleteAST:
		_, err := s.planner.Plan(ctx, stmt)
		return err

	case *esql.IfStmt:
		ok, err := esql.EvaluateCondition(ctx, t.Condition, esql.NewRow())
		if err != nil {
			return err
		}
		if ok {
			return s.runSequence(ctx, t.Then, st)
		}
		return s.runSequence(ctx, t.Else, st)

	case *esql.WhileStmt:
		return s.runWhile(ctx, t, st)

	case *esql.BreakStmt:
		return esql.ErrBreak

	case *esql.ContinueStmt:
		return esql.ErrContinue

	case *esql.BeginEndStmt:
		return s.runSequence(ctx, t.Body, st)

	case *esql.TryCatchStmt:
		return s.runTryCatch(ctx, t, st)

	case *esql.ThrowStmt:
		return s.runThrow(ctx, t)

	case *esql.RaiserrorStmt:
		return s.runRaiserror(ctx, t)

	case *esql.PrintStmt:
		v, err := t.Expression.Eval(ctx, esql.NewRow())
		if err != nil {
			return err
		}
		ctx.Report(v.String())
		return nil

	case *esql.ScriptAST:
		return s.runSequence(ctx, t.Statements, st)

	default:
		return esql.ErrPlan.New("unsupported statement in script")
	}
}

// runSelect covers the SELECT forms §4.11 distinguishes: the variable
// assignment form (with or without FROM), SELECT ... INTO #t, and the
// ordinary row-producing SELECT, which defers to the full SELECT planner.
func (s *ScriptExecution) runSelect(ctx *esql.ExecContext, ast *esql.SelectAST, st *scriptState) error {
	if len(ast.VarAssigns) > 0 {
		return s.runSelectAssign(ctx, ast)
	}
	if ast.IntoTemp != "" {
		return s.runSelectInto(ctx, ast)
	}
	if ast.Entity == "" && ast.FromTemp == "" {
		row, err := evalFromlessRow(ctx, ast.Columns)
		if err != nil {
			return err
		}
		st.setRows([]esql.Row{row})
		return nil
	}
	res, err := s.planner.PlanSelect(ctx, ast)
	if err != nil {
		return err
	}
	rows, err := drainNode(ctx, res.Root)
	if err != nil {
		return err
	}
	st.setRows(rows)
	return nil
}

// runSelectAssign handles SELECT @v = expr [, ...]: without FROM, each
// expression is evaluated against an empty row; with FROM, the query runs
// and the last row drives the assignments. Either way no rows are yielded.
// A FROM query returning zero rows leaves every variable unchanged,
// matching T-SQL.
func (s *ScriptExecution) runSelectAssign(ctx *esql.ExecContext, ast *esql.SelectAST) error {
	target := esql.NewRow()
	if ast.Entity != "" || ast.FromTemp != "" {
		source := *ast
		source.VarAssigns = nil
		res, err := s.planner.PlanSelect(ctx, &source)
		if err != nil {
			return err
		}
		rows, err := drainNode(ctx, res.Root)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		target = rows[len(rows)-1]
	}
	for _, assign := range ast.VarAssigns {
		v, err := assign.Expression.Eval(ctx, target)
		if err != nil {
			return err
		}
		if err := ctx.Scope.Set(assign.Variable, v); err != nil {
			return err
		}
	}
	return nil
}

// runSelectInto executes the SELECT, creates the temp table from the first
// row's columns (or the projected column list when the result is empty),
// and inserts every row (§4.11).
func (s *ScriptExecution) runSelectInto(ctx *esql.ExecContext, ast *esql.SelectAST) error {
	source := *ast
	source.IntoTemp = ""

	var rows []esql.Row
	if source.Entity == "" && source.FromTemp == "" {
		row, err := evalFromlessRow(ctx, source.Columns)
		if err != nil {
			return err
		}
		rows = []esql.Row{row}
	} else {
		res, err := s.planner.PlanSelect(ctx, &source)
		if err != nil {
			return err
		}
		rows, err = drainNode(ctx, res.Root)
		if err != nil {
			return err
		}
	}

	var schema esql.Schema
	if len(rows) > 0 {
		for _, name := range rows[0].Names() {
			schema = append(schema, esql.Column{Name: name})
		}
	} else {
		for _, c := range ast.Columns {
			name := c.Alias
			if name == "" {
				name = c.Column
			}
			schema = append(schema, esql.Column{Name: name})
		}
	}
	if err := ctx.Session.CreateTempTable(ast.IntoTemp, schema); err != nil {
		return err
	}
	return ctx.Session.InsertIntoTemp(ast.IntoTemp, rows)
}

func (s *ScriptExecution) runWhile(ctx *esql.ExecContext, t *esql.WhileStmt, st *scriptState) error {
	cap := ctx.MaxIterations
	if cap <= 0 {
		cap = 10000
	}
	iterations := 0
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return err
		}
		ok, err := esql.EvaluateCondition(ctx, t.Condition, esql.NewRow())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		iterations++
		if iterations > cap {
			return esql.ErrIterationCap.New(cap)
		}
		err = s.runSequence(ctx, t.Body, st)
		if err == esql.ErrBreak {
			return nil
		}
		if err == esql.ErrContinue {
			continue
		}
		if err != nil {
			return err
		}
	}
}

// runTryCatch implements §4.11/§7 TRY ... CATCH: control signals
// (cancellation, BREAK, CONTINUE) pass through uncaught; any other error
// populates @@ERROR_* and the session error, then the CATCH body runs.
// Successful TRY completion clears the session error.
func (s *ScriptExecution) runTryCatch(ctx *esql.ExecContext, t *esql.TryCatchStmt, st *scriptState) error {
	err := s.runSequence(ctx, t.Try, st)
	if err == nil {
		ctx.Scope.ClearError()
		ctx.Session.ClearLastError()
		return nil
	}
	if esql.IsControlSignal(err) {
		return err
	}

	number, message, severity, state := 50000, err.Error(), 16, 1
	if ue, ok := esql.AsUserError(err); ok {
		number, message, severity, state = ue.Number, ue.Message, ue.Severity, ue.State
	}
	ctx.Scope.SetError(number, message, severity, state)
	ctx.Session.SetLastError(number, message)
	return s.runSequence(ctx, t.Catch, st)
}

func (s *ScriptExecution) runThrow(ctx *esql.ExecContext, t *esql.ThrowStmt) error {
	if !t.HasArgs {
		// Bare THROW re-raises the current error captured in scope.
		msg, _ := ctx.Scope.Get("@@ERROR_MESSAGE")
		num, _ := ctx.Scope.Get("@@ERROR_NUMBER")
		sev, _ := ctx.Scope.Get("@@ERROR_SEVERITY")
		stv, _ := ctx.Scope.Get("@@ERROR_STATE")
		n, _ := num.Int()
		sv, _ := sev.Int()
		stt, _ := stv.Int()
		return esql.NewUserError(int(n), msg.String(), int(sv), int(stt))
	}

	empty := esql.NewRow()
	numV, err := t.Number.Eval(ctx, empty)
	if err != nil {
		return err
	}
	msgV, err := t.Message.Eval(ctx, empty)
	if err != nil {
		return err
	}
	stateV, err := t.State.Eval(ctx, empty)
	if err != nil {
		return err
	}
	n, err := numV.Int()
	if err != nil {
		return err
	}
	stt, err := stateV.Int()
	if err != nil {
		return err
	}
	s.planner.Log.WithFields(logrus.Fields{"number": n}).Debug("script: THROW")
	return esql.NewUserError(int(n), msgV.String(), 16, int(stt))
}

func (s *ScriptExecution) runRaiserror(ctx *esql.ExecContext, t *esql.RaiserrorStmt) error {
	empty := esql.NewRow()
	fmtV, err := t.Format.Eval(ctx, empty)
	if err != nil {
		return err
	}
	sevV, err := t.Severity.Eval(ctx, empty)
	if err != nil {
		return err
	}
	stateV, err := t.State.Eval(ctx, empty)
	if err != nil {
		return err
	}
	args := make([]esql.Value, len(t.Args))
	for i, a := range t.Args {
		v, err := a.Eval(ctx, empty)
		if err != nil {
			return err
		}
		args[i] = v
	}
	msg, err := expression.FormatRaiserror(fmtV.String(), args)
	if err != nil {
		return err
	}
	sev, err := sevV.Int()
	if err != nil {
		return err
	}
	stt, err := stateV.Int()
	if err != nil {
		return err
	}
	if sev >= 11 {
		s.planner.Log.WithFields(logrus.Fields{"severity": sev}).Info("script: RAISERROR escalated")
		return esql.NewUserError(50000, msg, int(sev), int(stt))
	}
	ctx.Report(msg)
	return nil
}

// evalFromlessRow builds the single output row of a FROM-less SELECT:
// every projection is evaluated against an empty row.
func evalFromlessRow(ctx *esql.ExecContext, cols []esql.SelectColumn) (esql.Row, error) {
	empty := esql.NewRow()
	out := esql.NewRow()
	for _, c := range cols {
		name := c.Alias
		if name == "" {
			name = c.Column
		}
		if c.Expression != nil {
			v, err := c.Expression.Eval(ctx, empty)
			if err != nil {
				return esql.Row{}, err
			}
			out.Set(name, "", v)
			continue
		}
		out.Set(name, "", esql.Null)
	}
	return out, nil
}

func drainNode(ctx *esql.ExecContext, node esql.Node) ([]esql.Row, error) {
	iter, err := node.RowIter(ctx, esql.NewRow())
	if err != nil {
		return nil, err
	}
	return esql.Drain(ctx, iter)
}

var _ esql.Node = (*ScriptExecution)(nil)
