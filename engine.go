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

// Package fetchengine translates T-SQL statement ASTs into trees of
// streaming physical operators and executes them against a FetchXML
// backend, planning client-side whatever the backend cannot express.
package fetchengine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/analyzer"
	"github.com/joshsmithxrm/fetchengine/sql/estimator"
)

// Engine is the top-level entry point: it owns a planner and the
// configuration shared by every query. The parser and the FetchXML
// transpiler are external collaborators; the engine consumes their
// outputs through the contracts in the sql package.
type Engine struct {
	Planner *analyzer.Planner
	Config  *sql.Config
}

// New builds an Engine. transpiler is required for any query that reaches
// the backend; dml, cfg, counts and log are optional.
func New(transpiler sql.FetchXmlTranspiler, dml sql.DmlExecutor, cfg *sql.Config, counts estimator.EntityRecordCounts, log *logrus.Entry) *Engine {
	if cfg == nil {
		cfg = &sql.Config{}
	}
	return &Engine{
		Planner: analyzer.NewPlanner(transpiler, dml, cfg, counts, log),
		Config:  cfg,
	}
}

// NewContext builds an execution context wired from the engine's
// configuration: the caller's variable scope if one was supplied, and the
// direct-wire executor when passthrough is enabled.
func (e *Engine) NewContext(parent context.Context, executor sql.BackendExecutor) *sql.ExecContext {
	ctx := sql.NewExecContext(parent, executor)
	if e.Config.VariableScope != nil {
		ctx.Scope = e.Config.VariableScope
	}
	if e.Config.TdsQueryExecutor != nil {
		ctx.TdsExec = e.Config.TdsQueryExecutor
	}
	return ctx
}

// Query plans stmt and, for row-producing statements, opens the root
// operator's row stream. DML statements execute during planning and
// return an empty stream alongside the affected-row count in the Outcome.
func (e *Engine) Query(ctx *sql.ExecContext, stmt sql.Statement) (*analyzer.Outcome, sql.RowIter, error) {
	outcome, err := e.Planner.Plan(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	if outcome.Query == nil {
		return outcome, sql.NewEmptyIter(), nil
	}
	iter, err := outcome.Query.Root.RowIter(ctx, sql.NewRow())
	if err != nil {
		return nil, nil, err
	}
	return outcome, iter, nil
}

// Explain plans stmt and renders the resulting operator tree without
// executing it. DML statements cannot be explained this way because their
// plans execute eagerly.
func (e *Engine) Explain(ctx *sql.ExecContext, stmt sql.Statement) (string, error) {
	switch s := stmt.(type) {
	case *sql.ScriptAST:
		return sql.Explain(e.Planner.PlanScript(s)), nil
	case *sql.SelectAST:
		res, err := e.Planner.PlanSelect(ctx, s)
		if err != nil {
			return "", err
		}
		return sql.Explain(res.Root), nil
	default:
		return "", sql.ErrPlan.New("EXPLAIN supports SELECT and script statements")
	}
}
