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

package sql

import (
	"context"

	"github.com/opentracing/opentracing-go"
)

// ProgressReporter receives PRINT output and RAISERROR messages with
// severity < 11 (§4.11); it never raises, it only routes text somewhere a
// caller can observe (a client connection, a log, a test buffer).
type ProgressReporter interface {
	Report(message string)
}

// ProgressReporterFunc adapts a function to a ProgressReporter.
type ProgressReporterFunc func(string)

func (f ProgressReporterFunc) Report(message string) { f(message) }

// ExpressionEvaluator evaluates a compiled expression against a row. It is
// kept as an interface on ExecContext (rather than a concrete type) so that
// sql/plan can depend on it without importing sql/expression, mirroring the
// way the teacher keeps sql.Expression an interface owned by the sql
// package while concrete expressions live in sql/expression.
type ExpressionEvaluator interface {
	Eval(ctx *ExecContext, row Row, expr Expression) (Value, error)
}

// Expression is the minimal capability sql/plan needs from a compiled
// predicate/projection expression: evaluate against a row. Concrete
// expression trees (literals, columns, binary ops, CASE, functions) live in
// sql/expression and satisfy this interface.
type Expression interface {
	Eval(ctx *ExecContext, row Row) (Value, error)
	String() string
}

// ExecContext carries everything an operator needs to produce its row
// stream (§3 "Execution context"): the backend executor, an optional
// expression evaluator, an optional progress reporter, the current
// variable scope, the session context, and cancellation.
type ExecContext struct {
	context.Context

	Executor  BackendExecutor
	TdsExec   TdsExecutor // optional, used only by TdsScan
	Remote    BackendExecutor // optional, used only by RemoteScan

	Scope   *VariableScope
	Session *SessionContext

	Tracer opentracing.Tracer
	Reporter ProgressReporter
	Metrics *Metrics

	// MaxRecursion bounds RecursiveCte (§4.11, default 100).
	MaxRecursion int
	// MaxIterations bounds WHILE (§4.11, default 10000).
	MaxIterations int
}

// NewExecContext builds an ExecContext over parent with the documented
// defaults from §4.11 (max recursion 100, max iterations 10000) and a fresh
// top-level variable scope/session context.
func NewExecContext(parent context.Context, executor BackendExecutor) *ExecContext {
	return &ExecContext{
		Context:       parent,
		Executor:      executor,
		Scope:         NewVariableScope(nil),
		Session:       NewSessionContext(),
		MaxRecursion:  100,
		MaxIterations: 10000,
	}
}

// WithScope returns a shallow copy of ctx using scope in place of ctx.Scope;
// used when entering a nested statement sequence (BEGIN...END, WHILE body)
// that should see the same scope object (SQL scoping here is flat per
// §3 — there is one VariableScope per script run, not per block).
func (ctx *ExecContext) WithScope(scope *VariableScope) *ExecContext {
	cp := *ctx
	cp.Scope = scope
	return &cp
}

// Report routes message to the configured ProgressReporter, if any.
func (ctx *ExecContext) Report(message string) {
	if ctx.Reporter != nil {
		ctx.Reporter.Report(message)
	}
}

// Cancelled reports whether the context's cancellation signal has fired.
func (ctx *ExecContext) Cancelled() bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// CheckCancelled returns ErrCancelled if the context has been cancelled;
// every materializing loop and yield boundary calls this (§5 "Suspension
// points").
func (ctx *ExecContext) CheckCancelled() error {
	if ctx.Cancelled() {
		return ErrCancelled
	}
	return nil
}
