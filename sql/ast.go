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

// This file defines the contract the planner (sql/analyzer) expects an
// external parser to hand it (§1, §6): "An external parser produces the AST
// ... treated as a collaborator with the contracts given in §6." The full
// T-SQL grammar is explicitly out of scope; these types are the minimal
// shape the planner needs to dispatch on statement kind, resolve the FROM
// entity, and recognize the constructs that force a client-side operator.

// Statement is any top-level AST node the planner can dispatch on.
type Statement interface {
	statementNode()
}

// PredicateKind classifies a WHERE/HAVING/ON predicate fragment enough for
// the planner to recognize constructs it must keep client-side: column-vs-
// column comparisons, expressions on either side, @variable comparisons,
// IN (subquery), and EXISTS/NOT EXISTS (§4.12 step 7, §4.7).
type PredicateKind int

const (
	PredOther PredicateKind = iota
	PredColumnEqLiteral
	PredColumnEqColumn
	PredExpression
	PredVariableComparison
	PredInSubquery
	PredNotInSubquery
	PredExists
	PredNotExists
	PredAnd
	PredOr
	// PredIsNull tests Column IS NULL. The planner synthesizes this kind
	// for the anti-join pushdown rewrite of §4.7: a NOT IN subquery folded
	// into a LEFT OUTER link is re-expressed as "<alias>.<key> IS NULL".
	PredIsNull
)

// Predicate is one node of a WHERE/HAVING tree.
type Predicate struct {
	Kind PredicateKind

	// Column / Column2 are set for PredColumnEqLiteral, PredColumnEqColumn.
	Column, Column2 string
	// Literal is set for PredColumnEqLiteral.
	Literal Value
	// Variable is set for PredVariableComparison ("@v").
	Variable string
	// Subquery is set for PredInSubquery/PredNotInSubquery/PredExists/
	// PredNotExists.
	Subquery *SelectAST
	// Left/Right are set for PredAnd/PredOr.
	Left, Right *Predicate
	// Expr carries the parser's compiled expression for a PredExpression
	// leaf (arbitrary comparisons, arithmetic on either side), evaluated
	// client-side when the transpiler reports it unpushable.
	Expr Expression
	// Text is a human-readable rendering used for EXPLAIN / logging and
	// as the opaque handle returned in PushdownInfo.UnpushedWhere.
	Text string
}

// OrderKey is one ORDER BY / sort key.
type OrderKey struct {
	Column     string
	Descending bool
}

// SelectColumn is one projected output column.
type SelectColumn struct {
	Alias      string
	Column     string // set when this is a pass-through column reference
	Expression Expression // set when this is a computed projection
	Aggregate  string // "", "COUNT", "SUM", "MIN", "MAX", "AVG" for GROUP BY queries
	CountAlias string // companion count alias for AVG merge (§4.9)
}

// JoinKind mirrors §4.6's join-type enum.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFullOuter
	JoinCross
	JoinCrossApply
	JoinOuterApply
)

// JoinClause is one FROM-clause join.
type JoinClause struct {
	Kind        JoinKind
	Right       *SelectAST
	RightAlias  string
	LeftKey     string // equi-join key on the left side, "" if non-equi
	RightKey    string
	On          *Predicate // full ON predicate, used when no simple equi-key
}

// SelectAST is the minimal SELECT shape the planner and the FetchXML
// transpiler both consume (§6).
type SelectAST struct {
	Entity      string // primary FROM entity/table logical name
	Alias       string
	Columns     []SelectColumn
	Joins       []JoinClause
	Where       *Predicate
	GroupBy     []string
	Having      *Predicate
	OrderBy     []OrderKey
	Top         *int64 // SELECT TOP(n)
	Offset      *int64
	Fetch       *int64
	Distinct    bool
	IntoTemp    string // SELECT ... INTO #t
	FromTemp    string // SELECT ... FROM #t (session temp table)
	VarAssigns  []VarAssign // SELECT @v = expr [, ...]
	WindowFuncs []WindowFunc

	// OriginalSQL is the verbatim source text, used only when the
	// planner emits a TdsScan passthrough (§4.12 step 3).
	OriginalSQL string
}

func (*SelectAST) statementNode() {}

// VarAssign is one "@v = expr" pair in a variable-assignment SELECT.
type VarAssign struct {
	Variable   string
	Expression Expression
}

// WindowFunc is a single window function projection (ROW_NUMBER, RANK,
// SUM(...) OVER (...), etc.), planned as a ClientWindow wrapper.
type WindowFunc struct {
	Alias      string
	Function   string
	Arg        Expression
	PartitionBy []string
	OrderBy     []OrderKey
}

// SetOpKind distinguishes UNION / UNION ALL / INTERSECT / EXCEPT.
type SetOpKind int

const (
	SetOpUnion SetOpKind = iota
	SetOpUnionAll
	SetOpIntersect
	SetOpExcept
)

// SetOpAST is a binary query expression (§4.12 "UNION/EXCEPT/INTERSECT").
type SetOpAST struct {
	Kind  SetOpKind
	Left  Statement
	Right Statement
}

func (*SetOpAST) statementNode() {}

// InsertAST covers both bulk VALUES and INSERT ... SELECT forms.
type InsertAST struct {
	Entity  string
	Columns []string
	Values  [][]Expression // bulk VALUES rows; nil for INSERT ... SELECT
	Source  *SelectAST     // set for INSERT ... SELECT
}

func (*InsertAST) statementNode() {}

// SetClause is one "column = expr" in an UPDATE.
type SetClause struct {
	Column     string
	Expression Expression
}

// UpdateAST describes an UPDATE statement; the planner synthesizes a
// SELECT of IdColumn plus every column referenced by Set to drive it
// (§4.12).
type UpdateAST struct {
	Entity   string
	IdColumn string
	Set      []SetClause
	Where    *Predicate
}

func (*UpdateAST) statementNode() {}

// DeleteAST describes a DELETE statement.
type DeleteAST struct {
	Entity   string
	IdColumn string
	Where    *Predicate
}

func (*DeleteAST) statementNode() {}
