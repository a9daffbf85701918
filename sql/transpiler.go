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

// PushdownInfo reports, for each predicate/projection the planner asked
// the transpiler to push down, whether it succeeded — the planner uses
// this to decide which ClientFilter/Project wrappers it still needs to add
// (§4.12 step 7).
type PushdownInfo struct {
	// UnpushedWhere lists WHERE-clause predicate fragments (as opaque
	// textual/positional handles the caller already knows how to map back
	// to an AST node) the transpiler could not express in FetchXML:
	// column=column comparisons, expressions on either side, variable
	// comparisons, IN (subquery), EXISTS.
	UnpushedWhere []string
	// UnpushedHaving mirrors UnpushedWhere for HAVING.
	UnpushedHaving []string
	// Sorted reports whether the emitted FetchXML carries an <order> that
	// makes the primary entity's rows sorted on the stated columns — used
	// by the planner to skip a ClientSort the pushed-down order already
	// satisfies. The planner does not use it for join selection and never
	// emits a MergeJoin.
	Sorted []string
}

// TranspileResult is the FetchXML transpiler's output (§6): the document
// text, the virtual-column map, and pushdown metadata.
type TranspileResult struct {
	FetchXml       string
	VirtualColumns map[string]VirtualColumn
	Pushdown       PushdownInfo
}

// FetchXmlTranspiler is the required capability of §6's "FetchXML
// transpiler": generate(sql_ast) -> {fetchxml_text, virtual_columns,
// pushdown_info}. It is a collaborator behind an interface so the planner
// can be tested with a fake implementation (§6: "expected to be
// injectable").
type FetchXmlTranspiler interface {
	Generate(ast SelectAST) (*TranspileResult, error)
}
