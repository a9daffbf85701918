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

import "strings"

// UnknownRowCount is the sentinel for "unknown" cardinality (§3 invariant:
// "estimated_rows < 0 means unknown"; callers must not arithmetically
// combine unknowns).
const UnknownRowCount int64 = -1

// Node is a physical operator (§3 "Plan node"): every variant exposes a
// description for EXPLAIN, an estimated row count, its children, and a
// method producing a lazy row stream. RowIter takes the current outer row
// so that CROSS APPLY/OUTER APPLY (§4.6) and correlated subqueries can
// thread the enclosing row down into a re-evaluated inner plan; uncorrelated
// callers simply pass an empty Row.
type Node interface {
	Describe() string
	EstimatedRows() int64
	Children() []Node
	RowIter(ctx *ExecContext, row Row) (RowIter, error)
}

// UnaryNode is embedded by every Node with exactly one child.
type UnaryNode struct {
	Child Node
}

func (n UnaryNode) Children() []Node { return []Node{n.Child} }

// BinaryNode is embedded by every Node with exactly two children (joins,
// set operations).
type BinaryNode struct {
	Left, Right Node
}

func (n BinaryNode) Children() []Node { return []Node{n.Left, n.Right} }

// Explain renders node and its descendants as an indented tree, one line
// per node — the EXPLAIN surface promised by §3's "description (for
// EXPLAIN)" invariant.
func Explain(node Node) string {
	var sb strings.Builder
	explain(&sb, node, 0)
	return sb.String()
}

func explain(sb *strings.Builder, node Node, depth int) {
	sb.WriteString(strings.Repeat("    ", depth))
	sb.WriteString(node.Describe())
	if n := node.EstimatedRows(); n >= 0 {
		sb.WriteString(" (rows~")
		sb.WriteString(itoa(n))
		sb.WriteByte(')')
	}
	sb.WriteByte('\n')
	for _, c := range node.Children() {
		explain(sb, c, depth+1)
	}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PlanResult is the planner's output (§3 "Query plan result"): the root
// plan node, an optional FetchXML trace, virtual-column metadata, and the
// primary entity logical name.
type PlanResult struct {
	Root           Node
	FetchXmlTrace  string
	VirtualColumns map[string]VirtualColumn
	PrimaryEntity  string
}

// VirtualColumn describes a computed column the transpiler's FetchXML
// expresses by an alias (§6 "Virtual column"), so client operators can
// reference it.
type VirtualColumn struct {
	Alias      string
	Expression string
	Kind       Kind
}
