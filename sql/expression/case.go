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
	"strings"

	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// CaseBranch is one WHEN cond THEN result pair.
type CaseBranch struct {
	Condition esql.Expression
	Result    esql.Expression
}

// Case evaluates a searched CASE expression: the first branch whose
// condition is TRUE wins; UNKNOWN and FALSE branches are skipped, matching
// ClientFilter's truth-value handling (§4.2, §3).
type Case struct {
	Branches []CaseBranch
	Else     esql.Expression // nil if no ELSE
}

func NewCase(branches []CaseBranch, elseExpr esql.Expression) *Case {
	return &Case{Branches: branches, Else: elseExpr}
}

func (c *Case) Eval(ctx *esql.ExecContext, row esql.Row) (esql.Value, error) {
	for _, b := range c.Branches {
		v, err := b.Condition.Eval(ctx, row)
		if err != nil {
			return esql.Value{}, err
		}
		if v.IsNull() {
			continue
		}
		ok, err := v.Bool()
		if err != nil {
			return esql.Value{}, err
		}
		if ok {
			return b.Result.Eval(ctx, row)
		}
	}
	if c.Else != nil {
		return c.Else.Eval(ctx, row)
	}
	return esql.Null, nil
}

func (c *Case) String() string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, b := range c.Branches {
		sb.WriteString(" WHEN ")
		sb.WriteString(b.Condition.String())
		sb.WriteString(" THEN ")
		sb.WriteString(b.Result.String())
	}
	if c.Else != nil {
		sb.WriteString(" ELSE ")
		sb.WriteString(c.Else.String())
	}
	sb.WriteString(" END")
	return sb.String()
}
