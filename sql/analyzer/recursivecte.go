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
	"strings"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
	"github.com/joshsmithxrm/fetchengine/sql/plan"
)

// PlanRecursiveCte builds the operator tree for a WITH ... AS (anchor
// UNION ALL recursive-member) statement (§4.11). The recursive member is
// kept as a plan template; each iteration substitutes a CteScan over the
// prior iteration's materialized rows wherever the template's FROM
// references the CTE name (§9 design note). The outer SELECT's shape is
// applied on top of the RecursiveCte node as ordinary client operators.
func (p *Planner) PlanRecursiveCte(ctx *esql.ExecContext, ast *esql.RecursiveCteAST) (esql.Node, error) {
	if ast.AnchorQuery == nil || ast.RecursiveQuery == nil {
		return nil, esql.ErrPlan.New("recursive CTE needs an anchor and a recursive member")
	}

	anchor, err := p.planCteBranch(ctx, ast.AnchorQuery)
	if err != nil {
		return nil, err
	}

	member := ast.RecursiveQuery
	cteName := ast.CteName
	factory := func(prev []esql.Row) (esql.Node, error) {
		return p.planCteMember(ctx, member, cteName, prev)
	}

	var root esql.Node = plan.NewRecursiveCte(anchor, factory)
	if ast.Outer != nil {
		root, err = applyClientShape(root, ast.Outer)
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

// planCteBranch plans the anchor: a FROM-less anchor (SELECT 1 n) becomes
// a Project over DualScan; anything else goes through the full SELECT
// planner.
func (p *Planner) planCteBranch(ctx *esql.ExecContext, q *esql.SelectAST) (esql.Node, error) {
	if q.Entity == "" && q.FromTemp == "" {
		return applyClientShape(plan.NewDualScan(), q)
	}
	res, err := p.PlanSelect(ctx, q)
	if err != nil {
		return nil, err
	}
	return res.Root, nil
}

// planCteMember plans one recursive iteration: when the member's FROM is
// the CTE itself, the prior iteration's rows become a CteScan and the
// member's WHERE/projection apply client-side on top. A recursive member
// joining the CTE against a base entity is planned as the base-entity scan
// with the CteScan wired in as the build side of a HashJoin.
func (p *Planner) planCteMember(ctx *esql.ExecContext, q *esql.SelectAST, cteName string, prev []esql.Row) (esql.Node, error) {
	if strings.EqualFold(q.Entity, cteName) || q.Entity == "" {
		return applyClientShape(plan.NewCteScan(prev), q)
	}

	for _, j := range q.Joins {
		if j.Right != nil && strings.EqualFold(j.Right.Entity, cteName) {
			base := *q
			base.Joins = nil
			res, err := p.PlanSelect(ctx, &base)
			if err != nil {
				return nil, err
			}
			leftKey := expression.NewGetField(j.LeftKey)
			rightKey := expression.NewGetField(j.RightKey)
			return plan.NewHashJoin(res.Root, plan.NewCteScan(prev), j.Kind, leftKey, rightKey, nil, nil, cteName), nil
		}
	}
	return nil, esql.ErrPlan.New("recursive member does not reference CTE " + cteName)
}

// applyClientShape wraps root in the client-side operators a SELECT's
// WHERE/projection/DISTINCT/ORDER BY/OFFSET-FETCH shape calls for, used
// where the input is already a materialized client-side source (CteScan,
// DualScan, RecursiveCte output) and no pushdown is possible.
func applyClientShape(root esql.Node, q *esql.SelectAST) (esql.Node, error) {
	if q.Where != nil {
		pred, err := expression.CompilePredicate(q.Where)
		if err != nil {
			return nil, err
		}
		root = plan.NewClientFilter(root, pred)
	}
	if needsProjection(q.Columns) {
		root = plan.NewProject(root, projections(q.Columns))
	}
	if q.Distinct {
		root = plan.NewDistinct(root)
	}
	if len(q.OrderBy) > 0 {
		root = plan.NewClientSort(root, sortKeys(q.OrderBy))
	}
	if q.Offset != nil || q.Fetch != nil {
		offset := int64(0)
		if q.Offset != nil {
			offset = *q.Offset
		}
		fetch := int64(-1)
		if q.Fetch != nil {
			fetch = *q.Fetch
		}
		root = plan.NewOffsetFetch(root, offset, fetch)
	} else if q.Top != nil {
		root = plan.NewOffsetFetch(root, 0, *q.Top)
	}
	return root, nil
}
