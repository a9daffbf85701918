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

import "context"

// EvaluateCondition evaluates expr against row and reduces the result to a
// plain bool: NULL/UNKNOWN is treated as false, the same rule ClientFilter
// applies to its predicate (§4.2: "FALSE and UNKNOWN are dropped"). IF and
// WHILE (§4.11) reuse this so an UNKNOWN condition takes the ELSE/exits the
// loop rather than erroring.
func EvaluateCondition(ctx *ExecContext, expr Expression, row Row) (bool, error) {
	v, err := expr.Eval(ctx, row)
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return false, nil
	}
	return v.Bool()
}

// NewEmptyContext builds a minimal ExecContext for contexts that need no
// backend (expression-only evaluation, unit tests), mirroring the
// teacher's sql.NewEmptyContext helper.
func NewEmptyContext() *ExecContext {
	return NewExecContext(context.Background(), nil)
}
