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
	errorkind "gopkg.in/src-d/go-errors.v1"
)

// Error kinds (§7). These are matchable via errorkind.Is / errors.As against
// the Kind returned by errorkind.NewKind, the same pattern the teacher's
// go.mod pins with gopkg.in/src-d/go-errors.v1 (used upstream for the
// analogous family of planning/execution errors).
var (
	// ErrPlan covers an unsupported SQL construct, a malformed AST, or a
	// missing FROM clause.
	ErrPlan = errorkind.NewKind("plan error: %s")

	// ErrExecution covers a failed backend call; args are the wire error
	// code and message.
	ErrExecution = errorkind.NewKind("execution error [%s]: %s")

	// ErrSubqueryCardinality fires when a scalar subquery returns more
	// than one row.
	ErrSubqueryCardinality = errorkind.NewKind("subquery returned more than one row")

	// ErrRecursion fires when a recursive CTE exceeds its maximum depth.
	ErrRecursion = errorkind.NewKind("maximum recursion %d has been exhausted")

	// ErrIterationCap fires when a WHILE loop exceeds its iteration cap.
	ErrIterationCap = errorkind.NewKind("maximum iteration count %d exceeded")

	// ErrUserRaised covers THROW and RAISERROR with severity >= 11.
	ErrUserRaised = errorkind.NewKind("%d: %s")

	// ErrInvariantViolation covers internal consistency failures that
	// should never occur given a correctly planned operator tree.
	ErrInvariantViolation = errorkind.NewKind("invariant violation: %s")
)

// UserError carries the SQL-visible error number/message/state/severity for
// a THROW or RAISERROR (§4.11, §7), so CATCH blocks and @@ERROR_* can
// recover the original fields instead of just a formatted string.
type UserError struct {
	Number   int
	Message  string
	Severity int
	State    int
	cause    error
}

func (e *UserError) Error() string { return e.Message }
func (e *UserError) Unwrap() error { return e.cause }

// NewUserError builds a UserError, defaulting Number to 50000 (THROW's
// documented default, per §7 "User-visible behavior").
func NewUserError(number int, message string, severity, state int) *UserError {
	if number == 0 {
		number = 50000
	}
	return &UserError{Number: number, Message: message, Severity: severity, State: state, cause: ErrUserRaised.New(number, message)}
}

// AsUserError extracts a *UserError from err, if any is present in its
// chain.
func AsUserError(err error) (*UserError, bool) {
	var ue *UserError
	for err != nil {
		if u, ok := err.(*UserError); ok {
			return u, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return ue, false
}

// IsCancelled reports whether err represents a cancellation signal, which
// must propagate through TRY blocks uncaught (§4.11, §5).
func IsCancelled(err error) bool {
	return err == ErrCancelled
}

// Control-flow signals used by ScriptExecution (§4.11). These are not user
// errors: BREAK/CONTINUE/cancellation must pass through a TRY/CATCH
// unmodified rather than being caught, per §4.11 and §5.
var (
	ErrBreak     = errorkind.NewKind("break").New()
	ErrContinue  = errorkind.NewKind("continue").New()
	ErrCancelled = errorkind.NewKind("operation cancelled").New()
)

// IsControlSignal reports whether err is BREAK, CONTINUE, or cancellation —
// the three signal kinds that a TRY block must never route to its CATCH
// (§4.11: "OperationCancelled, BREAK, and CONTINUE signals must propagate
// through TRY without being caught").
func IsControlSignal(err error) bool {
	return err == ErrBreak || err == ErrContinue || IsCancelled(err)
}
