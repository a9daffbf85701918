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

import "fmt"

// declared is one variable's declared type and current value.
type declared struct {
	typeName string
	value    Value
}

// VariableScope maps "@name" to (declared_type, current_value) (§3).
// Declare fails if the name is already declared in this scope; Set fails
// if the name is not declared. A VariableScope is owned by the single
// driver that runs a script (§5 "Shared-resource policy": single-writer).
type VariableScope struct {
	vars map[string]*declared
	err  *errorState
}

// errorState backs the reserved @@ERROR_* pseudo-variables (§3, §9 Design
// Notes: modeled as a dedicated session error record rather than ordinary
// scope entries, exposed read-only).
type errorState struct {
	message  string
	number   int
	severity int
	state    int
}

// NewVariableScope creates a scope. parent is accepted for API symmetry
// with nested-block callers but is unused: §3 models one flat variable
// scope per script run, not lexical block scoping.
func NewVariableScope(parent *VariableScope) *VariableScope {
	return &VariableScope{vars: map[string]*declared{}, err: &errorState{}}
}

// Declare registers name with typeName and an initial value. It is an
// error to declare a name that is already declared in this scope.
func (s *VariableScope) Declare(name, typeName string, initial Value) error {
	if _, ok := s.vars[name]; ok {
		return ErrPlan.New(fmt.Sprintf("variable %s is already declared", name))
	}
	s.vars[name] = &declared{typeName: typeName, value: initial}
	return nil
}

// Set assigns value to an already-declared variable. Setting an undeclared
// variable is an error (§3 invariant).
func (s *VariableScope) Set(name string, value Value) error {
	d, ok := s.vars[name]
	if !ok {
		return ErrPlan.New(fmt.Sprintf("variable %s must be declared before it is assigned", name))
	}
	d.value = value
	return nil
}

// Get returns the current value of name and whether it is declared.
// Reserved pseudo-variables (@@ERROR_MESSAGE etc.) are served from the
// dedicated error record rather than s.vars.
func (s *VariableScope) Get(name string) (Value, bool) {
	if v, ok := s.errorPseudoVar(name); ok {
		return v, true
	}
	d, ok := s.vars[name]
	if !ok {
		return Value{}, false
	}
	return d.value, true
}

// IsDeclared reports whether name has been declared (or is a reserved
// pseudo-variable, which is always "declared").
func (s *VariableScope) IsDeclared(name string) bool {
	if _, ok := s.errorPseudoVar(name); ok {
		return true
	}
	_, ok := s.vars[name]
	return ok
}

// DeclaredType returns the declared type of name, if declared.
func (s *VariableScope) DeclaredType(name string) (string, bool) {
	d, ok := s.vars[name]
	if !ok {
		return "", false
	}
	return d.typeName, true
}

func (s *VariableScope) errorPseudoVar(name string) (Value, bool) {
	switch name {
	case "@@ERROR_MESSAGE":
		return NewString(s.err.message), true
	case "@@ERROR_NUMBER":
		return NewInt(int64(s.err.number)), true
	case "@@ERROR_SEVERITY":
		return NewInt(int64(s.err.severity)), true
	case "@@ERROR_STATE":
		return NewInt(int64(s.err.state)), true
	case "@@ERROR":
		if s.err.number != 0 {
			return NewInt(int64(s.err.number)), true
		}
		return NewInt(0), true
	}
	return Value{}, false
}

// SetError populates the @@ERROR_* pseudo-variables from a caught error;
// called at CATCH entry (§3, §7).
func (s *VariableScope) SetError(number int, message string, severity, state int) {
	s.err.message = message
	s.err.number = number
	s.err.severity = severity
	s.err.state = state
}

// ClearError resets @@ERROR_* to their zero values; called on successful
// TRY completion (§7: "successful completion of a TRY block clears the
// session error").
func (s *VariableScope) ClearError() {
	s.err.message = ""
	s.err.number = 0
	s.err.severity = 0
	s.err.state = 0
}
