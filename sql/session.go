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

// TempTableStore owns the lifetime of "#temp" tables for one
// SessionContext (§3). The default implementation is in-memory; an
// alternative persistent implementation backed by boltdb lives in
// sql/store and is passed in through NewSessionContextWithStore.
type TempTableStore interface {
	Create(name string, columns Schema) error
	Insert(name string, rows []Row) error
	Rows(name string) ([]Row, error)
	Exists(name string) bool
	Drop(name string) error
}

// memTempTableStore is the default in-memory TempTableStore.
type memTempTableStore struct {
	tables map[string]*tempTable
}

type tempTable struct {
	columns Schema
	rows    []Row
}

func newMemTempTableStore() *memTempTableStore {
	return &memTempTableStore{tables: map[string]*tempTable{}}
}

func (m *memTempTableStore) Create(name string, columns Schema) error {
	if _, ok := m.tables[name]; ok {
		return ErrPlan.New(fmt.Sprintf("temp table %s already exists", name))
	}
	m.tables[name] = &tempTable{columns: columns}
	return nil
}

func (m *memTempTableStore) Insert(name string, rows []Row) error {
	t, ok := m.tables[name]
	if !ok {
		return ErrPlan.New(fmt.Sprintf("temp table %s does not exist", name))
	}
	t.rows = append(t.rows, rows...)
	return nil
}

func (m *memTempTableStore) Rows(name string) ([]Row, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, ErrPlan.New(fmt.Sprintf("temp table %s does not exist", name))
	}
	return t.rows, nil
}

func (m *memTempTableStore) Exists(name string) bool {
	_, ok := m.tables[name]
	return ok
}

func (m *memTempTableStore) Drop(name string) error {
	if _, ok := m.tables[name]; !ok {
		return ErrPlan.New(fmt.Sprintf("temp table %s does not exist", name))
	}
	delete(m.tables, name)
	return nil
}

// SessionContext holds caller identity, the last script error, and the
// temp-table namespace for one session (§3). A temp table's lifetime is
// the SessionContext that created it.
type SessionContext struct {
	CallerObjectID string

	lastErrorNumber  int
	lastErrorMessage string

	temps TempTableStore
}

// NewSessionContext builds a session backed by the in-memory temp-table
// store.
func NewSessionContext() *SessionContext {
	return &SessionContext{temps: newMemTempTableStore()}
}

// NewSessionContextWithStore builds a session backed by a caller-supplied
// TempTableStore, e.g. the boltdb-backed one in sql/store for durable
// "#temp" tables across process restarts.
func NewSessionContextWithStore(store TempTableStore) *SessionContext {
	return &SessionContext{temps: store}
}

func (s *SessionContext) CreateTempTable(name string, columns Schema) error {
	return s.temps.Create(name, columns)
}

func (s *SessionContext) InsertIntoTemp(name string, rows []Row) error {
	return s.temps.Insert(name, rows)
}

func (s *SessionContext) GetTempRows(name string) ([]Row, error) {
	return s.temps.Rows(name)
}

func (s *SessionContext) TempExists(name string) bool {
	return s.temps.Exists(name)
}

func (s *SessionContext) DropTemp(name string) error {
	return s.temps.Drop(name)
}

// LastError returns the last recorded script error number/message (§3,
// readable via @@ERROR / ERROR_MESSAGE()).
func (s *SessionContext) LastError() (int, string) {
	return s.lastErrorNumber, s.lastErrorMessage
}

// SetLastError records a script error; called alongside
// VariableScope.SetError at CATCH entry.
func (s *SessionContext) SetLastError(number int, message string) {
	s.lastErrorNumber = number
	s.lastErrorMessage = message
}

// ClearLastError resets the session error; called on successful TRY
// completion.
func (s *SessionContext) ClearLastError() {
	s.lastErrorNumber = 0
	s.lastErrorMessage = ""
}
