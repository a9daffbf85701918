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

import "io"

// EOF signals the end of a RowIter's stream, following the io.EOF
// convention the teacher uses for its own sql.RowIter implementations.
var EOF = io.EOF

// RowIter is the lazy row stream every Node produces (§3: "a method
// producing a lazy sequence of rows"). Next returns io.EOF (via the EOF
// alias) once exhausted; a RowIter must be Closed by its consumer even
// after an error or early abandonment, so that materializing operators can
// release build-side resources.
type RowIter interface {
	Next(ctx *ExecContext) (Row, error)
	Close(ctx *ExecContext) error
}

// sliceIter streams a pre-materialized []Row; almost every operator that
// materializes (ClientSort, join build sides, CteScan, RecursiveCte
// iterations) hands its output to callers through one of these.
type sliceIter struct {
	rows []Row
	pos  int
}

// NewSliceIter returns a RowIter over an already-materialized row slice.
func NewSliceIter(rows []Row) RowIter { return &sliceIter{rows: rows} }

func (s *sliceIter) Next(ctx *ExecContext) (Row, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return Row{}, err
	}
	if s.pos >= len(s.rows) {
		return Row{}, EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceIter) Close(ctx *ExecContext) error { return nil }

// emptyIter is a RowIter that yields nothing; used by side-effecting script
// statements (§4.11) and by operators whose input is exhausted up front.
type emptyIter struct{}

func NewEmptyIter() RowIter { return emptyIter{} }

func (emptyIter) Next(ctx *ExecContext) (Row, error) { return Row{}, EOF }
func (emptyIter) Close(ctx *ExecContext) error       { return nil }

// Drain fully consumes iter into a slice, honoring cancellation. It is the
// materialization primitive used by ClientSort, join build phases,
// Intersect/Except's right side, MergeJoin's inputs, and RecursiveCte's
// per-iteration collection (§5: "Operators that materialize ... fully
// consume an input before producing their first output").
func Drain(ctx *ExecContext, iter RowIter) ([]Row, error) {
	defer iter.Close(ctx)
	var out []Row
	for {
		row, err := iter.Next(ctx)
		if err == EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}
