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

package plan

import (
	"sort"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/expression"
)

// SortKey is one (column, descending) ordering key (§4.4).
type SortKey struct {
	Column     string
	Descending bool
}

// ClientSort materializes its input, sorts stably by a non-empty list of
// keys, then streams the result (§4.4). Comparison: both null -> equal;
// one null -> null sorts last; typed compare otherwise; the descending
// flag inverts the non-null comparison result.
type ClientSort struct {
	UnaryNodeHolder
	Keys []SortKey
}

func NewClientSort(child esql.Node, keys []SortKey) *ClientSort {
	return &ClientSort{UnaryNodeHolder: UnaryNodeHolder{Child: child}, Keys: keys}
}

func (s *ClientSort) Describe() string { return "ClientSort" }

func (s *ClientSort) EstimatedRows() int64 { return s.Child.EstimatedRows() }

func (s *ClientSort) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := s.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	rows, err := esql.Drain(ctx, childIter)
	if err != nil {
		return nil, err
	}
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		c, err := compareRowsByKeys(rows[i], rows[j], s.Keys)
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return esql.NewSliceIter(rows), nil
}

func compareRowsByKeys(a, b esql.Row, keys []SortKey) (int, error) {
	for _, k := range keys {
		av, _ := a.Get(k.Column)
		bv, _ := b.Get(k.Column)
		c, err := expression.SortNullsLast(av, bv, k.Descending)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}
