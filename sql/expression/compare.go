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
	"time"

	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// Tristate is SQL three-valued logic's result: TRUE, FALSE, or UNKNOWN
// (produced whenever either operand is NULL).
type Tristate int

const (
	Unknown Tristate = iota
	False
	True
)

// TypedCompare implements the shared typed-comparison rules used by
// ClientSort (§4.4) and MergeJoin (§4.6): numeric compare if both numeric,
// typed compare for timestamp and uuid, otherwise case-insensitive string
// compare. It does not itself apply null-ordering; callers decide whether
// nulls sort last (ClientSort) or simply never equal (MergeJoin).
func TypedCompare(a, b esql.Value) (int, error) {
	switch {
	case isNumericKind(a.Kind()) && isNumericKind(b.Kind()):
		af, err := a.Float()
		if err != nil {
			return 0, err
		}
		bf, err := b.Float()
		if err != nil {
			return 0, err
		}
		return compareFloat(af, bf), nil
	case a.Kind() == esql.KindTimestamp && b.Kind() == esql.KindTimestamp:
		at, err := a.Time()
		if err != nil {
			return 0, err
		}
		bt, err := b.Time()
		if err != nil {
			return 0, err
		}
		return compareTime(at, bt), nil
	case a.Kind() == esql.KindUUID || b.Kind() == esql.KindUUID:
		au, err := a.UUID()
		if err != nil {
			return 0, err
		}
		bu, err := b.UUID()
		if err != nil {
			return 0, err
		}
		return strings.Compare(au.String(), bu.String()), nil
	default:
		return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String())), nil
	}
}

func isNumericKind(k esql.Kind) bool {
	return k == esql.KindInt || k == esql.KindDecimal || k == esql.KindFloat
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// CompareEqual implements three-valued equality: null compares to unknown
// against anything, including another null.
func CompareEqual(a, b esql.Value) (Tristate, error) {
	if a.IsNull() || b.IsNull() {
		return Unknown, nil
	}
	c, err := TypedCompare(a, b)
	if err != nil {
		return Unknown, err
	}
	return boolTristate(c == 0), nil
}

func CompareLess(a, b esql.Value) (Tristate, error) {
	if a.IsNull() || b.IsNull() {
		return Unknown, nil
	}
	c, err := TypedCompare(a, b)
	if err != nil {
		return Unknown, err
	}
	return boolTristate(c < 0), nil
}

func CompareGreater(a, b esql.Value) (Tristate, error) {
	if a.IsNull() || b.IsNull() {
		return Unknown, nil
	}
	c, err := TypedCompare(a, b)
	if err != nil {
		return Unknown, err
	}
	return boolTristate(c > 0), nil
}

func boolTristate(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// SortNullsLast orders two values for ClientSort's comparator (§4.4): both
// null compares equal; one null sorts after the other (nulls last,
// regardless of the descending flag — the flag only inverts the
// non-null-vs-non-null result, per §4.4's "Descending flag inverts
// per-key result" applying to the typed compare, not to null placement).
func SortNullsLast(a, b esql.Value, descending bool) (int, error) {
	aNull, bNull := a.IsNull(), b.IsNull()
	switch {
	case aNull && bNull:
		return 0, nil
	case aNull:
		return 1, nil
	case bNull:
		return -1, nil
	}
	c, err := TypedCompare(a, b)
	if err != nil {
		return 0, err
	}
	if descending {
		c = -c
	}
	return c, nil
}
