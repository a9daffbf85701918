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
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/spf13/cast"
)

// Kind is the tag of a Value's underlying representation.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindDecimal
	KindFloat
	KindBool
	KindUUID
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindUUID:
		return "uuid"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is the tagged-union runtime representation of a column value,
// per the data model in §3: null, string, integer, decimal, floating-point,
// boolean, uuid, timestamp. Nulls propagate per three-valued logic; callers
// compare and combine Values through the helpers in this file rather than
// switching on Kind themselves wherever possible.
type Value struct {
	kind Kind
	s    string
	i    int64
	d    string // decimal kept as its canonical string form to avoid float drift
	f    float64
	b    bool
	u    uuid.UUID
	t    time.Time
}

// Null is the singular null Value.
var Null = Value{kind: KindNull}

func NewString(v string) Value    { return Value{kind: KindString, s: v} }
func NewInt(v int64) Value        { return Value{kind: KindInt, i: v} }
func NewDecimal(v string) Value   { return Value{kind: KindDecimal, d: v} }
func NewFloat(v float64) Value    { return Value{kind: KindFloat, f: v} }
func NewBool(v bool) Value        { return Value{kind: KindBool, b: v} }
func NewUUID(v uuid.UUID) Value   { return Value{kind: KindUUID, u: v} }
func NewTimestamp(v time.Time) Value { return Value{kind: KindTimestamp, t: v} }

// NewUUIDFromString parses s into a canonical UUID Value. An invalid string
// yields an error, not a null Value — callers that want null-on-error should
// check the input themselves.
func NewUUIDFromString(s string) (Value, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return Value{}, errors.Wrapf(err, "invalid uuid %q", s)
	}
	return NewUUID(id), nil
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindString:
		return v.s
	case KindInt:
		return cast.ToString(v.i)
	case KindDecimal:
		return v.d
	case KindFloat:
		return cast.ToString(v.f)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindUUID:
		return v.u.String()
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Int coerces the value to int64 using spf13/cast, following the usual
// numeric-string coercion rules. Returns an error for non-numeric strings
// or null.
func (v Value) Int() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		return int64(v.f), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		return cast.ToInt64E(v.s)
	case KindDecimal:
		return cast.ToInt64E(v.d)
	case KindNull:
		return 0, errNullCoercion
	default:
		return 0, fmt.Errorf("cannot coerce %s to int", v.kind)
	}
}

// Float coerces the value to float64.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	case KindDecimal:
		return cast.ToFloat64E(v.d)
	case KindString:
		return cast.ToFloat64E(v.s)
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindNull:
		return 0, errNullCoercion
	default:
		return 0, fmt.Errorf("cannot coerce %s to float", v.kind)
	}
}

// Bool coerces the value to bool.
func (v Value) Bool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i != 0, nil
	case KindString:
		return cast.ToBoolE(v.s)
	case KindNull:
		return false, errNullCoercion
	default:
		return false, fmt.Errorf("cannot coerce %s to bool", v.kind)
	}
}

// Time returns the timestamp form of the value.
func (v Value) Time() (time.Time, error) {
	switch v.kind {
	case KindTimestamp:
		return v.t, nil
	case KindString:
		return cast.ToTimeE(v.s)
	case KindNull:
		return time.Time{}, errNullCoercion
	default:
		return time.Time{}, fmt.Errorf("cannot coerce %s to timestamp", v.kind)
	}
}

func (v Value) UUID() (uuid.UUID, error) {
	switch v.kind {
	case KindUUID:
		return v.u, nil
	case KindString:
		return uuid.FromString(v.s)
	default:
		return uuid.UUID{}, fmt.Errorf("cannot coerce %s to uuid", v.kind)
	}
}

func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindDecimal || v.kind == KindFloat
}

// caseFoldKey returns the case-folded comparison key used for case-insensitive
// column name lookups (§3: "Column name lookup is case-insensitive").
func caseFoldKey(name string) string {
	return strings.ToLower(name)
}

var errNullCoercion = fmt.Errorf("cannot coerce null value")
