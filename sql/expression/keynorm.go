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

// JoinKey is the normalized form of a join-key value. It is a dedicated
// tagged variant rather than a sentinel string, per the §9 Design Note:
// "The existing implementation encodes NULL as a 4-char sentinel string.
// Implementers should use a dedicated tagged variant (Option / sum type)
// to avoid the sentinel being impersonated by data." Two JoinKeys compare
// equal (via ==) iff both Null and Canonical match, so a non-null key never
// equals the Null-tagged key; two Null-tagged keys do equal each other, and
// the join operators keep NULL keys out of their hash maps for that reason.
type JoinKey struct {
	Null      bool
	Canonical string
}

// NormalizeJoinKey implements §4.6's key normalization: uuid -> canonical
// string; numeric -> invariant-culture decimal; strings -> invariant
// uppercase; null -> JoinKey{Null: true}. HashJoin and HashSemiJoin skip
// NULL values before building their hash maps, which is what keeps a NULL
// key from matching another NULL key.
func NormalizeJoinKey(v esql.Value) JoinKey {
	if v.IsNull() {
		return JoinKey{Null: true}
	}
	switch v.Kind() {
	case esql.KindUUID:
		u, err := v.UUID()
		if err == nil {
			return JoinKey{Canonical: "u:" + u.String()}
		}
	case esql.KindInt, esql.KindDecimal, esql.KindFloat:
		f, err := v.Float()
		if err == nil {
			return JoinKey{Canonical: "n:" + formatInvariantDecimal(f)}
		}
	}
	return JoinKey{Canonical: "s:" + strings.ToUpper(v.String())}
}

func formatInvariantDecimal(f float64) string {
	// strconv's default FormatFloat with -1 precision round-trips exactly
	// and is culture-invariant (no grouping separators, '.' decimal point),
	// matching the "invariant-culture decimal" requirement of §4.6.
	return formatFloat(f)
}
