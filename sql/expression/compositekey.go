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
	"sort"

	"github.com/mitchellh/hashstructure"

	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// CompositeKey is the set-operation dedup key for Distinct/Intersect/Except
// (§4.8). The source joins column-value string forms with US/RS control
// characters; §9's Design Note offers a content-addressed alternative
// instead, so this hashes a sorted (name, string-form) tuple with
// mitchellh/hashstructure. The contract §9 asks for is equality, not
// byte-identity, which a uint64 hash satisfies for all practical row
// volumes.
type CompositeKey uint64

// ComputeCompositeKey returns row's composite key. Column order does not
// affect the result: names are sorted first so that two rows exposing the
// same columns in different orders (e.g. either side of a UNION with
// differently-ordered SELECT lists) still collide correctly.
func ComputeCompositeKey(row esql.Row) (CompositeKey, error) {
	names := row.Names()
	sort.Strings(names)
	tuple := make([]string, 0, len(names)*2)
	for _, name := range names {
		v, _ := row.Get(name)
		tuple = append(tuple, name, v.Kind().String()+":"+v.String())
	}
	h, err := hashstructure.Hash(tuple, nil)
	if err != nil {
		return 0, err
	}
	return CompositeKey(h), nil
}
