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

// Package estimator implements the cardinality heuristics of §4.13: the
// planner consults it while still working with the AST (before a Node
// exists, to decide a FetchXmlScan's starting estimate and whether
// aggregate partitioning applies). Each plan.Node computes its own
// EstimatedRows() separately, and most apply the same per-operator rule
// named here. Two do not: FetchXmlScan.EstimatedRows() returns MaxRows when
// set and unknown otherwise (it uses neither entity counts nor
// DefaultEntityRowCount), and NestedLoopJoin.EstimatedRows() returns the
// left input's estimate unchanged.
package estimator

import "math"

// DefaultEntityRowCount is the fallback cardinality for a FetchXmlScan
// whose entity has no recorded count and no row cap (§4.13: "else default
// (10 000)").
const DefaultEntityRowCount int64 = 10000

// Selectivity constants published by §4.13 for callers composing compound
// predicates (the planner, when deciding whether a WHERE clause is
// selective enough to skip partitioning, or when ranking join order).
const (
	SelectivityEquality Selectivity = 0.10
	SelectivityRange     Selectivity = 0.33
	SelectivityLike      Selectivity = 0.25
	SelectivityIsNull    Selectivity = 0.05
	SelectivityNotEqual  Selectivity = 0.90
)

// Selectivity is a fraction in [0, 1] of rows a predicate is expected to
// retain.
type Selectivity float64

// Apply clamps the result of applying s to input at a minimum of 1 row,
// matching every plan.Node's own "clamp >= 1" rule (ClientFilter, joins).
func (s Selectivity) Apply(input int64) int64 {
	if input < 0 {
		return -1
	}
	est := int64(float64(input) * float64(s))
	if est < 1 {
		est = 1
	}
	return est
}

// CombineAnd composes the selectivity of two independent AND-ed predicates
// by multiplying — the standard independence assumption this estimator
// makes throughout.
func CombineAnd(a, b Selectivity) Selectivity { return a * b }

// CombineOr composes two independent OR-ed predicates' selectivity via
// inclusion-exclusion, clamped to 1.
func CombineOr(a, b Selectivity) Selectivity {
	c := Selectivity(float64(a) + float64(b) - float64(a)*float64(b))
	if c > 1 {
		c = 1
	}
	return c
}

// EntityRecordCounts maps an entity logical name to a known approximate
// total row count, supplied by the caller (e.g. from prior metadata calls
// or a cached statistics table); absent entries fall back to
// DefaultEntityRowCount.
type EntityRecordCounts map[string]int64

// ScanEstimate computes the planner's starting cardinality for a
// FetchXmlScan over entity (§4.13 FetchXmlScan row): maxRows if the caller
// supplied a row cap, else the known count for entity, else the default.
func ScanEstimate(entity string, maxRows *int, counts EntityRecordCounts) int64 {
	if maxRows != nil {
		return int64(*maxRows)
	}
	if counts != nil {
		if n, ok := counts[entity]; ok {
			return n
		}
	}
	return DefaultEntityRowCount
}

// CrossJoinEstimate is the NestedLoopJoin cross-product cardinality (§4.13:
// "NL cross = l * r"), unknown-propagating.
func CrossJoinEstimate(left, right int64) int64 {
	if left < 0 || right < 0 {
		return -1
	}
	return left * right
}

// EquiJoinEstimate is the shared HashJoin/MergeJoin/equi-NestedLoopJoin
// cardinality rule (§4.13: "l * r * 0.10; clamp >= 1").
func EquiJoinEstimate(left, right int64) int64 {
	if left < 0 || right < 0 {
		return -1
	}
	est := int64(float64(left) * float64(right) * float64(SelectivityEquality))
	if est < 1 {
		est = 1
	}
	return est
}

// MergeAggregateEstimate applies §4.13's MergeAggregate rule: ceil(sqrt
// (input)) when the query groups, else 1 (a single ungrouped aggregate
// row).
func MergeAggregateEstimate(input int64, grouped bool) int64 {
	if !grouped {
		return 1
	}
	if input < 0 {
		return -1
	}
	return int64(math.Ceil(math.Sqrt(float64(input))))
}

// SumEstimate is the Concatenate/ParallelPartition rule: sum of children,
// unknown if any child is unknown (§4.13).
func SumEstimate(children ...int64) int64 {
	var total int64
	for _, c := range children {
		if c < 0 {
			return -1
		}
		total += c
	}
	return total
}

// DistinctEstimate applies §4.13's Distinct rule: input * 0.80.
func DistinctEstimate(input int64) int64 {
	if input < 0 {
		return -1
	}
	est := int64(float64(input) * 0.80)
	if est < 1 {
		est = 1
	}
	return est
}

// Fallback is §4.13's "Other" rule: the first child's estimate, or
// DefaultEntityRowCount if there is no child to ask.
func Fallback(childEstimate int64, hasChild bool) int64 {
	if hasChild {
		return childEstimate
	}
	return DefaultEntityRowCount
}

// ShouldPartition decides whether the planner should emit
// ParallelPartitionNode + DateRangePartitioner for an aggregate query
// (§4.10 "When to partition"): aggregates present, a pool capacity > 1, an
// available row estimate exceeding the backend's aggregate limit, a date
// range supplied, and no COUNT(DISTINCT ...) in the query (not linearly
// mergeable across partitions).
func ShouldPartition(hasAggregates bool, poolCapacity int, estimatedRows int64, aggregateLimit int64, hasDateRange bool, hasCountDistinct bool) bool {
	if !hasAggregates || hasCountDistinct || !hasDateRange {
		return false
	}
	if poolCapacity <= 1 {
		return false
	}
	if estimatedRows < 0 {
		return false
	}
	return estimatedRows > aggregateLimit
}
