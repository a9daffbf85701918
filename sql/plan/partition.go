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
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// DateRange is one [Start, End) sub-range produced by DateRangePartitioner.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DateRangePartitioner splits [minDate, maxDate] into contiguous sub-ranges
// sized so each is expected to hold at most maxRecordsPerPartition rows,
// given an estimate of the total row count across the whole range (§4.10).
// The partition count is never less than 1 and never more than the whole
// range would need if evenly distributed.
func DateRangePartitioner(minDate, maxDate time.Time, estimatedTotalRows int64, maxRecordsPerPartition int64) []DateRange {
	if maxRecordsPerPartition <= 0 {
		maxRecordsPerPartition = 1
	}
	if !maxDate.After(minDate) {
		return []DateRange{{Start: minDate, End: maxDate.Add(time.Second)}}
	}
	k := int64(1)
	if estimatedTotalRows > maxRecordsPerPartition {
		k = (estimatedTotalRows + maxRecordsPerPartition - 1) / maxRecordsPerPartition
	}
	total := maxDate.Sub(minDate)
	step := total / time.Duration(k)
	if step <= 0 {
		step = time.Second
	}
	ranges := make([]DateRange, 0, k)
	cursor := minDate
	for i := int64(0); i < k; i++ {
		end := cursor.Add(step)
		if i == k-1 || end.After(maxDate) {
			end = maxDate
		}
		ranges = append(ranges, DateRange{Start: cursor, End: end})
		cursor = end
	}
	return ranges
}

var entityCloseTag = regexp.MustCompile(`</entity>`)
var aggregateAttrTag = regexp.MustCompile(`<attribute\s+name="([^"]+)"\s+aggregate="avg"([^>]*)/>`)

// BuildPartitionFetchXml enriches baseFetchXml with a createdon (or any
// date field) range filter for one partition and, for every avg-aggregate
// attribute, a companion countcolumn attribute (§4.10 "AdaptiveAggregateScan
// ... enriched with a createdon ∈ [start, end) filter and, for any AVG
// column, a companion countcolumn aggregate").
func BuildPartitionFetchXml(baseFetchXml, dateField string, r DateRange) string {
	filter := fmt.Sprintf(
		`<filter type="and"><condition attribute="%s" operator="ge" value="%s" /><condition attribute="%s" operator="lt" value="%s" /></filter></entity>`,
		dateField, r.Start.UTC().Format(time.RFC3339), dateField, r.End.UTC().Format(time.RFC3339))
	out := entityCloseTag.ReplaceAllString(baseFetchXml, filter)
	out = aggregateAttrTag.ReplaceAllStringFunc(out, func(match string) string {
		groups := aggregateAttrTag.FindStringSubmatch(match)
		name := groups[1]
		companion := fmt.Sprintf(`<attribute name="%s" aggregate="countcolumn" alias="%s_count" />`, name, name)
		if strings.Contains(out, companion) {
			return match
		}
		return match + companion
	})
	return out
}

// NewAdaptiveAggregateScan builds the FetchXmlScan for one partition,
// enriched per BuildPartitionFetchXml (§4.10).
func NewAdaptiveAggregateScan(baseFetchXml, entity, dateField string, r DateRange, maxRows *int, schema esql.Schema) *FetchXmlScan {
	enriched := BuildPartitionFetchXml(baseFetchXml, dateField, r)
	return NewFetchXmlScan(enriched, entity, maxRows, schema)
}

// ParallelPartitionNode executes its child partitions concurrently, bounded
// by poolCapacity, and yields rows as each partition completes (§4.10). Row
// order across partitions is not preserved; MergeAggregate downstream is
// insensitive to partition order.
type ParallelPartitionNode struct {
	Partitions   []esql.Node
	PoolCapacity int
}

func NewParallelPartitionNode(partitions []esql.Node, poolCapacity int) *ParallelPartitionNode {
	if poolCapacity <= 0 {
		poolCapacity = 1
	}
	return &ParallelPartitionNode{Partitions: partitions, PoolCapacity: poolCapacity}
}

func (p *ParallelPartitionNode) Describe() string { return "ParallelPartitionNode" }

func (p *ParallelPartitionNode) EstimatedRows() int64 {
	var total int64
	for _, c := range p.Partitions {
		n := c.EstimatedRows()
		if n < 0 {
			return esql.UnknownRowCount
		}
		total += n
	}
	return total
}

func (p *ParallelPartitionNode) Children() []esql.Node { return p.Partitions }

type partitionMsg struct {
	row esql.Row
	err error
}

func (p *ParallelPartitionNode) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	span, finish := ctx.StartSpan("parallelpartition")
	_ = span
	queue := make(chan partitionMsg, p.PoolCapacity)
	done := make(chan struct{})
	sem := make(chan struct{}, p.PoolCapacity)
	var wg sync.WaitGroup

	for _, part := range p.Partitions {
		part := part
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-done:
				return
			}
			defer func() { <-sem }()

			iter, err := part.RowIter(ctx, row)
			if err != nil {
				select {
				case queue <- partitionMsg{err: err}:
				case <-done:
				}
				return
			}
			defer iter.Close(ctx)
			for {
				r, err := iter.Next(ctx)
				if err == esql.EOF {
					return
				}
				select {
				case queue <- partitionMsg{row: r, err: err}:
				case <-done:
					return
				}
				if err != nil {
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(queue)
		finish()
	}()

	return &parallelPartitionIter{queue: queue, done: done}, nil
}

type parallelPartitionIter struct {
	queue  chan partitionMsg
	done   chan struct{}
	closed bool
}

func (it *parallelPartitionIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return esql.Row{}, err
	}
	msg, ok := <-it.queue
	if !ok {
		return esql.Row{}, esql.EOF
	}
	return msg.row, msg.err
}

func (it *parallelPartitionIter) Close(ctx *esql.ExecContext) error {
	if !it.closed {
		it.closed = true
		close(it.done)
	}
	return nil
}
