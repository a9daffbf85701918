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

// Package plan implements the physical operator algebra of §4: the
// terminal scans, the client-side row transforms, the three join
// strategies, set operations, aggregate merge, parallel partitioning,
// recursive CTEs, and script/control-flow nodes. Every node satisfies
// sql.Node directly; there is no separate "rowexec" builder step — RowIter
// is a method on the node itself, matching the architecture pinned by the
// teacher's own (pre-split) go.mod module path.
package plan

import (
	esql "github.com/joshsmithxrm/fetchengine/sql"
)

// FetchXmlScan is the terminal operator that drives the backend's paging
// loop (§4.1). If InitialPagingCookie is set, auto-paging is disabled and
// exactly one page is produced; otherwise it pages until the backend stops
// signalling more records or MaxRows is reached.
type FetchXmlScan struct {
	FetchXml            string
	Entity              string
	MaxRows             *int
	InitialPageNumber   *int
	InitialPagingCookie string
	IncludeCount        bool

	schema esql.Schema
}

func NewFetchXmlScan(fetchxml, entity string, maxRows *int, schema esql.Schema) *FetchXmlScan {
	return &FetchXmlScan{FetchXml: fetchxml, Entity: entity, MaxRows: maxRows, schema: schema}
}

func (s *FetchXmlScan) Describe() string {
	return "FetchXmlScan(" + s.Entity + ")"
}

func (s *FetchXmlScan) EstimatedRows() int64 {
	if s.MaxRows != nil {
		return int64(*s.MaxRows)
	}
	return esql.UnknownRowCount
}

func (s *FetchXmlScan) Children() []esql.Node { return nil }

func (s *FetchXmlScan) RowIter(ctx *esql.ExecContext, _ esql.Row) (esql.RowIter, error) {
	if ctx.Executor == nil {
		return nil, esql.ErrPlan.New("FetchXmlScan requires a backend executor")
	}
	return newPagingIter(ctx.Executor, s.FetchXml, s.MaxRows, s.InitialPageNumber, s.InitialPagingCookie, s.IncludeCount), nil
}

// pagingIter implements the §4.1 paging loop shared by FetchXmlScan and
// RemoteScan: yield every row of the current page, then — if the backend
// reports more records, no cap has been reached, and the caller did not
// pin an initial cursor — request the next page.
type pagingIter struct {
	executor     esql.BackendExecutor
	fetchxml     string
	maxRows      *int
	pinnedCursor bool
	includeCount bool

	pageRows     []esql.Row
	pagePos      int
	cookie       string
	emitted      int
	moreRecords  bool
	started      bool
	done         bool
}

func newPagingIter(executor esql.BackendExecutor, fetchxml string, maxRows, initialPage *int, initialCookie string, includeCount bool) *pagingIter {
	return &pagingIter{
		executor:     executor,
		fetchxml:     fetchxml,
		maxRows:      maxRows,
		cookie:       initialCookie,
		pinnedCursor: initialCookie != "" || initialPage != nil,
		includeCount: includeCount,
	}
}

func (p *pagingIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	for {
		if err := ctx.CheckCancelled(); err != nil {
			return esql.Row{}, err
		}
		if p.pagePos < len(p.pageRows) {
			if p.maxRows != nil && p.emitted >= *p.maxRows {
				return esql.Row{}, esql.EOF
			}
			row := p.pageRows[p.pagePos]
			p.pagePos++
			p.emitted++
			return row, nil
		}
		if p.done {
			return esql.Row{}, esql.EOF
		}
		if p.started && (p.pinnedCursor || !p.moreRecords) {
			p.done = true
			return esql.Row{}, esql.EOF
		}
		if err := p.fetchNextPage(ctx); err != nil {
			return esql.Row{}, err
		}
	}
}

func (p *pagingIter) fetchNextPage(ctx *esql.ExecContext) error {
	span, finish := ctx.StartSpan("fetchxmlscan.page")
	defer finish()
	_ = span

	var remaining *int
	if p.maxRows != nil {
		r := *p.maxRows - p.emitted
		if r <= 0 {
			p.done = true
			return nil
		}
		remaining = &r
	}

	res, err := p.executor.ExecuteFetchXml(ctx.Context, p.fetchxml, remaining, p.cookie, p.includeCount)
	if err != nil {
		return esql.ErrExecution.New("fetchxml", err.Error())
	}
	ctx.Metrics.IncPagesFetched()
	p.pageRows = res.Rows
	p.pagePos = 0
	p.moreRecords = res.MoreRecords
	p.cookie = res.PagingCookie
	p.started = true
	return nil
}

func (p *pagingIter) Close(ctx *esql.ExecContext) error { return nil }
