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

package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	esql "github.com/joshsmithxrm/fetchengine/sql"
	"github.com/joshsmithxrm/fetchengine/sql/plan"
)

// pagingBackend serves a fixed page sequence, asserting the opaque cookie
// comes back unchanged between pages (§6).
type pagingBackend struct {
	t       *testing.T
	pages   []*esql.FetchResult
	calls   int
	cookies []string
}

func (b *pagingBackend) ExecuteFetchXml(_ context.Context, _ string, _ *int, cookie string, _ bool) (*esql.FetchResult, error) {
	b.cookies = append(b.cookies, cookie)
	if b.calls >= len(b.pages) {
		b.t.Fatal("backend called past the last page")
	}
	res := b.pages[b.calls]
	b.calls++
	return res, nil
}

func page(cookie string, more bool, ns ...int64) *esql.FetchResult {
	return &esql.FetchResult{Rows: intRows(ns...), MoreRecords: more, PagingCookie: cookie}
}

func TestFetchXmlScanAutoPages(t *testing.T) {
	require := require.New(t)

	backend := &pagingBackend{t: t, pages: []*esql.FetchResult{
		page("c1", true, 1, 2),
		page("c2", true, 3, 4),
		page("", false, 5),
	}}
	ctx := esql.NewExecContext(context.Background(), backend)

	s := plan.NewFetchXmlScan("<fetch/>", "account", nil, nil)
	iter, err := s.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)

	require.Equal([]string{"1", "2", "3", "4", "5"}, namesOf(out, "n"))
	require.Equal(3, backend.calls)
	// Cookie from each page is passed back verbatim on the next request.
	require.Equal([]string{"", "c1", "c2"}, backend.cookies)
}

func TestFetchXmlScanMaxRowsCapsOutput(t *testing.T) {
	require := require.New(t)

	backend := &pagingBackend{t: t, pages: []*esql.FetchResult{
		page("c1", true, 1, 2, 3),
		page("", true, 4, 5, 6),
	}}
	ctx := esql.NewExecContext(context.Background(), backend)

	cap := 4
	s := plan.NewFetchXmlScan("<fetch/>", "account", &cap, nil)
	iter, err := s.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)

	require.Len(out, 4)
	require.EqualValues(4, s.EstimatedRows())
}

func TestFetchXmlScanPinnedCursorDisablesAutoPaging(t *testing.T) {
	require := require.New(t)

	backend := &pagingBackend{t: t, pages: []*esql.FetchResult{
		page("next", true, 1, 2),
	}}
	ctx := esql.NewExecContext(context.Background(), backend)

	s := plan.NewFetchXmlScan("<fetch/>", "account", nil, nil)
	s.InitialPagingCookie = "resume-here"
	iter, err := s.RowIter(ctx, esql.NewRow())
	require.NoError(err)
	out, err := esql.Drain(ctx, iter)
	require.NoError(err)

	// Exactly one page, even though the backend reported more records.
	require.Len(out, 2)
	require.Equal(1, backend.calls)
	require.Equal([]string{"resume-here"}, backend.cookies)
}

func TestFetchXmlScanCancellation(t *testing.T) {
	require := require.New(t)

	backend := &pagingBackend{t: t, pages: []*esql.FetchResult{
		page("c1", true, 1, 2),
	}}
	cancelCtx, cancel := context.WithCancel(context.Background())
	ctx := esql.NewExecContext(cancelCtx, backend)

	s := plan.NewFetchXmlScan("<fetch/>", "account", nil, nil)
	iter, err := s.RowIter(ctx, esql.NewRow())
	require.NoError(err)

	_, err = iter.Next(ctx)
	require.NoError(err)
	cancel()
	_, err = iter.Next(ctx)
	require.True(esql.IsCancelled(err))
}
