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

import "context"

// FetchResult is the backend's answer to one execute_fetchxml call (§6).
type FetchResult struct {
	Columns      []string
	Rows         []Row
	Count        *int64 // present only when IncludeCount was requested
	MoreRecords  bool
	PagingCookie string // opaque; pass back unchanged to fetch the next page
}

// BackendExecutor is the required capability of §6's "Backend executor":
// execute_fetchxml(fetchxml, max_rows?, paging_cookie?, include_count,
// cancel) -> {columns, rows, count?, more_records, paging_cookie?}.
// RemoteScan uses a second BackendExecutor pointed at an alternate target
// instance; it is otherwise identical to FetchXmlScan's backend.
type BackendExecutor interface {
	ExecuteFetchXml(ctx context.Context, fetchxml string, maxRows *int, pagingCookie string, includeCount bool) (*FetchResult, error)
}

// TdsExecutor is the optional "direct-wire executor" used by TdsScan:
// execute_sql(sql, cancel) -> rows (§6).
type TdsExecutor interface {
	ExecuteSql(ctx context.Context, sql string) ([]Row, error)
}

// MetadataExecutor backs MetadataScan (§4.1): a narrow read path over a
// metadata.* table, independent of FetchXML paging.
type MetadataExecutor interface {
	QueryMetadata(ctx context.Context, table string, columns []string) ([]Row, error)
}
