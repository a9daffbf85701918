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

import "github.com/opentracing/opentracing-go"

// StartSpan starts a span named operationName if ctx carries a
// Tracer, wrapping the suspension points named in §5 ("any backend call in
// a scan, and any enqueue/dequeue in PrefetchScan or ParallelPartition").
// The returned finish func is always safe to call, even with no tracer.
func (ctx *ExecContext) StartSpan(operationName string) (opentracing.Span, func()) {
	if ctx.Tracer == nil {
		return nil, func() {}
	}
	span := ctx.Tracer.StartSpan(operationName)
	return span, span.Finish
}
