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

import esql "github.com/joshsmithxrm/fetchengine/sql"

// PrefetchScan spawns a concurrent task reading up to N rows ahead of its
// consumer into a bounded queue (§4.1), used when the consumer is slower
// than the backend.
type PrefetchScan struct {
	UnaryNodeHolder
	BufferSize int
}

func NewPrefetchScan(child esql.Node, bufferSize int) *PrefetchScan {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &PrefetchScan{UnaryNodeHolder: UnaryNodeHolder{Child: child}, BufferSize: bufferSize}
}

func (s *PrefetchScan) Describe() string { return "PrefetchScan" }

func (s *PrefetchScan) EstimatedRows() int64 { return s.Child.EstimatedRows() }

type prefetchMsg struct {
	row esql.Row
	err error
}

func (s *PrefetchScan) RowIter(ctx *esql.ExecContext, row esql.Row) (esql.RowIter, error) {
	childIter, err := s.Child.RowIter(ctx, row)
	if err != nil {
		return nil, err
	}
	_, finish := ctx.StartSpan("prefetchscan")
	queue := make(chan prefetchMsg, s.BufferSize)
	done := make(chan struct{})
	go func() {
		defer close(queue)
		defer finish()
		for {
			select {
			case <-done:
				return
			default:
			}
			r, err := childIter.Next(ctx)
			if ctx.Metrics != nil && ctx.Metrics.PrefetchQueueDepth != nil {
				ctx.Metrics.PrefetchQueueDepth.Set(float64(len(queue)))
			}
			if err == esql.EOF {
				return
			}
			select {
			case queue <- prefetchMsg{row: r, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return &prefetchIter{child: childIter, queue: queue, done: done}, nil
}

type prefetchIter struct {
	child esql.RowIter
	queue chan prefetchMsg
	done  chan struct{}
	closed bool
}

func (p *prefetchIter) Next(ctx *esql.ExecContext) (esql.Row, error) {
	if err := ctx.CheckCancelled(); err != nil {
		return esql.Row{}, err
	}
	msg, ok := <-p.queue
	if !ok {
		return esql.Row{}, esql.EOF
	}
	return msg.row, msg.err
}

func (p *prefetchIter) Close(ctx *esql.ExecContext) error {
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	return p.child.Close(ctx)
}

// UnaryNodeHolder embeds a single child the way sql.UnaryNode does, but
// with the field exported through an accessor so sql/plan's unary wrappers
// can share one Children() implementation without sql.UnaryNode's Child
// field colliding with a wrapper's own field of the same name.
type UnaryNodeHolder struct {
	Child esql.Node
}

func (u UnaryNodeHolder) Children() []esql.Node { return []esql.Node{u.Child} }
