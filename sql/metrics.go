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

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the gauges/counters that instrument the concurrency model
// of §5: ParallelPartitionNode's in-flight partition count, PrefetchScan's
// queue depth, and backend page-fetch counts. A nil *Metrics disables
// instrumentation entirely; every call site nil-checks before touching it.
type Metrics struct {
	PartitionsInFlight prometheus.Gauge
	PrefetchQueueDepth prometheus.Gauge
	PagesFetched       prometheus.Counter
}

// NewMetrics registers the standard gauge/counter set under namespace
// "fetchengine" with reg, returning a Metrics ready to pass on ExecContext.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PartitionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fetchengine",
			Name:      "partitions_in_flight",
			Help:      "Number of aggregate partitions currently executing concurrently.",
		}),
		PrefetchQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fetchengine",
			Name:      "prefetch_queue_depth",
			Help:      "Number of rows buffered ahead of the consumer by PrefetchScan.",
		}),
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fetchengine",
			Name:      "pages_fetched_total",
			Help:      "Total FetchXML pages retrieved from the backend.",
		}),
	}
	for _, c := range []prometheus.Collector{m.PartitionsInFlight, m.PrefetchQueueDepth, m.PagesFetched} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IncPagesFetched increments the page-fetch counter; safe to call on a nil
// *Metrics (instrumentation is opt-in).
func (m *Metrics) IncPagesFetched() {
	if m != nil && m.PagesFetched != nil {
		m.PagesFetched.Inc()
	}
}
