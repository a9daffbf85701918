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

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds every option the planner recognizes (§6), all optional.
// Like the teacher's engine.go Config, this is a plain struct with
// documented fields rather than a builder API; yaml tags let callers load
// it from a file with LoadConfig.
type Config struct {
	// MaxRows is a hard cap on total rows emitted by a scan.
	MaxRows *int `yaml:"max_rows,omitempty"`

	// PageNumber and PagingCookie are a caller-controlled paging cursor;
	// when set, auto-paging is disabled and exactly one page is produced.
	PageNumber   *int   `yaml:"page_number,omitempty"`
	PagingCookie string `yaml:"paging_cookie,omitempty"`

	// IncludeCount asks the backend for total count alongside data.
	IncludeCount bool `yaml:"include_count,omitempty"`

	// EnablePrefetch and PrefetchBufferSize turn on PrefetchScan.
	EnablePrefetch      bool `yaml:"enable_prefetch,omitempty"`
	PrefetchBufferSize  int  `yaml:"prefetch_buffer_size,omitempty"`

	// PoolCapacity bounds concurrent backend calls in ParallelPartition.
	PoolCapacity int `yaml:"pool_capacity,omitempty"`

	// EstimatedRecordCount, MinDate, MaxDate enable aggregate
	// partitioning (§4.10).
	EstimatedRecordCount *int64     `yaml:"estimated_record_count,omitempty"`
	MinDate              *time.Time `yaml:"min_date,omitempty"`
	MaxDate              *time.Time `yaml:"max_date,omitempty"`

	// AggregateRecordLimit and MaxRecordsPerPartition are backend-specific
	// caps.
	AggregateRecordLimit  int64 `yaml:"aggregate_record_limit,omitempty"`
	MaxRecordsPerPartition int64 `yaml:"max_records_per_partition,omitempty"`

	// UseTdsEndpoint and TdsQueryExecutor enable direct-wire passthrough
	// (§4.12 step 3); the text sent is the statement's SelectAST.OriginalSQL.
	// The planner does not read OriginalSql. TdsQueryExecutor is wired by
	// the caller, not loaded from YAML.
	UseTdsEndpoint  bool   `yaml:"use_tds_endpoint,omitempty"`
	TdsQueryExecutor TdsExecutor `yaml:"-"`
	OriginalSql     string `yaml:"-"`

	// VariableScope is the scope used for @variable substitution and
	// SET/SELECT @= forms; wired by the caller, not loaded from YAML.
	VariableScope *VariableScope `yaml:"-"`

	// DmlRowCap is a per-statement cap on rows affected by DML.
	DmlRowCap int `yaml:"dml_row_cap,omitempty"`

	// PersistentTempTables and TempTableDbPath are loaded from YAML, but
	// nothing in this module reads them; a session backed by the boltdb
	// TempTableStore (sql/store) is built with NewSessionContextWithStore.
	PersistentTempTables bool   `yaml:"persistent_temp_tables,omitempty"`
	TempTableDbPath      string `yaml:"temp_table_db_path,omitempty"`
}

// DefaultAggregateRecordLimit matches the backend's default aggregate cap
// referenced by §4.10's DateRangePartitioner.
const DefaultAggregateRecordLimit int64 = 50000

// LoadConfig reads a YAML document at path into a Config (§6 "Ambient
// stack: configuration").
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.AggregateRecordLimit == 0 {
		cfg.AggregateRecordLimit = DefaultAggregateRecordLimit
	}
	return cfg, nil
}
