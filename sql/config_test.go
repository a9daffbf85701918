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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "engine.yaml")
	doc := `
max_rows: 500
include_count: true
enable_prefetch: true
prefetch_buffer_size: 64
pool_capacity: 4
estimated_record_count: 100000
aggregate_record_limit: 50000
dml_row_cap: 1000
persistent_temp_tables: true
temp_table_db_path: /tmp/fetchengine-temp.db
`
	require.NoError(os.WriteFile(path, []byte(doc), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(err)
	require.NotNil(cfg.MaxRows)
	require.Equal(500, *cfg.MaxRows)
	require.True(cfg.IncludeCount)
	require.True(cfg.EnablePrefetch)
	require.Equal(64, cfg.PrefetchBufferSize)
	require.Equal(4, cfg.PoolCapacity)
	require.NotNil(cfg.EstimatedRecordCount)
	require.EqualValues(100000, *cfg.EstimatedRecordCount)
	require.EqualValues(50000, cfg.AggregateRecordLimit)
	require.Equal(1000, cfg.DmlRowCap)
	require.True(cfg.PersistentTempTables)
}

func TestLoadConfigDefaultsAggregateLimit(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(os.WriteFile(path, []byte("max_rows: 10\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(err)
	require.Equal(DefaultAggregateRecordLimit, cfg.AggregateRecordLimit)
}
