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

// Package store provides a persistent sql.TempTableStore backed by boltdb,
// installed with sql.NewSessionContextWithStore. "#temp" tables written
// here survive process restarts; the in-memory default in sql/session.go
// remains the usual choice for one-shot sessions.
package store

import (
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	msgpack "gopkg.in/vmihailenco/msgpack.v2"

	esql "github.com/joshsmithxrm/fetchengine/sql"
)

var (
	schemaKey  = []byte("schema")
	rowsBucket = []byte("rows")
)

// BoltTempTableStore implements sql.TempTableStore over a single bolt
// database file. Each temp table is a top-level bucket keyed by its "#"
// name, holding a msgpack-encoded schema under "schema" and a "rows"
// sub-bucket with big-endian sequence keys so iteration preserves insert
// order.
type BoltTempTableStore struct {
	db *bolt.DB
}

// Open opens (creating if needed) the bolt database at path.
func Open(path string) (*BoltTempTableStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open temp table store %s", path)
	}
	return &BoltTempTableStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltTempTableStore) Close() error { return s.db.Close() }

func (s *BoltTempTableStore) Create(name string, columns esql.Schema) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) != nil {
			return esql.ErrPlan.New("temp table " + name + " already exists")
		}
		b, err := tx.CreateBucket([]byte(name))
		if err != nil {
			return errors.Wrap(err, "create temp table bucket")
		}
		enc, err := msgpack.Marshal(encodeSchema(columns))
		if err != nil {
			return errors.Wrap(err, "encode temp table schema")
		}
		if err := b.Put(schemaKey, enc); err != nil {
			return err
		}
		_, err = b.CreateBucket(rowsBucket)
		return err
	})
}

func (s *BoltTempTableStore) Insert(name string, rows []esql.Row) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return esql.ErrPlan.New("temp table " + name + " does not exist")
		}
		rb := b.Bucket(rowsBucket)
		for _, row := range rows {
			seq, err := rb.NextSequence()
			if err != nil {
				return err
			}
			var key [8]byte
			binary.BigEndian.PutUint64(key[:], seq)
			enc, err := msgpack.Marshal(encodeRow(row))
			if err != nil {
				return errors.Wrap(err, "encode temp table row")
			}
			if err := rb.Put(key[:], enc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltTempTableStore) Rows(name string) ([]esql.Row, error) {
	var out []esql.Row
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return esql.ErrPlan.New("temp table " + name + " does not exist")
		}
		return b.Bucket(rowsBucket).ForEach(func(_, v []byte) error {
			var cells []encodedCell
			if err := msgpack.Unmarshal(v, &cells); err != nil {
				return errors.Wrap(err, "decode temp table row")
			}
			row, err := decodeRow(cells)
			if err != nil {
				return err
			}
			out = append(out, row)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltTempTableStore) Exists(name string) bool {
	exists := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(name)) != nil
		return nil
	})
	return exists
}

func (s *BoltTempTableStore) Drop(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return esql.ErrPlan.New("temp table " + name + " does not exist")
		}
		return tx.DeleteBucket([]byte(name))
	})
}

var _ esql.TempTableStore = (*BoltTempTableStore)(nil)

// encodedCell is the wire form of one row cell: kind tag plus the value's
// canonical string rendering, which every Value kind round-trips through
// losslessly (decimal stays its exact string; timestamps use RFC3339Nano).
type encodedCell struct {
	Name   string `msgpack:"n"`
	Entity string `msgpack:"e"`
	Kind   int    `msgpack:"k"`
	Raw    string `msgpack:"v"`
}

type encodedColumn struct {
	Name   string `msgpack:"n"`
	Entity string `msgpack:"e"`
}

func encodeSchema(columns esql.Schema) []encodedColumn {
	out := make([]encodedColumn, len(columns))
	for i, c := range columns {
		out[i] = encodedColumn{Name: c.Name, Entity: c.Entity}
	}
	return out
}

func encodeRow(row esql.Row) []encodedCell {
	names := row.Names()
	out := make([]encodedCell, 0, len(names))
	for _, name := range names {
		v, _ := row.Get(name)
		entity, _ := row.Entity(name)
		cell := encodedCell{Name: name, Entity: entity, Kind: int(v.Kind())}
		if !v.IsNull() {
			cell.Raw = v.String()
		}
		out = append(out, cell)
	}
	return out
}

func decodeRow(cells []encodedCell) (esql.Row, error) {
	row := esql.NewRow()
	for _, c := range cells {
		v, err := decodeValue(esql.Kind(c.Kind), c.Raw)
		if err != nil {
			return esql.Row{}, err
		}
		row.Set(c.Name, c.Entity, v)
	}
	return row, nil
}

func decodeValue(kind esql.Kind, raw string) (esql.Value, error) {
	switch kind {
	case esql.KindNull:
		return esql.Null, nil
	case esql.KindString:
		return esql.NewString(raw), nil
	case esql.KindInt:
		n, err := esql.NewString(raw).Int()
		if err != nil {
			return esql.Value{}, errors.Wrapf(err, "decode int %q", raw)
		}
		return esql.NewInt(n), nil
	case esql.KindDecimal:
		return esql.NewDecimal(raw), nil
	case esql.KindFloat:
		f, err := esql.NewString(raw).Float()
		if err != nil {
			return esql.Value{}, errors.Wrapf(err, "decode float %q", raw)
		}
		return esql.NewFloat(f), nil
	case esql.KindBool:
		return esql.NewBool(raw == "true"), nil
	case esql.KindUUID:
		return esql.NewUUIDFromString(raw)
	case esql.KindTimestamp:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return esql.Value{}, errors.Wrapf(err, "decode timestamp %q", raw)
		}
		return esql.NewTimestamp(t), nil
	default:
		return esql.Value{}, esql.ErrInvariantViolation.New("unknown value kind in temp table store")
	}
}
