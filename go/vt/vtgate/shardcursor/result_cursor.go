/*
Copyright 2023 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package shardcursor provides the engine.Cursor implementations that
// feed shard results into a merge: buffered results, streaming
// database/sql rows, and the scatter call that opens one stream per shard.
package shardcursor

import (
	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vterrors"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
)

var _ engine.Cursor = (*ResultCursor)(nil)

// ResultCursor is a cursor over a fully buffered shard result.
type ResultCursor struct {
	result *sqltypes.Result
	pos    int
}

// NewResultCursor returns a cursor positioned before the first row of result.
func NewResultCursor(result *sqltypes.Result) *ResultCursor {
	return &ResultCursor{result: result, pos: -1}
}

// Fields implements the engine.Cursor interface.
func (rc *ResultCursor) Fields() []*sqltypes.Field {
	return rc.result.Fields
}

// Next implements the engine.Cursor interface.
func (rc *ResultCursor) Next() (bool, error) {
	if rc.pos+1 >= len(rc.result.Rows) {
		rc.pos = len(rc.result.Rows)
		return false, nil
	}
	rc.pos++
	return true, nil
}

// Value implements the engine.Cursor interface.
func (rc *ResultCursor) Value(col int) (sqltypes.Value, error) {
	if rc.pos < 0 || rc.pos >= len(rc.result.Rows) {
		return sqltypes.NULL, errNoCurrentRow()
	}
	return columnValue(rc.result.Rows[rc.pos], col)
}

func columnValue(row sqltypes.Row, col int) (sqltypes.Value, error) {
	if col < 0 || col >= len(row) {
		return sqltypes.NULL, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadFieldError, "column index %d out of range [0, %d)", col, len(row))
	}
	return row[col], nil
}

func errNoCurrentRow() error {
	return vterrors.NewErrorf(codes.FailedPrecondition, vterrors.NoCurrentRow, "no current row: Next must return true before reading values")
}
