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

package engine

import (
	"strings"

	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vterrors"
)

// Cursor is a forward-only row stream returned by one shard. It is
// positioned before the first row; Next must return true before Value
// can be called. All cursors handed to one merge share the same columns.
type Cursor interface {
	// Fields returns the columns of the stream.
	Fields() []*sqltypes.Field
	// Next moves to the next row. It returns false once the stream is exhausted.
	Next() (bool, error)
	// Value returns column col of the current row.
	Value(col int) (sqltypes.Value, error)
}

// MergedResult is the single logical stream produced by merging shard
// cursors. It can itself be consumed as a Cursor.
type MergedResult interface {
	Cursor

	// ValueByLabel returns the column of the current row whose name
	// matches label, ignoring case.
	ValueByLabel(label string) (sqltypes.Value, error)

	description() PlanDescription
	inputs() []MergedResult
}

// readRow materializes the first n columns of the cursor's current row.
func readRow(c Cursor, n int) (sqltypes.Row, error) {
	row := make(sqltypes.Row, n)
	for i := 0; i < n; i++ {
		v, err := c.Value(i)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// rowValue returns column col of a materialized row, or an error when
// there is no current row or col is out of range.
func rowValue(row sqltypes.Row, col int) (sqltypes.Value, error) {
	if row == nil {
		return sqltypes.NULL, vterrors.NewErrorf(codes.FailedPrecondition, vterrors.NoCurrentRow, "no current row: Next must return true before reading values")
	}
	if col < 0 || col >= len(row) {
		return sqltypes.NULL, columnOutOfRange(col, len(row))
	}
	return row[col], nil
}

func columnOutOfRange(col, columns int) error {
	return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadFieldError, "column index %d out of range [0, %d)", col, columns)
}

// columnIndex resolves a column label against fields, ignoring case.
// The first matching column wins.
func columnIndex(fields []*sqltypes.Field, label string) (int, error) {
	for i, f := range fields {
		if strings.EqualFold(f.Name, label) {
			return i, nil
		}
	}
	return -1, vterrors.NewErrorf(codes.InvalidArgument, vterrors.UnknownColumnLabel, "unknown column label '%s'", label)
}

// valueByLabel implements MergedResult.ValueByLabel on top of Value.
func valueByLabel(mr MergedResult, label string) (sqltypes.Value, error) {
	col, err := columnIndex(mr.Fields(), label)
	if err != nil {
		return sqltypes.NULL, err
	}
	return mr.Value(col)
}
