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
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/test/utils"
)

func TestMain(m *testing.M) {
	exitCode := m.Run()
	if exitCode == 0 {
		// The engine runs on the caller's goroutine and must not start any.
		if err := utils.GetLeaks(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

var errClosedCursor = errors.New("cursor used after close")

// fakeCursor is a Cursor over a fixed result, used as a shard stream.
type fakeCursor struct {
	result *sqltypes.Result
	pos    int

	// sendErr is returned by Next once failAfter rows were returned.
	sendErr   error
	failAfter int

	nextCalls int
	closed    bool
}

func newFakeCursor(result *sqltypes.Result) *fakeCursor {
	return &fakeCursor{result: result, pos: -1, failAfter: -1}
}

// failingCursor returns a cursor that fails with err after rows rows.
func failingCursor(result *sqltypes.Result, rows int, err error) *fakeCursor {
	fc := newFakeCursor(result)
	fc.sendErr = err
	fc.failAfter = rows
	return fc
}

func (fc *fakeCursor) Fields() []*sqltypes.Field {
	return fc.result.Fields
}

func (fc *fakeCursor) Next() (bool, error) {
	if fc.closed {
		return false, errClosedCursor
	}
	fc.nextCalls++
	if fc.sendErr != nil && fc.pos+1 == fc.failAfter {
		return false, fc.sendErr
	}
	if fc.pos+1 >= len(fc.result.Rows) {
		fc.pos = len(fc.result.Rows)
		return false, nil
	}
	fc.pos++
	return true, nil
}

func (fc *fakeCursor) Value(col int) (sqltypes.Value, error) {
	if fc.closed {
		return sqltypes.NULL, errClosedCursor
	}
	if fc.pos < 0 || fc.pos >= len(fc.result.Rows) {
		return sqltypes.NULL, errors.New("fakeCursor: no current row")
	}
	return fc.result.Rows[fc.pos][col], nil
}

func (fc *fakeCursor) Close() {
	fc.closed = true
}

// shardCursors builds one fake cursor per shard result.
func shardCursors(results ...*sqltypes.Result) ([]Cursor, []*fakeCursor) {
	cursors := make([]Cursor, len(results))
	fakes := make([]*fakeCursor, len(results))
	for i, r := range results {
		fakes[i] = newFakeCursor(r)
		cursors[i] = fakes[i]
	}
	return cursors, fakes
}

// drain reads every row of mr into a result.
func drain(t *testing.T, mr MergedResult) *sqltypes.Result {
	t.Helper()
	result, err := drainErr(mr)
	require.NoError(t, err)
	return result
}

func drainErr(mr MergedResult) (*sqltypes.Result, error) {
	result := &sqltypes.Result{Fields: mr.Fields()}
	for {
		ok, err := mr.Next()
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		row, err := readRow(mr, len(result.Fields))
		if err != nil {
			return result, err
		}
		result.Rows = append(result.Rows, row)
	}
}

// rowStrings renders the rows of a result for compact assertions.
func rowStrings(result *sqltypes.Result) []string {
	out := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		out = append(out, sqltypes.RowToStrings(row))
	}
	return out
}

func mustMerge(t *testing.T, mc *MergeContext, cursors []Cursor) MergedResult {
	t.Helper()
	mr, err := NewMergedResult(mc, cursors)
	require.NoError(t, err)
	return mr
}
