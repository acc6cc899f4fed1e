/*
Copyright 2019 The Vitess Authors.

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
	"strconv"

	"vitess.io/shardmerge/go/sqltypes"
)

var _ MergedResult = (*LimitMerge)(nil)

// LimitMerge applies OFFSET and LIMIT to another merge. The skipped rows
// are read lazily on the first Next, and the input is not read any
// further once the row count is reached.
type LimitMerge struct {
	Input    MergedResult
	Offset   int64
	RowCount int64

	skipped  int64
	returned int64
	done     bool
}

func newLimitMerge(input MergedResult, limit Limit) *LimitMerge {
	return &LimitMerge{
		Input:    input,
		Offset:   limit.Offset,
		RowCount: limit.RowCount,
	}
}

// Fields implements the Cursor interface.
func (l *LimitMerge) Fields() []*sqltypes.Field {
	return l.Input.Fields()
}

// Next implements the Cursor interface.
func (l *LimitMerge) Next() (bool, error) {
	if l.done {
		return false, nil
	}
	for l.skipped < l.Offset {
		ok, err := l.Input.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			// offset is beyond the result set
			l.done = true
			return false, nil
		}
		l.skipped++
	}
	if l.RowCount != LimitAll && l.returned >= l.RowCount {
		l.done = true
		return false, nil
	}
	ok, err := l.Input.Next()
	if err != nil {
		return false, err
	}
	if !ok {
		l.done = true
		return false, nil
	}
	l.returned++
	return true, nil
}

// Value implements the Cursor interface.
func (l *LimitMerge) Value(col int) (sqltypes.Value, error) {
	if l.done {
		return rowValue(nil, col)
	}
	return l.Input.Value(col)
}

// ValueByLabel implements the MergedResult interface.
func (l *LimitMerge) ValueByLabel(label string) (sqltypes.Value, error) {
	return valueByLabel(l, label)
}

func (l *LimitMerge) description() PlanDescription {
	count := "ALL"
	if l.RowCount != LimitAll {
		count = strconv.FormatInt(l.RowCount, 10)
	}
	return PlanDescription{
		OperatorType: "Limit",
		Other: map[string]any{
			"Count":  count,
			"Offset": l.Offset,
		},
	}
}

func (l *LimitMerge) inputs() []MergedResult {
	return []MergedResult{l.Input}
}
