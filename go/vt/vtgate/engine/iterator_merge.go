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
	"github.com/gammazero/deque"

	"vitess.io/shardmerge/go/sqltypes"
)

var _ MergedResult = (*IteratorMerge)(nil)

// IteratorMerge concatenates the shard cursors in list order. It makes
// no promise about the order of rows across shards.
type IteratorMerge struct {
	fields  []*sqltypes.Field
	shards  int
	pending deque.Deque[Cursor]
	current Cursor
	row     sqltypes.Row
	err     error
}

func newIteratorMerge(fields []*sqltypes.Field, cursors []Cursor) *IteratorMerge {
	im := &IteratorMerge{fields: fields, shards: len(cursors)}
	for _, c := range cursors {
		im.pending.PushBack(c)
	}
	return im
}

// Fields implements the Cursor interface.
func (im *IteratorMerge) Fields() []*sqltypes.Field {
	return im.fields
}

// Next implements the Cursor interface.
func (im *IteratorMerge) Next() (bool, error) {
	if im.err != nil {
		return false, im.err
	}
	im.row = nil
	for {
		if im.current == nil {
			if im.pending.Len() == 0 {
				return false, nil
			}
			im.current = im.pending.PopFront()
		}
		ok, err := im.current.Next()
		if err != nil {
			im.err = err
			return false, err
		}
		if ok {
			im.row, err = readRow(im.current, len(im.fields))
			if err != nil {
				im.err = err
				return false, err
			}
			return true, nil
		}
		// The shard is exhausted and is never touched again.
		im.current = nil
	}
}

// Value implements the Cursor interface.
func (im *IteratorMerge) Value(col int) (sqltypes.Value, error) {
	return rowValue(im.row, col)
}

// ValueByLabel implements the MergedResult interface.
func (im *IteratorMerge) ValueByLabel(label string) (sqltypes.Value, error) {
	return valueByLabel(im, label)
}

func (im *IteratorMerge) description() PlanDescription {
	return PlanDescription{
		OperatorType: "Merge",
		Variant:      "Iterator",
		Other:        map[string]any{"Shards": im.shards},
	}
}

func (im *IteratorMerge) inputs() []MergedResult {
	return nil
}
