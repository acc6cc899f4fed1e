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
	"container/heap"
	"strings"

	"vitess.io/shardmerge/go/sqltypes"
)

var _ MergedResult = (*OrderByStreamMerge)(nil)

type mergeState int

const (
	stateUninitialized mergeState = iota
	stateActive
	stateExhausted
	stateFailed
)

// rowWrapper holds the current row of one live shard. The row doubles
// as the comparison key of the shard inside the merge heap.
type rowWrapper struct {
	shard  int
	cursor Cursor
	row    sqltypes.Row
}

// advance moves the shard cursor to its next row and materializes it.
// It returns false when the shard is exhausted.
func (rw *rowWrapper) advance(columns int) (bool, error) {
	ok, err := rw.cursor.Next()
	if err != nil || !ok {
		rw.row = nil
		return false, err
	}
	rw.row, err = readRow(rw.cursor, columns)
	if err != nil {
		return false, err
	}
	return true, nil
}

// OrderByStreamMerge merges shard cursors that are each sorted by the
// same keys into one sorted stream. It keeps one row per live shard in
// a heap and never buffers more.
type OrderByStreamMerge struct {
	fields  []*sqltypes.Field
	cursors []Cursor
	orderBy []OrderByItem

	state   mergeState
	err     error
	heap    *scatterHeap
	current *rowWrapper
}

func newOrderByStreamMerge(fields []*sqltypes.Field, cursors []Cursor, orderBy []OrderByItem) *OrderByStreamMerge {
	return &OrderByStreamMerge{
		fields:  fields,
		cursors: cursors,
		orderBy: orderBy,
	}
}

// Fields implements the Cursor interface.
func (m *OrderByStreamMerge) Fields() []*sqltypes.Field {
	return m.fields
}

// Next implements the Cursor interface. The first call reads one row
// from every shard. Each later call first advances the shard whose row
// was returned previously, then exposes the smallest row in the heap.
func (m *OrderByStreamMerge) Next() (bool, error) {
	switch m.state {
	case stateFailed:
		return false, m.err
	case stateExhausted:
		return false, nil
	case stateUninitialized:
		if err := m.init(); err != nil {
			return m.fail(err)
		}
		m.state = stateActive
	case stateActive:
		if m.current != nil {
			prev := m.current
			m.current = nil
			ok, err := prev.advance(len(m.fields))
			if err != nil {
				return m.fail(err)
			}
			if ok {
				heap.Push(m.heap, prev)
				if m.heap.err != nil {
					return m.fail(m.heap.err)
				}
			}
		}
	}

	if m.heap.Len() == 0 {
		m.state = stateExhausted
		return false, nil
	}
	m.current = heap.Pop(m.heap).(*rowWrapper)
	if m.heap.err != nil {
		return m.fail(m.heap.err)
	}
	return true, nil
}

func (m *OrderByStreamMerge) init() error {
	m.heap = &scatterHeap{
		wrappers:  make([]*rowWrapper, 0, len(m.cursors)),
		comparers: orderByComparers(m.orderBy),
	}
	for i, c := range m.cursors {
		rw := &rowWrapper{shard: i, cursor: c}
		ok, err := rw.advance(len(m.fields))
		if err != nil {
			return err
		}
		if ok {
			m.heap.wrappers = append(m.heap.wrappers, rw)
		}
	}
	heap.Init(m.heap)
	return m.heap.err
}

func (m *OrderByStreamMerge) fail(err error) (bool, error) {
	m.state = stateFailed
	m.err = err
	m.current = nil
	return false, err
}

// currentRow returns the row exposed by the last successful Next.
func (m *OrderByStreamMerge) currentRow() sqltypes.Row {
	if m.current == nil {
		return nil
	}
	return m.current.row
}

// Value implements the Cursor interface.
func (m *OrderByStreamMerge) Value(col int) (sqltypes.Value, error) {
	return rowValue(m.currentRow(), col)
}

// ValueByLabel implements the MergedResult interface.
func (m *OrderByStreamMerge) ValueByLabel(label string) (sqltypes.Value, error) {
	return valueByLabel(m, label)
}

func (m *OrderByStreamMerge) description() PlanDescription {
	return PlanDescription{
		OperatorType: "Merge",
		Variant:      "OrderByStream",
		Other: map[string]any{
			"OrderBy": GenericJoin(m.orderBy, func(i any) string { return i.(OrderByItem).String() }),
			"Shards":  len(m.cursors),
		},
	}
}

func (m *OrderByStreamMerge) inputs() []MergedResult {
	return nil
}

// scatterHeap orders the live shards by their current rows. Ties are
// broken by shard index so that a run is deterministic.
type scatterHeap struct {
	wrappers  []*rowWrapper
	comparers []*comparer
	err       error
}

// Len satisfies sort.Interface and heap.Interface.
func (sh *scatterHeap) Len() int {
	return len(sh.wrappers)
}

// Less satisfies sort.Interface and heap.Interface.
func (sh *scatterHeap) Less(i, j int) bool {
	if sh.err != nil {
		return true
	}
	cmp, err := compareRows(sh.comparers, sh.wrappers[i].row, sh.wrappers[j].row)
	if err != nil {
		sh.err = err
		return true
	}
	if cmp == 0 {
		return sh.wrappers[i].shard < sh.wrappers[j].shard
	}
	return cmp < 0
}

// Swap satisfies sort.Interface and heap.Interface.
func (sh *scatterHeap) Swap(i, j int) {
	sh.wrappers[i], sh.wrappers[j] = sh.wrappers[j], sh.wrappers[i]
}

// Push satisfies heap.Interface.
func (sh *scatterHeap) Push(x any) {
	sh.wrappers = append(sh.wrappers, x.(*rowWrapper))
}

// Pop satisfies heap.Interface.
func (sh *scatterHeap) Pop() any {
	n := len(sh.wrappers)
	x := sh.wrappers[n-1]
	sh.wrappers = sh.wrappers[:n-1]
	return x
}

// GenericJoin will iterate over a slice, and executes the f function to get a
// string representation of each element, and then uses strings.Join() join all the strings into a single one
func GenericJoin[T any](input []T, f func(any) string) string {
	keys := make([]string, 0, len(input))
	for _, v := range input {
		keys = append(keys, f(v))
	}
	return strings.Join(keys, ", ")
}
