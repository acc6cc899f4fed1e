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
	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/log"
)

var _ MergedResult = (*resultMerge)(nil)

// NewMergedResult picks the merge strategy for mc and wraps it so that
// it applies the limit and column truncation of mc. The cursors must be
// positioned before their first row and are only read from the returned
// MergedResult, from a single goroutine.
//
//   - no ordering, grouping or aggregation: IteratorMerge
//   - ordering only: OrderByStreamMerge
//   - grouping whose rows arrive clustered by the shard order: GroupByStreamMerge
//   - any other grouping or aggregation: GroupByMemoryMerge
func NewMergedResult(mc *MergeContext, cursors []Cursor) (MergedResult, error) {
	if mc == nil {
		mc = &MergeContext{}
	}
	if len(cursors) == 0 {
		return nil, mergeContextError("no shard cursors to merge")
	}
	fields := cursors[0].Fields()
	for i, c := range cursors[1:] {
		if got := len(c.Fields()); got != len(fields) {
			return nil, mergeContextError("shard %d returned %d columns, shard 0 returned %d", i+1, got, len(fields))
		}
	}
	if err := mc.validate(len(fields)); err != nil {
		return nil, err
	}

	var (
		mr       MergedResult
		strategy string
	)
	switch {
	case len(mc.GroupBy) == 0 && len(mc.Aggregations) == 0 && len(mc.OrderBy) == 0:
		mr, strategy = newIteratorMerge(fields, cursors), strategyIterator
	case len(mc.GroupBy) == 0 && len(mc.Aggregations) == 0:
		mr, strategy = newOrderByStreamMerge(fields, cursors, mc.OrderBy), strategyOrderByStream
	case len(mc.GroupBy) > 0 && mc.groupsAreClustered():
		source := newOrderByStreamMerge(fields, cursors, mc.effectiveOrder())
		mr, strategy = newGroupByStreamMerge(source, mc.GroupBy, mc.Aggregations), strategyGroupByStream
	default:
		mr, strategy = newGroupByMemoryMerge(fields, cursors, mc), strategyGroupByMemory
	}
	if mc.Limit != nil {
		mr = newLimitMerge(mr, *mc.Limit)
	}

	mergeMetrics().strategyUsed.Add(strategy, 1)
	log.DebugS("merge strategy selected", "strategy", strategy, "shards", len(cursors), "limit", mc.Limit != nil)

	return &resultMerge{
		input:    mr,
		fields:   truncateFields(fields, mc.TruncateColumnCount),
		truncate: mc.TruncateColumnCount,
	}, nil
}

func truncateFields(fields []*sqltypes.Field, count int) []*sqltypes.Field {
	if count == 0 {
		return fields
	}
	return fields[:count]
}

// resultMerge is the root of every merge tree. It hides the columns
// beyond the truncate count and counts the rows handed to the caller.
type resultMerge struct {
	input    MergedResult
	fields   []*sqltypes.Field
	truncate int
}

// Fields implements the Cursor interface.
func (rm *resultMerge) Fields() []*sqltypes.Field {
	return rm.fields
}

// Next implements the Cursor interface.
func (rm *resultMerge) Next() (bool, error) {
	ok, err := rm.input.Next()
	if ok {
		mergeMetrics().rowsEmitted.Add(1)
	}
	return ok, err
}

// Value implements the Cursor interface.
func (rm *resultMerge) Value(col int) (sqltypes.Value, error) {
	if col < 0 || col >= len(rm.fields) {
		return sqltypes.NULL, columnOutOfRange(col, len(rm.fields))
	}
	return rm.input.Value(col)
}

// ValueByLabel implements the MergedResult interface.
func (rm *resultMerge) ValueByLabel(label string) (sqltypes.Value, error) {
	return valueByLabel(rm, label)
}

func (rm *resultMerge) description() PlanDescription {
	pd := rm.input.description()
	if rm.truncate > 0 {
		if pd.Other == nil {
			pd.Other = map[string]any{}
		}
		pd.Other["TruncateColumnCount"] = rm.truncate
	}
	return pd
}

func (rm *resultMerge) inputs() []MergedResult {
	return rm.input.inputs()
}
