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
)

var _ MergedResult = (*GroupByStreamMerge)(nil)

// GroupByStreamMerge folds groups whose rows arrive contiguously from
// an ordered merge of the shards. Only the group being folded is held
// in memory.
type GroupByStreamMerge struct {
	source       *OrderByStreamMerge
	groupBy      []GroupByItem
	comparers    []*comparer
	aggregations []AggregationColumn

	// pending is the first row of the next group, already read from source.
	pending sqltypes.Row
	current sqltypes.Row
	done    bool
	err     error
}

func newGroupByStreamMerge(source *OrderByStreamMerge, groupBy []GroupByItem, aggregations []AggregationColumn) *GroupByStreamMerge {
	return &GroupByStreamMerge{
		source:       source,
		groupBy:      groupBy,
		comparers:    groupByComparers(groupBy),
		aggregations: aggregations,
	}
}

// Fields implements the Cursor interface.
func (gm *GroupByStreamMerge) Fields() []*sqltypes.Field {
	return gm.source.Fields()
}

// Next implements the Cursor interface. It reads rows until the group
// key changes and returns the folded group.
func (gm *GroupByStreamMerge) Next() (bool, error) {
	if gm.err != nil {
		return false, gm.err
	}
	gm.current = nil
	if gm.pending == nil {
		if gm.done {
			return false, nil
		}
		ok, err := gm.source.Next()
		if err != nil {
			return gm.fail(err)
		}
		if !ok {
			gm.done = true
			return false, nil
		}
		gm.pending = gm.source.currentRow()
	}

	first := gm.pending
	gm.pending = nil
	agg := newGroupAggregator(gm.aggregations)
	if err := agg.merge(first); err != nil {
		return gm.fail(err)
	}
	for {
		ok, err := gm.source.Next()
		if err != nil {
			return gm.fail(err)
		}
		if !ok {
			gm.done = true
			break
		}
		row := gm.source.currentRow()
		cmp, err := compareRows(gm.comparers, first, row)
		if err != nil {
			return gm.fail(err)
		}
		if cmp != 0 {
			gm.pending = row
			break
		}
		if err := agg.merge(row); err != nil {
			return gm.fail(err)
		}
	}
	gm.current = agg.finalize(first)
	return true, nil
}

func (gm *GroupByStreamMerge) fail(err error) (bool, error) {
	gm.err = err
	gm.current = nil
	gm.pending = nil
	return false, err
}

// Value implements the Cursor interface.
func (gm *GroupByStreamMerge) Value(col int) (sqltypes.Value, error) {
	return rowValue(gm.current, col)
}

// ValueByLabel implements the MergedResult interface.
func (gm *GroupByStreamMerge) ValueByLabel(label string) (sqltypes.Value, error) {
	return valueByLabel(gm, label)
}

func (gm *GroupByStreamMerge) description() PlanDescription {
	other := map[string]any{
		"GroupBy": GenericJoin(gm.groupBy, func(i any) string { return i.(GroupByItem).String() }),
	}
	if len(gm.aggregations) > 0 {
		other["Aggregates"] = GenericJoin(gm.aggregations, func(i any) string { return i.(AggregationColumn).String() })
	}
	return PlanDescription{
		OperatorType: "Aggregate",
		Variant:      "GroupByStream",
		Other:        other,
	}
}

func (gm *GroupByStreamMerge) inputs() []MergedResult {
	return []MergedResult{gm.source}
}
