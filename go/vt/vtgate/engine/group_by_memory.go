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
	"sort"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vterrors"
)

var _ MergedResult = (*GroupByMemoryMerge)(nil)

// Markers separating the normalized values of a group key in its hash.
const (
	keyNull byte = iota
	keyNumber
	keyText
	keyBytes
)

// memoryGroup is one distinct group key seen while draining the shards.
type memoryGroup struct {
	first sqltypes.Row
	agg   *groupAggregator
}

// GroupByMemoryMerge drains every shard, folds the rows into groups
// held in memory and then returns one row per group. Without GROUP BY
// items all rows fold into a single implicit group.
type GroupByMemoryMerge struct {
	fields       []*sqltypes.Field
	cursors      []Cursor
	groupBy      []GroupByItem
	orderBy      []OrderByItem
	aggregations []AggregationColumn
	maxGroups    int

	loaded  bool
	rows    []sqltypes.Row
	pos     int
	current sqltypes.Row
	err     error
}

func newGroupByMemoryMerge(fields []*sqltypes.Field, cursors []Cursor, mc *MergeContext) *GroupByMemoryMerge {
	return &GroupByMemoryMerge{
		fields:       fields,
		cursors:      cursors,
		groupBy:      mc.GroupBy,
		orderBy:      mc.OrderBy,
		aggregations: mc.Aggregations,
		maxGroups:    mc.MaxMemoryGroups,
	}
}

// Fields implements the Cursor interface.
func (gm *GroupByMemoryMerge) Fields() []*sqltypes.Field {
	return gm.fields
}

// Next implements the Cursor interface. The first call drains all shards.
func (gm *GroupByMemoryMerge) Next() (bool, error) {
	if gm.err != nil {
		return false, gm.err
	}
	if !gm.loaded {
		gm.loaded = true
		if err := gm.load(); err != nil {
			gm.err = err
			return false, err
		}
	}
	if gm.pos >= len(gm.rows) {
		gm.current = nil
		return false, nil
	}
	gm.current = gm.rows[gm.pos]
	// Release the group once it is handed out.
	gm.rows[gm.pos] = nil
	gm.pos++
	return true, nil
}

func (gm *GroupByMemoryMerge) load() error {
	var (
		groups    []*memoryGroup
		buckets   = make(map[uint64][]int)
		comparers = groupByComparers(gm.groupBy)
		keyer     = newGroupKeyer(gm.groupBy)
	)
	for _, c := range gm.cursors {
		for {
			ok, err := c.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			row, err := readRow(c, len(gm.fields))
			if err != nil {
				return err
			}
			h, err := keyer.hash(row)
			if err != nil {
				return err
			}
			idx := -1
			for _, i := range buckets[h] {
				cmp, err := compareRows(comparers, groups[i].first, row)
				if err != nil {
					return err
				}
				if cmp == 0 {
					idx = i
					break
				}
			}
			if idx < 0 {
				if gm.maxGroups > 0 && len(groups) >= gm.maxGroups {
					return vterrors.NewErrorf(codes.ResourceExhausted, vterrors.MergeGroupsExceeded, "in-memory group count exceeded allowed limit of %d", gm.maxGroups)
				}
				idx = len(groups)
				groups = append(groups, &memoryGroup{first: row, agg: newGroupAggregator(gm.aggregations)})
				buckets[h] = append(buckets[h], idx)
			}
			if err := groups[idx].agg.merge(row); err != nil {
				return err
			}
		}
	}
	mergeMetrics().groupsInMemory.Set(int64(len(groups)))

	if len(groups) == 0 && len(gm.groupBy) == 0 {
		// An aggregate without GROUP BY returns one row even for no input.
		gm.rows = []sqltypes.Row{emptyGroupRow(len(gm.fields), gm.aggregations)}
		return nil
	}
	gm.rows = make([]sqltypes.Row, 0, len(groups))
	for _, g := range groups {
		gm.rows = append(gm.rows, g.agg.finalize(g.first))
	}
	if len(gm.orderBy) > 0 {
		rs := &rowSorter{rows: gm.rows, comparers: orderByComparers(gm.orderBy)}
		sort.Stable(rs)
		if rs.err != nil {
			return rs.err
		}
	}
	return nil
}

// Value implements the Cursor interface.
func (gm *GroupByMemoryMerge) Value(col int) (sqltypes.Value, error) {
	return rowValue(gm.current, col)
}

// ValueByLabel implements the MergedResult interface.
func (gm *GroupByMemoryMerge) ValueByLabel(label string) (sqltypes.Value, error) {
	return valueByLabel(gm, label)
}

func (gm *GroupByMemoryMerge) description() PlanDescription {
	other := map[string]any{"Shards": len(gm.cursors)}
	if len(gm.groupBy) > 0 {
		other["GroupBy"] = GenericJoin(gm.groupBy, func(i any) string { return i.(GroupByItem).String() })
	}
	if len(gm.orderBy) > 0 {
		other["OrderBy"] = GenericJoin(gm.orderBy, func(i any) string { return i.(OrderByItem).String() })
	}
	if len(gm.aggregations) > 0 {
		other["Aggregates"] = GenericJoin(gm.aggregations, func(i any) string { return i.(AggregationColumn).String() })
	}
	if gm.maxGroups > 0 {
		other["MaxMemoryGroups"] = gm.maxGroups
	}
	return PlanDescription{
		OperatorType: "Aggregate",
		Variant:      "GroupByMemory",
		Other:        other,
	}
}

func (gm *GroupByMemoryMerge) inputs() []MergedResult {
	return nil
}

// groupKeyer hashes the normalized group key of a row. Keys that compare
// equal hash equally; collisions are resolved by comparing the rows.
// The non-NULL values of a group column must keep one type family.
type groupKeyer struct {
	groupBy []GroupByItem
	digest  *xxhash.Digest
	fold    cases.Caser
	// seen holds the first non-NULL value of each group column.
	seen []sqltypes.Value
}

func newGroupKeyer(groupBy []GroupByItem) *groupKeyer {
	return &groupKeyer{
		groupBy: groupBy,
		digest:  xxhash.New(),
		fold:    cases.Fold(),
		seen:    make([]sqltypes.Value, len(groupBy)),
	}
}

func keyFamily(v sqltypes.Value) byte {
	switch {
	case v.IsNull():
		return keyNull
	case v.IsNumber():
		return keyNumber
	case v.IsText():
		return keyText
	default:
		return keyBytes
	}
}

func (gk *groupKeyer) hash(row sqltypes.Row) (uint64, error) {
	gk.digest.Reset()
	for i, gbi := range gk.groupBy {
		v := row[gbi.Col]
		family := keyFamily(v)
		if family != keyNull {
			if first := gk.seen[i]; first.IsNull() {
				gk.seen[i] = v
			} else if keyFamily(first) != family {
				return 0, typeMismatch("cannot group %v and %v in column %d", first, v, gbi.Col)
			}
		}
		switch family {
		case keyNull:
			_, _ = gk.digest.Write([]byte{keyNull})
		case keyNumber:
			d, err := v.ToDecimal()
			if err != nil {
				return 0, typeMismatch("cannot group by %v: %v", v, err)
			}
			_, _ = gk.digest.Write([]byte{keyNumber})
			_, _ = gk.digest.WriteString(d.String())
		case keyText:
			_, _ = gk.digest.Write([]byte{keyText})
			if gbi.CaseSensitive {
				_, _ = gk.digest.Write(v.Raw())
			} else {
				_, _ = gk.digest.Write(gk.fold.Bytes(v.Raw()))
			}
		default:
			_, _ = gk.digest.Write([]byte{keyBytes})
			_, _ = gk.digest.Write(v.Raw())
		}
		// The length-free encoding needs a terminator between columns.
		_, _ = gk.digest.Write([]byte{0xff})
	}
	return gk.digest.Sum64(), nil
}

// rowSorter sorts finalized rows by the ORDER BY items.
type rowSorter struct {
	rows      []sqltypes.Row
	comparers []*comparer
	err       error
}

// Len satisfies sort.Interface.
func (rs *rowSorter) Len() int {
	return len(rs.rows)
}

// Less satisfies sort.Interface.
func (rs *rowSorter) Less(i, j int) bool {
	if rs.err != nil {
		return false
	}
	cmp, err := compareRows(rs.comparers, rs.rows[i], rs.rows[j])
	if err != nil {
		rs.err = err
		return false
	}
	return cmp < 0
}

// Swap satisfies sort.Interface.
func (rs *rowSorter) Swap(i, j int) {
	rs.rows[i], rs.rows[j] = rs.rows[j], rs.rows[i]
}
