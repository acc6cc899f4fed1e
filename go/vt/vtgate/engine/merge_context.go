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
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/vt/vterrors"
	"vitess.io/shardmerge/go/vt/vtgate/engine/opcode"
)

// NullOrder decides where NULL sorts relative to non-NULL values. It is
// applied independently of the sort direction.
type NullOrder int

const (
	// NullsFirst sorts NULL before every non-NULL value.
	NullsFirst NullOrder = iota
	// NullsLast sorts NULL after every non-NULL value.
	NullsLast
)

func (n NullOrder) String() string {
	if n == NullsLast {
		return "NULLS LAST"
	}
	return "NULLS FIRST"
}

// DefaultNullOrder returns MySQL's implicit NULL placement for a sort
// direction: NULL is the smallest value.
func DefaultNullOrder(desc bool) NullOrder {
	if desc {
		return NullsLast
	}
	return NullsFirst
}

// OrderByItem is one ORDER BY expression of the logical query, resolved
// to a column of the shard results.
type OrderByItem struct {
	Col           int
	Desc          bool
	NullOrder     NullOrder
	CaseSensitive bool
}

func (obi OrderByItem) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", obi.Col)
	if obi.Desc {
		sb.WriteString(" DESC")
	} else {
		sb.WriteString(" ASC")
	}
	sb.WriteString(" ")
	sb.WriteString(obi.NullOrder.String())
	if obi.CaseSensitive {
		sb.WriteString(" COLLATE binary")
	}
	return sb.String()
}

// GroupByItem is one GROUP BY expression of the logical query. Shards
// emit their rows sorted by it when there is no ORDER BY.
type GroupByItem struct {
	Col           int
	Desc          bool
	CaseSensitive bool
}

func (gbi GroupByItem) String() string {
	return gbi.orderByItem().String()
}

func (gbi GroupByItem) orderByItem() OrderByItem {
	return OrderByItem{
		Col:           gbi.Col,
		Desc:          gbi.Desc,
		NullOrder:     DefaultNullOrder(gbi.Desc),
		CaseSensitive: gbi.CaseSensitive,
	}
}

// AggregationColumn describes an aggregate function whose shard partials
// are folded into the final value of column Col.
type AggregationColumn struct {
	Col    int
	Opcode opcode.AggregateOpcode
	// Derived lists the columns appended by the rewrite stage. AVG needs
	// exactly two: the partial COUNT column followed by the partial SUM column.
	Derived []int
	// CaseSensitive controls how MIN and MAX compare text values.
	CaseSensitive bool
}

func (ac AggregationColumn) String() string {
	if len(ac.Derived) == 0 {
		return fmt.Sprintf("%s(%d)", ac.Opcode, ac.Col)
	}
	derived := make([]string, len(ac.Derived))
	for i, d := range ac.Derived {
		derived[i] = fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("%s(%d; %s)", ac.Opcode, ac.Col, strings.Join(derived, ","))
}

// LimitAll is the RowCount of a Limit without an upper bound.
const LimitAll int64 = -1

// Limit is the OFFSET and row count of the logical query.
type Limit struct {
	Offset   int64
	RowCount int64
}

func (l Limit) String() string {
	if l.RowCount == LimitAll {
		return fmt.Sprintf("offset=%d, count=ALL", l.Offset)
	}
	return fmt.Sprintf("offset=%d, count=%d", l.Offset, l.RowCount)
}

// MergeContext describes how per-shard partial results recombine into
// the result of the logical query. It is built by the statement binder
// and is not modified by the engine.
type MergeContext struct {
	OrderBy      []OrderByItem
	GroupBy      []GroupByItem
	Aggregations []AggregationColumn
	Limit        *Limit

	// TruncateColumnCount specifies the number of columns to return
	// in the final result. Rest of the columns are truncated
	// from the result received. If 0, no truncation happens.
	TruncateColumnCount int

	// MaxMemoryGroups bounds the number of distinct groups a buffered
	// group merge may hold. If 0, there is no bound.
	MaxMemoryGroups int
}

func mergeContextError(format string, args ...any) error {
	return vterrors.NewErrorf(codes.FailedPrecondition, vterrors.WrongMergeContext, format, args...)
}

// validate checks the context against the column count of the shard
// results.
func (mc *MergeContext) validate(columns int) error {
	checkCol := func(what string, col int) error {
		if col < 0 || col >= columns {
			return mergeContextError("%s column %d out of range: shard results have %d columns", what, col, columns)
		}
		return nil
	}
	for _, item := range mc.OrderBy {
		if err := checkCol("order by", item.Col); err != nil {
			return err
		}
		if item.NullOrder != NullsFirst && item.NullOrder != NullsLast {
			return mergeContextError("invalid null order %d for order by column %d", item.NullOrder, item.Col)
		}
	}
	for _, item := range mc.GroupBy {
		if err := checkCol("group by", item.Col); err != nil {
			return err
		}
	}
	for _, aggr := range mc.Aggregations {
		if _, ok := opcode.AggregateName[aggr.Opcode]; !ok {
			return mergeContextError("unsupported aggregate %s on column %d", aggr.Opcode, aggr.Col)
		}
		if err := checkCol(aggr.Opcode.String(), aggr.Col); err != nil {
			return err
		}
		switch {
		case aggr.Opcode.NeedsDerivedColumns() && len(aggr.Derived) != 2:
			return mergeContextError("%s on column %d needs its derived count and sum columns, got %d", aggr.Opcode, aggr.Col, len(aggr.Derived))
		case !aggr.Opcode.NeedsDerivedColumns() && len(aggr.Derived) != 0:
			return mergeContextError("%s on column %d does not take derived columns", aggr.Opcode, aggr.Col)
		}
		for _, d := range aggr.Derived {
			if err := checkCol("derived "+aggr.Opcode.String(), d); err != nil {
				return err
			}
		}
	}
	if mc.Limit != nil {
		if mc.Limit.Offset < 0 {
			return mergeContextError("negative offset %d", mc.Limit.Offset)
		}
		if mc.Limit.RowCount < LimitAll {
			return mergeContextError("invalid row count %d", mc.Limit.RowCount)
		}
	}
	if mc.TruncateColumnCount < 0 || mc.TruncateColumnCount > columns {
		return mergeContextError("truncate column count %d out of range: shard results have %d columns", mc.TruncateColumnCount, columns)
	}
	if mc.MaxMemoryGroups < 0 {
		return mergeContextError("negative max memory groups %d", mc.MaxMemoryGroups)
	}
	return nil
}

// effectiveOrder returns the order in which shards emit their rows: the
// ORDER BY items, or the GROUP BY items when there is no ORDER BY.
func (mc *MergeContext) effectiveOrder() []OrderByItem {
	if len(mc.OrderBy) > 0 {
		return mc.OrderBy
	}
	items := make([]OrderByItem, len(mc.GroupBy))
	for i, gbi := range mc.GroupBy {
		items[i] = gbi.orderByItem()
	}
	return items
}

// groupsAreClustered reports whether rows of one group are contiguous in
// the merged order. It holds when the distinct GROUP BY columns are, in
// any order, the leading distinct columns of the effective order with the
// same case sensitivity.
func (mc *MergeContext) groupsAreClustered() bool {
	groups := make(map[int]bool, len(mc.GroupBy))
	for _, gbi := range mc.GroupBy {
		if cs, ok := groups[gbi.Col]; ok && cs != gbi.CaseSensitive {
			return false
		}
		groups[gbi.Col] = gbi.CaseSensitive
	}
	matched := make(map[int]bool, len(groups))
	for _, obi := range mc.effectiveOrder() {
		if len(matched) == len(groups) {
			break
		}
		if matched[obi.Col] {
			continue
		}
		cs, ok := groups[obi.Col]
		if !ok || cs != obi.CaseSensitive {
			return false
		}
		matched[obi.Col] = true
	}
	return len(matched) == len(groups)
}
