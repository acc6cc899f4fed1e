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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/vt/vterrors"
	"vitess.io/shardmerge/go/vt/vtgate/engine/opcode"
)

func TestMergeContextValidate(t *testing.T) {
	tests := []struct {
		name string
		mc   MergeContext
		err  string
	}{{
		name: "empty",
	}, {
		name: "order by out of range",
		mc:   MergeContext{OrderBy: []OrderByItem{{Col: 3}}},
		err:  "order by column 3 out of range: shard results have 3 columns",
	}, {
		name: "negative group by",
		mc:   MergeContext{GroupBy: []GroupByItem{{Col: -1}}},
		err:  "group by column -1 out of range: shard results have 3 columns",
	}, {
		name: "bad null order",
		mc:   MergeContext{OrderBy: []OrderByItem{{Col: 0, NullOrder: 7}}},
		err:  "invalid null order 7 for order by column 0",
	}, {
		name: "avg without derived columns",
		mc:   MergeContext{Aggregations: []AggregationColumn{{Col: 0, Opcode: opcode.AggregateAvg}}},
		err:  "avg on column 0 needs its derived count and sum columns, got 0",
	}, {
		name: "avg with one derived column",
		mc:   MergeContext{Aggregations: []AggregationColumn{{Col: 0, Opcode: opcode.AggregateAvg, Derived: []int{1}}}},
		err:  "avg on column 0 needs its derived count and sum columns, got 1",
	}, {
		name: "avg derived out of range",
		mc:   MergeContext{Aggregations: []AggregationColumn{{Col: 0, Opcode: opcode.AggregateAvg, Derived: []int{1, 5}}}},
		err:  "derived avg column 5 out of range: shard results have 3 columns",
	}, {
		name: "sum with derived columns",
		mc:   MergeContext{Aggregations: []AggregationColumn{{Col: 0, Opcode: opcode.AggregateSum, Derived: []int{1}}}},
		err:  "sum on column 0 does not take derived columns",
	}, {
		name: "unassigned opcode",
		mc:   MergeContext{Aggregations: []AggregationColumn{{Col: 0}}},
		err:  "unsupported aggregate ERROR on column 0",
	}, {
		name: "aggregate out of range",
		mc:   MergeContext{Aggregations: []AggregationColumn{{Col: 9, Opcode: opcode.AggregateCount}}},
		err:  "count column 9 out of range: shard results have 3 columns",
	}, {
		name: "negative offset",
		mc:   MergeContext{Limit: &Limit{Offset: -1, RowCount: 1}},
		err:  "negative offset -1",
	}, {
		name: "bad row count",
		mc:   MergeContext{Limit: &Limit{RowCount: -2}},
		err:  "invalid row count -2",
	}, {
		name: "limit all",
		mc:   MergeContext{Limit: &Limit{Offset: 2, RowCount: LimitAll}},
	}, {
		name: "truncate out of range",
		mc:   MergeContext{TruncateColumnCount: 4},
		err:  "truncate column count 4 out of range: shard results have 3 columns",
	}, {
		name: "negative max groups",
		mc:   MergeContext{MaxMemoryGroups: -1},
		err:  "negative max memory groups -1",
	}, {
		name: "valid avg",
		mc: MergeContext{
			GroupBy:      []GroupByItem{{Col: 0}},
			Aggregations: []AggregationColumn{{Col: 0, Opcode: opcode.AggregateAvg, Derived: []int{1, 2}}},
		},
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.mc.validate(3)
			if tc.err == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tc.err)
			assert.Equal(t, codes.FailedPrecondition, vterrors.Code(err))
			assert.Equal(t, vterrors.WrongMergeContext, vterrors.ErrState(err))
		})
	}
}

func TestGroupsAreClustered(t *testing.T) {
	tests := []struct {
		name string
		mc   MergeContext
		want bool
	}{{
		name: "group by without order by",
		mc:   MergeContext{GroupBy: []GroupByItem{{Col: 0}, {Col: 1}}},
		want: true,
	}, {
		name: "same columns in another order",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 1}, {Col: 0}},
			OrderBy: []OrderByItem{{Col: 0, Desc: true}, {Col: 1}},
		},
		want: true,
	}, {
		name: "order by extends group by",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}},
			OrderBy: []OrderByItem{{Col: 0}, {Col: 2}},
		},
		want: true,
	}, {
		name: "order by an aggregate",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}},
			OrderBy: []OrderByItem{{Col: 2}, {Col: 0}},
		},
		want: false,
	}, {
		name: "order by shorter than group by",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}, {Col: 1}},
			OrderBy: []OrderByItem{{Col: 0}},
		},
		want: false,
	}, {
		name: "case sensitivity differs",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}},
			OrderBy: []OrderByItem{{Col: 0, CaseSensitive: true}},
		},
		want: false,
	}, {
		name: "duplicate group by column",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}, {Col: 0}},
			OrderBy: []OrderByItem{{Col: 0}, {Col: 1}},
		},
		want: true,
	}, {
		name: "duplicate group by column over a single order column",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}, {Col: 0}},
			OrderBy: []OrderByItem{{Col: 0}},
		},
		want: true,
	}, {
		name: "repeated order by column",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}, {Col: 1}},
			OrderBy: []OrderByItem{{Col: 0}, {Col: 0}, {Col: 1}},
		},
		want: true,
	}, {
		name: "group column after a non group column",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}, {Col: 1}},
			OrderBy: []OrderByItem{{Col: 0}, {Col: 2}, {Col: 1}},
		},
		want: false,
	}, {
		name: "duplicate group by column with mixed case sensitivity",
		mc: MergeContext{
			GroupBy: []GroupByItem{{Col: 0}, {Col: 0, CaseSensitive: true}},
			OrderBy: []OrderByItem{{Col: 0}},
		},
		want: false,
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.mc.groupsAreClustered())
		})
	}
}

func TestEffectiveOrder(t *testing.T) {
	mc := MergeContext{GroupBy: []GroupByItem{{Col: 1, Desc: true}, {Col: 0, CaseSensitive: true}}}
	assert.Equal(t, []OrderByItem{
		{Col: 1, Desc: true, NullOrder: NullsLast},
		{Col: 0, NullOrder: NullsFirst, CaseSensitive: true},
	}, mc.effectiveOrder())

	mc.OrderBy = []OrderByItem{{Col: 2}}
	assert.Equal(t, mc.OrderBy, mc.effectiveOrder())
}

func TestItemStrings(t *testing.T) {
	assert.Equal(t, "0 ASC NULLS FIRST", OrderByItem{Col: 0}.String())
	assert.Equal(t, "2 DESC NULLS LAST COLLATE binary", OrderByItem{Col: 2, Desc: true, NullOrder: NullsLast, CaseSensitive: true}.String())
	assert.Equal(t, "1 DESC NULLS LAST", GroupByItem{Col: 1, Desc: true}.String())
	assert.Equal(t, "avg(0; 1,2)", AggregationColumn{Col: 0, Opcode: opcode.AggregateAvg, Derived: []int{1, 2}}.String())
	assert.Equal(t, "count(3)", AggregationColumn{Col: 3, Opcode: opcode.AggregateCount}.String())
	assert.Equal(t, "offset=1, count=ALL", Limit{Offset: 1, RowCount: LimitAll}.String())
	assert.Equal(t, "offset=0, count=5", Limit{RowCount: 5}.String())
}
