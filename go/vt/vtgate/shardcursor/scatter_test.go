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

package shardcursor

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/test/utils"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
	"vitess.io/shardmerge/go/vt/vtgate/engine/opcode"
)

var shardRows = [][]string{
	{"(1, 'alice', 10, 1.50)", "(2, 'bob', 20, 2.25)", "(3, 'carol', 5, 3)"},
	{"(4, 'alice', 30, 4.75)", "(5, 'dave', 7, 0.5)", "(6, 'bob', NULL, NULL)"},
	{"(7, 'carol', 15, 1)", "(8, 'alice', 20, 2.5)", "(9, 'erin', 40, 10)"},
}

// testCluster returns three shards and one unsharded database holding
// the union of their rows.
func testCluster(t *testing.T) ([]Shard, *sql.DB) {
	t.Helper()
	var all []string
	shards := make([]Shard, len(shardRows))
	for i, rows := range shardRows {
		name := []string{"-40", "40-80", "80-"}[i]
		shards[i] = Shard{Name: name, DB: newShardDB(t, "shard"+name, rows...)}
		all = append(all, rows...)
	}
	return shards, newShardDB(t, "unsharded", all...)
}

func scatter(t *testing.T, ctx context.Context, shards []Shard, query string) []engine.Cursor {
	t.Helper()
	cursors, err := Scatter(ctx, shards, query)
	require.NoError(t, err)
	t.Cleanup(func() { CloseCursors(cursors) })
	return EngineCursors(cursors)
}

// readAll drains a cursor into pipe separated rows.
func readAll(t *testing.T, c engine.Cursor) []string {
	t.Helper()
	out := []string{}
	for {
		ok, err := c.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		row := make(sqltypes.Row, len(c.Fields()))
		for i := range row {
			row[i], err = c.Value(i)
			require.NoError(t, err)
		}
		out = append(out, sqltypes.RowToStrings(row))
	}
}

func unsharded(t *testing.T, ctx context.Context, db *sql.DB, query string) []string {
	t.Helper()
	rows, err := db.QueryContext(ctx, query)
	require.NoError(t, err)
	c, err := NewSQLCursor("0", rows)
	require.NoError(t, err)
	defer c.Close()
	return readAll(t, c)
}

func TestScatterMergeMatchesUnsharded(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	shards, db := testCluster(t)

	tests := []struct {
		name       string
		shardQuery string
		query      string
		mc         *engine.MergeContext
	}{{
		name:       "order by with limit",
		shardQuery: "SELECT id, amount FROM orders ORDER BY amount DESC, id LIMIT 4",
		query:      "SELECT id, amount FROM orders ORDER BY amount DESC, id LIMIT 3 OFFSET 1",
		mc: &engine.MergeContext{
			OrderBy: []engine.OrderByItem{
				{Col: 1, Desc: true, NullOrder: engine.NullsLast},
				{Col: 0},
			},
			Limit: &engine.Limit{Offset: 1, RowCount: 3},
		},
	}, {
		name:       "nulls sort first ascending",
		shardQuery: "SELECT amount, id FROM orders ORDER BY amount, id",
		query:      "SELECT amount, id FROM orders ORDER BY amount, id",
		mc: &engine.MergeContext{
			OrderBy: []engine.OrderByItem{{Col: 0, NullOrder: engine.NullsFirst}, {Col: 1}},
		},
	}, {
		name:       "group by customer",
		shardQuery: "SELECT customer, COUNT(*), SUM(amount), MIN(id), MAX(id) FROM orders GROUP BY customer ORDER BY customer",
		query:      "SELECT customer, COUNT(*), SUM(amount), MIN(id), MAX(id) FROM orders GROUP BY customer ORDER BY customer",
		mc: &engine.MergeContext{
			OrderBy: []engine.OrderByItem{{Col: 0, CaseSensitive: true}},
			GroupBy: []engine.GroupByItem{{Col: 0, CaseSensitive: true}},
			Aggregations: []engine.AggregationColumn{
				{Col: 1, Opcode: opcode.AggregateCount},
				{Col: 2, Opcode: opcode.AggregateSum},
				{Col: 3, Opcode: opcode.AggregateMin},
				{Col: 4, Opcode: opcode.AggregateMax},
			},
		},
	}, {
		name:       "group by ordered by aggregate",
		shardQuery: "SELECT customer, COUNT(*), id FROM orders GROUP BY customer ORDER BY customer",
		query:      "SELECT customer, COUNT(*) FROM orders GROUP BY customer ORDER BY COUNT(*) DESC, customer",
		mc: &engine.MergeContext{
			OrderBy: []engine.OrderByItem{
				{Col: 1, Desc: true, NullOrder: engine.NullsLast},
				{Col: 0, CaseSensitive: true},
			},
			GroupBy:             []engine.GroupByItem{{Col: 0, CaseSensitive: true}},
			Aggregations:        []engine.AggregationColumn{{Col: 1, Opcode: opcode.AggregateCount}},
			TruncateColumnCount: 2,
		},
	}, {
		name:       "scalar aggregates",
		shardQuery: "SELECT COUNT(*), COUNT(amount), SUM(amount), MAX(amount) FROM orders",
		query:      "SELECT COUNT(*), COUNT(amount), SUM(amount), MAX(amount) FROM orders",
		mc: &engine.MergeContext{
			Aggregations: []engine.AggregationColumn{
				{Col: 0, Opcode: opcode.AggregateCount},
				{Col: 1, Opcode: opcode.AggregateCount},
				{Col: 2, Opcode: opcode.AggregateSum},
				{Col: 3, Opcode: opcode.AggregateMax},
			},
		},
	}, {
		name:       "scalar aggregates without rows",
		shardQuery: "SELECT COUNT(*), SUM(amount) FROM orders WHERE id < 0",
		query:      "SELECT COUNT(*), SUM(amount) FROM orders WHERE id < 0",
		mc: &engine.MergeContext{
			Aggregations: []engine.AggregationColumn{
				{Col: 0, Opcode: opcode.AggregateCount},
				{Col: 1, Opcode: opcode.AggregateSum},
			},
		},
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mr, err := engine.NewMergedResult(tc.mc, scatter(t, ctx, shards, tc.shardQuery))
			require.NoError(t, err)
			assert.Equal(t, unsharded(t, ctx, db, tc.query), readAll(t, mr))
		})
	}
}

func TestScatterAverage(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	shards, db := testCluster(t)

	mr, err := engine.NewMergedResult(&engine.MergeContext{
		OrderBy: []engine.OrderByItem{{Col: 0, CaseSensitive: true}},
		GroupBy: []engine.GroupByItem{{Col: 0, CaseSensitive: true}},
		Aggregations: []engine.AggregationColumn{
			{Col: 1, Opcode: opcode.AggregateAvg, Derived: []int{2, 3}},
		},
		TruncateColumnCount: 2,
	}, scatter(t, ctx, shards, "SELECT customer, AVG(amount), COUNT(amount), SUM(amount) FROM orders GROUP BY customer ORDER BY customer"))
	require.NoError(t, err)

	rows, err := db.QueryContext(ctx, "SELECT customer, AVG(amount) FROM orders GROUP BY customer ORDER BY customer")
	require.NoError(t, err)
	want, err := NewSQLCursor("0", rows)
	require.NoError(t, err)
	defer want.Close()

	for {
		ok, err := mr.Next()
		require.NoError(t, err)
		wok, werr := want.Next()
		require.NoError(t, werr)
		require.Equal(t, wok, ok)
		if !ok {
			break
		}
		customer, err := mr.ValueByLabel("customer")
		require.NoError(t, err)
		wantCustomer, err := want.Value(0)
		require.NoError(t, err)
		assert.Equal(t, wantCustomer.ToString(), customer.ToString())

		avg, err := mr.Value(1)
		require.NoError(t, err)
		wantAvg, err := want.Value(1)
		require.NoError(t, err)
		got, err := avg.ToDecimal()
		require.NoError(t, err)
		exp, err := wantAvg.ToDecimal()
		require.NoError(t, err)
		assert.True(t, exp.Equal(got), "%s: avg %s, want %s", customer.ToString(), got, exp)
	}
}

func TestScatterError(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	shards, _ := testCluster(t)
	_, err := shards[2].DB.ExecContext(ctx, "DROP TABLE orders")
	require.NoError(t, err)

	before := ShardErrors()["80-"]
	cursors, err := Scatter(ctx, shards, "SELECT id FROM orders")
	require.ErrorContains(t, err, "shard 80-")
	assert.Nil(t, cursors)
	assert.Equal(t, before+1, ShardErrors()["80-"])
	assert.Positive(t, ShardQueries()["-40"])
}

func TestOpen(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	dir := t.TempDir()
	shards, err := Open(ctx, []ShardConfig{
		{Name: "-80", Driver: "sqlite", DSN: dir + "/a.db"},
		{Name: "80-", Driver: "sqlite", DSN: dir + "/b.db"},
	})
	require.NoError(t, err)
	require.Len(t, shards, 2)
	assert.Equal(t, "80-", shards[1].Name)
	require.NoError(t, CloseShards(shards))

	_, err = Open(ctx, []ShardConfig{
		{Name: "-80", Driver: "sqlite", DSN: dir + "/a.db"},
		{Name: "80-", Driver: "nosuchdriver", DSN: ""},
	})
	require.ErrorContains(t, err, "opening shard 80-")
}
