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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vterrors"
)

func TestComparer(t *testing.T) {
	tests := []struct {
		comparer comparer
		row1     []sqltypes.Value
		row2     []sqltypes.Value
		output   int
	}{
		{
			comparer: comparer{
				col:  0,
				desc: true,
			},
			row1: []sqltypes.Value{
				sqltypes.NewInt64(23),
			},
			row2: []sqltypes.Value{
				sqltypes.NewInt64(34),
			},
			output: 1,
		}, {
			comparer: comparer{
				col:  0,
				desc: false,
			},
			row1: []sqltypes.Value{
				sqltypes.NewInt64(23),
			},
			row2: []sqltypes.Value{
				sqltypes.NewInt64(23),
			},
			output: 0,
		}, {
			comparer: comparer{
				col:  0,
				desc: false,
			},
			row1: []sqltypes.Value{
				sqltypes.NewInt64(23),
			},
			row2: []sqltypes.Value{
				sqltypes.NewInt64(12),
			},
			output: 1,
		}, {
			comparer: comparer{
				col:  1,
				desc: false,
			},
			row1: []sqltypes.Value{
				sqltypes.NewInt64(23),
				sqltypes.NewVarChar("b"),
			},
			row2: []sqltypes.Value{
				sqltypes.NewInt64(34),
				sqltypes.NewVarChar("a"),
			},
			output: 1,
		}, {
			comparer: comparer{
				col:  1,
				desc: true,
			},
			row1: []sqltypes.Value{
				sqltypes.NewInt64(23),
				sqltypes.NewVarChar("A"),
			},
			row2: []sqltypes.Value{
				sqltypes.NewInt64(23),
				sqltypes.NewVarChar("a"),
			},
			output: 0,
		}, {
			comparer: comparer{
				col:           1,
				desc:          true,
				caseSensitive: true,
			},
			row1: []sqltypes.Value{
				sqltypes.NewInt64(23),
				sqltypes.NewVarChar("A"),
			},
			row2: []sqltypes.Value{
				sqltypes.NewInt64(23),
				sqltypes.NewVarChar("a"),
			},
			output: 1,
		},
	}

	for i, test := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			got, err := test.comparer.compare(test.row1, test.row2)
			require.NoError(t, err)
			require.Equal(t, test.output, got)
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name          string
		a, b          sqltypes.Value
		desc          bool
		nullOrder     NullOrder
		caseSensitive bool
		want          int
	}{
		{name: "both null", a: sqltypes.NULL, b: sqltypes.NULL, want: 0},
		{name: "null first asc", a: sqltypes.NULL, b: sqltypes.NewInt64(1), nullOrder: NullsFirst, want: -1},
		{name: "null first desc", a: sqltypes.NULL, b: sqltypes.NewInt64(1), desc: true, nullOrder: NullsFirst, want: -1},
		{name: "null last asc", a: sqltypes.NULL, b: sqltypes.NewInt64(1), nullOrder: NullsLast, want: 1},
		{name: "null last desc", a: sqltypes.NULL, b: sqltypes.NewInt64(1), desc: true, nullOrder: NullsLast, want: 1},
		{name: "value before null last", a: sqltypes.NewInt64(1), b: sqltypes.NULL, nullOrder: NullsLast, want: -1},
		{name: "value after null first", a: sqltypes.NewInt64(1), b: sqltypes.NULL, desc: true, nullOrder: NullsFirst, want: 1},
		{name: "ints", a: sqltypes.NewInt64(-5), b: sqltypes.NewInt64(3), want: -1},
		{name: "ints desc", a: sqltypes.NewInt64(-5), b: sqltypes.NewInt64(3), desc: true, want: 1},
		{name: "uints", a: sqltypes.NewUint64(18446744073709551615), b: sqltypes.NewUint64(1), want: 1},
		{name: "int vs uint", a: sqltypes.NewInt64(-1), b: sqltypes.NewUint64(18446744073709551615), want: -1},
		{name: "int vs decimal", a: sqltypes.NewInt64(2), b: sqltypes.NewDecimal("2.00"), want: 0},
		{name: "decimal vs float", a: sqltypes.NewDecimal("1.25"), b: sqltypes.NewFloat64(1.5), want: -1},
		{name: "numeric text is not lexical", a: sqltypes.NewInt64(10), b: sqltypes.NewInt64(9), want: 1},
		{name: "text ci", a: sqltypes.NewVarChar("abc"), b: sqltypes.NewVarChar("ABC"), want: 0},
		{name: "text cs", a: sqltypes.NewVarChar("abc"), b: sqltypes.NewVarChar("ABC"), caseSensitive: true, want: 1},
		{name: "text ci order", a: sqltypes.NewVarChar("apple"), b: sqltypes.NewVarChar("Banana"), want: -1},
		{name: "text cs order", a: sqltypes.NewVarChar("apple"), b: sqltypes.NewVarChar("Banana"), caseSensitive: true, want: 1},
		{name: "binary ignores case flag", a: sqltypes.NewVarBinary("a"), b: sqltypes.NewVarBinary("A"), want: 1},
		{name: "dates", a: sqltypes.TestValue(sqltypes.Date, "2024-01-02"), b: sqltypes.TestValue(sqltypes.Date, "2024-01-10"), want: -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.a, tc.b, tc.desc, tc.nullOrder, tc.caseSensitive)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompareTypeMismatch(t *testing.T) {
	_, err := Compare(sqltypes.NewInt64(1), sqltypes.NewVarChar("a"), false, NullsFirst, false)
	require.EqualError(t, err, `cannot compare int64(1) and varchar("a")`)
	assert.Equal(t, vterrors.WrongTypeForMerge, vterrors.ErrState(err))

	_, err = Compare(sqltypes.TestValue(sqltypes.Int64, "x"), sqltypes.NewDecimal("1"), false, NullsFirst, false)
	require.Error(t, err)
	assert.Equal(t, vterrors.WrongTypeForMerge, vterrors.ErrState(err))
}

func TestCompareCaseSensitivity(t *testing.T) {
	upper, lower := sqltypes.NewVarChar("A"), sqltypes.NewVarChar("a")

	cmp, err := Compare(upper, lower, true, NullsFirst, true)
	require.NoError(t, err)
	assert.NotZero(t, cmp)

	cmp, err = Compare(upper, lower, true, NullsFirst, false)
	require.NoError(t, err)
	assert.Zero(t, cmp)
}

func TestCompareRows(t *testing.T) {
	comparers := orderByComparers([]OrderByItem{
		{Col: 0},
		{Col: 1, Desc: true, NullOrder: NullsLast},
	})
	r1 := sqltypes.Row{sqltypes.NewInt64(1), sqltypes.NULL}
	r2 := sqltypes.Row{sqltypes.NewInt64(1), sqltypes.NewInt64(7)}
	cmp, err := compareRows(comparers, r1, r2)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	cmp, err = compareRows(comparers, r2, r2)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	cmp, err = compareRows(nil, r1, r2)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)
}

func TestComparerReusesFold(t *testing.T) {
	ci := orderByComparers([]OrderByItem{{Col: 0}})[0]
	rows := []sqltypes.Row{
		{sqltypes.NewVarChar("Straße")},
		{sqltypes.NewVarChar("STRASSE")},
		{sqltypes.NewVarChar("b")},
	}
	cmp, err := ci.compare(rows[0], rows[1])
	require.NoError(t, err)
	assert.Zero(t, cmp)
	fold := ci.fold
	require.NotNil(t, fold)

	cmp, err = ci.compare(rows[1], rows[2])
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)
	assert.Same(t, fold, ci.fold)

	cs := orderByComparers([]OrderByItem{{Col: 0, CaseSensitive: true}})[0]
	cmp, err = cs.compare(rows[0], rows[1])
	require.NoError(t, err)
	assert.NotZero(t, cmp)
	assert.Nil(t, cs.fold)
}
