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
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vterrors"
	"vitess.io/shardmerge/go/vt/vtgate/engine/opcode"
)

// divPrecisionIncrement is the number of decimal places AVG adds to the
// scale of its sum, like MySQL's div_precision_increment.
const divPrecisionIncrement = 4

var (
	minCount = decimal.NewFromInt(math.MinInt64)
	maxCount = decimal.NewFromInt(math.MaxInt64)
)

// AggregationUnit folds the shard partials of one aggregate column of
// one group.
type AggregationUnit interface {
	// Merge folds one shard partial. AVG expects its count and sum
	// partials, every other unit a single value.
	Merge(values []sqltypes.Value) error
	// Result returns the folded value.
	Result() sqltypes.Value
}

// NewAggregationUnit returns an empty unit for aggr.
func NewAggregationUnit(aggr AggregationColumn) AggregationUnit {
	switch aggr.Opcode {
	case opcode.AggregateMin, opcode.AggregateMax:
		return &comparableUnit{max: aggr.Opcode == opcode.AggregateMax, caseSensitive: aggr.CaseSensitive}
	case opcode.AggregateAvg:
		return &averageUnit{
			count: &accumulationUnit{opcode: opcode.AggregateCount},
			sum:   &accumulationUnit{opcode: opcode.AggregateSum},
		}
	default:
		return &accumulationUnit{opcode: aggr.Opcode}
	}
}

// comparableUnit keeps the smallest or largest non-NULL partial.
type comparableUnit struct {
	max           bool
	caseSensitive bool
	best          sqltypes.Value
	fold          *cases.Caser
}

func (u *comparableUnit) Merge(values []sqltypes.Value) error {
	v := values[0]
	if v.IsNull() {
		return nil
	}
	if u.best.IsNull() {
		u.best = v
		return nil
	}
	if u.fold == nil && !u.caseSensitive && v.IsText() {
		fold := cases.Fold()
		u.fold = &fold
	}
	cmp, err := compareNonNull(v, u.best, u.caseSensitive, u.fold)
	if err != nil {
		return err
	}
	if (u.max && cmp > 0) || (!u.max && cmp < 0) {
		u.best = v
	}
	return nil
}

func (u *comparableUnit) Result() sqltypes.Value {
	return u.best
}

// accumulationUnit adds up SUM or COUNT partials. A COUNT partial is
// already a shard sub-total, so it is summed like a SUM partial.
type accumulationUnit struct {
	opcode opcode.AggregateOpcode
	sum    decimal.Decimal
	// seen is set once a non-NULL partial has been merged.
	seen bool
	// float is set when a partial was a floating point value; the sum
	// is then reported as a DOUBLE.
	float bool
}

func (u *accumulationUnit) Merge(values []sqltypes.Value) error {
	v := values[0]
	if v.IsNull() {
		return nil
	}
	if !v.IsNumber() {
		return typeMismatch("cannot %s non-numeric value %v", u.opcode, v)
	}
	d, err := v.ToDecimal()
	if err != nil {
		return typeMismatch("cannot %s %v: %v", u.opcode, v, err)
	}
	u.sum = u.sum.Add(d)
	u.seen = true
	// A merged COUNT is a BIGINT.
	if u.opcode == opcode.AggregateCount && (u.sum.GreaterThan(maxCount) || u.sum.LessThan(minCount)) {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.DataOutOfRange, "BIGINT value is out of range in 'count': %s", u.sum)
	}
	u.float = u.float || v.IsFloat()
	return nil
}

func (u *accumulationUnit) Result() sqltypes.Value {
	if u.opcode == opcode.AggregateCount {
		return sqltypes.NewInt64(u.sum.IntPart())
	}
	if !u.seen {
		return sqltypes.NULL
	}
	if u.float {
		return sqltypes.NewFloat64(u.sum.InexactFloat64())
	}
	return sqltypes.NewDecimalFromBig(u.sum)
}

// averageUnit derives AVG from the merged COUNT and SUM partials.
type averageUnit struct {
	count *accumulationUnit
	sum   *accumulationUnit
}

func (u *averageUnit) Merge(values []sqltypes.Value) error {
	if err := u.count.Merge(values[:1]); err != nil {
		return err
	}
	return u.sum.Merge(values[1:2])
}

func (u *averageUnit) Result() sqltypes.Value {
	if !u.sum.seen || u.count.sum.IsZero() {
		return sqltypes.NULL
	}
	if u.sum.float {
		return sqltypes.NewFloat64(u.sum.sum.InexactFloat64() / u.count.sum.InexactFloat64())
	}
	scale := -u.sum.sum.Exponent()
	if scale < 0 {
		scale = 0
	}
	scale += divPrecisionIncrement
	avg := u.sum.sum.DivRound(u.count.sum, scale)
	return sqltypes.MakeTrusted(sqltypes.Decimal, []byte(avg.StringFixed(scale)))
}

// groupAggregator holds the units of every aggregate column of a group.
type groupAggregator struct {
	aggregations []AggregationColumn
	units        []AggregationUnit
	inputs       []sqltypes.Value
}

func newGroupAggregator(aggregations []AggregationColumn) *groupAggregator {
	ga := &groupAggregator{
		aggregations: aggregations,
		units:        make([]AggregationUnit, len(aggregations)),
		inputs:       make([]sqltypes.Value, 2),
	}
	for i, aggr := range aggregations {
		ga.units[i] = NewAggregationUnit(aggr)
	}
	return ga
}

// merge folds the partials of one shard row.
func (ga *groupAggregator) merge(row sqltypes.Row) error {
	for i, aggr := range ga.aggregations {
		values := ga.inputs[:1]
		if aggr.Opcode.NeedsDerivedColumns() {
			values = ga.inputs[:2]
			values[0], values[1] = row[aggr.Derived[0]], row[aggr.Derived[1]]
		} else {
			values[0] = row[aggr.Col]
		}
		if err := ga.units[i].Merge(values); err != nil {
			return err
		}
	}
	return nil
}

// finalize returns a copy of row with every aggregate column replaced by
// its folded value. The derived columns of AVG receive the merged count
// and sum.
func (ga *groupAggregator) finalize(row sqltypes.Row) sqltypes.Row {
	out := sqltypes.CopyRow(row)
	for i, aggr := range ga.aggregations {
		out[aggr.Col] = ga.units[i].Result()
		if avg, ok := ga.units[i].(*averageUnit); ok {
			out[aggr.Derived[0]] = avg.count.Result()
			out[aggr.Derived[1]] = avg.sum.Result()
		}
	}
	return out
}

// emptyGroupRow is the single row of an implicit group that saw no input:
// COUNT is 0 and every other column is NULL.
func emptyGroupRow(columns int, aggregations []AggregationColumn) sqltypes.Row {
	return newGroupAggregator(aggregations).finalize(make(sqltypes.Row, columns))
}
