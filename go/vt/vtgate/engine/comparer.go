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
	"bytes"
	"strconv"

	"golang.org/x/text/cases"
	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vterrors"
)

// comparer is one ordering key of a merge. It is used by a single
// goroutine.
type comparer struct {
	col           int
	desc          bool
	nullOrder     NullOrder
	caseSensitive bool

	// fold is reused across comparisons of case-insensitive text.
	fold *cases.Caser
}

// compare compares two rows on the comparer's column.
// It returns -1 if r1 sorts first, 1 if r2 does and 0 if they tie.
func (c *comparer) compare(r1, r2 sqltypes.Row) (int, error) {
	if c.fold == nil && !c.caseSensitive {
		fold := cases.Fold()
		c.fold = &fold
	}
	return compareValues(r1[c.col], r2[c.col], c.desc, c.nullOrder, c.caseSensitive, c.fold)
}

func orderByComparers(items []OrderByItem) []*comparer {
	comparers := make([]*comparer, 0, len(items))
	for _, obi := range items {
		comparers = append(comparers, &comparer{
			col:           obi.Col,
			desc:          obi.Desc,
			nullOrder:     obi.NullOrder,
			caseSensitive: obi.CaseSensitive,
		})
	}
	return comparers
}

func groupByComparers(items []GroupByItem) []*comparer {
	comparers := make([]*comparer, 0, len(items))
	for _, gbi := range items {
		comparers = append(comparers, &comparer{
			col:           gbi.Col,
			desc:          gbi.Desc,
			nullOrder:     DefaultNullOrder(gbi.Desc),
			caseSensitive: gbi.CaseSensitive,
		})
	}
	return comparers
}

// compareRows applies the comparers in order and returns the first
// non-zero result.
func compareRows(comparers []*comparer, r1, r2 sqltypes.Row) (int, error) {
	for _, c := range comparers {
		cmp, err := c.compare(r1, r2)
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}

// Compare orders two values of one column. NULL placement is fixed by
// nullOrder regardless of desc, and desc reverses every other result.
// Text values are compared by code point when caseSensitive is set and
// after case folding otherwise. Values of unrelated types cannot be
// compared and return an error.
func Compare(a, b sqltypes.Value, desc bool, nullOrder NullOrder, caseSensitive bool) (int, error) {
	return compareValues(a, b, desc, nullOrder, caseSensitive, nil)
}

// compareValues is Compare with a reusable case folder. A nil fold is
// created on demand.
func compareValues(a, b sqltypes.Value, desc bool, nullOrder NullOrder, caseSensitive bool, fold *cases.Caser) (int, error) {
	aNull, bNull := a.IsNull(), b.IsNull()
	switch {
	case aNull && bNull:
		return 0, nil
	case aNull:
		if nullOrder == NullsLast {
			return 1, nil
		}
		return -1, nil
	case bNull:
		if nullOrder == NullsLast {
			return -1, nil
		}
		return 1, nil
	}

	cmp, err := compareNonNull(a, b, caseSensitive, fold)
	if err != nil {
		return 0, err
	}
	if desc {
		cmp = -cmp
	}
	return cmp, nil
}

// compareNonNull compares two non-NULL values in ascending order.
func compareNonNull(a, b sqltypes.Value, caseSensitive bool, fold *cases.Caser) (int, error) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return compareNumeric(a, b)
	case a.IsText() && b.IsText():
		if caseSensitive {
			return bytes.Compare(a.Raw(), b.Raw()), nil
		}
		if fold == nil {
			f := cases.Fold()
			fold = &f
		}
		return bytes.Compare(fold.Bytes(a.Raw()), fold.Bytes(b.Raw())), nil
	case a.IsQuoted() && b.IsQuoted():
		// Binary, temporal and the remaining quoted types sort by their bytes.
		return bytes.Compare(a.Raw(), b.Raw()), nil
	}
	return 0, typeMismatch("cannot compare %v and %v", a, b)
}

func compareNumeric(a, b sqltypes.Value) (int, error) {
	switch {
	case a.IsSigned() && b.IsSigned():
		ai, aerr := strconv.ParseInt(a.ToString(), 10, 64)
		bi, berr := strconv.ParseInt(b.ToString(), 10, 64)
		if aerr == nil && berr == nil {
			return compareInts(ai, bi), nil
		}
	case a.IsUnsigned() && b.IsUnsigned():
		au, aerr := strconv.ParseUint(a.ToString(), 10, 64)
		bu, berr := strconv.ParseUint(b.ToString(), 10, 64)
		if aerr == nil && berr == nil {
			switch {
			case au < bu:
				return -1, nil
			case au > bu:
				return 1, nil
			}
			return 0, nil
		}
	}
	ad, err := a.ToDecimal()
	if err != nil {
		return 0, typeMismatch("cannot compare %v: %v", a, err)
	}
	bd, err := b.ToDecimal()
	if err != nil {
		return 0, typeMismatch("cannot compare %v: %v", b, err)
	}
	return ad.Cmp(bd), nil
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func typeMismatch(format string, args ...any) error {
	return vterrors.NewErrorf(codes.InvalidArgument, vterrors.WrongTypeForMerge, format, args...)
}
