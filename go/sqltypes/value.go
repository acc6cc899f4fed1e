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

// Package sqltypes implements interfaces and types that represent SQL values.
package sqltypes

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/vt/vterrors"
)

// NULL represents the NULL value.
var NULL = Value{}

// Value can store any SQL value. If the value represents
// an integral type, the bytes are always stored as a canonical
// representation that matches how MySQL returns such values.
type Value struct {
	typ Type
	val []byte
}

// Row is a single row of values.
type Row = []Value

// NewValue builds a Value using typ and val. If the value and typ
// don't match, it returns an error.
func NewValue(typ Type, val []byte) (v Value, err error) {
	switch {
	case typ == Null:
		return NULL, nil
	case IsSigned(typ):
		if _, err := strconv.ParseInt(string(val), 0, 64); err != nil {
			return NULL, vterrors.Errorf(codes.InvalidArgument, "invalid %v value: %q", typ, val)
		}
		return MakeTrusted(typ, val), nil
	case IsUnsigned(typ):
		if _, err := strconv.ParseUint(string(val), 0, 64); err != nil {
			return NULL, vterrors.Errorf(codes.InvalidArgument, "invalid %v value: %q", typ, val)
		}
		return MakeTrusted(typ, val), nil
	case IsFloat(typ):
		if _, err := strconv.ParseFloat(string(val), 64); err != nil {
			return NULL, vterrors.Errorf(codes.InvalidArgument, "invalid %v value: %q", typ, val)
		}
		return MakeTrusted(typ, val), nil
	case typ == Decimal:
		if _, err := decimal.NewFromString(string(val)); err != nil {
			return NULL, vterrors.Errorf(codes.InvalidArgument, "invalid %v value: %q", typ, val)
		}
		return MakeTrusted(typ, val), nil
	}
	// All other types are unchecked.
	return MakeTrusted(typ, val), nil
}

// MakeTrusted makes a new Value based on the type.
// This function should only be used if you know the value
// and type conform to the rules. Every place this function is
// called, a comment is needed that explains why it's justified.
// Exceptions: The current package and mysql package do not need
// comments. Other packages can also use the function to create
// VarBinary or VarChar values.
func MakeTrusted(typ Type, val []byte) Value {
	if typ == Null {
		return NULL
	}
	return Value{typ: typ, val: val}
}

// NewInt64 builds an Int64 Value.
func NewInt64(v int64) Value {
	return MakeTrusted(Int64, strconv.AppendInt(nil, v, 10))
}

// NewUint64 builds an Uint64 Value.
func NewUint64(v uint64) Value {
	return MakeTrusted(Uint64, strconv.AppendUint(nil, v, 10))
}

// NewFloat64 builds an Float64 Value.
func NewFloat64(v float64) Value {
	return MakeTrusted(Float64, strconv.AppendFloat(nil, v, 'g', -1, 64))
}

// NewDecimal builds a Decimal Value from its textual representation.
func NewDecimal(v string) Value {
	return MakeTrusted(Decimal, []byte(v))
}

// NewDecimalFromBig builds a Decimal Value from an exact decimal,
// keeping the scale of d.
func NewDecimalFromBig(d decimal.Decimal) Value {
	scale := -d.Exponent()
	if scale < 0 {
		scale = 0
	}
	return MakeTrusted(Decimal, []byte(d.StringFixed(scale)))
}

// NewVarChar builds a VarChar Value.
func NewVarChar(v string) Value {
	return MakeTrusted(VarChar, []byte(v))
}

// NewVarBinary builds a VarBinary Value.
// The input is a string because it's the most common use case.
func NewVarBinary(v string) Value {
	return MakeTrusted(VarBinary, []byte(v))
}

// TestValue builds a Value from typ and val.
// This function should only be used for testing.
func TestValue(typ Type, val string) Value {
	return MakeTrusted(typ, []byte(val))
}

// Type returns the type of Value.
func (v Value) Type() Type {
	return v.typ
}

// Raw returns the internal representation of the value. For newer types,
// this may not match MySQL's representation.
func (v Value) Raw() []byte {
	return v.val
}

// Len returns the length.
func (v Value) Len() int {
	return len(v.val)
}

// IsNull returns true if Value is null.
func (v Value) IsNull() bool {
	return v.typ == Null
}

// IsIntegral returns true if Value is an integral.
func (v Value) IsIntegral() bool {
	return IsIntegral(v.typ)
}

// IsSigned returns true if Value is a signed integral.
func (v Value) IsSigned() bool {
	return IsSigned(v.typ)
}

// IsUnsigned returns true if Value is an unsigned integral.
func (v Value) IsUnsigned() bool {
	return IsUnsigned(v.typ)
}

// IsFloat returns true if Value is a float.
func (v Value) IsFloat() bool {
	return IsFloat(v.typ)
}

// IsDecimal returns true if Value is a decimal.
func (v Value) IsDecimal() bool {
	return v.typ == Decimal
}

// IsNumber returns true if Value is any kind of number.
func (v Value) IsNumber() bool {
	return IsNumber(v.typ)
}

// IsQuoted returns true if Value must be SQL-quoted.
func (v Value) IsQuoted() bool {
	return IsQuoted(v.typ)
}

// IsText returns true if Value is a collatable text.
func (v Value) IsText() bool {
	return IsText(v.typ)
}

// IsBinary returns true if Value is binary.
func (v Value) IsBinary() bool {
	return IsBinary(v.typ)
}

// ToString returns the value as MySQL would return it as string.
// If the value is not convertible like in the case of Expression, it returns nil.
func (v Value) ToString() string {
	return string(v.val)
}

// ToBytes returns the value as MySQL would return it as a []byte.
func (v Value) ToBytes() []byte {
	return v.val
}

// ToInt64 returns the value as MySQL would return it as a int64.
func (v Value) ToInt64() (int64, error) {
	if !v.IsIntegral() {
		return 0, vterrors.Errorf(codes.InvalidArgument, "cannot convert %v to int64", v)
	}
	return strconv.ParseInt(string(v.val), 10, 64)
}

// ToUint64 returns the value as MySQL would return it as a uint64.
func (v Value) ToUint64() (uint64, error) {
	if !v.IsIntegral() {
		return 0, vterrors.Errorf(codes.InvalidArgument, "cannot convert %v to uint64", v)
	}
	return strconv.ParseUint(string(v.val), 10, 64)
}

// ToFloat64 returns the value as MySQL would return it as a float64.
func (v Value) ToFloat64() (float64, error) {
	if !v.IsNumber() {
		return 0, vterrors.Errorf(codes.InvalidArgument, "cannot convert %v to float64", v)
	}
	return strconv.ParseFloat(string(v.val), 64)
}

// ToDecimal returns the numeric value as an exact decimal. Floats are
// converted through their shortest textual representation.
func (v Value) ToDecimal() (decimal.Decimal, error) {
	if !v.IsNumber() {
		return decimal.Zero, vterrors.Errorf(codes.InvalidArgument, "cannot convert %v to decimal", v)
	}
	d, err := decimal.NewFromString(string(v.val))
	if err != nil {
		return decimal.Zero, vterrors.Wrapf(err, "cannot convert %v to decimal", v)
	}
	return d, nil
}

// Equal compares this Value to other. It ignores any flags.
func (v Value) Equal(other Value) bool {
	return v.typ == other.typ && bytes.Equal(v.val, other.val)
}

// String returns a printable version of the value.
func (v Value) String() string {
	if v.typ == Null {
		return "NULL"
	}
	if v.IsQuoted() {
		return fmt.Sprintf("%v(%q)", v.typ, v.val)
	}
	return fmt.Sprintf("%v(%s)", v.typ, v.val)
}
