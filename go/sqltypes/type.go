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

package sqltypes

import (
	"fmt"
	"strings"
)

// Type is the MySQL column type of a Value. The low byte is a sequence
// number and the high bits are flags describing the type family, using
// the same layout as the query protocol.
type Type int32

// These bit flags can be used to query on the
// common properties of types.
const (
	flagIsIntegral = 256
	flagIsUnsigned = 512
	flagIsFloat    = 1024
	flagIsQuoted   = 2048
	flagIsText     = 4096
	flagIsBinary   = 8192
)

// Vitess data types. These are idiomatically named synonyms for the
// wire protocol type values.
const (
	Null      Type = 0
	Int8      Type = 1 | flagIsIntegral
	Uint8     Type = 2 | flagIsIntegral | flagIsUnsigned
	Int16     Type = 3 | flagIsIntegral
	Uint16    Type = 4 | flagIsIntegral | flagIsUnsigned
	Int24     Type = 5 | flagIsIntegral
	Uint24    Type = 6 | flagIsIntegral | flagIsUnsigned
	Int32     Type = 7 | flagIsIntegral
	Uint32    Type = 8 | flagIsIntegral | flagIsUnsigned
	Int64     Type = 9 | flagIsIntegral
	Uint64    Type = 10 | flagIsIntegral | flagIsUnsigned
	Float32   Type = 11 | flagIsFloat
	Float64   Type = 12 | flagIsFloat
	Timestamp Type = 13 | flagIsQuoted
	Date      Type = 14 | flagIsQuoted
	Time      Type = 15 | flagIsQuoted
	Datetime  Type = 16 | flagIsQuoted
	Year      Type = 17 | flagIsIntegral | flagIsUnsigned
	Decimal   Type = 18
	Text      Type = 19 | flagIsQuoted | flagIsText
	Blob      Type = 20 | flagIsQuoted | flagIsBinary
	VarChar   Type = 21 | flagIsQuoted | flagIsText
	VarBinary Type = 22 | flagIsQuoted | flagIsBinary
	Char      Type = 23 | flagIsQuoted | flagIsText
	Binary    Type = 24 | flagIsQuoted | flagIsBinary
	Bit       Type = 25 | flagIsQuoted
	Enum      Type = 26 | flagIsQuoted
	Set       Type = 27 | flagIsQuoted
)

var typeNames = map[Type]string{
	Null:      "null",
	Int8:      "int8",
	Uint8:     "uint8",
	Int16:     "int16",
	Uint16:    "uint16",
	Int24:     "int24",
	Uint24:    "uint24",
	Int32:     "int32",
	Uint32:    "uint32",
	Int64:     "int64",
	Uint64:    "uint64",
	Float32:   "float32",
	Float64:   "float64",
	Timestamp: "timestamp",
	Date:      "date",
	Time:      "time",
	Datetime:  "datetime",
	Year:      "year",
	Decimal:   "decimal",
	Text:      "text",
	Blob:      "blob",
	VarChar:   "varchar",
	VarBinary: "varbinary",
	Char:      "char",
	Binary:    "binary",
	Bit:       "bit",
	Enum:      "enum",
	Set:       "set",
}

var typesByName = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for typ, name := range typeNames {
		m[name] = typ
	}
	return m
}()

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// TypeFromString returns the Type for the given lowercase or uppercase
// type name, as printed by Type.String.
func TypeFromString(name string) (Type, bool) {
	typ, ok := typesByName[strings.ToLower(strings.TrimSpace(name))]
	return typ, ok
}

// IsIntegral returns true if querypb.Type is an integral
// (signed/unsigned) that can be represented using
// up to 64 binary bits.
// If you have a Value object, use its member function.
func IsIntegral(t Type) bool {
	return int(t)&flagIsIntegral == flagIsIntegral
}

// IsSigned returns true if Type is a signed integral.
// If you have a Value object, use its member function.
func IsSigned(t Type) bool {
	return int(t)&(flagIsIntegral|flagIsUnsigned) == flagIsIntegral
}

// IsUnsigned returns true if Type is an unsigned integral.
// Caution: this is not the same as !IsSigned.
// If you have a Value object, use its member function.
func IsUnsigned(t Type) bool {
	return int(t)&(flagIsIntegral|flagIsUnsigned) == flagIsIntegral|flagIsUnsigned
}

// IsFloat returns true is Type is a floating point.
// If you have a Value object, use its member function.
func IsFloat(t Type) bool {
	return int(t)&flagIsFloat == flagIsFloat
}

// IsNumber returns true if the type is any type of number.
func IsNumber(t Type) bool {
	return IsIntegral(t) || IsFloat(t) || t == Decimal
}

// IsQuoted returns true if Type is a quoted text or binary.
// If you have a Value object, use its member function.
func IsQuoted(t Type) bool {
	return int(t)&flagIsQuoted == flagIsQuoted
}

// IsText returns true if Type is a text.
// If you have a Value object, use its member function.
func IsText(t Type) bool {
	return int(t)&flagIsText == flagIsText
}

// IsBinary returns true if Type is a binary.
// If you have a Value object, use its member function.
func IsBinary(t Type) bool {
	return int(t)&flagIsBinary == flagIsBinary
}

// IsTemporal returns true if Type is a date or time type.
func IsTemporal(t Type) bool {
	switch t {
	case Timestamp, Date, Time, Datetime:
		return true
	}
	return false
}
