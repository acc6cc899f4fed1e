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

package opcode

import (
	"encoding/json"
	"fmt"
	"strings"

	"vitess.io/shardmerge/go/sqltypes"
)

// AggregateOpcode is the aggregation Opcode.
type AggregateOpcode int

// These constants list the possible aggregate opcodes.
const (
	AggregateUnassigned = AggregateOpcode(iota)
	AggregateCount
	AggregateSum
	AggregateMin
	AggregateMax
	AggregateAvg
	_NumOfOpCodes // This line must be last of the opcodes!
)

// SupportedAggregates maps the list of supported aggregate
// functions to their opcodes.
var SupportedAggregates = map[string]AggregateOpcode{
	"count": AggregateCount,
	"sum":   AggregateSum,
	"min":   AggregateMin,
	"max":   AggregateMax,
	"avg":   AggregateAvg,
}

// AggregateName is used to print the aggregate opcodes.
var AggregateName = map[AggregateOpcode]string{
	AggregateCount: "count",
	AggregateSum:   "sum",
	AggregateMin:   "min",
	AggregateMax:   "max",
	AggregateAvg:   "avg",
}

// ParseAggregateOpcode looks up an opcode by its function name,
// ignoring case.
func ParseAggregateOpcode(name string) (AggregateOpcode, error) {
	code, ok := SupportedAggregates[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return AggregateUnassigned, fmt.Errorf("unsupported aggregate function: %q", name)
	}
	return code, nil
}

func (code AggregateOpcode) String() string {
	name := AggregateName[code]
	if name == "" {
		name = "ERROR"
	}
	return name
}

// MarshalJSON serializes the AggregateOpcode as a JSON string.
// It's used for testing and diagnostics.
func (code AggregateOpcode) MarshalJSON() ([]byte, error) {
	return json.Marshal(code.String())
}

// SQLType returns the type of the merged value for an aggregate
// whose shard partials have type typ.
func (code AggregateOpcode) SQLType(typ sqltypes.Type) sqltypes.Type {
	switch code {
	case AggregateUnassigned:
		return sqltypes.Null
	case AggregateMin, AggregateMax:
		return typ
	case AggregateSum, AggregateAvg:
		return sqltypes.Decimal
	case AggregateCount:
		return sqltypes.Int64
	default:
		panic(code.String()) // we have a unit test checking we never reach here
	}
}

// NeedsComparableValues returns true if the opcode orders its inputs
// rather than adding them up.
func (code AggregateOpcode) NeedsComparableValues() bool {
	switch code {
	case AggregateMin, AggregateMax:
		return true
	default:
		return false
	}
}

// NeedsDerivedColumns returns true if the merged value is computed from
// extra columns appended to each shard's output.
func (code AggregateOpcode) NeedsDerivedColumns() bool {
	return code == AggregateAvg
}
