/*
Copyright 2021 The Vitess Authors.

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

package vterrors

// State is error state
type State int

// All the error states
const (
	Undefined State = iota

	// invalid argument
	BadFieldError
	DataOutOfRange
	WrongTypeForMerge
	UnknownColumnLabel

	// failed precondition
	WrongMergeContext
	WrongNumberOfColumnsInSelect
	NoCurrentRow

	// resource exhausted
	MergeGroupsExceeded

	// No state should be added below NumOfStates
	NumOfStates
)

var stateNames = [...]string{
	Undefined:                    "Undefined",
	BadFieldError:                "BadFieldError",
	DataOutOfRange:               "DataOutOfRange",
	WrongTypeForMerge:            "WrongTypeForMerge",
	UnknownColumnLabel:           "UnknownColumnLabel",
	WrongMergeContext:            "WrongMergeContext",
	WrongNumberOfColumnsInSelect: "WrongNumberOfColumnsInSelect",
	NoCurrentRow:                 "NoCurrentRow",
	MergeGroupsExceeded:          "MergeGroupsExceeded",
}

func (s State) String() string {
	if s >= 0 && s < NumOfStates {
		return stateNames[s]
	}
	return "Undefined"
}

// ErrorWithState is used to return the error State is such can be found
type ErrorWithState interface {
	ErrorState() State
}
