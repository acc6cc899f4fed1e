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

// Field describes a single column returned by a query.
type Field struct {
	Name string
	Type Type
}

// Result represents a query result.
type Result struct {
	Fields []*Field
	Rows   []Row
}

// Copy creates a deep copy of Result.
func (result *Result) Copy() *Result {
	out := &Result{}
	if result.Fields != nil {
		out.Fields = make([]*Field, len(result.Fields))
		for i, f := range result.Fields {
			fc := *f
			out.Fields[i] = &fc
		}
	}
	if result.Rows != nil {
		out.Rows = make([]Row, 0, len(result.Rows))
		for _, r := range result.Rows {
			out.Rows = append(out.Rows, CopyRow(r))
		}
	}
	return out
}

// CopyRow makes a copy of the row.
func CopyRow(r Row) Row {
	// The raw bytes of the values are supposed to be treated as read-only.
	// So, there's no need to copy them.
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Truncate returns a new Result with all the rows truncated
// to the specified number of columns.
func (result *Result) Truncate(l int) *Result {
	if l == 0 {
		return result
	}

	out := &Result{}
	if result.Fields != nil {
		out.Fields = result.Fields[:l]
	}
	if result.Rows != nil {
		out.Rows = make([]Row, 0, len(result.Rows))
		for _, r := range result.Rows {
			out.Rows = append(out.Rows, r[:l])
		}
	}
	return out
}

// FieldsEqual compares two arrays of fields.
// reflect.DeepEqual shouldn't be used because of the
// protos.
func FieldsEqual(f1, f2 []*Field) bool {
	if len(f1) != len(f2) {
		return false
	}
	for i, f := range f1 {
		if *f != *f2[i] {
			return false
		}
	}
	return true
}

// Equal compares the Result with another one.
func (result *Result) Equal(other *Result) bool {
	// Check for nil cases
	if result == nil {
		return other == nil
	}
	if other == nil {
		return false
	}

	// Compare Fields, RowsAffected, InsertID, Rows, Extras.
	return FieldsEqual(result.Fields, other.Fields) &&
		RowsEqual(result.Rows, other.Rows)
}

// RowsEqual compares two arrays of rows.
func RowsEqual(r1, r2 []Row) bool {
	if len(r1) != len(r2) {
		return false
	}
	for i, r := range r1 {
		if !RowEqual(r, r2[i]) {
			return false
		}
	}
	return true
}

// RowEqual compares two rows.
func RowEqual(r1, r2 Row) bool {
	if len(r1) != len(r2) {
		return false
	}
	for i, v := range r1 {
		if !v.Equal(r2[i]) {
			return false
		}
	}
	return true
}
