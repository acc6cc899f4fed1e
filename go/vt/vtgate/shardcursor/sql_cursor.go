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
	"database/sql"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"

	"vitess.io/shardmerge/go/sqltypes"
	"vitess.io/shardmerge/go/vt/vterrors"
	"vitess.io/shardmerge/go/vt/vtgate/engine"
)

var _ engine.Cursor = (*SQLCursor)(nil)

// SQLCursor streams the rows of one shard query. Column types come from
// the types declared by the driver; a column without a declared type
// (an expression in SQLite, for instance) has a Null field type and its
// values are typed from what the driver returns.
type SQLCursor struct {
	shard  string
	rows   *sql.Rows
	fields []*sqltypes.Field
	dest   []any
	ptrs   []any
	row    sqltypes.Row
	done   bool
}

// NewSQLCursor wraps rows returned by the shard. The cursor owns rows
// and closes them once they are exhausted or Close is called.
func NewSQLCursor(shard string, rows *sql.Rows) (*SQLCursor, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, vterrors.Wrapf(err, "shard %s", shard)
	}
	c := &SQLCursor{
		shard:  shard,
		rows:   rows,
		fields: make([]*sqltypes.Field, len(colTypes)),
		dest:   make([]any, len(colTypes)),
		ptrs:   make([]any, len(colTypes)),
	}
	for i, ct := range colTypes {
		c.fields[i] = &sqltypes.Field{Name: ct.Name(), Type: TypeFromDatabaseName(ct.DatabaseTypeName())}
		c.ptrs[i] = &c.dest[i]
	}
	return c, nil
}

// Shard returns the name of the shard the rows come from.
func (c *SQLCursor) Shard() string {
	return c.shard
}

// Fields implements the engine.Cursor interface.
func (c *SQLCursor) Fields() []*sqltypes.Field {
	return c.fields
}

// Next implements the engine.Cursor interface.
func (c *SQLCursor) Next() (bool, error) {
	c.row = nil
	if c.done {
		return false, nil
	}
	if !c.rows.Next() {
		c.done = true
		if err := c.rows.Err(); err != nil {
			return false, vterrors.Wrapf(err, "shard %s", c.shard)
		}
		return false, nil
	}
	if err := c.rows.Scan(c.ptrs...); err != nil {
		return false, vterrors.Wrapf(err, "shard %s", c.shard)
	}
	row := make(sqltypes.Row, len(c.dest))
	for i, v := range c.dest {
		val, err := convertValue(v, c.fields[i].Type)
		if err != nil {
			return false, vterrors.Wrapf(err, "shard %s column %s", c.shard, c.fields[i].Name)
		}
		row[i] = val
	}
	c.row = row
	return true, nil
}

// Value implements the engine.Cursor interface.
func (c *SQLCursor) Value(col int) (sqltypes.Value, error) {
	if c.row == nil {
		return sqltypes.NULL, errNoCurrentRow()
	}
	return columnValue(c.row, col)
}

// Close releases the rows. It is safe to call more than once.
func (c *SQLCursor) Close() error {
	c.done = true
	c.row = nil
	return c.rows.Close()
}

var databaseTypes = map[string]sqltypes.Type{
	"TINYINT":          sqltypes.Int8,
	"BOOL":             sqltypes.Int8,
	"BOOLEAN":          sqltypes.Int8,
	"SMALLINT":         sqltypes.Int16,
	"MEDIUMINT":        sqltypes.Int24,
	"INT":              sqltypes.Int32,
	"INTEGER":          sqltypes.Int64,
	"BIGINT":           sqltypes.Int64,
	"FLOAT":            sqltypes.Float32,
	"REAL":             sqltypes.Float64,
	"DOUBLE":           sqltypes.Float64,
	"DOUBLE PRECISION": sqltypes.Float64,
	"DECIMAL":          sqltypes.Decimal,
	"DEC":              sqltypes.Decimal,
	"NUMERIC":          sqltypes.Decimal,
	"CHAR":             sqltypes.Char,
	"NCHAR":            sqltypes.Char,
	"VARCHAR":          sqltypes.VarChar,
	"NVARCHAR":         sqltypes.VarChar,
	"TEXT":             sqltypes.Text,
	"TINYTEXT":         sqltypes.Text,
	"MEDIUMTEXT":       sqltypes.Text,
	"LONGTEXT":         sqltypes.Text,
	"CLOB":             sqltypes.Text,
	"JSON":             sqltypes.Text,
	"BINARY":           sqltypes.Binary,
	"VARBINARY":        sqltypes.VarBinary,
	"BLOB":             sqltypes.Blob,
	"TINYBLOB":         sqltypes.Blob,
	"MEDIUMBLOB":       sqltypes.Blob,
	"LONGBLOB":         sqltypes.Blob,
	"DATE":             sqltypes.Date,
	"TIME":             sqltypes.Time,
	"DATETIME":         sqltypes.Datetime,
	"TIMESTAMP":        sqltypes.Timestamp,
	"YEAR":             sqltypes.Year,
	"BIT":              sqltypes.Bit,
	"ENUM":             sqltypes.Enum,
	"SET":              sqltypes.Set,
}

var unsignedTypes = map[sqltypes.Type]sqltypes.Type{
	sqltypes.Int8:  sqltypes.Uint8,
	sqltypes.Int16: sqltypes.Uint16,
	sqltypes.Int24: sqltypes.Uint24,
	sqltypes.Int32: sqltypes.Uint32,
	sqltypes.Int64: sqltypes.Uint64,
}

// TypeFromDatabaseName maps a driver column type name, such as
// "VARCHAR(20)" or "UNSIGNED BIGINT", to a Type. Unknown and empty names
// map to Null.
func TypeFromDatabaseName(name string) sqltypes.Type {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	unsigned := false
	if rest, ok := strings.CutPrefix(name, "UNSIGNED "); ok {
		name, unsigned = rest, true
	}
	if rest, ok := strings.CutSuffix(name, " UNSIGNED"); ok {
		name, unsigned = rest, true
	}
	typ, ok := databaseTypes[name]
	if !ok {
		return sqltypes.Null
	}
	if unsigned {
		if u, ok := unsignedTypes[typ]; ok {
			return u
		}
	}
	return typ
}

// convertValue builds a Value from a value scanned by database/sql.
// Drivers return textual values for most types, which are checked
// against the declared type; native values are typed by their Go type.
func convertValue(v any, declared sqltypes.Type) (sqltypes.Value, error) {
	switch v := v.(type) {
	case nil:
		return sqltypes.NULL, nil
	case int64:
		switch {
		case sqltypes.IsIntegral(declared):
			return sqltypes.NewValue(declared, strconv.AppendInt(nil, v, 10))
		case declared == sqltypes.Decimal:
			return sqltypes.NewDecimal(strconv.FormatInt(v, 10)), nil
		}
		return sqltypes.NewInt64(v), nil
	case uint64:
		return sqltypes.NewUint64(v), nil
	case float64:
		if declared == sqltypes.Decimal {
			return sqltypes.NewDecimal(strconv.FormatFloat(v, 'f', -1, 64)), nil
		}
		return sqltypes.NewFloat64(v), nil
	case float32:
		return sqltypes.MakeTrusted(sqltypes.Float32, strconv.AppendFloat(nil, float64(v), 'g', -1, 32)), nil
	case bool:
		if v {
			return sqltypes.NewInt64(1), nil
		}
		return sqltypes.NewInt64(0), nil
	case []byte:
		if declared == sqltypes.Null {
			return sqltypes.MakeTrusted(sqltypes.VarBinary, v), nil
		}
		return sqltypes.NewValue(declared, v)
	case string:
		if declared == sqltypes.Null {
			return sqltypes.NewVarChar(v), nil
		}
		return sqltypes.NewValue(declared, []byte(v))
	case time.Time:
		switch declared {
		case sqltypes.Date:
			return sqltypes.MakeTrusted(sqltypes.Date, []byte(v.Format(time.DateOnly))), nil
		case sqltypes.Timestamp:
			return sqltypes.MakeTrusted(sqltypes.Timestamp, []byte(v.Format("2006-01-02 15:04:05.999999"))), nil
		}
		return sqltypes.MakeTrusted(sqltypes.Datetime, []byte(v.Format("2006-01-02 15:04:05.999999"))), nil
	default:
		return sqltypes.NULL, vterrors.Errorf(codes.InvalidArgument, "unsupported driver value of type %T", v)
	}
}
