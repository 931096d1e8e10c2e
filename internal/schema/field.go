package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Type is the storage type of a field.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	Time
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Time:
		return "time"
	default:
		return "unknown"
	}
}

// SQLType returns the Postgres column type used for t.
func (t Type) SQLType() string {
	switch t {
	case Int:
		return "BIGINT"
	case Float:
		return "DOUBLE PRECISION"
	case Bool:
		return "BOOLEAN"
	case Time:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// Field describes one attribute of an entity.
type Field struct {
	// Name is the attribute name used in JSON bodies and query strings.
	Name string
	// Column is the SQL column backing the attribute.
	Column string
	Type   Type
	// Hidden fields are never returned, filtered on or sorted by through the API.
	Hidden   bool
	Unique   bool
	Required bool
}

// dateLayout is accepted for time values in addition to RFC 3339.
const dateLayout = "2006-01-02"

// Parse converts a raw query-string value into the field's canonical Go type.
func (f Field) Parse(raw string) (any, error) {
	switch f.Type {
	case Int:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return v, nil
	case Float:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return v, nil
	case Bool:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return v, nil
	case Time:
		raw = strings.TrimSpace(raw)
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse(dateLayout, raw); err == nil {
			return t.UTC(), nil
		}
		return nil, fmt.Errorf("%q is not a date (use YYYY-MM-DD or RFC 3339)", raw)
	default:
		return raw, nil
	}
}

// Normalize converts v to the canonical representation stored in records:
// string, int64, float64, bool or UTC time.Time. Nil pointers become nil.
func (f Field) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		v = rv.Elem().Interface()
		rv = rv.Elem()
	}

	switch f.Type {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Int:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return int64(rv.Uint()), nil
		case reflect.Float32, reflect.Float64:
			if fv := rv.Float(); fv == float64(int64(fv)) {
				return int64(fv), nil
			}
		}
	case Float:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Time:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("field %s: cannot use %T as %s", f.Name, v, f.Type)
}
