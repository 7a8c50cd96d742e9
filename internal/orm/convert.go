package orm

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Assign stores a raw driver value into dst, a pointer to a plain or
// pointer-typed field. Drivers disagree on value types (MySQL returns text as
// []byte, SQLite returns every integer as int64), so conversion is lenient.
// A NULL leaves plain fields at their zero value and pointer fields nil.
func Assign(dst any, raw any) error {
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch d := dst.(type) {
	case *string:
		*d = ""
		if raw != nil {
			*d = fmt.Sprint(raw)
		}
		return nil
	case **string:
		*d = nil
		if raw != nil {
			s := fmt.Sprint(raw)
			*d = &s
		}
		return nil
	case *int:
		n, err := toInt64(raw)
		*d = int(n)
		return err
	case **int:
		*d = nil
		if raw != nil {
			n, err := toInt64(raw)
			if err != nil {
				return err
			}
			v := int(n)
			*d = &v
		}
		return nil
	case *int64:
		n, err := toInt64(raw)
		*d = n
		return err
	case **int64:
		*d = nil
		if raw != nil {
			n, err := toInt64(raw)
			if err != nil {
				return err
			}
			*d = &n
		}
		return nil
	case *float64:
		f, err := toFloat64(raw)
		*d = f
		return err
	case *bool:
		b, err := toBool(raw)
		*d = b
		return err
	case *time.Time:
		*d = time.Time{}
		if raw == nil {
			return nil
		}
		t, ok := raw.(time.Time)
		if !ok {
			parsed, err := time.Parse(time.RFC3339Nano, fmt.Sprint(raw))
			if err != nil {
				return fmt.Errorf("cannot convert %T to time: %w", raw, err)
			}
			t = parsed
		}
		*d = t
		return nil
	case *any:
		*d = raw
		return nil
	default:
		return fmt.Errorf("unsupported destination %T", dst)
	}
}

// Normalize converts a raw driver value into a stable Go type: text becomes
// string, integers int64, reals float64.
func Normalize(raw any) any {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return raw
	}
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			if f, ferr := strconv.ParseFloat(v, 64); ferr == nil {
				return int64(f), nil
			}
			return 0, fmt.Errorf("cannot convert %q to integer: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", raw)
	}
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float: %w", v, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", raw)
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", raw)
	}
}

// deref turns a nil pointer into a NULL and a non-nil pointer into its value
func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return v
	}
	if rv.IsNil() {
		return nil
	}
	return rv.Elem().Interface()
}
