package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ScalarHandler converts values of a scalar type.
//
// CanConvertFrom whitelists the Go kinds accepted as input (literal values
// arrive as int64, float64, string and bool; JSON variables as float64 or
// json.Number, string and bool). ConvertInput produces the value resolvers
// receive and ToOutput produces the response value.
type ScalarHandler interface {
	CanConvertFrom(v any) bool
	ConvertInput(v any) (any, error)
	ToOutput(v any) (any, error)
}

// ScalarFuncs adapts plain functions to ScalarHandler. A nil Accept accepts
// everything; nil Input and Output pass values through.
type ScalarFuncs struct {
	Accept func(v any) bool
	Input  func(v any) (any, error)
	Output func(v any) (any, error)
}

func (s ScalarFuncs) CanConvertFrom(v any) bool {
	if s.Accept == nil {
		return true
	}
	return s.Accept(v)
}

func (s ScalarFuncs) ConvertInput(v any) (any, error) {
	if s.Input == nil {
		return v, nil
	}
	return s.Input(v)
}

func (s ScalarFuncs) ToOutput(v any) (any, error) {
	if s.Output == nil {
		return v, nil
	}
	return s.Output(v)
}

// StringScalar is the built-in String type.
var StringScalar = &TypeDef{
	Name:        "String",
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
	Scalar: ScalarFuncs{
		Accept: func(v any) bool { _, ok := v.(string); return ok },
		Output: outputString,
	},
}

// IntScalar is the built-in Int type.
var IntScalar = &TypeDef{
	Name:        "Int",
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
	Scalar: ScalarFuncs{
		Accept: isIntegral,
		Input: func(v any) (any, error) {
			n, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			if n > math.MaxInt32 || n < math.MinInt32 {
				return nil, fmt.Errorf("Int cannot represent value %v", v)
			}
			return int(n), nil
		},
		Output: func(v any) (any, error) {
			n, err := toInt64(v)
			if err != nil {
				return nil, fmt.Errorf("Int cannot represent value of type %T", v)
			}
			if n > math.MaxInt32 || n < math.MinInt32 {
				return nil, fmt.Errorf("Int cannot represent value %v", v)
			}
			return int(n), nil
		},
	},
}

// FloatScalar is the built-in Float type.
var FloatScalar = &TypeDef{
	Name:        "Float",
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
	Scalar: ScalarFuncs{
		Accept: isNumber,
		Input:  toFloat64,
		Output: toFloat64,
	},
}

// BooleanScalar is the built-in Boolean type.
var BooleanScalar = &TypeDef{
	Name:        "Boolean",
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
	Scalar: ScalarFuncs{
		Accept: func(v any) bool { _, ok := v.(bool); return ok },
		Output: func(v any) (any, error) {
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Bool {
				return nil, fmt.Errorf("Boolean cannot represent value of type %T", v)
			}
			return rv.Bool(), nil
		},
	},
}

// IDScalar is the built-in ID type.
var IDScalar = &TypeDef{
	Name:        "ID",
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
	Scalar: ScalarFuncs{
		Accept: func(v any) bool {
			_, ok := v.(string)
			return ok || isIntegral(v)
		},
		Input: func(v any) (any, error) {
			if s, ok := v.(string); ok {
				return s, nil
			}
			n, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			return strconv.FormatInt(n, 10), nil
		},
		Output: func(v any) (any, error) {
			if n, err := toInt64(v); err == nil {
				return strconv.FormatInt(n, 10), nil
			}
			return outputString(v)
		},
	},
}

// LongScalar is a 64-bit integer type.
var LongScalar = &TypeDef{
	Name:        "Long",
	Kind:        TypeKindScalar,
	Description: "The `Long` scalar type represents 64-bit signed whole numeric values.",
	Scalar: ScalarFuncs{
		Accept: isIntegral,
		Input:  func(v any) (any, error) { return toInt64(v) },
		Output: func(v any) (any, error) { return toInt64(v) },
	},
}

// DateTimeScalar is an RFC 3339 timestamp. Input values become time.Time.
var DateTimeScalar = &TypeDef{
	Name:        "DateTime",
	Kind:        TypeKindScalar,
	Description: "The `DateTime` scalar type represents an RFC 3339 timestamp.",
	Scalar: ScalarFuncs{
		Accept: func(v any) bool {
			switch v.(type) {
			case string, time.Time, *timestamppb.Timestamp:
				return true
			}
			return false
		},
		Input: toTime,
		Output: func(v any) (any, error) {
			t, err := toTime(v)
			if err != nil {
				return nil, err
			}
			return t.(time.Time).Format(time.RFC3339Nano), nil
		},
	},
}

// UuidScalar is a UUID type. Input values become uuid.UUID.
var UuidScalar = &TypeDef{
	Name:        "Uuid",
	Kind:        TypeKindScalar,
	Description: "The `Uuid` scalar type represents a RFC 4122 UUID.",
	Scalar: ScalarFuncs{
		Accept: func(v any) bool {
			switch v.(type) {
			case string, uuid.UUID:
				return true
			}
			return false
		},
		Input: toUUID,
		Output: func(v any) (any, error) {
			id, err := toUUID(v)
			if err != nil {
				return nil, err
			}
			return id.(uuid.UUID).String(), nil
		},
	},
}

func toTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *timestamppb.Timestamp:
		if err := t.CheckValid(); err != nil {
			return nil, fmt.Errorf("invalid timestamp: %w", err)
		}
		return t.AsTime(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, fmt.Errorf("DateTime cannot represent %q: %w", t, err)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("DateTime cannot represent value of type %T", v)
}

func toUUID(v any) (any, error) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, nil
	case string:
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("Uuid cannot represent %q: %w", id, err)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("Uuid cannot represent value of type %T", v)
}

func outputString(v any) (any, error) {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, fmt.Errorf("String cannot represent value of type %T", v)
}

func isIntegral(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, json.Number:
		return true
	}
	return isIntegral(v)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(n), nil
	case float32:
		return toInt64(float64(n))
	case json.Number:
		return n.Int64()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %v overflows int64", v)
		}
		return int64(u), nil
	}
	return 0, fmt.Errorf("value of type %T is not an integer", v)
}

func toFloat64(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	i, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("Float cannot represent value of type %T", v)
	}
	return float64(i), nil
}
