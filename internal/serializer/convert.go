package serializer

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	objectIDHandle = reflect.TypeOf(primitive.ObjectID{})
	timeHandle     = reflect.TypeOf(time.Time{})
	decimalHandle  = reflect.TypeOf(primitive.Decimal128{})
)

// convertInput converts a decoded JSON value into the Go type of the backing
// document property, enforcing the field's choices, length, and type rules.
// The returned value has the property's element type; pointer wrapping happens
// in setScalar.
func convertInput(raw interface{}, field *FieldSpec) (interface{}, error) {
	targetType := field.prop.Type
	if targetType.Kind() == reflect.Ptr {
		targetType = targetType.Elem()
	}

	switch targetType {
	case objectIDHandle:
		return convertObjectID(raw)
	case timeHandle:
		return convertTime(raw)
	case decimalHandle:
		return convertDecimal(raw)
	}

	switch targetType.Kind() {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string")
		}
		if field.MaxLength > 0 && len(s) > field.MaxLength {
			return nil, fmt.Errorf("ensure this field has no more than %d characters", field.MaxLength)
		}
		if len(field.Choices) > 0 && !containsChoice(field.Choices, s) {
			return nil, fmt.Errorf("'%s' is not a valid choice", s)
		}
		return reflect.ValueOf(s).Convert(targetType).Interface(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := integralValue(raw)
		if err != nil {
			return nil, err
		}
		value := reflect.New(targetType).Elem()
		if value.OverflowInt(n) {
			return nil, fmt.Errorf("value %d overflows %s", n, targetType.Kind())
		}
		value.SetInt(n)
		return value.Interface(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := integralValue(raw)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("expected a non-negative integer")
		}
		value := reflect.New(targetType).Elem()
		if value.OverflowUint(uint64(n)) {
			return nil, fmt.Errorf("value %d overflows %s", n, targetType.Kind())
		}
		value.SetUint(uint64(n))
		return value.Interface(), nil

	case reflect.Float32, reflect.Float64:
		f, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number")
		}
		value := reflect.New(targetType).Elem()
		value.SetFloat(f)
		return value.Interface(), nil

	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean")
		}
		return b, nil

	case reflect.Slice:
		return convertSlice(raw, targetType, field)
	}

	return nil, fmt.Errorf("unsupported field type %s", targetType)
}

// integralValue accepts the numeric forms a JSON decoder produces and rejects
// fractional values for integer fields.
func integralValue(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected an integer")
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("expected an integer")
	}
}

func convertObjectID(raw interface{}) (interface{}, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected an object id string")
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, fmt.Errorf("'%s' is not a valid object id", s)
	}
	return id, nil
}

func convertTime(raw interface{}) (interface{}, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected an RFC 3339 timestamp string")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("'%s' is not a valid RFC 3339 timestamp", s)
	}
	return t.UTC(), nil
}

// convertDecimal accepts string or numeric input and converts it through
// shopspring/decimal so precision survives the trip into Decimal128 storage.
func convertDecimal(raw interface{}) (interface{}, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid decimal", v)
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		return nil, fmt.Errorf("expected a decimal string or number")
	}

	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return nil, fmt.Errorf("'%s' cannot be stored as a decimal128", d.String())
	}
	return d128, nil
}

func convertSlice(raw interface{}, targetType reflect.Type, field *FieldSpec) (interface{}, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list")
	}

	elemProp := *field.prop
	elemProp.Type = targetType.Elem()
	elemField := &FieldSpec{
		Name:      field.Name,
		Choices:   field.Choices,
		MaxLength: field.MaxLength,
		prop:      &elemProp,
	}

	slice := reflect.MakeSlice(targetType, 0, len(list))
	for i, elem := range list {
		converted, err := convertInput(elem, elemField)
		if err != nil {
			return nil, fmt.Errorf("element %d: %v", i, err)
		}
		slice = reflect.Append(slice, reflect.ValueOf(converted))
	}
	return slice.Interface(), nil
}

// setScalar assigns a converted value to a struct field, wrapping pointers.
func setScalar(fieldValue reflect.Value, converted interface{}) error {
	value := reflect.ValueOf(converted)

	if fieldValue.Kind() == reflect.Ptr {
		ptr := reflect.New(fieldValue.Type().Elem())
		if !value.Type().AssignableTo(fieldValue.Type().Elem()) {
			return fmt.Errorf("cannot assign %s to %s", value.Type(), fieldValue.Type().Elem())
		}
		ptr.Elem().Set(value)
		fieldValue.Set(ptr)
		return nil
	}

	if !value.Type().AssignableTo(fieldValue.Type()) {
		return fmt.Errorf("cannot assign %s to %s", value.Type(), fieldValue.Type())
	}
	fieldValue.Set(value)
	return nil
}

// serializeScalar converts a document field value into a JSON-friendly value.
func serializeScalar(fieldValue reflect.Value) interface{} {
	if fieldValue.Kind() == reflect.Ptr {
		if fieldValue.IsNil() {
			return nil
		}
		fieldValue = fieldValue.Elem()
	}

	switch v := fieldValue.Interface().(type) {
	case primitive.ObjectID:
		if v.IsZero() {
			return ""
		}
		return v.Hex()
	case primitive.Decimal128:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// setDefault applies a schema default literal to a zero-valued field. The
// literal "now" resolves to the current UTC time for timestamp fields.
func setDefault(fieldValue reflect.Value, literal string) error {
	target := fieldValue
	if target.Kind() == reflect.Ptr {
		ptr := reflect.New(target.Type().Elem())
		if err := setDefault(ptr.Elem(), literal); err != nil {
			return err
		}
		target.Set(ptr)
		return nil
	}

	if target.Type() == timeHandle {
		if literal == "now" {
			target.Set(reflect.ValueOf(time.Now().UTC()))
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, literal)
		if err != nil {
			return fmt.Errorf("invalid timestamp default '%s'", literal)
		}
		target.Set(reflect.ValueOf(t.UTC()))
		return nil
	}

	switch target.Kind() {
	case reflect.String:
		target.SetString(literal)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if _, err := fmt.Sscanf(literal, "%d", &n); err != nil {
			return fmt.Errorf("invalid integer default '%s'", literal)
		}
		target.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if _, err := fmt.Sscanf(literal, "%d", &n); err != nil {
			return fmt.Errorf("invalid integer default '%s'", literal)
		}
		target.SetUint(n)
	case reflect.Float32, reflect.Float64:
		var f float64
		if _, err := fmt.Sscanf(literal, "%g", &f); err != nil {
			return fmt.Errorf("invalid number default '%s'", literal)
		}
		target.SetFloat(f)
	case reflect.Bool:
		target.SetBool(literal == "true")
	default:
		return fmt.Errorf("defaults are not supported for %s fields", target.Type())
	}
	return nil
}

func containsChoice(choices []string, value string) bool {
	for _, choice := range choices {
		if choice == value {
			return true
		}
	}
	return false
}
