package query

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/docrest/go-docrest/internal/metadata"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Options is the store-neutral description of a list request: pagination,
// ordering, and simple equality filters keyed by stored attribute name.
type Options struct {
	Limit      int64
	Offset     int64
	OrderBy    string // stored attribute name, empty for natural order
	Descending bool
	Filters    map[string]interface{}
}

// Config bounds pagination for a resource.
type Config struct {
	DefaultLimit int64
	MaxLimit     int64
}

// DefaultConfig is used when a resource does not configure pagination.
var DefaultConfig = Config{DefaultLimit: 50, MaxLimit: 500}

// Reserved query parameters that are not filter fields.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamOrder  = "order"
)

// Parse extracts list options from URL query parameters. Parameter names
// outside the reserved set must match declared wire field names of scalar
// properties and become equality filters, converted to the property type.
func Parse(values url.Values, meta *metadata.DocumentMetadata, cfg Config) (Options, error) {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultConfig.MaxLimit
	}

	opts := Options{
		Limit:   cfg.DefaultLimit,
		Filters: make(map[string]interface{}),
	}

	if raw := values.Get(ParamLimit); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 0 {
			return Options{}, fmt.Errorf("invalid limit '%s'", raw)
		}
		if limit > cfg.MaxLimit {
			limit = cfg.MaxLimit
		}
		opts.Limit = limit
	}

	if raw := values.Get(ParamOffset); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || offset < 0 {
			return Options{}, fmt.Errorf("invalid offset '%s'", raw)
		}
		opts.Offset = offset
	}

	if raw := values.Get(ParamOrder); raw != "" {
		name := raw
		if strings.HasPrefix(name, "-") {
			opts.Descending = true
			name = name[1:]
		}
		prop := meta.PropertyByJSONName(name)
		if prop == nil || prop.IsEmbedded || prop.IsEmbeddedList {
			return Options{}, fmt.Errorf("cannot order by '%s'", name)
		}
		opts.OrderBy = prop.StoredName
	}

	for param, paramValues := range values {
		switch param {
		case ParamLimit, ParamOffset, ParamOrder:
			continue
		}
		prop := meta.PropertyByJSONName(param)
		if prop == nil {
			return Options{}, fmt.Errorf("unknown filter field '%s'", param)
		}
		if prop.IsEmbedded || prop.IsEmbeddedList {
			return Options{}, fmt.Errorf("cannot filter on embedded field '%s'", param)
		}

		value, err := convertFilterValue(paramValues[0], prop)
		if err != nil {
			return Options{}, fmt.Errorf("filter '%s': %w", param, err)
		}
		opts.Filters[prop.StoredName] = value
	}

	return opts, nil
}

// convertFilterValue parses a query string value into the property's Go type
// so stores can compare it against persisted values directly.
func convertFilterValue(raw string, prop *metadata.PropertyMetadata) (interface{}, error) {
	propType := prop.Type
	if propType.Kind() == reflect.Ptr {
		propType = propType.Elem()
	}

	if propType == reflect.TypeOf(primitive.ObjectID{}) {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid object id", raw)
		}
		return id, nil
	}
	if propType == reflect.TypeOf(time.Time{}) {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid timestamp", raw)
		}
		return t.UTC(), nil
	}

	switch propType.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid integer", raw)
		}
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid integer", raw)
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid number", raw)
		}
		return f, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid boolean", raw)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("filtering is not supported for %s fields", propType)
	}
}
