// Package etag derives weak entity tags from a document's revision property
// so update and delete requests can carry If-Match preconditions.
package etag

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/docrest/go-docrest/internal/metadata"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generate creates a weak ETag for a document based on its declared etag
// property. Returns an empty string when the document declares none.
func Generate(doc interface{}, meta *metadata.DocumentMetadata) string {
	if meta.ETagProperty == nil {
		return ""
	}

	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return ""
		}
		value = value.Elem()
	}

	fieldValue := value.FieldByName(meta.ETagProperty.Name)
	if !fieldValue.IsValid() {
		return ""
	}

	source := revisionSource(fieldValue)
	if source == "" {
		return ""
	}

	return fmt.Sprintf(`W/"%x"`, xxhash.Sum64String(source))
}

func revisionSource(fieldValue reflect.Value) string {
	if fieldValue.Kind() == reflect.Ptr {
		if fieldValue.IsNil() {
			return ""
		}
		fieldValue = fieldValue.Elem()
	}

	switch v := fieldValue.Interface().(type) {
	case time.Time:
		return strconv.FormatInt(v.UnixNano(), 10)
	case primitive.ObjectID:
		return v.Hex()
	}

	switch fieldValue.Kind() {
	case reflect.String:
		return fieldValue.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(fieldValue.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(fieldValue.Uint(), 10)
	default:
		return fmt.Sprintf("%v", fieldValue.Interface())
	}
}

// Match reports whether an If-Match header value accepts the current ETag.
// An absent header or "*" always matches; otherwise one of the listed tags
// must equal the current one.
func Match(ifMatch, current string) bool {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	if current == "" {
		return false
	}

	for _, candidate := range strings.Split(ifMatch, ",") {
		if strings.TrimSpace(candidate) == current {
			return true
		}
	}
	return false
}
