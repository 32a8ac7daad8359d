package conditions

import (
	"reflect"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path such as "client.address.city" against nested
// maps and slices. It reports false when any segment is missing; it never panics.
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	current := data

	for _, segment := range strings.Split(path, ".") {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func child(value any, key string) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case map[string]any:
		child, ok := v[key]

		return child, ok
	case map[string]string:
		child, ok := v[key]

		return child, ok
	case []any:
		return index(len(v), key, func(i int) any { return v[i] })
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		item := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !item.IsValid() {
			return nil, false
		}

		return item.Interface(), true
	case reflect.Slice, reflect.Array:
		return index(rv.Len(), key, func(i int) any { return rv.Index(i).Interface() })
	default:
		return nil, false
	}
}

func index(length int, key string, at func(int) any) (any, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= length {
		return nil, false
	}

	return at(i), true
}
