// Package plistutil reads property-list documents (XML or binary) into a
// generic string-keyed dictionary with explicit typed accessors.
//
// Downstream code never type-asserts plist values directly; every well-known
// key is read through an accessor that reports whether the key was present
// with the expected type. Key iteration is exposed in sorted order so output
// derived from a dictionary is deterministic.
package plistutil

import (
	"fmt"
	"sort"

	"howett.net/plist"
)

// Dict is a parsed property-list dictionary.
type Dict map[string]any

// Parse decodes data as a property list. Both XML and binary forms are
// accepted; the top-level value must be a dictionary.
func Parse(data []byte) (Dict, error) {
	var raw map[string]any
	if _, err := plist.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse property list: %w", err)
	}
	return Dict(raw), nil
}

// Has reports whether key is present, regardless of its type.
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Bool returns the boolean value for key. The second result is false when
// the key is absent or not a boolean.
func (d Dict) Bool(key string) (bool, bool) {
	v, ok := d[key].(bool)
	return v, ok
}

// String returns the string value for key. The second result is false when
// the key is absent or not a string.
func (d Dict) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// Int returns the integer value for key, accepting the numeric types the
// plist decoder produces. The second result is false for absent or
// non-numeric values.
func (d Dict) Int(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Dict returns the nested dictionary for key.
func (d Dict) Dict(key string) (Dict, bool) {
	v, ok := d[key].(map[string]any)
	if !ok {
		return nil, false
	}
	return Dict(v), true
}

// Array returns the array value for key.
func (d Dict) Array(key string) ([]any, bool) {
	v, ok := d[key].([]any)
	return v, ok
}

// Keys returns all keys in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
