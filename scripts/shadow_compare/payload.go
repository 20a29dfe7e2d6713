package main

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// volatileFields differ between deployments for the same row and are left out of the comparison.
var volatileFields = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"deleted_at": {},
	"last_login": {},
	"created_by": {},
	"updated_by": {},
	"deleted_by": {},
}

// payloadsEqual compares two JSON bodies after unwrapping the response envelope,
// dropping volatile audit fields and collapsing integral floats.
func payloadsEqual(goBody, legacyBody []byte) bool {
	if bytes.Equal(bytes.TrimSpace(goBody), bytes.TrimSpace(legacyBody)) {
		return true
	}

	var goValue, legacyValue interface{}
	if err := json.Unmarshal(goBody, &goValue); err != nil {
		return false
	}
	if err := json.Unmarshal(legacyBody, &legacyValue); err != nil {
		return false
	}

	goValue = normalize(unwrap(goValue))
	legacyValue = normalize(unwrap(legacyValue))
	return reflect.DeepEqual(goValue, legacyValue)
}

// unwrap extracts the payload of a {data, pagination, meta} envelope or a {results} page.
func unwrap(v interface{}) interface{} {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if data, ok := obj["data"]; ok {
		return data
	}
	if results, ok := obj["results"]; ok {
		return results
	}
	return v
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if _, skip := volatileFields[k]; skip {
				continue
			}
			out[k] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	}
	return v
}
