package reconcile

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// envelopeKeys are the fields a wrapped response may nest its payload under.
var envelopeKeys = []string{"data", "items"}

// listPayload returns the array carried by body, bare or wrapped.
func listPayload(body []byte) (gjson.Result, bool) {
	if len(body) == 0 {
		return gjson.Result{}, false
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root, true
	}
	if root.IsObject() {
		for _, key := range envelopeKeys {
			if v := root.Get(key); v.IsArray() {
				return v, true
			}
		}
	}
	return gjson.Result{}, false
}

// objectPayload returns the object carried by body, bare or wrapped in data.
func objectPayload(body []byte) (gjson.Result, bool) {
	if len(body) == 0 {
		return gjson.Result{}, false
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return gjson.Result{}, false
	}
	if v := root.Get("data"); v.IsObject() {
		return v, true
	}
	return root, true
}

// createdPayload returns the created record if body carries one with an identifier.
func createdPayload(body []byte) (gjson.Result, bool) {
	obj, ok := objectPayload(body)
	if !ok {
		return gjson.Result{}, false
	}
	if !obj.Get("id").Exists() && !obj.Get("_id").Exists() {
		return gjson.Result{}, false
	}
	return obj, true
}

// decodeList decodes every object element of the list payload, skipping
// elements that do not fit T.
func decodeList[T any](body []byte) ([]T, bool) {
	arr, ok := listPayload(body)
	if !ok {
		return nil, false
	}
	out := make([]T, 0, len(arr.Array()))
	arr.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		var item T
		if err := json.Unmarshal([]byte(v.Raw), &item); err == nil {
			out = append(out, item)
		}
		return true
	})
	return out, true
}

// overlay decodes raw onto dst. Fields absent from raw keep their value.
func overlay[T any](dst T, raw []byte) (T, error) {
	out := dst
	if err := json.Unmarshal(raw, &out); err != nil {
		return dst, err
	}
	return out, nil
}

// Message extracts a human readable reason from an error body.
func Message(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	root := gjson.ParseBytes(body)
	for _, path := range []string{"message", "error", "error.message", "data.message"} {
		if v := root.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
