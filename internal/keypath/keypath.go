// Package keypath extracts values from untyped upstream JSON documents.
// Both upstream APIs omit keys freely (free-tier fields, sparse grids),
// so every access walks the document one step at a time and resolves to
// an absent value instead of an error when any step is missing. Absence
// and JSON null are both reported as absent; a present zero or empty
// string is a real value and is returned as such.
package keypath

import "github.com/tidwall/gjson"

var pathEscaper = map[rune]bool{
	'.': true, '*': true, '?': true, '@': true, '|': true, '#': true, '\\': true,
}

func escapeKey(key string) string {
	needs := false
	for _, r := range key {
		if pathEscaper[r] {
			needs = true
			break
		}
	}
	if !needs {
		return key
	}
	out := make([]rune, 0, len(key)+2)
	for _, r := range key {
		if pathEscaper[r] {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// Walk descends from doc through the given keys. A key may be a string
// (object field) or an int (array index). The walk aborts to an absent
// result when a field is missing, an index is out of bounds, or the
// current node is not a container of the expected kind. A JSON null at
// the end of the walk is also reported as absent.
func Walk(doc gjson.Result, keys ...any) gjson.Result {
	cur := doc
	for _, key := range keys {
		if !cur.Exists() {
			return gjson.Result{}
		}
		switch k := key.(type) {
		case int:
			if !cur.IsArray() {
				return gjson.Result{}
			}
			arr := cur.Array()
			if k < 0 || k >= len(arr) {
				return gjson.Result{}
			}
			cur = arr[k]
		case string:
			if !cur.IsObject() {
				return gjson.Result{}
			}
			cur = cur.Get(escapeKey(k))
		default:
			return gjson.Result{}
		}
	}
	if cur.Type == gjson.Null {
		return gjson.Result{}
	}
	return cur
}

// Number walks to a numeric leaf and returns a pointer to its value,
// or nil when the leaf is absent or not a number. The transform, when
// given, is applied to every present value, including zero.
func Number(doc gjson.Result, transform func(float64) float64, keys ...any) *float64 {
	res := Walk(doc, keys...)
	if res.Type != gjson.Number {
		return nil
	}
	v := res.Float()
	if transform != nil {
		v = transform(v)
	}
	return &v
}

// String walks to a string leaf and returns a pointer to its value, or
// nil when the leaf is absent or not a string. The transform, when
// given, is applied to every present value, including the empty string.
func String(doc gjson.Result, transform func(string) string, keys ...any) *string {
	res := Walk(doc, keys...)
	if res.Type != gjson.String {
		return nil
	}
	v := res.Str
	if transform != nil {
		v = transform(v)
	}
	return &v
}

// Text is like String but flattens absence to "".
func Text(doc gjson.Result, keys ...any) string {
	if s := String(doc, nil, keys...); s != nil {
		return *s
	}
	return ""
}
