package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// MetadataKind identifies which variant a MetadataValue holds
type MetadataKind int

const (
	KindNull MetadataKind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

func (k MetadataKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// MetadataValue is one value of a memory's metadata bag.
// The zero value is JSON null. Numbers keep their original text so that
// integers larger than 2^53 survive a load/persist cycle unchanged.
type MetadataValue struct {
	kind   MetadataKind
	b      bool
	num    json.Number
	str    string
	list   []MetadataValue
	object map[string]MetadataValue
}

// NullValue returns the null metadata value
func NullValue() MetadataValue { return MetadataValue{} }

// BoolValue wraps a boolean
func BoolValue(b bool) MetadataValue { return MetadataValue{kind: KindBool, b: b} }

// NumberValue wraps a float
func NumberValue(f float64) MetadataValue {
	return MetadataValue{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// IntValue wraps an integer
func IntValue(i int64) MetadataValue {
	return MetadataValue{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

// StringValue wraps a string
func StringValue(s string) MetadataValue { return MetadataValue{kind: KindString, str: s} }

// ListValue wraps a list of values
func ListValue(items ...MetadataValue) MetadataValue {
	return MetadataValue{kind: KindList, list: append([]MetadataValue{}, items...)}
}

// ObjectValue wraps a nested mapping
func ObjectValue(fields map[string]MetadataValue) MetadataValue {
	obj := make(map[string]MetadataValue, len(fields))
	for k, v := range fields {
		obj[k] = v
	}
	return MetadataValue{kind: KindObject, object: obj}
}

// Kind returns the variant held by v
func (v MetadataValue) Kind() MetadataKind { return v.kind }

// IsNull reports whether v is JSON null
func (v MetadataValue) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean and whether v holds one
func (v MetadataValue) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Float returns the number as a float64 and whether v holds a number
func (v MetadataValue) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// Int returns the number as an int64 and whether v holds an integral number
func (v MetadataValue) Int() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := v.num.Int64()
	return i, err == nil
}

// Str returns the string and whether v holds one
func (v MetadataValue) Str() (string, bool) { return v.str, v.kind == KindString }

// List returns the list items and whether v holds a list
func (v MetadataValue) List() ([]MetadataValue, bool) { return v.list, v.kind == KindList }

// Object returns the nested mapping and whether v holds one
func (v MetadataValue) Object() (map[string]MetadataValue, bool) {
	return v.object, v.kind == KindObject
}

// Finite reports whether v and everything nested in it can be encoded as
// JSON. NumberValue(NaN) and NumberValue(±Inf) are the only values that cannot.
func (v MetadataValue) Finite() bool {
	switch v.kind {
	case KindNumber:
		f, err := strconv.ParseFloat(string(v.num), 64)
		return err != nil || !(math.IsNaN(f) || math.IsInf(f, 0))
	case KindList:
		for _, item := range v.list {
			if !item.Finite() {
				return false
			}
		}
	case KindObject:
		for _, item := range v.object {
			if !item.Finite() {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of v
func (v MetadataValue) Clone() MetadataValue {
	switch v.kind {
	case KindList:
		items := make([]MetadataValue, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return MetadataValue{kind: KindList, list: items}
	case KindObject:
		obj := make(map[string]MetadataValue, len(v.object))
		for k, item := range v.object {
			obj[k] = item.Clone()
		}
		return MetadataValue{kind: KindObject, object: obj}
	default:
		return v
	}
}

// Text flattens v into searchable text. Object keys are visited in sorted order.
func (v MetadataValue) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.num.String()
	case KindString:
		return v.str
	case KindList:
		var buf bytes.Buffer
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(item.Text())
		}
		return buf.String()
	case KindObject:
		keys := make([]string, 0, len(v.object))
		for k := range v.object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(k)
			buf.WriteByte(' ')
			buf.WriteString(v.object[k].Text())
		}
		return buf.String()
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindString:
		return json.Marshal(v.str)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindObject:
		if v.object == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.object)
	}
	return nil, fmt.Errorf("metadata: unknown kind %d", v.kind)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := metadataFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func metadataFromAny(raw any) (MetadataValue, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		return MetadataValue{kind: KindNumber, num: x}, nil
	case string:
		return StringValue(x), nil
	case []any:
		items := make([]MetadataValue, len(x))
		for i, item := range x {
			parsed, err := metadataFromAny(item)
			if err != nil {
				return MetadataValue{}, err
			}
			items[i] = parsed
		}
		return MetadataValue{kind: KindList, list: items}, nil
	case map[string]any:
		obj := make(map[string]MetadataValue, len(x))
		for k, item := range x {
			parsed, err := metadataFromAny(item)
			if err != nil {
				return MetadataValue{}, err
			}
			obj[k] = parsed
		}
		return MetadataValue{kind: KindObject, object: obj}, nil
	}
	return MetadataValue{}, fmt.Errorf("metadata: unsupported value of type %T", raw)
}
