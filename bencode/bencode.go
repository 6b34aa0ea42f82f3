// Package bencode implements the bencode encoding used by BitTorrent
// metainfo files and tracker responses: byte strings, integers, lists
// and dictionaries.
package bencode

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// DataType identifies the bencode value kind held by a Data node.
type DataType = int

const (
	INVALID DataType = iota
	STRING
	INTEGER
	LIST
	DICT
)

// Data is a decoded bencode value: a byte string, integer, list of
// Data, or string-keyed dict of Data.
type Data struct {
	Type  DataType
	Value interface{}
}

// NewData builds a Data node from a Go value, inferring its bencode
// type. Accepted inputs: any integer kind, []byte, string, []any,
// []*Data, map[string]any, map[string]*Data.
func NewData(v any) *Data {
	d := Data{}
	d.SetValueAndType(v)
	return &d
}

// SetValueAndType assigns val to d, inferring d.Type from val's kind.
// Unrecognized kinds set Type to INVALID.
func (d *Data) SetValueAndType(val any) {
	switch v := val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		d.Type = INTEGER
		d.Value = reflect.ValueOf(v).Convert(reflect.TypeOf(int64(0))).Int()
	case []byte:
		d.Type = STRING
		d.Value = v
	case string:
		d.Type = STRING
		d.Value = []byte(v)
	case []interface{}:
		list := make([]*Data, len(v))
		for i, elem := range v {
			list[i] = NewData(elem)
		}
		d.Type = LIST
		d.Value = list
	case []*Data:
		d.Type = LIST
		d.Value = v
	case map[string]interface{}:
		dict := make(map[string]*Data, len(v))
		for key, value := range v {
			dict[key] = NewData(value)
		}
		d.Type = DICT
		d.Value = dict
	case map[string]*Data:
		d.Type = DICT
		d.Value = v
	default:
		d.Type = INVALID
	}
}

// AsString returns the value of a STRING node as a Go string.
func (d Data) AsString() string {
	return string(d.Value.([]byte))
}

// AsBytes returns the raw bytes of a STRING node.
func (d Data) AsBytes() []byte {
	return d.Value.([]byte)
}

// AsInt returns the value of an INTEGER node.
func (d Data) AsInt() int64 {
	return d.Value.(int64)
}

// AsList returns the elements of a LIST node.
func (d Data) AsList() []*Data {
	return d.Value.([]*Data)
}

// AsDict returns the entries of a DICT node.
func (d Data) AsDict() map[string]*Data {
	return d.Value.(map[string]*Data)
}

func (d Data) String() string {
	switch d.Type {
	case STRING:
		return fmt.Sprintf("{Type: STRING, Value: %q}", d.AsString())
	case INTEGER:
		return fmt.Sprintf("{Type: INTEGER, Value: %d}", d.AsInt())
	case LIST:
		elems := d.AsList()
		parts := make([]string, len(elems))
		for i, elem := range elems {
			parts[i] = elem.String()
		}
		return fmt.Sprintf("{Type: LIST, Value: %v}", parts)
	case DICT:
		dict := d.AsDict()
		keys := sortedKeys(dict)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, dict[k].String())
		}
		return fmt.Sprintf("{Type: DICT, Value: %v}", parts)
	default:
		return "INVALID"
	}
}

// ToBytes re-serialises d to its bencoded form.
func (d Data) ToBytes() []byte {
	return Encode(&d)
}

// ToJSON renders d as an indented JSON document, for debugging.
func (d Data) ToJSON() string {
	jsonVal, err := json.MarshalIndent(d.toPlain(), "", "  ")
	if err != nil {
		return ""
	}
	return string(jsonVal)
}

func (d Data) toPlain() interface{} {
	switch d.Type {
	case STRING:
		return d.AsString()
	case INTEGER:
		return d.AsInt()
	case LIST:
		elems := d.AsList()
		out := make([]interface{}, len(elems))
		for i, elem := range elems {
			out[i] = elem.toPlain()
		}
		return out
	case DICT:
		dict := d.AsDict()
		out := make(map[string]interface{}, len(dict))
		for key, elem := range dict {
			out[key] = elem.toPlain()
		}
		return out
	default:
		return nil
	}
}

func sortedKeys(dict map[string]*Data) []string {
	keys := make([]string, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Decode parses the bencoded value at the start of content, returning
// the decoded node, the number of bytes consumed, and an error if the
// content is malformed. An empty content yields (nil, 0, nil).
func Decode(content []byte) (*Data, int, error) {
	if len(content) == 0 {
		return nil, 0, nil
	}
	switch content[0] {
	case 'i':
		return decodeInt(content)
	case 'l':
		return decodeList(content)
	case 'd':
		return decodeDict(content)
	default:
		return decodeString(content)
	}
}

func decodeInt(content []byte) (*Data, int, error) {
	for i := 1; i < len(content); i++ {
		if content[i] == 'e' {
			intStr := string(content[1:i])
			val, err := strconv.ParseInt(intStr, 10, 64)
			if err != nil {
				return nil, i + 1, fmt.Errorf("invalid integer: %w", err)
			}
			return NewData(val), i + 1, nil
		}
	}
	return NewData(nil), len(content), fmt.Errorf("invalid integer")
}

func decodeList(content []byte) (*Data, int, error) {
	list := make([]*Data, 0)
	for i := 1; i < len(content); i++ {
		if content[i] == 'e' {
			return NewData(list), i + 1, nil
		}
		elem, count, err := Decode(content[i:])
		if err != nil {
			return NewData(list), count, err
		}
		list = append(list, elem)
		i += count - 1
	}
	return NewData(list), len(content), fmt.Errorf("invalid list")
}

func decodeDict(content []byte) (*Data, int, error) {
	dict := make(map[string]*Data)
	for i := 1; i < len(content); i++ {
		if content[i] == 'e' {
			return NewData(dict), i + 1, nil
		}
		key, count, err := Decode(content[i:])
		if err != nil {
			return NewData(dict), count, err
		}
		if key.Type != STRING {
			return NewData(dict), count, fmt.Errorf("invalid dictionary key")
		}
		i += count
		val, count, err := Decode(content[i:])
		if err != nil {
			return NewData(dict), count, err
		}
		i += count - 1
		dict[key.AsString()] = val
	}
	return NewData(dict), len(content), fmt.Errorf("invalid dictionary")
}

func decodeString(content []byte) (*Data, int, error) {
	for i := 0; i < len(content); i++ {
		if content[i] == ':' {
			strLen, err := strconv.Atoi(string(content[:i]))
			if err != nil || strLen < 0 || i+1+strLen > len(content) {
				return nil, i + 1, fmt.Errorf("invalid string length")
			}
			strVal := content[i+1 : i+1+strLen]
			return NewData(strVal), i + 1 + strLen, nil
		}
	}
	return nil, len(content), fmt.Errorf("invalid string")
}

// Encode serialises data to its bencoded byte form. Dictionary keys
// are emitted in lexical order, required for a deterministic
// info-hash.
func Encode(data *Data) []byte {
	switch data.Type {
	case STRING:
		str := data.AsString()
		return []byte(fmt.Sprintf("%d:%s", len(str), str))
	case INTEGER:
		return []byte(fmt.Sprintf("i%de", data.Value))
	case LIST:
		list := data.AsList()
		encoded := []byte("l")
		for _, elem := range list {
			encoded = append(encoded, Encode(elem)...)
		}
		encoded = append(encoded, 'e')
		return encoded
	case DICT:
		dict := data.AsDict()
		encoded := []byte("d")
		for _, key := range sortedKeys(dict) {
			encoded = append(encoded, Encode(NewData(key))...)
			encoded = append(encoded, Encode(dict[key])...)
		}
		encoded = append(encoded, 'e')
		return encoded
	default:
		return []byte{}
	}
}
