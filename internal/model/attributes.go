package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// UniqueIDKey is the metadata key that marks a non-fungible inventory unit.
const UniqueIDKey = "_unique_id"

var ErrUnsupportedAttribute = errors.New("unsupported metadata value")

type AttrKind uint8

const (
	AttrString AttrKind = iota + 1
	AttrNumber
	AttrBool
)

// AttrValue is a single scalar metadata value. The zero value is invalid.
type AttrValue struct {
	kind AttrKind
	str  string
	num  float64
	flag bool
}

func StringAttr(s string) AttrValue  { return AttrValue{kind: AttrString, str: s} }
func NumberAttr(n float64) AttrValue { return AttrValue{kind: AttrNumber, num: n} }
func BoolAttr(b bool) AttrValue      { return AttrValue{kind: AttrBool, flag: b} }

func (v AttrValue) Kind() AttrKind { return v.kind }

func (v AttrValue) String() (string, bool) { return v.str, v.kind == AttrString }
func (v AttrValue) Number() (float64, bool) { return v.num, v.kind == AttrNumber }
func (v AttrValue) Bool() (bool, bool)      { return v.flag, v.kind == AttrBool }

func (v AttrValue) Equal(o AttrValue) bool {
	return v.kind == o.kind && v.str == o.str && v.num == o.num && v.flag == o.flag
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case AttrString:
		return json.Marshal(v.str)
	case AttrNumber:
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case AttrBool:
		return json.Marshal(v.flag)
	default:
		return nil, fmt.Errorf("%w: empty value", ErrUnsupportedAttribute)
	}
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrUnsupportedAttribute)
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringAttr(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolAttr(b)
	case '{', '[', 'n':
		return fmt.Errorf("%w: %s", ErrUnsupportedAttribute, string(data))
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedAttribute, err)
		}
		*v = NumberAttr(n)
	}
	return nil
}

// Attributes is the open key/value extension data attached to an item.
type Attributes map[string]AttrValue

func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Metadata is the wire form of item metadata: attributes plus the optional unique id,
// which is carried under UniqueIDKey inside the same JSON object.
type Metadata struct {
	UniqueID   *string
	Attributes Attributes
}

func (m Metadata) IsZero() bool {
	return m.UniqueID == nil && len(m.Attributes) == 0
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(m.Attributes)+1)
	for k, v := range m.Attributes {
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		obj[k] = raw
	}
	if m.UniqueID != nil {
		raw, err := json.Marshal(*m.UniqueID)
		if err != nil {
			return nil, err
		}
		obj[UniqueIDKey] = raw
	}
	return json.Marshal(obj)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	out := Metadata{}
	for k, raw := range obj {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		if k == UniqueIDKey {
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return fmt.Errorf("%w: %s must be a string", ErrUnsupportedAttribute, UniqueIDKey)
			}
			if id != "" {
				out.UniqueID = &id
			}
			continue
		}
		var v AttrValue
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("metadata %q: %w", k, err)
		}
		if out.Attributes == nil {
			out.Attributes = Attributes{}
		}
		out.Attributes[k] = v
	}
	*m = out
	return nil
}
