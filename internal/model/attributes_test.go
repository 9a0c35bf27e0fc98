package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMetadataUnmarshal(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		uniqueID string
		attrs    Attributes
		wantErr  error
	}{
		{
			name:  "scalars",
			in:    `{"color":"red","level":3,"shiny":true}`,
			attrs: Attributes{"color": StringAttr("red"), "level": NumberAttr(3), "shiny": BoolAttr(true)},
		},
		{
			name:     "unique id is hoisted",
			in:       `{"_unique_id":"u-123","rarity":"epic"}`,
			uniqueID: "u-123",
			attrs:    Attributes{"rarity": StringAttr("epic")},
		},
		{
			name:  "nulls are dropped",
			in:    `{"color":null,"_unique_id":null}`,
			attrs: nil,
		},
		{
			name:    "nested object rejected",
			in:      `{"stats":{"hp":1}}`,
			wantErr: ErrUnsupportedAttribute,
		},
		{
			name:    "array rejected",
			in:      `{"tags":["a"]}`,
			wantErr: ErrUnsupportedAttribute,
		},
		{
			name:    "numeric unique id rejected",
			in:      `{"_unique_id":5}`,
			wantErr: ErrUnsupportedAttribute,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Metadata
			err := json.Unmarshal([]byte(tc.in), &m)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			gotID := ""
			if m.UniqueID != nil {
				gotID = *m.UniqueID
			}
			if gotID != tc.uniqueID {
				t.Fatalf("unique id = %q, want %q", gotID, tc.uniqueID)
			}
			if !m.Attributes.Equal(tc.attrs) {
				t.Fatalf("attributes = %v, want %v", m.Attributes, tc.attrs)
			}
		})
	}
}

func TestMetadataMarshalFoldsUniqueID(t *testing.T) {
	id := "u-9"
	m := Metadata{UniqueID: &id, Attributes: Attributes{"level": NumberAttr(1.5)}}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(raw), `{"_unique_id":"u-9","level":1.5}`; got != want {
		t.Fatalf("json = %s, want %s", got, want)
	}
	if !(Metadata{}).IsZero() || m.IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}

func TestAttrValueAccessors(t *testing.T) {
	v := NumberAttr(2)
	if _, ok := v.String(); ok {
		t.Fatalf("number reported as string")
	}
	if n, ok := v.Number(); !ok || n != 2 {
		t.Fatalf("Number() = %v, %v", n, ok)
	}
	if _, err := (AttrValue{}).MarshalJSON(); !errors.Is(err, ErrUnsupportedAttribute) {
		t.Fatalf("zero value marshal err = %v", err)
	}
	if StringAttr("1").Equal(NumberAttr(1)) {
		t.Fatalf("values of different kinds compared equal")
	}
}
