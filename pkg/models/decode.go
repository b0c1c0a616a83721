package models

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

var errNotObject = errors.New("not a JSON object")

// rawObject splits a JSON object into its members.
func rawObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, errNotObject
	}
	return fields, nil
}

// scalar reads a string or number member as text. Missing, null and
// non-scalar members read as nil.
func scalar(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	switch v := v.(type) {
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	}
	return nil
}

func scalarOr(raw json.RawMessage, fallback string) string {
	if s := scalar(raw); s != nil {
		return *s
	}
	return fallback
}

// decodeOptional decodes a member into T. Malformed members read as absent.
func decodeOptional[T any](raw json.RawMessage) *T {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil
	}
	return v
}

// decodeList decodes an array member element by element, dropping elements
// that fail to decode. A member that is not an array reads as empty.
func decodeList[T any](raw json.RawMessage) []T {
	if len(raw) == 0 {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]T, 0, len(elems))
	for _, elem := range elems {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
