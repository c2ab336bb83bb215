package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var ErrExtraDataAfterJSON = errors.New("extra data after JSON value")

// FromJSON decodes data strictly: unknown fields and trailing values are errors.
// Empty input yields the zero value.
func FromJSON[T any](data []byte) (T, error) {
	var zero T
	if len(bytes.TrimSpace(data)) == 0 {
		return zero, nil
	}
	return FromJSONStream[T](bytes.NewReader(data))
}

func FromJSONStream[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return v, ErrExtraDataAfterJSON
	}
	return v, nil
}

// ToJSON marshals v without HTML escaping and without a trailing newline.
func ToJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToJSONStream(&buf, v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func ToJSONStream(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
