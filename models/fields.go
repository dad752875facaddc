package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Field is one captured input of a submission
type Field struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Fields is an ordered mapping from field id to Field. It encodes as a JSON
// object whose keys keep insertion order.
type Fields []KeyedField

// KeyedField pairs a Field with the key it was submitted under
type KeyedField struct {
	Key   string
	Field Field
}

var emptyString = json.RawMessage(`""`)

// NormalizeFields converts a raw field collection into Fields. Only entries
// that are JSON objects are kept; everything else is dropped. A top-level
// list is keyed by position.
func NormalizeFields(raw json.RawMessage) Fields {
	fields := newFieldSet()

	dec := newDecoder(raw)
	tok, err := dec.Token()
	if err != nil {
		return Fields{}
	}

	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return Fields{}
	}

	for index := 0; dec.More(); index++ {
		key := strconv.Itoa(index)
		if delim == '{' {
			keyTok, err := dec.Token()
			if err != nil {
				return Fields{}
			}
			key = keyTok.(string)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return Fields{}
		}

		field, ok := normalizeField(key, value)
		if !ok {
			continue
		}
		fields.set(key, field)
	}

	return fields.fields
}

// normalizeField builds a Field from one submitted record
func normalizeField(key string, raw json.RawMessage) (Field, bool) {
	if kindOf(raw) != '{' {
		return Field{}, false
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		return Field{}, false
	}

	field := Field{
		ID:    key,
		Value: emptyString,
	}
	if id, ok := scalarString(record["id"]); ok {
		field.ID = id
	}
	if typ, ok := scalarString(record["type"]); ok {
		field.Type = typ
	}
	if name, ok := scalarString(record["name"]); ok {
		field.Name = name
	}
	if value, ok := record["value"]; ok && kindOf(value) != 'n' {
		canonical, err := canonicalJSON(value)
		if err != nil {
			return Field{}, false
		}
		field.Value = canonical
	}

	return field, true
}

// fieldSet builds Fields while indexing keys, so duplicates are found without a scan
type fieldSet struct {
	fields Fields
	index  map[string]int
}

func newFieldSet() *fieldSet {
	return &fieldSet{fields: Fields{}, index: map[string]int{}}
}

// set replaces the entry under key or appends it; later duplicates win in place
func (s *fieldSet) set(key string, field Field) {
	if i, ok := s.index[key]; ok {
		s.fields[i].Field = field
		return
	}
	s.index[key] = len(s.fields)
	s.fields = append(s.fields, KeyedField{Key: key, Field: field})
}

// MarshalJSON writes the fields as an ordered JSON object without HTML escaping
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kf := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, kf.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')

		value := kf.Field.Value
		if len(value) == 0 {
			value = emptyString
		}

		buf.WriteString(`{"id":`)
		if err := writeString(&buf, kf.Field.ID); err != nil {
			return nil, err
		}
		buf.WriteString(`,"type":`)
		if err := writeString(&buf, kf.Field.Type); err != nil {
			return nil, err
		}
		buf.WriteString(`,"name":`)
		if err := writeString(&buf, kf.Field.Name); err != nil {
			return nil, err
		}
		buf.WriteString(`,"value":`)
		buf.Write(value)
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a stored payload, keeping key order
func (f *Fields) UnmarshalJSON(data []byte) error {
	switch kindOf(data) {
	case '{', '[':
	default:
		return errors.New("fields payload must be an object or a list")
	}

	decoded := newFieldSet()
	dec := newDecoder(data)
	delim, err := dec.Token()
	if err != nil {
		return err
	}

	for index := 0; dec.More(); index++ {
		key := strconv.Itoa(index)
		if delim == json.Delim('{') {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key = keyTok.(string)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		field, ok := normalizeField(key, raw)
		if !ok {
			field = Field{ID: key, Value: emptyString}
		}
		decoded.set(key, field)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after fields payload")
	}

	*f = decoded.fields
	return nil
}

// Encode serializes the fields to the stored text form
func (f Fields) Encode() (string, error) {
	b, err := f.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeFields parses a stored payload. Malformed input and anything that is
// not an object or list yield an empty set.
func DecodeFields(data []byte) Fields {
	var fields Fields
	if err := fields.UnmarshalJSON(bytes.TrimSpace(data)); err != nil {
		return Fields{}
	}
	return fields
}

// DisplayValue renders a field value as text for the detail page
func (f Field) DisplayValue() string {
	switch kindOf(f.Value) {
	case '[', '{':
		parts, err := compositeElements(f.Value)
		if err != nil {
			return ""
		}
		return strings.Join(parts, ", ")
	case 't':
		return "true"
	case 'f':
		return "false"
	case '"':
		var s string
		if err := json.Unmarshal(f.Value, &s); err != nil {
			return ""
		}
		return s
	case '0':
		return string(bytes.TrimSpace(f.Value))
	default:
		return ""
	}
}

// compositeElements casts each element (or object member value) of a list to text
func compositeElements(raw json.RawMessage) ([]string, error) {
	dec := newDecoder(raw)
	delim, err := dec.Token()
	if err != nil {
		return nil, err
	}

	parts := []string{}
	for dec.More() {
		if delim == json.Delim('{') {
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
		}
		var elem json.RawMessage
		if err := dec.Decode(&elem); err != nil {
			return nil, err
		}
		parts = append(parts, elementString(elem))
	}
	return parts, nil
}

// elementString casts a list element to text: true is "1", false and null are
// empty, nested lists and objects collapse to "Array".
func elementString(raw json.RawMessage) string {
	switch kindOf(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '0':
		return string(bytes.TrimSpace(raw))
	case 't':
		return "1"
	case '[', '{':
		return "Array"
	default:
		return ""
	}
}

// scalarString casts a record sub-field to text. Absent, null and composite
// values report false so the caller keeps its default.
func scalarString(raw json.RawMessage) (string, bool) {
	switch kindOf(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '0':
		return string(bytes.TrimSpace(raw)), true
	case 't':
		return "1", true
	case 'f':
		return "", true
	default:
		return "", false
	}
}

// kindOf classifies a JSON value by its first byte: '{', '[', '"', '0' for
// numbers, 't', 'f', 'n', or 0 when empty.
func kindOf(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	switch c := raw[0]; {
	case c == '-' || (c >= '0' && c <= '9'):
		return '0'
	default:
		return c
	}
}

// canonicalJSON re-encodes a JSON value compactly, keeping object key order
// and leaving HTML characters, slashes and non-ASCII text unescaped.
func canonicalJSON(raw json.RawMessage) (json.RawMessage, error) {
	var buf bytes.Buffer
	dec := newDecoder(raw)
	if err := copyValue(&buf, dec); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after value")
	}
	return buf.Bytes(), nil
}

func copyValue(buf *bytes.Buffer, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		closing := json.Delim('}')
		if v == '[' {
			closing = ']'
		}
		buf.WriteByte(byte(v))
		for first := true; dec.More(); first = false {
			if !first {
				buf.WriteByte(',')
			}
			if v == '{' {
				key, err := dec.Token()
				if err != nil {
					return err
				}
				if err := writeString(buf, key.(string)); err != nil {
					return err
				}
				buf.WriteByte(':')
			}
			if err := copyValue(buf, dec); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		buf.WriteByte(byte(closing))
	case string:
		return writeString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder.Encode terminates every value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

func newDecoder(raw []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec
}
