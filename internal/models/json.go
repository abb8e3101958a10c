package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList stores a JSON array of strings in a text column. Scanning a
// NULL or empty column yields an empty, non-nil slice so callers never see
// a null array in responses.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	data, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// JSONField stores an arbitrary JSON array in a text column. The canonical
// fallback for missing or NULL columns is an empty array.
type JSONField json.RawMessage

func (f JSONField) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	return string(f), nil
}

func (f *JSONField) Scan(value interface{}) error {
	data, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*f = JSONField("[]")
		return nil
	}
	*f = JSONField(append([]byte(nil), data...))
	return nil
}

func (f JSONField) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("[]"), nil
	}
	return []byte(f), nil
}

func (f *JSONField) UnmarshalJSON(data []byte) error {
	*f = JSONField(append([]byte(nil), data...))
	return nil
}

func columnBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}
