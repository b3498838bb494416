package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray is stored as a JSON array in a text column.
type StringArray []string

// Scan implements sql.Scanner for reading JSON arrays from the database.
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringArray.Scan: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(raw, s)
}

// Value implements driver.Valuer for writing JSON arrays to the database.
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Equal reports whether both arrays hold the same values in the same order.
func (s StringArray) Equal(other StringArray) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
