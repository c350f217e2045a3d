package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CountMap is a status-name -> count mapping stored as a JSON TEXT column.
type CountMap map[string]int

func (m CountMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *CountMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// LogLines is an ordered sequence of log lines stored as a JSON TEXT column.
type LogLines []string

func (l LogLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *LogLines) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// JSONBlob holds free-form structured data (before/after state, command
// params, discrepancy details) as a nullable JSON TEXT column.
type JSONBlob map[string]interface{}

func (b JSONBlob) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (b *JSONBlob) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	return scanJSON(src, b)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", src)
	}
}
