package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a backend item identifier. Backends send ids as strings or numbers;
// both decode to the same textual form. An empty ID encodes as null.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("gateway: id must be a string or number, got %s", data)
		}
		*id = ID(n.String())
		return nil
	}
}

// MarshalJSON encodes the id as a string, or null when empty.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}
