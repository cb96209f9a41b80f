package model

import (
	"encoding/json"
	"fmt"
)

// ID identifies a server record. The API sends ids as JSON integers or
// strings depending on the resource; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string or number. null leaves the id empty.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// IDValue dereferences an optional id.
func IDValue(id *ID) string {
	if id == nil {
		return ""
	}
	return string(*id)
}

// IDPtr returns a pointer to id, or nil when id is empty.
func IDPtr(id string) *ID {
	if id == "" {
		return nil
	}
	v := ID(id)
	return &v
}
