package domain

import (
	"database/sql/driver"
	"encoding/json"
)

// ItemList stores playlist items as a JSON column.
type ItemList []PlaylistItem

func (l ItemList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *ItemList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}

	return json.Unmarshal(data, l)
}
