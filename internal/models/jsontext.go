package models

import (
	"database/sql/driver"
	"encoding/json"
	"github.com/myrjola/whodunnit/internal/errors"
	"log/slog"
)

// StringMap is a free-form map persisted as a JSON object in a TEXT column. Key conventions
// (e.g. "image_url" in metadata) are documented on the fields that use them, not enforced.
type StringMap map[string]string

// Value implements driver.Valuer.
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal string map")
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *StringMap) Scan(src any) error {
	return scanJSONText(src, m, "string map")
}

// StringList is a list of strings persisted as a JSON array in a TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "marshal string list")
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	return scanJSONText(src, l, "string list")
}

func scanJSONText(src any, dst any, what string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(v), dst); err != nil {
			return errors.Wrap(err, "unmarshal "+what, slog.String("value", v))
		}
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return errors.Wrap(err, "unmarshal "+what, slog.String("value", string(v)))
		}
		return nil
	default:
		return errors.New("unsupported source type for "+what, slog.Any("src", src))
	}
}
