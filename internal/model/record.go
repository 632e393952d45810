package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is DTO-shaped data keyed by JSON property name.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// DecodeRecord decodes a JSON object shaped as t. Values are converted to the
// property types; unknown keys are ignored.
func (t *Type) DecodeRecord(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var in map[string]any
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", t.Name, err)
	}
	if in == nil {
		return nil, fmt.Errorf("invalid %s data: expected an object", t.Name)
	}
	out := make(Record, len(in))
	for key, value := range in {
		p := t.PropertyByName(key)
		if p == nil {
			continue
		}
		v, err := p.Coerce(value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, p.JSONName, err)
		}
		out[p.JSONName] = v
	}
	return out, nil
}

// Coerce converts a JSON- or driver-provided value to the property's Go
// representation: int64, float64, bool, string (uuid canonical form), time.Time.
func (p *Property) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch p.Type {
	case "int":
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case json.Number:
			return x.Int64()
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case []byte:
			return strconv.ParseInt(string(x), 10, 64)
		case string:
			return strconv.ParseInt(x, 10, 64)
		}
	case "float":
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			return x.Float64()
		case []byte:
			return strconv.ParseFloat(string(x), 64)
		case string:
			return strconv.ParseFloat(x, 64)
		}
	case "bool":
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		}
	case "string":
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		}
	case "uuid":
		switch x := v.(type) {
		case string:
			id, err := uuid.Parse(x)
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		case [16]byte:
			return uuid.UUID(x).String(), nil
		case []byte:
			if len(x) == 16 {
				id, err := uuid.FromBytes(x)
				if err != nil {
					return nil, err
				}
				return id.String(), nil
			}
			id, err := uuid.ParseBytes(x)
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		}
	case "datetime", "date":
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			return parseTime(x)
		case []byte:
			return parseTime(string(x))
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, p.Type)
}

// ParseKey converts a key taken from a URL segment.
func (p *Property) ParseKey(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty key")
	}
	return p.Coerce(raw)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date/time %q", s)
}

// IsEmptyKey reports whether v does not identify a row: nil, zero, or empty.
func IsEmptyKey(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case int64:
		return x == 0
	case int:
		return x == 0
	case float64:
		return x == 0
	case string:
		return x == "" || x == uuid.Nil.String()
	}
	return false
}
