package entity

import (
	"encoding/json"
	"errors"
	"sort"
)

var (
	// ErrUnknownField is returned when a field map names a column outside the schema.
	ErrUnknownField = errors.New("unknown field in request")
	// ErrInvalidType is returned when a known field carries a value of the wrong kind.
	ErrInvalidType = errors.New("invalid data type provided")
)

// Kind is the primitive category of a field value.
type Kind int

const (
	KindInvalid Kind = iota
	KindText
	KindInteger
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "invalid"
	}
}

var (
	text    = []Kind{KindText}
	numeric = []Kind{KindFloat, KindInteger}
)

// ExpectedKinds maps every writable column to the kinds it accepts.
var ExpectedKinds = map[string][]Kind{
	"artist":      text,
	"title":       text,
	"description": text,
	"width":       numeric,
	"height":      numeric,
	"price":       numeric,
	"img_url":     text,
	"comments":    text,
}

// KindOf classifies a decoded value. Values with no matching kind
// (nil, bool, slices, maps) return KindInvalid.
func KindOf(v any) Kind {
	switch n := v.(type) {
	case string:
		return KindText
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case float32, float64:
		return KindFloat
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return KindInteger
		}
		if _, err := n.Float64(); err == nil {
			return KindFloat
		}
	}
	return KindInvalid
}

// KnownField reports whether name is a writable column.
func KnownField(name string) bool {
	_, ok := ExpectedKinds[name]
	return ok
}

// Columns returns the writable column names in sorted order.
func Columns() []string {
	names := make([]string, 0, len(ExpectedKinds))
	for name := range ExpectedKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every key against the schema before checking any value,
// so a map with both an unknown key and a mistyped value reports
// ErrUnknownField. An empty map is valid.
func Validate(fields Fields) error {
	for name := range fields {
		if !KnownField(name) {
			return ErrUnknownField
		}
	}

	for name, value := range fields {
		if !accepts(ExpectedKinds[name], KindOf(value)) {
			return ErrInvalidType
		}
	}

	return nil
}

func accepts(allowed []Kind, k Kind) bool {
	for _, a := range allowed {
		if a == k {
			return true
		}
	}
	return false
}
