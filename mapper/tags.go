package mapper

import (
	"fmt"
	"strings"
)

// FieldTag is the parsed form of an `odata` struct tag.
type FieldTag struct {
	// Name overrides the exposed property name.
	Name string
	// Key marks the property as part of the entity key.
	Key bool
	// Skip hides the field from the schema.
	Skip bool
}

// ParseTag parses an `odata` struct tag such as `odata:"Title,key"`.
// The first element is the property name and may be empty (`odata:",key"`).
func ParseTag(tag string) (FieldTag, error) {
	if tag == "" || tag == "-" {
		return FieldTag{Skip: tag == "-"}, nil
	}

	parts := strings.Split(tag, ",")
	ft := FieldTag{}

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		switch {
		case part == "key":
			ft.Key = true
		case part == "-":
			ft.Skip = true
		case i == 0:
			ft.Name = part
		default:
			return FieldTag{}, fmt.Errorf("unknown tag option: %q", part)
		}
	}

	return ft, nil
}
