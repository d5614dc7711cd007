package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifiers normalises a collection of record UIDs into their wire form.
//
// Accepted inputs are slices of strings or integers, and []any holding either.
// Strings are trimmed, integers rendered in base 10. A bare string or byte
// slice is rejected: iterating it would silently issue one query per
// character.
func Identifiers(v any) ([]string, error) {
	return normalizeIdentifiers("", v)
}

func normalizeIdentifiers(kind Kind, v any) ([]string, error) {
	switch ids := v.(type) {
	case nil:
		return nil, invalid(kind, "ids", "identifiers are required")
	case string:
		return nil, invalid(kind, "ids", "received string but a list-like container of identifiers was expected")
	case []byte:
		return nil, invalid(kind, "ids", "received bytes but a list-like container of identifiers was expected")
	case []string:
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = strings.TrimSpace(id)
		}
		return out, nil
	case []int:
		return formatInts(ids), nil
	case []int32:
		return formatInts(ids), nil
	case []int64:
		return formatInts(ids), nil
	case []uint:
		return formatUints(ids), nil
	case []uint32:
		return formatUints(ids), nil
	case []uint64:
		return formatUints(ids), nil
	case []any:
		out := make([]string, len(ids))
		for i, id := range ids {
			s, err := formatIdentifier(id)
			if err != nil {
				return nil, invalid(kind, "ids", "element %d: %v", i, err)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, invalid(kind, "ids", "unsupported identifier container %T, a list-like container of identifiers was expected", v)
	}
}

func formatIdentifier(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id), nil
	case int:
		return strconv.FormatInt(int64(id), 10), nil
	case int32:
		return strconv.FormatInt(int64(id), 10), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case uint:
		return strconv.FormatUint(uint64(id), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(id), 10), nil
	case uint64:
		return strconv.FormatUint(id, 10), nil
	default:
		return "", fmt.Errorf("unsupported identifier type %T", v)
	}
}

func formatInts[T int | int32 | int64](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(int64(id), 10)
	}
	return out
}

func formatUints[T uint | uint32 | uint64](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatUint(uint64(id), 10)
	}
	return out
}

func joinIdentifiers(ids []string) string {
	return strings.Join(ids, ",")
}

// summarizeIdentifiers prints short lists verbatim and long ones as a count.
func summarizeIdentifiers(ids []string) string {
	if len(ids) <= 5 {
		return "[" + strings.Join(ids, " ") + "]"
	}
	return fmt.Sprintf("%d ids", len(ids))
}
