package repository

import (
	"encoding/json"
)

// Multi-select fields and image arrays are stored as JSON arrays in TEXT
// columns.  Unreadable column content decodes as an empty array.

func encodeStrings(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStrings(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func encodeSizes(sizes []int64) string {
	if len(sizes) == 0 {
		return "[]"
	}
	b, err := json.Marshal(sizes)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeSizes tolerates non-integer entries by reading them as zero.
func decodeSizes(raw string) []int64 {
	var vals []json.Number
	if raw == "" || json.Unmarshal([]byte(raw), &vals) != nil {
		return []int64{}
	}
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				f = 0
			}
			n = int64(f)
		}
		out = append(out, n)
	}
	return out
}
