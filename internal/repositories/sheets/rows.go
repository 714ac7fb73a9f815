package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// cellString normalises a spreadsheet cell to a trimmed string.
func cellString(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// cellInt64 parses a spreadsheet cell as a whole number. Formatted values
// may carry currency separators which are stripped before parsing.
func cellInt64(row []interface{}, idx int) (int64, error) {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return 0, fmt.Errorf("cell %d is empty", idx)
	}
	switch v := row[idx].(type) {
	case float64:
		return int64(v), nil
	case string:
		cleaned := strings.NewReplacer(",", "", "¥", "", " ", "").Replace(strings.TrimSpace(v))
		if cleaned == "" {
			return 0, fmt.Errorf("cell %d is empty", idx)
		}
		parsed, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cell %d: %w", idx, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("cell %d has unsupported type %T", idx, v)
	}
}

// cellBool interprets the truthy spellings spreadsheet editors actually type.
func cellBool(row []interface{}, idx int) bool {
	switch strings.ToLower(cellString(row, idx)) {
	case "true", "yes", "y", "1", "○":
		return true
	}
	return false
}
