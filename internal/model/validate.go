package model

import "fmt"

// maxLen rejects values exceeding the boundary contract for a field. Values
// over a bound fail validation before submission; they are never silently
// truncated (drug name is the one documented exception, truncated at
// construction).
func maxLen(field, value string, limit int) error {
	if len([]rune(value)) > limit {
		return fmt.Errorf("%s: value exceeds %d characters", field, limit)
	}
	return nil
}

func maxLenPtr(field string, value *string, limit int) error {
	if value == nil {
		return nil
	}
	return maxLen(field, *value, limit)
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
