package models

import (
	"regexp"
	"strings"

	"pantry/internal/apperror"
)

var numericName = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ValidateName rejects blank and purely numeric values for the named field.
func ValidateName(field, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return apperror.InvalidArgument("%s can not be empty", field).WithDetail("field", field)
	}
	if numericName.MatchString(trimmed) {
		return apperror.InvalidArgument("%s can not be a numerical value", field).WithDetail("field", field)
	}
	return nil
}

// FoldName is the case-insensitive key for item, ingredient and recipe names.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
