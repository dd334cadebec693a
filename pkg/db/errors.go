package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. The string match keeps the check portable across the
// postgres and sqlite drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
