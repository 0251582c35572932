package storage

import (
	"fmt"
	"strconv"
)

// FormatID renders an Append id as a record key.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID is the inverse of FormatID.
func ParseID(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q: %w", key, err)
	}
	return id, nil
}
