package docvault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// EncodeCursor encodes the last returned name into an opaque pagination cursor.
func EncodeCursor(name string) string {
	return base64.URLEncoding.EncodeToString([]byte(name))
}

// DecodeCursor decodes a pagination cursor back to the last returned name.
// An empty cursor decodes to an empty name.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("decode cursor: invalid encoding: %w", errors.Join(err, ErrInvalidInput))
	}

	if len(decoded) == 0 {
		return "", fmt.Errorf("decode cursor: empty name: %w", ErrInvalidInput)
	}

	return string(decoded), nil
}

// EscapeLikePattern escapes special LIKE characters (%, _, \) to prevent SQL injection.
func EscapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, `%`, `\%`)
	pattern = strings.ReplaceAll(pattern, `_`, `\_`)
	return pattern
}
