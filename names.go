package docvault

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted document name in bytes.
const MaxNameLength = 255

// TemplateName is the reserved name the document template is stored under.
const TemplateName = ".template.docx"

// IsValidName validates that a document name is usable as a key in the flat namespace.
// It checks that the name:
//   - is not empty and at most MaxNameLength bytes
//   - contains no path separators (/ or \)
//   - does not start with "." (reserved for temp files and the template)
//   - does not contain ".."
//   - does not contain ? # or %
//   - is valid UTF-8 without control characters
//
// Spaces are allowed.
func IsValidName(name string) bool {
	if name == "" || len(name) > MaxNameLength {
		return false
	}

	if name[0] == '.' {
		return false
	}

	if strings.Contains(name, "..") {
		return false
	}

	if strings.ContainsAny(name, `/\?#%`) {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}

	return true
}

// IsReservedName reports whether a stored name must be hidden from listings.
func IsReservedName(name string) bool {
	return strings.HasPrefix(name, ".")
}
