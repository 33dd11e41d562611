package sync

import (
	"fmt"
	"strings"
)

// forbidden in file names on at least one supported platform
const invalidNameChars = `/\:*?"<>|`

// SanitizeTitle maps a document title to a safe file name stem. May return
// the empty string when nothing survives.
func SanitizeTitle(title string) string {
	var sb strings.Builder
	for _, r := range title {
		if r < 0x20 || strings.ContainsRune(invalidNameChars, r) {
			continue
		}
		sb.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(sb.String()), " ")
	return strings.Trim(cleaned, " .")
}

// DesiredFileName returns the file name a document wants, falling back to
// the document id when the title sanitizes to nothing.
func DesiredFileName(title, documentID string) string {
	stem := SanitizeTitle(title)
	if stem == "" {
		stem = documentID
	}
	return stem + ".md"
}

// UniqueRelPath makes desired unique against used by appending -1, -2, ...
// before the extension. The caller excludes the document's own current path
// from used so a stable name never shifts.
func UniqueRelPath(desired string, used map[string]struct{}) string {
	if _, taken := used[desired]; !taken {
		return desired
	}
	stem := strings.TrimSuffix(desired, ".md")
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d.md", stem, i)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}
